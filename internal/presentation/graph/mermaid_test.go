package graph_test

import (
	"strings"
	"testing"

	"github.com/ferrou/turnstile/internal/presentation/graph"
	"github.com/ferrou/turnstile/pkg/domain"
)

func steps() []domain.Step {
	return []domain.Step{
		{Name: "cart"},
		{Name: "address"},
		{Name: "gift_wrap", Condition: func(domain.Context) bool { return false }},
		{Name: "confirm"},
	}
}

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		seq      []string
		overlay  *graph.FlowOverlay
		contains []string
	}{
		{
			name: "First Step Shape",
			seq:  []string{"cart", "address", "confirm"},
			contains: []string{
				"cart((\"cart\"))",
				"address[\"address\"]",
				"cart --> address",
				"address --> confirm",
			},
		},
		{
			name: "Conditional Step Shape",
			seq:  []string{"cart", "gift_wrap", "confirm"},
			contains: []string{
				"gift_wrap[/\"gift_wrap\"/]",
			},
		},
		{
			name: "Inactive Step Styling",
			seq:  []string{"cart", "address", "confirm"},
			contains: []string{
				"class gift_wrap inactive;",
			},
		},
		{
			name: "Overlay Styles",
			seq:  []string{"cart", "address", "confirm"},
			overlay: &graph.FlowOverlay{
				VisitedSteps: []string{"cart", "cart"},
				CurrentStep:  "address",
			},
			contains: []string{
				"class cart visited;",
				"class address current;",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := graph.GenerateMermaid(steps(), tt.seq, tt.overlay)
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("expected output to contain %q\ngot:\n%s", want, out)
				}
			}
		})
	}
}

func TestGenerateMermaid_DeduplicatesVisited(t *testing.T) {
	out := graph.GenerateMermaid(steps(), []string{"cart", "address"}, &graph.FlowOverlay{
		VisitedSteps: []string{"cart", "cart", "address"},
	})
	if strings.Count(out, "class cart visited;") != 1 {
		t.Errorf("expected one visited entry for cart, got:\n%s", out)
	}
}
