package graph

import (
	"fmt"
	"strings"

	"github.com/ferrou/turnstile/pkg/domain"
)

// FlowOverlay contains dynamic checkout state to visualize on the flow.
type FlowOverlay struct {
	VisitedSteps []string
	CurrentStep  string
}

// GenerateMermaid produces a Mermaid flowchart from a resolved step sequence.
// Steps registered with a condition render as parallelograms; steps in the
// registry but not active for the resolving context render detached with a
// dotted style. Overlay styles mark visited and current steps when provided.
func GenerateMermaid(steps []domain.Step, seq []string, overlay *FlowOverlay) string {
	conditional := make(map[string]bool, len(steps))
	registered := make([]string, 0, len(steps))
	for _, s := range steps {
		conditional[s.Name] = s.Condition != nil
		registered = append(registered, s.Name)
	}
	active := make(map[string]bool, len(seq))
	for _, name := range seq {
		active[name] = true
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for i, name := range seq {
		sb.WriteString(nodeLabel(name, i == 0, conditional[name]))
		if i > 0 {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", sanitizeMermaidID(seq[i-1]), sanitizeMermaidID(name)))
		}
	}

	var inactive []string
	for _, name := range registered {
		if !active[name] {
			sb.WriteString(nodeLabel(name, false, conditional[name]))
			inactive = append(inactive, name)
		}
	}
	if len(inactive) > 0 {
		sb.WriteString("\n    classDef inactive stroke-dasharray: 5 5,color:#888;\n")
		for _, name := range inactive {
			sb.WriteString(fmt.Sprintf("    class %s inactive;\n", sanitizeMermaidID(name)))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text for high contrast regardless of theme
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, name := range overlay.VisitedSteps {
			safeID := sanitizeMermaidID(name)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}

		if overlay.CurrentStep != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentStep)))
		}
	}

	return sb.String()
}

func nodeLabel(name string, first, conditional bool) string {
	safeID := sanitizeMermaidID(name)

	opener, closer := "[", "]"
	switch {
	case first:
		opener, closer = "((", "))"
	case conditional:
		opener, closer = "[/", "/]"
	}

	return fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, name, closer)
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
