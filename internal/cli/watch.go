package cli

import (
	"context"
	"fmt"
	"time"

	loamadapter "github.com/ferrou/turnstile/pkg/adapters/loam"
	"github.com/ferrou/turnstile/pkg/domain"
)

// RunWatch validates a loam flow directory and re-validates on every file
// change, printing the resolved sequence for a representative checkout. It is
// meant as a live linting loop while authoring step documents.
func RunWatch(dir string) error {
	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	loader, err := loamadapter.Open(dir)
	if err != nil {
		return err
	}

	events, err := loader.Watch(sigCtx)
	if err != nil {
		return err
	}

	printSystemMessage("Watching '%s' for flow changes...", dir)
	revalidate(sigCtx, loader)

	for {
		select {
		case <-sigCtx.Done():
			printSystemMessage("Watcher stopped (%v).", sigCtx.Signal())
			return nil
		case id, ok := <-events:
			if !ok {
				return nil
			}
			printSystemMessage("Change in '%s' at %s", id, time.Now().Format(time.TimeOnly))
			revalidate(sigCtx, loader)
		}
	}
}

func revalidate(ctx context.Context, loader *loamadapter.Loader) {
	b, err := loader.Builder(ctx)
	if err != nil {
		printSystemMessage("Load failed: %v", err)
		return
	}
	def, err := b.Freeze()
	if err != nil {
		printSystemMessage("Freeze failed: %v", err)
		return
	}
	if err := def.Validate(); err != nil {
		printSystemMessage("Validation failed: %v", err)
		return
	}

	seq, err := def.Resolve(&domain.Checkout{TotalCents: 10000, AddressValid: true})
	if err != nil {
		printSystemMessage("Resolution failed: %v", err)
		return
	}
	fmt.Printf("    flow ok: %v\n", seq)
}
