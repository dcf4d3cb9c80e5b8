package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ferrou/turnstile"
	"github.com/ferrou/turnstile/internal/presentation/tui"
	"github.com/ferrou/turnstile/pkg/domain"
)

// RunSession drives one checkout interactively on stdin/stdout.
func RunSession(opts RunOptions) error {
	logger := createLogger(opts.Debug)

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	def, loader, err := LoadDefinition(sigCtx, opts)
	if err != nil {
		return fmt.Errorf("failed to load flow: %w", err)
	}
	if err := def.Validate(); err != nil {
		return fmt.Errorf("flow is not valid: %w", err)
	}

	eng, err := turnstile.New(def, turnstile.WithLogger(logger))
	if err != nil {
		return err
	}

	sessions, err := SetupSessions(opts, logger)
	if err != nil {
		return err
	}

	tui.PrintBanner()
	render := tui.NewRenderer()

	var content contentSource
	if loader != nil {
		content = loader
	}

	id := opts.CheckoutID
	if id == "" {
		id = "local"
	}

	c, err := sessions.Load(sigCtx, id)
	switch {
	case errors.Is(err, domain.ErrCheckoutNotFound):
		c, err = eng.Start(sigCtx, id)
		if err != nil {
			return err
		}
		if err := sessions.Save(sigCtx, c); err != nil {
			return err
		}
		printSystemMessage("Checkout '%s' started.", id)
	case err != nil:
		return err
	default:
		printSystemMessage("Resuming checkout '%s' at '%s'.", id, c.CurrentStep)
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		if sigCtx.Err() != nil {
			printSystemMessage("Interrupted (%v).", sigCtx.Signal())
			return nil
		}

		printStep(sigCtx, eng, content, render, c)
		if c.Status == domain.StatusCompleted {
			printSystemMessage("Checkout complete. Thanks!")
			return nil
		}

		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil
		}
		args := strings.Fields(strings.TrimSpace(line))
		if len(args) == 0 {
			continue
		}

		var res *domain.Result
		switch args[0] {
		case "next", "n":
			r := eng.Advance(sigCtx, c)
			res = &r
		case "back", "b":
			r := eng.Retreat(sigCtx, c)
			res = &r
		case "jump", "j":
			if len(args) < 2 {
				printSystemMessage("Usage: jump <step>")
				continue
			}
			r := eng.Jump(sigCtx, c, args[1])
			res = &r
		case "set":
			if len(args) < 3 {
				printSystemMessage("Usage: set <field> <value>")
				continue
			}
			setField(c, args[1], args[2])
			if err := sessions.Save(sigCtx, c); err != nil {
				return err
			}
		case "fields":
			fmt.Printf("Permitted fields here: %v\n", eng.PermittedFields(c.CurrentStep))
		case "help", "h":
			fmt.Println("Commands: next, back, jump <step>, set <field> <value>, fields, quit")
		case "quit", "q", "exit":
			printSystemMessage("Bye!")
			return nil
		default:
			printSystemMessage("Unknown command %q (try 'help').", args[0])
		}

		if res != nil {
			reportResult(*res)
			if res.Committed() {
				if err := sessions.Save(sigCtx, c); err != nil {
					return err
				}
			}
		}
	}
}

func printStep(ctx context.Context, eng *turnstile.Engine, loader contentSource, render func(string) (string, error), c *domain.Checkout) {
	seq, err := eng.ResolveFlow(c)
	if err != nil {
		printSystemMessage("Flow resolution failed: %v", err)
		return
	}

	marks := make([]string, 0, len(seq))
	for _, step := range seq {
		if step == c.CurrentStep {
			marks = append(marks, "["+step+"]")
		} else {
			marks = append(marks, step)
		}
	}
	fmt.Printf("\n%s\n\n", strings.Join(marks, " -> "))

	body := "## " + titleCase(c.CurrentStep)
	if loader != nil {
		if md, err := loader.Content(ctx, c.CurrentStep); err == nil && strings.TrimSpace(md) != "" {
			body = md
		}
	}
	if out, err := render(body); err == nil {
		fmt.Print(out)
	} else {
		fmt.Println(body)
	}
}

// contentSource lets printStep take a nil loader without a typed-nil pitfall.
type contentSource interface {
	Content(ctx context.Context, step string) (string, error)
}

func titleCase(step string) string {
	words := strings.Split(strings.ReplaceAll(step, "_", " "), " ")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func reportResult(res domain.Result) {
	switch res.Outcome {
	case domain.OutcomeCommitted:
		if res.Terminal {
			printSystemMessage("Order placed.")
		}
	case domain.OutcomeRejected:
		printSystemMessage("Move refused: %s", res.Reason)
	case domain.OutcomeErrored:
		printSystemMessage("Move failed: %v", res.Err)
	}
}

// setField updates the simulated checkout state. The well-known fields map to
// the typed columns; anything else lands in the free-form Fields map.
func setField(c *domain.Checkout, name, value string) {
	switch name {
	case "total":
		if cents, ok := ParseAmount(value); ok {
			c.TotalCents = cents
			return
		}
	case "balance":
		if cents, ok := ParseAmount(value); ok {
			c.BalanceCents = cents
			return
		}
	case "address_valid":
		if v, err := strconv.ParseBool(value); err == nil {
			c.AddressValid = v
			return
		}
	case "payment_captured":
		if v, err := strconv.ParseBool(value); err == nil {
			c.Captured = v
			return
		}
	default:
		if c.Fields == nil {
			c.Fields = make(map[string]any)
		}
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			c.Fields[name] = f
		} else {
			c.Fields[name] = value
		}
		return
	}
	printSystemMessage("Invalid value %q for %s.", value, name)
}

// ParseAmount reads a major-unit amount ("49.99") into cents.
func ParseAmount(s string) (int64, bool) {
	whole, frac, _ := strings.Cut(s, ".")
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, false
	}
	switch len(frac) {
	case 0:
		return units * 100, true
	case 1:
		frac += "0"
	case 2:
	default:
		return 0, false
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, false
	}
	return units*100 + cents, true
}
