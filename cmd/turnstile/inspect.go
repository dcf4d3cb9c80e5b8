package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ferrou/turnstile/internal/cli"
	"github.com/ferrou/turnstile/internal/presentation/graph"
	"github.com/ferrou/turnstile/pkg/domain"
)

// inspectCmd resolves the flow for a simulated checkout context and prints
// the active sequence, optionally as a Mermaid diagram.
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show the resolved flow for a checkout context",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runInspect(cmd); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().String("total", "0", "Order total in major units, e.g. 49.99")
	inspectCmd.Flags().Bool("address-valid", false, "Simulate a valid address")
	inspectCmd.Flags().Bool("captured", false, "Simulate captured payment")
	inspectCmd.Flags().Bool("mermaid", false, "Output a Mermaid diagram instead of a list")
}

func runInspect(cmd *cobra.Command) error {
	def, _, err := cli.LoadDefinition(context.Background(), sharedOptions(cmd))
	if err != nil {
		return err
	}

	c := domain.NewCheckout("inspect", "")
	if total, _ := cmd.Flags().GetString("total"); total != "" {
		cents, ok := cli.ParseAmount(total)
		if !ok {
			return fmt.Errorf("invalid total %q", total)
		}
		c.TotalCents = cents
	}
	c.AddressValid, _ = cmd.Flags().GetBool("address-valid")
	c.Captured, _ = cmd.Flags().GetBool("captured")

	seq, err := def.Resolve(c)
	if err != nil {
		return err
	}

	if mermaid, _ := cmd.Flags().GetBool("mermaid"); mermaid {
		fmt.Print(graph.GenerateMermaid(def.Steps(), seq, nil))
		return nil
	}

	for i, step := range seq {
		fields := def.PermittedFields(step)
		if len(fields) > 0 {
			fmt.Printf("%2d. %-12s permitted: %v\n", i+1, step, fields)
		} else {
			fmt.Printf("%2d. %s\n", i+1, step)
		}
	}
	return nil
}
