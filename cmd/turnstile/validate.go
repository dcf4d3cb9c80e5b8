package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ferrou/turnstile/internal/cli"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the flow for consistency",
	Long: `Freezes the configured flow and checks every positional reference and the
step ordering for cycles and dangling anchors, including steps that only
activate conditionally.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(cmd); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Flow is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command) error {
	def, _, err := cli.LoadDefinition(context.Background(), sharedOptions(cmd))
	if err != nil {
		return err
	}
	return def.Validate()
}
