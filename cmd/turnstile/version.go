package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ferrou/turnstile"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of turnstile",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("turnstile version %s\n", strings.TrimSpace(turnstile.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
