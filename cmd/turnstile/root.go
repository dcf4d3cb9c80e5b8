package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ferrou/turnstile/internal/cli"
)

var rootCmd = &cobra.Command{
	Use:   "turnstile",
	Short: "Turnstile is a configurable multi-step checkout engine",
	Long: `Turnstile drives checkouts through a configurable step flow.
Flows come from a YAML declaration (--flow), a directory of markdown step
documents (--dir), or the built-in default checkout sequence.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("flow", "", "YAML flow declaration file")
	rootCmd.PersistentFlags().String("dir", "", "Directory of markdown step documents")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}

func logLevel(debug bool) slog.Level {
	if debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// sharedOptions collects the persistent flags into RunOptions.
func sharedOptions(cmd *cobra.Command) cli.RunOptions {
	flowFile, _ := cmd.Flags().GetString("flow")
	dir, _ := cmd.Flags().GetString("dir")
	debug, _ := cmd.Flags().GetBool("debug")
	return cli.RunOptions{FlowFile: flowFile, Dir: dir, Debug: debug}
}
