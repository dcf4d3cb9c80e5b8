package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ferrou/turnstile/internal/cli"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Walk a checkout interactively",
	Long:  `Starts an interactive checkout session on the terminal, rendering each step's content and accepting next/back/jump commands.`,
	Run: func(cmd *cobra.Command, args []string) {
		opts := sharedOptions(cmd)
		opts.CheckoutID, _ = cmd.Flags().GetString("checkout")
		opts.RedisAddr, _ = cmd.Flags().GetString("redis")
		opts.StateDir, _ = cmd.Flags().GetString("state-dir")
		watchMode, _ := cmd.Flags().GetBool("watch")

		if watchMode {
			if opts.Dir == "" {
				fmt.Println("Error: --watch requires --dir.")
				os.Exit(1)
			}
			if err := cli.RunWatch(opts.Dir); err != nil {
				fmt.Printf("Error: %v\n", err)
				os.Exit(1)
			}
			return
		}

		if err := cli.RunSession(opts); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("checkout", "", "Checkout session ID to create or resume")
	runCmd.Flags().String("redis", "", "Redis address for persistent sessions (host:port)")
	runCmd.Flags().String("state-dir", "", "Directory for file-backed sessions (default: in-memory)")
	runCmd.Flags().BoolP("watch", "w", false, "Watch a flow directory and re-validate on change")

	rootCmd.Run = runCmd.Run
}
