package main

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "mvccpctl",
	Short: "mvccpctl runs and inspects in-process MVCCP charging-coordination scenarios.",
	Long: `mvccpctl drives a fleet of MVCCP nodes over an in-memory lossy ` +
		`broadcast medium, without needing a real radio or a full traffic ` +
		`simulator, for exercising the protocol core end to end.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
