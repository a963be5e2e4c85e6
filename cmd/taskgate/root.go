package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "taskgate",
	Short: "Taskgate - per-user task admission service",
	Long: `Taskgate is a task admission service that rate-limits work per user.

Each submitted task passes through a two-tier sliding-window rate limit:
a short burst window and a longer sustained window. Tasks under both
thresholds execute immediately; tasks over either threshold are queued in
a durable per-user backlog and drained in the background as capacity
frees up.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
