package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

const defaultConfigPath = "leadyard.yaml"

func newRootCmd() *cobra.Command {
	var logOpts logOptions

	cmd := &cobra.Command{
		Use:   "leadyard",
		Short: "Leadyard: lead intake and escalation for chat platforms",
		Long:  "Leadyard collects leads from chat conversations, classifies them and reminds operators until every lead is contacted.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logOpts.apply()
		},
	}
	cmd.PersistentFlags().StringVar(&logOpts.level, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&logOpts.json, "log-json", false, "emit logs as JSON")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newDBCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newLeadsCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newRemindCmd())
	cmd.AddCommand(newTokenCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "leadyard %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
