package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newRemindCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Run one escalation tick",
		Long: `Runs both reminder passes once and exits. Leads already reminded at a
threshold are skipped, so running this alongside "serve" never duplicates
reminders.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemind(cmd.Context(), cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Leadyard config file")
	return cmd
}

func runRemind(ctx context.Context, cmd *cobra.Command, configPath string) error {
	a, err := openApp(configPath, true)
	if err != nil {
		return err
	}
	defer a.Close()

	adapter, err := createAdapter(a.cfg)
	if err != nil {
		return err
	}
	if adapter != nil {
		if err := adapter.Connect(ctx); err != nil {
			return err
		}
		defer adapter.Close()
	}

	notifier, err := a.newNotifier(adapter)
	if err != nil {
		return err
	}
	scheduler, err := a.newScheduler(notifier, a.newLocker())
	if err != nil {
		return err
	}

	report, err := scheduler.Tick(ctx)
	out := cmd.OutOrStdout()
	if report.LockSkipped {
		fmt.Fprintln(out, "Skipped: another replica holds the escalation lock.")
		return nil
	}
	fmt.Fprintf(out, "Reminders sent: first=%d second=%d (delivery failures: %d)\n",
		report.FirstSent, report.SecondSent, report.Failures)
	return err
}
