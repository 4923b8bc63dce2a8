package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/leadyard/internal/dashboard"
	"github.com/zulandar/leadyard/internal/telegraph"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	var (
		configPath  string
		noDashboard bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat bridge, escalation scheduler and dashboard",
		Long: `Connects to the configured chat platform and runs lead intake, operator
commands, escalation reminders, the daily digest and the operator HTTP API
until interrupted.

Without a chat platform only the scheduler (email operators) and the
dashboard run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, configPath, !noDashboard)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Leadyard config file")
	cmd.Flags().BoolVar(&noDashboard, "no-dashboard", false, "do not start the HTTP API")
	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, configPath string, withDashboard bool) error {
	a, err := openApp(configPath, true)
	if err != nil {
		return err
	}
	defer a.Close()

	adapter, err := createAdapter(a.cfg)
	if err != nil {
		return err
	}

	notifier, err := a.newNotifier(adapter)
	if err != nil {
		return err
	}
	scheduler, err := a.newScheduler(notifier, a.newLocker())
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if adapter != nil {
		machine, err := a.newMachine(notifier)
		if err != nil {
			return err
		}
		daemon, err := telegraph.NewDaemon(telegraph.DaemonOpts{
			Config:    a.cfg,
			Adapter:   adapter,
			Store:     a.store,
			Intake:    machine,
			Scheduler: scheduler,
			Events:    a.events,
			Log:       log,
		})
		if err != nil {
			return err
		}
		g.Go(func() error { return daemon.Run(gctx) })
	} else {
		log.Warn("no chat platform configured, intake disabled")
		g.Go(func() error { return scheduler.Run(gctx) })
	}

	switch {
	case !withDashboard:
	case a.cfg.Dashboard.JWTSecret == "":
		log.Warn("dashboard.jwt_secret is not set, dashboard disabled")
	default:
		g.Go(func() error {
			return dashboard.Start(gctx, dashboard.StartOpts{
				ServerOpts: dashboard.ServerOpts{
					Store:     a.store,
					Events:    a.events,
					Gatherer:  a.reg,
					JWTSecret: a.cfg.Dashboard.JWTSecret,
					Location:  a.cfg.Location(),
					Log:       log,
				},
				Port: a.cfg.Dashboard.Port,
				Out:  cmd.OutOrStdout(),
			})
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Leadyard serving (platform: %s, operators: %d)\n",
		platformName(a.cfg.Telegraph.Platform), len(a.cfg.Operators))

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func platformName(p string) string {
	if p == "" {
		return "none"
	}
	return p
}
