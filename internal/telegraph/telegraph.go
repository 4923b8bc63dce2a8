package telegraph

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zulandar/leadyard/internal/config"
	"github.com/zulandar/leadyard/internal/events"
	"github.com/zulandar/leadyard/internal/lead"
)

// DefaultSweepInterval is how often idle intake sessions are swept.
const DefaultSweepInterval = time.Minute

// IntakeMachine is the intake conversation runner the daemon drives.
type IntakeMachine interface {
	IntakeHandler
	Sweep() int
}

// Runner is a background loop that stops when its context is cancelled,
// such as the escalation scheduler.
type Runner interface {
	Run(ctx context.Context) error
}

// Daemon is the main telegraph process. It connects to a chat platform via
// an Adapter, pumps inbound messages to the Router one at a time, and runs
// the escalation scheduler, the digest and the idle-session sweeper.
type Daemon struct {
	cfg           *config.Config
	adapter       Adapter
	store         lead.Store
	intake        IntakeMachine
	scheduler     Runner
	events        events.Publisher
	sweepInterval time.Duration
	log           *logrus.Logger
}

// DaemonOpts holds parameters for creating a new Daemon.
type DaemonOpts struct {
	Config        *config.Config
	Adapter       Adapter
	Store         lead.Store
	Intake        IntakeMachine
	Scheduler     Runner // optional; reminders disabled when nil
	Events        events.Publisher
	SweepInterval time.Duration // defaults to DefaultSweepInterval
	Log           *logrus.Logger
}

// NewDaemon creates a Daemon with the given options.
func NewDaemon(opts DaemonOpts) (*Daemon, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("telegraph: config is required")
	}
	if opts.Adapter == nil {
		return nil, fmt.Errorf("telegraph: adapter is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("telegraph: store is required")
	}
	if opts.Intake == nil {
		return nil, fmt.Errorf("telegraph: intake machine is required")
	}
	if opts.Events == nil {
		opts.Events = events.NopPublisher{}
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.Scheduler == nil {
		opts.Log.Warn("telegraph: no scheduler configured; reminders disabled")
	}
	return &Daemon{
		cfg:           opts.Config,
		adapter:       opts.Adapter,
		store:         opts.Store,
		intake:        opts.Intake,
		scheduler:     opts.Scheduler,
		events:        opts.Events,
		sweepInterval: opts.SweepInterval,
		log:           opts.Log,
	}, nil
}

// Run starts the telegraph daemon. It connects the adapter, builds the
// Router, starts the background loops, and blocks until the context is
// cancelled. On shutdown it waits for the loops and closes the adapter.
func (d *Daemon) Run(ctx context.Context) error {
	d.log.Info("telegraph connecting...")
	if err := d.adapter.Connect(ctx); err != nil {
		return fmt.Errorf("telegraph: connect: %w", err)
	}

	// Extract bot user ID if the adapter supports it.
	var botUserID string
	if bui, ok := d.adapter.(BotUserIDer); ok {
		botUserID = bui.BotUserID()
	}

	cmdHandler, err := NewCommandHandler(CommandHandlerOpts{
		Store:    d.store,
		Events:   d.events,
		Language: d.cfg.Notify.Language,
		Location: d.cfg.Location(),
		Log:      d.log,
	})
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("telegraph: build command handler: %w", err)
	}

	router, err := NewRouter(RouterOpts{
		Intake:     d.intake,
		CmdHandler: cmdHandler,
		Adapter:    d.adapter,
		BotUserID:  botUserID,
		IsAdmin:    d.cfg.IsAdmin,
		Log:        d.log,
	})
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("telegraph: build router: %w", err)
	}

	inbound, err := d.adapter.Listen(ctx)
	if err != nil {
		d.adapter.Close()
		return fmt.Errorf("telegraph: listen: %w", err)
	}

	loopCtx, stopLoops := context.WithCancel(ctx)
	var wg sync.WaitGroup
	if d.scheduler != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := d.scheduler.Run(loopCtx); err != nil {
				d.log.WithError(err).Error("telegraph: scheduler stopped")
			}
		}()
	}
	wg.Add(2)
	go func() {
		defer wg.Done()
		d.runDigestScheduler(loopCtx)
	}()
	go func() {
		defer wg.Done()
		d.runSweeper(loopCtx)
	}()

	shutdown := func() {
		stopLoops()
		wg.Wait()
		if err := d.adapter.Close(); err != nil {
			d.log.WithError(err).Warn("telegraph: close adapter")
		}
	}

	d.log.Info("telegraph online")

	// Main event loop: pump inbound messages until context is cancelled.
	// Messages are handled in arrival order, one at a time.
	for {
		select {
		case <-ctx.Done():
			d.log.Info("telegraph shutting down...")
			shutdown()
			d.log.Info("telegraph stopped")
			return nil

		case msg, ok := <-inbound:
			if !ok {
				d.log.Warn("telegraph inbound channel closed")
				shutdown()
				return nil
			}
			router.Handle(ctx, msg)
		}
	}
}

// runSweeper periodically destroys idle intake sessions.
func (d *Daemon) runSweeper(ctx context.Context) {
	ticker := time.NewTicker(d.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := d.intake.Sweep(); n > 0 {
				d.log.WithField("sessions", n).Debug("telegraph: sweeper pass")
			}
		}
	}
}

// runDigestScheduler posts the statistics digest on the configured cron
// schedule. It returns immediately if the digest is disabled.
func (d *Daemon) runDigestScheduler(ctx context.Context) {
	digestCfg := d.cfg.Telegraph.Digest
	if !digestCfg.Enabled || digestCfg.Cron == "" {
		return
	}
	loc := d.cfg.Location()

	wait := nextCronDuration(digestCfg.Cron, loc)
	if wait <= 0 {
		d.log.WithField("cron", digestCfg.Cron).Error("telegraph: invalid digest schedule")
		return
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			d.fireDigest(ctx)
			if wait := nextCronDuration(digestCfg.Cron, loc); wait > 0 {
				timer.Reset(wait)
			}
		}
	}
}

// fireDigest builds and posts one digest to the operator channel.
func (d *Daemon) fireDigest(ctx context.Context) {
	digest, err := BuildDigest(ctx, d.store, d.cfg.Notify.Language)
	if err != nil {
		d.log.WithError(err).Error("telegraph: digest")
		return
	}
	if digest == nil {
		// No leads yet.
		return
	}
	if err := d.adapter.Send(ctx, OutboundMessage{
		ChannelID: d.cfg.Telegraph.Channel,
		Events:    []FormattedEvent{*digest},
	}); err != nil {
		d.log.WithError(err).Error("telegraph: send digest")
	}
}
