package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/zulandar/leadyard/internal/classify"
	"github.com/zulandar/leadyard/internal/config"
	"github.com/zulandar/leadyard/internal/db"
	"github.com/zulandar/leadyard/internal/escalation"
	"github.com/zulandar/leadyard/internal/events"
	"github.com/zulandar/leadyard/internal/intake"
	"github.com/zulandar/leadyard/internal/lead"
	"github.com/zulandar/leadyard/internal/metrics"
	"github.com/zulandar/leadyard/internal/notify"
	"github.com/zulandar/leadyard/internal/telegraph"
	discordadapter "github.com/zulandar/leadyard/internal/telegraph/discord"
	slackadapter "github.com/zulandar/leadyard/internal/telegraph/slack"
	"gorm.io/gorm"
)

// log is the process logger configured by the root command's flags.
var log = logrus.New()

type logOptions struct {
	level string
	json  bool
}

func (o logOptions) apply() error {
	level, err := logrus.ParseLevel(o.level)
	if err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", o.level, err)
	}
	log.SetLevel(level)
	log.SetOutput(os.Stderr)
	if o.json {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return nil
}

// app bundles the collaborators shared by the subcommands.
type app struct {
	cfg     *config.Config
	db      *gorm.DB
	store   *lead.GormStore
	events  events.Publisher
	reg     *prometheus.Registry
	metrics *metrics.Metrics
	closers []func() error
}

// openApp loads the config and connects the lead store. Brokers are
// optional and only dialled when withBrokers is set.
func openApp(configPath string, withBrokers bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}
	store, err := lead.NewGormStore(lead.GormStoreOpts{DB: gormDB, Location: cfg.Location()})
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a := &app{
		cfg:     cfg,
		db:      gormDB,
		store:   store,
		events:  events.NopPublisher{},
		reg:     reg,
		metrics: metrics.New(reg),
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}

	if withBrokers && cfg.Events.AMQPURL != "" {
		pub, err := events.DialAMQP(cfg.Events.AMQPURL, cfg.Events.Exchange, log)
		if err != nil {
			// Events are best effort; run without them.
			log.WithError(err).Warn("amqp unavailable, lead events disabled")
		} else {
			a.events = pub
			a.closers = append(a.closers, pub.Close)
		}
	}
	return a, nil
}

// Close releases everything opened by openApp, newest first.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// createAdapter builds a platform adapter from the config. It returns nil
// when no platform is configured.
func createAdapter(cfg *config.Config) (telegraph.Adapter, error) {
	switch cfg.Telegraph.Platform {
	case "":
		return nil, nil
	case "slack":
		return slackadapter.New(slackadapter.AdapterOpts{
			AppToken:  cfg.Telegraph.Slack.AppToken,
			BotToken:  cfg.Telegraph.Slack.BotToken,
			ChannelID: cfg.Telegraph.Channel,
			Log:       log,
		})
	case "discord":
		return discordadapter.New(discordadapter.AdapterOpts{
			BotToken:  cfg.Telegraph.Discord.BotToken,
			ChannelID: cfg.Telegraph.Channel,
			Log:       log,
		})
	default:
		return nil, fmt.Errorf("telegraph: unsupported platform %q", cfg.Telegraph.Platform)
	}
}

// newNotifier routes operator alerts to chat through adapter (when set)
// and to email when SMTP is configured.
func (a *app) newNotifier(adapter telegraph.Adapter) (*notify.Notifier, error) {
	opts := notify.NotifierOpts{
		Attempts: a.cfg.Notify.Attempts,
		Backoff:  a.cfg.Notify.Backoff,
		Log:      log,
		Metrics:  a.metrics,
	}
	if adapter != nil {
		chat, err := telegraph.NewChatSender(adapter)
		if err != nil {
			return nil, err
		}
		opts.Chat = chat
	}
	if a.cfg.Notify.Email.Host != "" {
		email, err := notify.NewEmailSender(a.cfg.Notify.Email)
		if err != nil {
			return nil, err
		}
		opts.Email = email
	}
	return notify.NewNotifier(opts)
}

// newLocker dials the optional Redis lock. A nil Locker means every
// replica runs every tick.
func (a *app) newLocker() escalation.Locker {
	lc := a.cfg.Escalation.Lock
	if lc.RedisURL == "" {
		return nil
	}
	lock, client, err := escalation.DialRedisLock(lc.RedisURL, lc.Key, lc.TTL)
	if err != nil {
		log.WithError(err).Warn("redis lock unavailable, escalation runs unlocked")
		return nil
	}
	a.closers = append(a.closers, client.Close)
	return lock
}

func (a *app) newScheduler(n escalation.Notifier, locker escalation.Locker) (*escalation.Scheduler, error) {
	return escalation.NewScheduler(escalation.SchedulerOpts{
		Store:       a.store,
		Notifier:    n,
		Recipients:  a.cfg.Operators,
		Interval:    a.cfg.Escalation.Interval,
		FirstAfter:  a.cfg.Escalation.FirstAfter,
		SecondAfter: a.cfg.Escalation.SecondAfter,
		Language:    a.cfg.Notify.Language,
		Location:    a.cfg.Location(),
		Locker:      locker,
		Events:      a.events,
		Log:         log,
		Metrics:     a.metrics,
	})
}

func (a *app) newMachine(n intake.Notifier) (*intake.Machine, error) {
	return intake.NewMachine(intake.MachineOpts{
		Store:            a.store,
		Notifier:         n,
		Operators:        a.cfg.Operators,
		Rules:            classify.Rules{Hot: a.cfg.Classifier.HotKeywords, Warm: a.cfg.Classifier.WarmKeywords},
		DefaultLanguage:  a.cfg.DefaultLanguage,
		OperatorLanguage: a.cfg.Notify.Language,
		Services:         a.cfg.Services,
		Location:         a.cfg.Location(),
		IdleTimeout:      a.cfg.Intake.IdleTimeout,
		Events:           a.events,
		Log:              log,
		Metrics:          a.metrics,
	})
}
