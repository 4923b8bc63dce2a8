// Package escalation reminds operators about leads nobody has contacted.
// Each lead gets at most one reminder per threshold; the reminder flags on
// the lead record are the only deduplication mechanism.
package escalation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zulandar/leadyard/internal/events"
	"github.com/zulandar/leadyard/internal/lead"
	"github.com/zulandar/leadyard/internal/locale"
	"github.com/zulandar/leadyard/internal/metrics"
	"github.com/zulandar/leadyard/internal/models"
	"github.com/zulandar/leadyard/internal/notify"
)

// Default tunables.
const (
	DefaultInterval    = 10 * time.Minute
	DefaultFirstAfter  = time.Hour
	DefaultSecondAfter = 24 * time.Hour
)

// Notifier delivers reminders to operators.
type Notifier interface {
	Notify(ctx context.Context, recipients []string, msg notify.Message) []notify.Result
}

// Locker keeps replicas from running the same tick concurrently. It is an
// optimisation only; correctness never depends on it.
type Locker interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// SchedulerOpts holds parameters for creating a Scheduler.
type SchedulerOpts struct {
	Store       lead.Store
	Notifier    Notifier
	Recipients  []string
	Interval    time.Duration
	FirstAfter  time.Duration
	SecondAfter time.Duration
	Language    string         // reminder text language
	Location    *time.Location // for timestamps in reminders
	Locker      Locker         // optional
	Events      events.Publisher
	Log         *logrus.Logger
	Metrics     *metrics.Metrics
}

// Scheduler runs the two reminder passes on a fixed cadence.
type Scheduler struct {
	store      lead.Store
	notifier   Notifier
	recipients []string
	interval   time.Duration
	passes     []pass
	lang       string
	loc        *time.Location
	locker     Locker
	events     events.Publisher
	log        *logrus.Logger
	metrics    *metrics.Metrics
}

type pass struct {
	threshold lead.Threshold
	after     time.Duration
}

// Report summarises one tick.
type Report struct {
	FirstSent   int  // leads reminded at the first threshold
	SecondSent  int  // leads reminded at the second threshold
	Failures    int  // failed recipient deliveries
	LockSkipped bool // another replica held the lock
}

// NewScheduler creates a Scheduler.
func NewScheduler(opts SchedulerOpts) (*Scheduler, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("escalation: store is required")
	}
	if opts.Notifier == nil {
		return nil, fmt.Errorf("escalation: notifier is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.FirstAfter <= 0 {
		opts.FirstAfter = DefaultFirstAfter
	}
	if opts.SecondAfter <= 0 {
		opts.SecondAfter = DefaultSecondAfter
	}
	if opts.SecondAfter <= opts.FirstAfter {
		return nil, fmt.Errorf("escalation: second threshold %s must exceed first %s", opts.SecondAfter, opts.FirstAfter)
	}
	if opts.Language == "" {
		opts.Language = locale.English
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Events == nil {
		opts.Events = events.NopPublisher{}
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Discard()
	}
	return &Scheduler{
		store:      opts.Store,
		notifier:   opts.Notifier,
		recipients: opts.Recipients,
		interval:   opts.Interval,
		passes: []pass{
			{threshold: lead.FirstReminder, after: opts.FirstAfter},
			{threshold: lead.SecondReminder, after: opts.SecondAfter},
		},
		lang:    opts.Language,
		loc:     opts.Location,
		locker:  opts.Locker,
		events:  opts.Events,
		log:     opts.Log,
		metrics: opts.Metrics,
	}, nil
}

// Run ticks immediately and then Interval after each completed tick until
// ctx is cancelled. A tick in progress is never interrupted.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.WithField("interval", s.interval).Info("escalation scheduler started")
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("escalation scheduler stopped")
			return nil
		case <-timer.C:
		}

		report, err := s.Tick(context.WithoutCancel(ctx))
		if err != nil {
			s.log.WithError(err).Error("escalation tick failed")
		} else if report.FirstSent+report.SecondSent > 0 {
			s.log.WithFields(logrus.Fields{
				"first":    report.FirstSent,
				"second":   report.SecondSent,
				"failures": report.Failures,
			}).Info("escalation reminders sent")
		}
		timer.Reset(s.interval)
	}
}

// Tick runs the first-threshold pass and then the second-threshold pass.
// A failing pass does not prevent the other from running.
func (s *Scheduler) Tick(ctx context.Context) (Report, error) {
	start := time.Now()
	defer func() {
		s.metrics.EscalationPassSeconds.Observe(time.Since(start).Seconds())
	}()

	var report Report
	if s.locker != nil {
		ok, err := s.locker.Acquire(ctx)
		switch {
		case err != nil:
			s.log.WithError(err).Warn("escalation lock unavailable, running unlocked")
		case !ok:
			s.metrics.EscalationLockSkips.Inc()
			report.LockSkipped = true
			return report, nil
		default:
			defer func() {
				if err := s.locker.Release(ctx); err != nil {
					s.log.WithError(err).Warn("escalation lock release failed")
				}
			}()
		}
	}

	var errs []error
	for _, p := range s.passes {
		sent, failures, err := s.runPass(ctx, p)
		if p.threshold == lead.FirstReminder {
			report.FirstSent = sent
		} else {
			report.SecondSent = sent
		}
		report.Failures += failures
		if err != nil {
			errs = append(errs, err)
		}
	}
	return report, errors.Join(errs...)
}

// runPass reminds every due lead whose flag for p is still unset, oldest
// first. The flag is set after the attempt regardless of delivery
// failures, so a lead is never reminded twice for the same threshold.
func (s *Scheduler) runPass(ctx context.Context, p pass) (sent, failures int, err error) {
	leads, err := s.store.QueryUncontacted(ctx, p.after)
	if err != nil {
		return 0, 0, fmt.Errorf("escalation: %s pass: %w", p.threshold, err)
	}

	var errs []error
	for i := range leads {
		l := &leads[i]
		if p.threshold.Sent(*l) {
			continue
		}
		results := s.notifier.Notify(ctx, s.recipients, notify.ReminderMessage(l, p.threshold, s.lang, s.loc))
		failures += notify.Failed(results)

		if err := s.store.MarkReminderSent(ctx, l.ID, p.threshold); err != nil {
			// The lead may be reminded again next tick; nothing else to do.
			s.log.WithFields(logrus.Fields{"lead_id": l.ID, "threshold": p.threshold}).
				WithError(err).Error("escalation: mark reminder sent")
			errs = append(errs, err)
			continue
		}
		sent++
		s.metrics.RemindersSent.WithLabelValues(p.threshold.String()).Inc()
		s.publish(ctx, l, p.threshold)
		s.log.WithFields(logrus.Fields{
			"lead_id":   l.ID,
			"threshold": p.threshold,
			"age":       time.Since(l.CreatedAt).Round(time.Minute),
		}).Info("reminder sent")
	}
	return sent, failures, errors.Join(errs...)
}

func (s *Scheduler) publish(ctx context.Context, l *models.Lead, t lead.Threshold) {
	e := events.New(events.LeadReminder, l)
	e.Threshold = int(t)
	_ = s.events.Publish(ctx, e)
}
