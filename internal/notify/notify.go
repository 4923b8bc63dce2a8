// Package notify delivers operator notifications with per-recipient
// retries and isolated failures.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zulandar/leadyard/internal/metrics"
)

// EmailPrefix routes a recipient to the email sender.
const EmailPrefix = "email:"

// Sender delivers one message to one recipient.
type Sender interface {
	Send(ctx context.Context, recipient string, msg Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, recipient string, msg Message) error

func (f SenderFunc) Send(ctx context.Context, recipient string, msg Message) error {
	return f(ctx, recipient, msg)
}

// DeliveryError reports that a recipient could not be reached after all
// attempts.
type DeliveryError struct {
	Recipient string
	Channel   string
	Attempts  int
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("notify: deliver to %s via %s after %d attempt(s): %v", e.Recipient, e.Channel, e.Attempts, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Result is the delivery outcome for one recipient. Err is a
// *DeliveryError or nil.
type Result struct {
	Recipient string
	Err       error
}

// Failed counts the unsuccessful results.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// NotifierOpts holds parameters for creating a Notifier.
type NotifierOpts struct {
	Chat     Sender // recipients without a prefix
	Email    Sender // "email:" recipients
	Attempts int    // per recipient; defaults to 1
	Backoff  time.Duration
	Log      *logrus.Logger
	Metrics  *metrics.Metrics
}

// Notifier fans a message out to recipients.
type Notifier struct {
	chat     Sender
	email    Sender
	attempts int
	backoff  time.Duration
	log      *logrus.Logger
	metrics  *metrics.Metrics
}

// NewNotifier creates a Notifier. At least one sender is required.
func NewNotifier(opts NotifierOpts) (*Notifier, error) {
	if opts.Chat == nil && opts.Email == nil {
		return nil, fmt.Errorf("notify: at least one sender is required")
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 1
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Discard()
	}
	return &Notifier{
		chat:     opts.Chat,
		email:    opts.Email,
		attempts: opts.Attempts,
		backoff:  opts.Backoff,
		log:      opts.Log,
		metrics:  opts.Metrics,
	}, nil
}

// Notify sends msg to every recipient in order. A failing recipient never
// prevents delivery to the others; failures are logged and reported in
// the returned results.
func (n *Notifier) Notify(ctx context.Context, recipients []string, msg Message) []Result {
	results := make([]Result, 0, len(recipients))
	for _, r := range recipients {
		var err error
		if de := n.deliver(ctx, r, msg); de != nil {
			err = de
			n.metrics.DeliveryFailures.WithLabelValues(de.Channel).Inc()
			n.log.WithFields(logrus.Fields{
				"recipient": r,
				"title":     msg.Title,
			}).WithError(de.Err).Error("notification delivery failed")
		}
		results = append(results, Result{Recipient: r, Err: err})
	}
	return results
}

func (n *Notifier) deliver(ctx context.Context, recipient string, msg Message) *DeliveryError {
	channel, sender, target := n.route(recipient)
	if sender == nil {
		return &DeliveryError{Recipient: recipient, Channel: channel, Err: fmt.Errorf("no %s sender configured", channel)}
	}

	var err error
	wait := n.backoff
	for attempt := 1; attempt <= n.attempts; attempt++ {
		if err = sender.Send(ctx, target, msg); err == nil {
			return nil
		}
		if attempt == n.attempts {
			break
		}
		n.log.WithFields(logrus.Fields{
			"recipient": recipient,
			"attempt":   attempt,
		}).WithError(err).Warn("notification attempt failed, retrying")
		if wait > 0 {
			select {
			case <-ctx.Done():
				return &DeliveryError{Recipient: recipient, Channel: channel, Attempts: attempt, Err: ctx.Err()}
			case <-time.After(wait):
			}
			wait *= 2
		}
	}
	return &DeliveryError{Recipient: recipient, Channel: channel, Attempts: n.attempts, Err: err}
}

func (n *Notifier) route(recipient string) (channel string, sender Sender, target string) {
	if strings.HasPrefix(recipient, EmailPrefix) {
		return "email", n.email, strings.TrimPrefix(recipient, EmailPrefix)
	}
	return "chat", n.chat, recipient
}
