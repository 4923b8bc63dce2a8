// Package metrics defines the Prometheus instruments exported by Leadyard.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	LeadsCreated          *prometheus.CounterVec
	RemindersSent         *prometheus.CounterVec
	DeliveryFailures      *prometheus.CounterVec
	EscalationPassSeconds prometheus.Histogram
	EscalationLockSkips   prometheus.Counter
	ActiveSessions        prometheus.Gauge
}

// New registers the instruments on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		LeadsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "leadyard_leads_created_total",
			Help: "Leads persisted by intake, by tier",
		}, []string{"tier"}),
		RemindersSent: f.NewCounterVec(prometheus.CounterOpts{
			Name: "leadyard_reminders_sent_total",
			Help: "Escalation reminders attempted, by threshold",
		}, []string{"threshold"}),
		DeliveryFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "leadyard_delivery_failures_total",
			Help: "Notification deliveries that failed after all retries, by channel",
		}, []string{"channel"}),
		EscalationPassSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "leadyard_escalation_pass_duration_seconds",
			Help:    "Time taken by one escalation tick",
			Buckets: prometheus.DefBuckets,
		}),
		EscalationLockSkips: f.NewCounter(prometheus.CounterOpts{
			Name: "leadyard_escalation_lock_skips_total",
			Help: "Escalation ticks skipped because another replica held the lock",
		}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "leadyard_intake_sessions",
			Help: "Intake sessions currently in progress",
		}),
	}
}

// Discard returns instruments registered on a private registry, for
// components constructed without metrics.
func Discard() *Metrics {
	return New(prometheus.NewRegistry())
}
