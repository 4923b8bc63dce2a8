// Package events publishes lead lifecycle events to a message broker.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zulandar/leadyard/internal/models"
)

// Event types, also used as routing keys.
const (
	LeadCreated   = "lead.created"
	LeadReminder  = "lead.reminder"
	LeadContacted = "lead.contacted"
	LeadArchived  = "lead.archived"
)

// Event is the JSON payload published for a lead state change.
type Event struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	LeadID     uint        `json:"lead_id"`
	Tier       models.Tier `json:"tier,omitempty"`
	Threshold  int         `json:"threshold,omitempty"` // reminder events only
	OccurredAt time.Time   `json:"occurred_at"`
}

// New builds an event of type typ for l.
func New(typ string, l *models.Lead) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		LeadID:     l.ID,
		Tier:       l.Status,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher emits events. Publishing is best effort: implementations log
// failures and callers never fail an operation because of them.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher discards events. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	Events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, e)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Types returns the recorded event types in order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Type
	}
	return out
}
