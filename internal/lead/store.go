// Package lead owns lead persistence and the operator actions on leads.
package lead

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/leadyard/internal/models"
)

// ErrNotFound is returned, wrapped with the lead id, when a lead does not
// exist or is no longer active for the requested operation.
var ErrNotFound = errors.New("lead: not found")

// StoreError reports a persistence failure. Callers must treat the
// operation as not having happened.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("lead: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Threshold identifies one of the two escalation reminders.
type Threshold int

const (
	FirstReminder  Threshold = 1
	SecondReminder Threshold = 2
)

// Column returns the flag column recording that the reminder was sent.
func (t Threshold) Column() (string, error) {
	switch t {
	case FirstReminder:
		return "first_reminder_sent", nil
	case SecondReminder:
		return "second_reminder_sent", nil
	default:
		return "", fmt.Errorf("lead: unknown reminder threshold %d", int(t))
	}
}

// Sent reports whether l already has this reminder flag set.
func (t Threshold) Sent(l models.Lead) bool {
	switch t {
	case FirstReminder:
		return l.FirstReminderSent
	case SecondReminder:
		return l.SecondReminderSent
	}
	return false
}

func (t Threshold) String() string {
	switch t {
	case FirstReminder:
		return "first"
	case SecondReminder:
		return "second"
	}
	return fmt.Sprintf("threshold(%d)", int(t))
}

// Stats summarises active (non-archived) leads.
type Stats struct {
	Total    int64                 `json:"total"`
	Today    int64                 `json:"today"`
	ThisWeek int64                 `json:"this_week"`
	ByTier   map[models.Tier]int64 `json:"by_tier"`
}

// Store is the lead persistence contract. Every write is a single atomic
// statement keyed by id; no operation spans two records.
type Store interface {
	// Create assigns a new id and the creation timestamp, resets the
	// lifecycle flags and persists l.
	Create(ctx context.Context, l *models.Lead) (uint, error)
	Get(ctx context.Context, id uint) (*models.Lead, error)
	// ListActive returns non-archived leads ordered by creation time.
	// limit <= 0 means no limit.
	ListActive(ctx context.Context, limit int, newestFirst bool) ([]models.Lead, error)
	// ListAll returns every lead, archived included, newest first.
	ListAll(ctx context.Context) ([]models.Lead, error)
	MarkContacted(ctx context.Context, id uint) error
	Archive(ctx context.Context, id uint) error
	// QueryUncontacted returns leads that are neither contacted nor
	// archived and were created at least olderThan ago, oldest first.
	QueryUncontacted(ctx context.Context, olderThan time.Duration) ([]models.Lead, error)
	MarkReminderSent(ctx context.Context, id uint, t Threshold) error
	// GetLanguage returns "" when identity has no stored preference.
	GetLanguage(ctx context.Context, identity string) (string, error)
	SetLanguage(ctx context.Context, identity, lang string) error
	Stats(ctx context.Context) (Stats, error)
}

func notFound(id uint) error {
	return fmt.Errorf("%w: %d", ErrNotFound, id)
}
