package lead

import (
	"context"

	"github.com/zulandar/leadyard/internal/events"
	"github.com/zulandar/leadyard/internal/models"
)

// ContactLead marks an active lead as contacted and returns it. Unknown
// and archived ids yield ErrNotFound with no state change. pub may be nil.
func ContactLead(ctx context.Context, s Store, pub events.Publisher, id uint) (*models.Lead, error) {
	l, err := activeLead(ctx, s, id)
	if err != nil {
		return nil, err
	}
	if l.Contacted {
		return l, nil
	}
	if err := s.MarkContacted(ctx, id); err != nil {
		return nil, err
	}
	if l, err = s.Get(ctx, id); err != nil {
		return nil, err
	}
	publish(ctx, pub, events.New(events.LeadContacted, l))
	return l, nil
}

// ArchiveLead archives an active lead and returns it. Unknown and already
// archived ids yield ErrNotFound. pub may be nil.
func ArchiveLead(ctx context.Context, s Store, pub events.Publisher, id uint) (*models.Lead, error) {
	l, err := activeLead(ctx, s, id)
	if err != nil {
		return nil, err
	}
	if err := s.Archive(ctx, id); err != nil {
		return nil, err
	}
	l.Archived = true
	publish(ctx, pub, events.New(events.LeadArchived, l))
	return l, nil
}

func activeLead(ctx context.Context, s Store, id uint) (*models.Lead, error) {
	l, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.Archived {
		return nil, notFound(id)
	}
	return l, nil
}

// publish emits e on a best-effort basis; publishers log their own failures.
func publish(ctx context.Context, pub events.Publisher, e events.Event) {
	if pub == nil {
		return
	}
	_ = pub.Publish(ctx, e)
}
