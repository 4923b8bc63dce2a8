package dashboard

import (
	"fmt"
	"time"

	"github.com/zulandar/leadyard/internal/models"
)

// leadView is the JSON shape of a lead. Timestamps are rendered in the
// dashboard's display zone.
type leadView struct {
	ID                 uint        `json:"id"`
	Name               string      `json:"name"`
	Phone              string      `json:"phone"`
	Service            string      `json:"service"`
	Description        string      `json:"description"`
	Tier               models.Tier `json:"tier"`
	Language           string      `json:"language"`
	Handle             string      `json:"handle,omitempty"`
	Contacted          bool        `json:"contacted"`
	ContactedAt        *time.Time  `json:"contacted_at,omitempty"`
	Archived           bool        `json:"archived"`
	CreatedAt          time.Time   `json:"created_at"`
	Age                string      `json:"age"`
	FirstReminderSent  bool        `json:"first_reminder_sent"`
	SecondReminderSent bool        `json:"second_reminder_sent"`
}

func toLeadView(l *models.Lead, loc *time.Location) leadView {
	v := leadView{
		ID:                 l.ID,
		Name:               l.Name,
		Phone:              l.Phone,
		Service:            l.Service,
		Description:        l.Description,
		Tier:               l.Status,
		Language:           l.Language,
		Handle:             l.IdentityHandle,
		Contacted:          l.Contacted,
		Archived:           l.Archived,
		CreatedAt:          l.CreatedAt.In(loc),
		Age:                formatDuration(time.Since(l.CreatedAt)),
		FirstReminderSent:  l.FirstReminderSent,
		SecondReminderSent: l.SecondReminderSent,
	}
	if l.ContactedAt != nil {
		t := l.ContactedAt.In(loc)
		v.ContactedAt = &t
	}
	return v
}

// formatDuration renders a lead's age, e.g. "45s", "12m", "3h 20m", "2d 4h".
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h >= 24 {
		return fmt.Sprintf("%dd %dh", h/24, h%24)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}
