package telegraph

import (
	"fmt"
	"strings"
	"time"

	"github.com/zulandar/leadyard/internal/locale"
	"github.com/zulandar/leadyard/internal/models"
	"github.com/zulandar/leadyard/internal/notify"
)

// FormatMessage converts a notification into a chat attachment.
func FormatMessage(msg notify.Message) FormattedEvent {
	fe := FormattedEvent{
		Title:    msg.Title,
		Body:     msg.Body,
		Severity: msg.Severity,
		Color:    msg.Color,
	}
	if fe.Severity == "" {
		fe.Severity = "info"
	}
	if fe.Color == "" {
		fe.Color = notify.ColorInfo
	}
	for _, f := range msg.Fields {
		fe.Fields = append(fe.Fields, Field{Name: f.Name, Value: f.Value, Short: f.Short})
	}
	return fe
}

// FormatOptions renders choices as a numbered list, one per line.
func FormatOptions(options []string) string {
	var b strings.Builder
	for i, o := range options {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, o)
	}
	return b.String()
}

// formatLeadLine renders a lead as a single list row.
func formatLeadLine(l models.Lead, loc *time.Location) string {
	mark := ""
	if l.Contacted {
		mark = " ✅"
	}
	return fmt.Sprintf("%s #%d %s · %s · %s · %s%s",
		notify.TierEmoji(l.Status), l.ID, l.Name, l.Phone, l.Service,
		l.CreatedAt.In(loc).Format("01-02 15:04"), mark)
}

// formatLeadList renders leads newest first with a header.
func formatLeadList(leads []models.Lead, lang string, loc *time.Location) string {
	if len(leads) == 0 {
		return locale.Text(lang, "no_leads")
	}
	lines := make([]string, 0, len(leads)+1)
	lines = append(lines, fmt.Sprintf("📋 %d", len(leads)))
	for _, l := range leads {
		lines = append(lines, formatLeadLine(l, loc))
	}
	return strings.Join(lines, "\n")
}

// formatLeadDetail renders every stored attribute of a lead.
func formatLeadDetail(l *models.Lead, lang string, loc *time.Location) string {
	msg := notify.NewLeadMessage(l, lang, loc)
	contacted := locale.Text(lang, "no")
	if l.Contacted {
		contacted = locale.Text(lang, "yes")
		if l.ContactedAt != nil {
			contacted += " (" + l.ContactedAt.In(loc).Format("2006-01-02 15:04") + ")"
		}
	}
	msg.Fields = append(msg.Fields, notify.Field{Name: locale.Text(lang, "lead_contacted"), Value: contacted})
	return msg.Text()
}
