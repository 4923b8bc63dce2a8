package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/zulandar/leadyard/internal/lead"
	"github.com/zulandar/leadyard/internal/locale"
	"github.com/zulandar/leadyard/internal/models"
)

// Severity color hints, shared with the chat adapters.
const (
	ColorInfo    = "#2196f3"
	ColorWarning = "#ff9800"
	ColorError   = "#e53935"
)

// Message is a platform-neutral notification. Chat adapters render it as
// an attachment or embed; email renders it as plain text.
type Message struct {
	Title    string
	Body     string
	Severity string // "info", "warning", "error"
	Color    string
	Fields   []Field
}

// Field is a key-value pair displayed with a message.
type Field struct {
	Name  string
	Value string
	Short bool
}

// Text renders m as plain text.
func (m Message) Text() string {
	var b strings.Builder
	b.WriteString(m.Title)
	if m.Body != "" {
		b.WriteString("\n\n")
		b.WriteString(m.Body)
	}
	if len(m.Fields) > 0 {
		b.WriteString("\n")
		for _, f := range m.Fields {
			fmt.Fprintf(&b, "\n%s: %s", f.Name, f.Value)
		}
	}
	return b.String()
}

// TierEmoji returns the marker shown next to a tier.
func TierEmoji(t models.Tier) string {
	switch t {
	case models.TierHot:
		return "🔥"
	case models.TierWarm:
		return "🌡"
	case models.TierCold:
		return "❄️"
	default:
		return "⚪️"
	}
}

func tierSeverity(t models.Tier) string {
	switch t {
	case models.TierHot:
		return "error"
	case models.TierWarm:
		return "warning"
	default:
		return "info"
	}
}

func severityColor(severity string) string {
	switch severity {
	case "error":
		return ColorError
	case "warning":
		return ColorWarning
	default:
		return ColorInfo
	}
}

// NewLeadMessage formats the operator alert for a freshly created lead.
func NewLeadMessage(l *models.Lead, lang string, loc *time.Location) Message {
	severity := tierSeverity(l.Status)
	return Message{
		Title:    fmt.Sprintf("%s #%d", locale.Text(lang, "new_lead_title"), l.ID),
		Body:     l.Description,
		Severity: severity,
		Color:    severityColor(severity),
		Fields:   leadFields(l, lang, loc),
	}
}

// ReminderMessage formats the escalation reminder for t.
func ReminderMessage(l *models.Lead, t lead.Threshold, lang string, loc *time.Location) Message {
	key, severity := "reminder_1h", "warning"
	if t == lead.SecondReminder {
		key, severity = "reminder_24h", "error"
	}
	return Message{
		Title:    locale.Text(lang, key),
		Body:     fmt.Sprintf("#%d: %s", l.ID, l.Description),
		Severity: severity,
		Color:    severityColor(severity),
		Fields:   leadFields(l, lang, loc),
	}
}

// DigestMessage formats the periodic statistics digest.
func DigestMessage(st lead.Stats, lang string) Message {
	fields := []Field{
		{Name: locale.Text(lang, "total_leads"), Value: fmt.Sprint(st.Total), Short: true},
		{Name: locale.Text(lang, "today"), Value: fmt.Sprint(st.Today), Short: true},
		{Name: locale.Text(lang, "this_week"), Value: fmt.Sprint(st.ThisWeek), Short: true},
	}
	var byTier []string
	for _, t := range models.Tiers {
		byTier = append(byTier, fmt.Sprintf("%s %s: %d", TierEmoji(t), t, st.ByTier[t]))
	}
	fields = append(fields, Field{Name: locale.Text(lang, "by_status"), Value: strings.Join(byTier, "\n")})
	return Message{
		Title:    locale.Text(lang, "stats_title"),
		Severity: "info",
		Color:    ColorInfo,
		Fields:   fields,
	}
}

func leadFields(l *models.Lead, lang string, loc *time.Location) []Field {
	if loc == nil {
		loc = time.UTC
	}
	user := l.IdentityHandle
	if user == "" {
		user = l.IdentityID
	}
	return []Field{
		{Name: locale.Text(lang, "lead_name"), Value: l.Name, Short: true},
		{Name: locale.Text(lang, "lead_phone"), Value: l.Phone, Short: true},
		{Name: locale.Text(lang, "lead_service"), Value: l.Service, Short: true},
		{Name: locale.Text(lang, "lead_status"), Value: TierEmoji(l.Status) + " " + string(l.Status), Short: true},
		{Name: locale.Text(lang, "lead_user"), Value: user, Short: true},
		{Name: locale.Text(lang, "lead_created"), Value: l.CreatedAt.In(loc).Format("2006-01-02 15:04"), Short: true},
	}
}
