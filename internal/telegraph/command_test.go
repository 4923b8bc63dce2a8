package telegraph

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/zulandar/leadyard/internal/events"
	"github.com/zulandar/leadyard/internal/lead"
	"github.com/zulandar/leadyard/internal/models"
)

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func newTestCommandHandler(t *testing.T) (*CommandHandler, *lead.GormStore, *events.Recorder) {
	t.Helper()
	store := openTestStore(t)
	rec := &events.Recorder{}
	ch, err := NewCommandHandler(CommandHandlerOpts{Store: store, Events: rec, Log: quietLogger()})
	if err != nil {
		t.Fatalf("new command handler: %v", err)
	}
	return ch, store, rec
}

// --- NewCommandHandler tests ---

func TestNewCommandHandler_NilStore(t *testing.T) {
	_, err := NewCommandHandler(CommandHandlerOpts{})
	if err == nil {
		t.Fatal("expected error for nil store")
	}
}

func TestNewCommandHandler_Defaults(t *testing.T) {
	ch, _, _ := newTestCommandHandler(t)
	if ch.lang != "en" || ch.loc != time.UTC {
		t.Errorf("defaults = %q/%v", ch.lang, ch.loc)
	}
}

// --- parseCommand tests ---

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"!leads", []string{"leads"}},
		{"!leads 5", []string{"leads", "5"}},
		{"  !LEAD  #12 ", []string{"lead", "#12"}},
		{"!", nil},
	}
	for _, tt := range tests {
		got := parseCommand(tt.input)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Errorf("parseCommand(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestIsCommand(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"!leads", true},
		{"!help", true},
		{"!Stats", true},
		{"!start", false},
		{"!cancel", false},
		{"leads", false},
		{"!", false},
	}
	for _, tt := range tests {
		if got := isCommand(tt.input); got != tt.want {
			t.Errorf("isCommand(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseID(t *testing.T) {
	if id, err := parseID("#42"); err != nil || id != 42 {
		t.Errorf("parseID(#42) = %d, %v", id, err)
	}
	for _, bad := range []string{"0", "-1", "abc", ""} {
		if _, err := parseID(bad); err == nil {
			t.Errorf("parseID(%q) should fail", bad)
		}
	}
}

// --- Execute tests ---

func TestExecute_Help(t *testing.T) {
	ch, _, _ := newTestCommandHandler(t)
	got := ch.Execute(context.Background(), "!help")
	for _, want := range []string{"!leads", "!lead <id>", "!stats", "!contacted", "!archive"} {
		if !strings.Contains(got, want) {
			t.Errorf("help missing %q", want)
		}
	}
}

func TestExecute_Unknown(t *testing.T) {
	ch, _, _ := newTestCommandHandler(t)
	got := ch.Execute(context.Background(), "!frobnicate")
	if !strings.Contains(got, "Unknown command") {
		t.Errorf("got %q", got)
	}
}

func TestExecute_LeadsEmpty(t *testing.T) {
	ch, _, _ := newTestCommandHandler(t)
	if got := ch.Execute(context.Background(), "!leads"); got != "No leads yet." {
		t.Errorf("got %q", got)
	}
}

func TestExecute_LeadsNewestFirstWithLimit(t *testing.T) {
	ch, store, _ := newTestCommandHandler(t)
	createLead(t, store, "first", models.TierCold)
	createLead(t, store, "second", models.TierWarm)
	third := createLead(t, store, "third", models.TierHot)

	got := ch.Execute(context.Background(), "!leads 2")
	lines := strings.Split(got, "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want header + 2:\n%s", len(lines), got)
	}
	if !strings.Contains(lines[1], "#"+itoa(third)+" third") || !strings.HasPrefix(lines[1], "🔥") {
		t.Errorf("first row = %q, want newest HOT lead", lines[1])
	}
	if strings.Contains(got, "first") {
		t.Error("limit not applied")
	}
}

func TestExecute_LeadsBadLimit(t *testing.T) {
	ch, _, _ := newTestCommandHandler(t)
	if got := ch.Execute(context.Background(), "!leads many"); !strings.Contains(got, "Usage") {
		t.Errorf("got %q", got)
	}
}

func TestExecute_LeadDetail(t *testing.T) {
	ch, store, _ := newTestCommandHandler(t)
	id := createLead(t, store, "jane", models.TierHot)

	got := ch.Execute(context.Background(), "!lead "+itoa(id))
	for _, want := range []string{"NEW LEAD #" + itoa(id), "jane", "+1 555 0100", "Design", "Contacted: no"} {
		if !strings.Contains(got, want) {
			t.Errorf("detail missing %q:\n%s", want, got)
		}
	}
}

func TestExecute_LeadUsageAndNotFound(t *testing.T) {
	ch, _, _ := newTestCommandHandler(t)
	ctx := context.Background()
	if got := ch.Execute(ctx, "!lead"); !strings.Contains(got, "Usage: `!lead <id>`") {
		t.Errorf("got %q", got)
	}
	if got := ch.Execute(ctx, "!lead x1"); !strings.Contains(got, "Invalid lead id") {
		t.Errorf("got %q", got)
	}
	if got := ch.Execute(ctx, "!lead 999"); !strings.Contains(got, "Lead not found") {
		t.Errorf("got %q", got)
	}
}

func TestExecute_Contacted(t *testing.T) {
	ch, store, rec := newTestCommandHandler(t)
	id := createLead(t, store, "jane", models.TierHot)
	ctx := context.Background()

	got := ch.Execute(ctx, "!contacted #"+itoa(id))
	if !strings.Contains(got, "marked as contacted") {
		t.Errorf("got %q", got)
	}
	l, _ := store.Get(ctx, id)
	if !l.Contacted || l.ContactedAt == nil {
		t.Error("lead not marked contacted")
	}

	// Repeating is harmless and publishes nothing new.
	ch.Execute(ctx, "!contacted "+itoa(id))
	if types := rec.Types(); len(types) != 1 || types[0] != events.LeadContacted {
		t.Errorf("events = %v", types)
	}

	detail := ch.Execute(ctx, "!lead "+itoa(id))
	if !strings.Contains(detail, "Contacted: yes (") {
		t.Errorf("detail = %s", detail)
	}
}

func TestExecute_Archive(t *testing.T) {
	ch, store, rec := newTestCommandHandler(t)
	id := createLead(t, store, "jane", models.TierWarm)
	ctx := context.Background()

	if got := ch.Execute(ctx, "!archive "+itoa(id)); !strings.Contains(got, "archived") {
		t.Errorf("got %q", got)
	}
	if got := ch.Execute(ctx, "!leads"); got != "No leads yet." {
		t.Errorf("archived lead still listed: %q", got)
	}
	if got := ch.Execute(ctx, "!contacted "+itoa(id)); !strings.Contains(got, "Lead not found") {
		t.Errorf("contacting archived lead = %q", got)
	}
	if types := rec.Types(); len(types) != 1 || types[0] != events.LeadArchived {
		t.Errorf("events = %v", types)
	}
}

func TestExecute_Stats(t *testing.T) {
	ch, store, _ := newTestCommandHandler(t)
	createLead(t, store, "a", models.TierHot)
	createLead(t, store, "b", models.TierHot)
	createLead(t, store, "c", models.TierCold)

	got := ch.Execute(context.Background(), "!stats")
	for _, want := range []string{"CRM Statistics", "Total leads: 3", "HOT: 2", "WARM: 0", "COLD: 1"} {
		if !strings.Contains(got, want) {
			t.Errorf("stats missing %q:\n%s", want, got)
		}
	}
}

// failingStore returns a persistence error from every read.
type failingStore struct {
	lead.Store
}

func (failingStore) ListActive(context.Context, int, bool) ([]models.Lead, error) {
	return nil, &lead.StoreError{Op: "list active", Err: errors.New("disk full")}
}

func TestExecute_StoreErrorReplyIsGeneric(t *testing.T) {
	ch, err := NewCommandHandler(CommandHandlerOpts{Store: failingStore{}, Log: quietLogger()})
	if err != nil {
		t.Fatal(err)
	}
	got := ch.Execute(context.Background(), "!leads")
	if got != "❌ An error occurred. Please try again." {
		t.Errorf("got %q", got)
	}
	if strings.Contains(got, "disk full") {
		t.Error("internal error leaked to chat")
	}
}
