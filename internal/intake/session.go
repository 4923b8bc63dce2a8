package intake

import (
	"strings"
	"time"
)

// State is a step of the intake conversation.
type State string

const (
	StateLanguageSelect     State = "language_select"
	StateCollectName        State = "collect_name"
	StateCollectPhone       State = "collect_phone"
	StateCollectService     State = "collect_service"
	StateCollectDescription State = "collect_description"
	StateComplete           State = "complete"
	StateCancelled          State = "cancelled"
)

// Terminal reports whether no further input is collected in s.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateCancelled
}

// Identity is the external user behind a conversation.
type Identity struct {
	ID     string // platform-qualified, e.g. "slack:U123"
	Handle string // display handle, optional
}

// EventKind classifies an inbound conversation event.
type EventKind int

const (
	EventText EventKind = iota
	EventStart
	EventCancel
	EventContact // phone number shared through a platform contact card
)

// Event is one inbound input for a session.
type Event struct {
	Kind EventKind
	Text string
}

var (
	startWords  = []string{"!start", "/start"}
	cancelWords = []string{"!cancel", "/cancel", "cancel", "отмена"}
)

// ParseEvent maps raw chat text to an event. Restart and cancel commands
// are recognised in any state.
func ParseEvent(text string) Event {
	t := strings.ToLower(strings.TrimSpace(text))
	for _, w := range startWords {
		if t == w {
			return Event{Kind: EventStart}
		}
	}
	for _, w := range cancelWords {
		if t == w {
			return Event{Kind: EventCancel}
		}
	}
	return Event{Kind: EventText, Text: text}
}

// Session is the in-memory progress of one identity through intake.
type Session struct {
	Identity    Identity
	State       State
	Language    string
	Name        string
	Phone       string
	Service     string
	Description string
	Services    []string // options offered at the service step
	UpdatedAt   time.Time
}
