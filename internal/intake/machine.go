// Package intake implements the lead intake conversation: a per-identity
// state machine that collects contact details, classifies the request and
// hands the finished lead to the store and the operators.
package intake

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/sirupsen/logrus"
	"github.com/zulandar/leadyard/internal/classify"
	"github.com/zulandar/leadyard/internal/events"
	"github.com/zulandar/leadyard/internal/lead"
	"github.com/zulandar/leadyard/internal/locale"
	"github.com/zulandar/leadyard/internal/metrics"
	"github.com/zulandar/leadyard/internal/models"
	"github.com/zulandar/leadyard/internal/notify"
)

// ValidationError reports input that the current state rejected. The
// session stays in State and the prompt is repeated.
type ValidationError struct {
	State  State
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("intake: invalid input in %s: %s", e.State, e.Reason)
}

// Notifier delivers operator alerts.
type Notifier interface {
	Notify(ctx context.Context, recipients []string, msg notify.Message) []notify.Result
}

// Reply is what the transport shows the user after an event.
type Reply struct {
	Text    string
	Options []string // choices to render, e.g. the service list
	State   State    // session state after the event
	LeadID  uint     // set when a lead was persisted
}

// MachineOpts holds parameters for creating a Machine.
type MachineOpts struct {
	Store            lead.Store
	Notifier         Notifier
	Operators        []string
	Rules            classify.Rules
	DefaultLanguage  string              // defaults to "en"
	OperatorLanguage string              // language of operator alerts; defaults to DefaultLanguage
	Services         map[string][]string // per-language catalog override
	Location         *time.Location      // for timestamps in alerts
	IdleTimeout      time.Duration       // sessions idle longer are swept; 0 disables
	Events           events.Publisher
	Log              *logrus.Logger
	Metrics          *metrics.Metrics
	Now              func() time.Time
}

// Machine runs intake sessions keyed by identity.
type Machine struct {
	store     lead.Store
	notifier  Notifier
	operators []string
	rules     classify.Rules
	lang      string
	opLang    string
	services  map[string][]string
	loc       *time.Location
	idle      time.Duration
	events    events.Publisher
	log       *logrus.Logger
	metrics   *metrics.Metrics
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// session guards a Session. removed is set when the session leaves the
// table so a handler holding a stale pointer starts over.
type session struct {
	mu      sync.Mutex
	removed bool
	Session
}

// NewMachine creates a Machine.
func NewMachine(opts MachineOpts) (*Machine, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("intake: store is required")
	}
	if opts.Notifier == nil {
		return nil, fmt.Errorf("intake: notifier is required")
	}
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = locale.English
	}
	if opts.OperatorLanguage == "" {
		opts.OperatorLanguage = opts.DefaultLanguage
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Events == nil {
		opts.Events = events.NopPublisher{}
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Machine{
		store:     opts.Store,
		notifier:  opts.Notifier,
		operators: opts.Operators,
		rules:     opts.Rules,
		lang:      opts.DefaultLanguage,
		opLang:    opts.OperatorLanguage,
		services:  opts.Services,
		loc:       opts.Location,
		idle:      opts.IdleTimeout,
		events:    opts.Events,
		log:       opts.Log,
		metrics:   opts.Metrics,
		now:       opts.Now,
		sessions:  make(map[string]*session),
	}, nil
}

// Handle feeds one event for id into its session. Invalid input returns
// a *ValidationError together with a reply repeating the prompt. A
// persistence failure at completion returns the store error and keeps the
// session in StateComplete; the next event retries the save.
func (m *Machine) Handle(ctx context.Context, id Identity, ev Event) (Reply, error) {
	if id.ID == "" {
		return Reply{}, fmt.Errorf("intake: identity is required")
	}

	if ev.Kind == EventCancel {
		m.remove(id.ID)
		lang := m.languageFor(ctx, id.ID)
		return Reply{Text: locale.Text(lang, "cancelled"), State: StateCancelled}, nil
	}

	for {
		s, created := m.acquire(ctx, id, ev.Kind == EventStart)
		if s == nil {
			continue
		}
		reply, err := m.step(ctx, s, ev, created)
		s.mu.Unlock()
		return reply, err
	}
}

// acquire returns the locked session for id, creating it when absent or
// when restart is set. It returns nil if the session was removed while
// waiting for its lock.
func (m *Machine) acquire(ctx context.Context, id Identity, restart bool) (*session, bool) {
	m.mu.Lock()
	s, ok := m.sessions[id.ID]
	var replaced *session
	created := false
	if !ok || restart {
		if ok {
			replaced = s
		}
		s = &session{Session: Session{
			Identity:  id,
			State:     StateLanguageSelect,
			UpdatedAt: m.now(),
		}}
		m.sessions[id.ID] = s
		m.metrics.ActiveSessions.Set(float64(len(m.sessions)))
		created = true
	}
	m.mu.Unlock()

	if replaced != nil {
		replaced.mu.Lock()
		if replaced.State == StateComplete {
			m.log.WithField("identity", id.ID).Warn("intake: restart discards an unsaved lead")
		}
		replaced.removed = true
		replaced.mu.Unlock()
	}

	s.mu.Lock()
	if s.removed {
		s.mu.Unlock()
		return nil, false
	}
	if created {
		s.Language = m.languageFor(ctx, id.ID)
	}
	return s, created
}

// remove destroys the session for id, if any.
func (m *Machine) remove(identity string) {
	m.mu.Lock()
	s, ok := m.sessions[identity]
	if ok {
		delete(m.sessions, identity)
		m.metrics.ActiveSessions.Set(float64(len(m.sessions)))
	}
	m.mu.Unlock()
	if ok {
		s.mu.Lock()
		s.removed = true
		s.mu.Unlock()
	}
}

// removeLocked destroys s while its lock is held by the caller.
func (m *Machine) removeLocked(s *session) {
	m.mu.Lock()
	if cur, ok := m.sessions[s.Identity.ID]; ok && cur == s {
		delete(m.sessions, s.Identity.ID)
		m.metrics.ActiveSessions.Set(float64(len(m.sessions)))
	}
	m.mu.Unlock()
	s.removed = true
}

func (m *Machine) step(ctx context.Context, s *session, ev Event, created bool) (Reply, error) {
	s.UpdatedAt = m.now()

	// A new session greets first; the triggering text is not an answer.
	if created {
		return m.prompt(s), nil
	}
	if ev.Kind == EventContact && s.State != StateCollectPhone {
		return m.reject(s, "contact card not expected")
	}

	text := strings.TrimSpace(ev.Text)
	switch s.State {
	case StateLanguageSelect:
		tag, ok := locale.Match(text)
		if !ok {
			return m.reject(s, "unknown language")
		}
		if err := m.store.SetLanguage(ctx, s.Identity.ID, tag); err != nil {
			m.log.WithField("identity", s.Identity.ID).WithError(err).Error("intake: save language preference")
			return Reply{Text: locale.Text(s.Language, "error"), State: s.State}, err
		}
		s.Language = tag
		s.State = StateCollectName

	case StateCollectName:
		if text == "" {
			return m.reject(s, "name is empty")
		}
		s.Name = text
		s.State = StateCollectPhone

	case StateCollectPhone:
		if !validPhone(text) {
			return m.reject(s, "phone must contain digits")
		}
		s.Phone = text
		s.State = StateCollectService

	case StateCollectService:
		svc, ok := matchService(text, s.Services)
		if !ok {
			return m.reject(s, "service not offered")
		}
		s.Service = svc
		s.State = StateCollectDescription

	case StateCollectDescription:
		if text == "" {
			return m.reject(s, "description is empty")
		}
		s.Description = text
		s.State = StateComplete
		return m.complete(ctx, s)

	case StateComplete:
		return m.complete(ctx, s)
	}

	return m.prompt(s), nil
}

// complete persists the collected lead, alerts operators and destroys the
// session. On a store failure the session is kept for a retry.
func (m *Machine) complete(ctx context.Context, s *session) (Reply, error) {
	l := &models.Lead{
		IdentityID:     s.Identity.ID,
		IdentityHandle: s.Identity.Handle,
		Name:           s.Name,
		Phone:          s.Phone,
		Service:        s.Service,
		Description:    s.Description,
		Status:         m.rules.Classify(s.Service, s.Description),
		Language:       s.Language,
	}

	id, err := m.store.Create(ctx, l)
	if err != nil {
		m.log.WithFields(logrus.Fields{
			"identity": s.Identity.ID,
			"state":    s.State,
		}).WithError(err).Error("intake: persist lead, keeping session for retry")
		return Reply{Text: locale.Text(s.Language, "error"), State: StateComplete}, err
	}
	m.removeLocked(s)

	m.metrics.LeadsCreated.WithLabelValues(string(l.Status)).Inc()
	m.log.WithFields(logrus.Fields{
		"lead_id":  id,
		"tier":     l.Status,
		"identity": l.IdentityID,
	}).Info("lead created")

	results := m.notifier.Notify(ctx, m.operators, notify.NewLeadMessage(l, m.opLang, m.loc))
	if failed := notify.Failed(results); failed > 0 {
		m.log.WithField("lead_id", id).Warnf("new lead alert failed for %d of %d operator(s)", failed, len(results))
	}
	_ = m.events.Publish(ctx, events.New(events.LeadCreated, l))

	return Reply{Text: locale.Text(s.Language, "thank_you"), State: StateComplete, LeadID: id}, nil
}

// prompt renders the question for the session's current state.
func (m *Machine) prompt(s *session) Reply {
	r := Reply{State: s.State}
	switch s.State {
	case StateLanguageSelect:
		r.Text = locale.Text(s.Language, "welcome")
		r.Options = locale.LanguageOptions()
	case StateCollectName:
		r.Text = locale.Text(s.Language, "ask_name")
	case StateCollectPhone:
		r.Text = locale.Text(s.Language, "ask_phone")
	case StateCollectService:
		s.Services = m.servicesFor(s.Language)
		r.Text = locale.Text(s.Language, "ask_service")
		r.Options = s.Services
	case StateCollectDescription:
		r.Text = locale.Text(s.Language, "ask_description")
	}
	return r
}

func (m *Machine) reject(s *session, reason string) (Reply, error) {
	r := m.prompt(s)
	r.Text = locale.Text(s.Language, "invalid_input") + "\n\n" + r.Text
	return r, &ValidationError{State: s.State, Reason: reason}
}

// languageFor returns the stored preference for identity or the default.
func (m *Machine) languageFor(ctx context.Context, identity string) string {
	lang, err := m.store.GetLanguage(ctx, identity)
	if err != nil {
		m.log.WithField("identity", identity).WithError(err).Warn("intake: load language preference")
	}
	if lang == "" || !locale.Supported(lang) {
		return m.lang
	}
	return lang
}

func (m *Machine) servicesFor(lang string) []string {
	if list, ok := m.services[lang]; ok && len(list) > 0 {
		return append([]string(nil), list...)
	}
	return locale.Services(lang)
}

// Session returns a copy of the session for identity.
func (m *Machine) Session(identity string) (Session, bool) {
	m.mu.Lock()
	s, ok := m.sessions[identity]
	m.mu.Unlock()
	if !ok {
		return Session{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed {
		return Session{}, false
	}
	cp := s.Session
	cp.Services = append([]string(nil), s.Services...)
	return cp, true
}

// Active returns the number of sessions in progress.
func (m *Machine) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep destroys sessions idle for longer than the idle timeout and
// returns how many were removed. Sessions busy handling an event are
// skipped. An unsaved completed lead is logged before it is dropped.
func (m *Machine) Sweep() int {
	if m.idle <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.idle)

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for key, s := range m.sessions {
		if !s.mu.TryLock() {
			continue
		}
		if s.UpdatedAt.Before(cutoff) {
			if s.State == StateComplete {
				m.log.WithFields(logrus.Fields{
					"identity": s.Identity.ID,
					"name":     s.Name,
					"phone":    s.Phone,
					"service":  s.Service,
				}).Error("intake: dropping unsaved lead after idle timeout")
			}
			s.removed = true
			delete(m.sessions, key)
			removed++
		}
		s.mu.Unlock()
	}
	if removed > 0 {
		m.metrics.ActiveSessions.Set(float64(len(m.sessions)))
		m.log.WithField("count", removed).Info("intake: swept idle sessions")
	}
	return removed
}

// validPhone accepts free-form numbers as long as they carry digits.
func validPhone(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// matchService resolves a service by label (case-insensitive) or by its
// 1-based position in the offered list.
func matchService(text string, offered []string) (string, bool) {
	if text == "" {
		return "", false
	}
	for _, svc := range offered {
		if strings.EqualFold(svc, text) {
			return svc, true
		}
	}
	if n, err := strconv.Atoi(text); err == nil && n >= 1 && n <= len(offered) {
		return offered[n-1], true
	}
	return "", false
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
