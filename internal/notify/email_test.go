package notify

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zulandar/leadyard/internal/config"
	"gopkg.in/gomail.v2"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, m...)
	return nil
}

func TestNewEmailSender_Validation(t *testing.T) {
	_, err := NewEmailSender(config.EmailConfig{From: "a@b"})
	assert.Error(t, err)
	_, err = NewEmailSender(config.EmailConfig{Host: "smtp"})
	assert.Error(t, err)

	s, err := NewEmailSender(config.EmailConfig{Host: "smtp", Port: 587, From: "a@b"})
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestEmailSender_Send(t *testing.T) {
	d := &fakeDialer{}
	s := NewEmailSenderWithDialer(d, "bot@example.com")

	msg := NewLeadMessage(sampleLead(), "en", nil)
	require.NoError(t, s.Send(context.Background(), "ops@example.com", msg))
	require.Len(t, d.sent, 1)

	m := d.sent[0]
	assert.Equal(t, []string{"bot@example.com"}, m.GetHeader("From"))
	assert.Equal(t, []string{"ops@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{msg.Title}, m.GetHeader("Subject"))

	var raw bytes.Buffer
	_, err := m.WriteTo(&raw)
	require.NoError(t, err)
	assert.Contains(t, raw.String(), "text/html")
	assert.Contains(t, raw.String(), "text/plain")
}

func TestEmailSender_DialError(t *testing.T) {
	s := NewEmailSenderWithDialer(&fakeDialer{err: errors.New("connection refused")}, "bot@example.com")
	err := s.Send(context.Background(), "ops@example.com", Message{Title: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp send")
}

func TestEmailSender_CancelledContext(t *testing.T) {
	d := &fakeDialer{}
	s := NewEmailSenderWithDialer(d, "bot@example.com")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, "ops@example.com", Message{}), context.Canceled)
	assert.Empty(t, d.sent)
}
