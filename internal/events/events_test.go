package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zulandar/leadyard/internal/models"
)

type fakeChannel struct {
	declared   []string
	kind       string
	published  []amqp.Publishing
	keys       []string
	publishErr error
	declareErr error
	closed     bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	if f.declareErr != nil {
		return f.declareErr
	}
	f.declared = append(f.declared, name)
	f.kind = kind
	return nil
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestNew(t *testing.T) {
	l := &models.Lead{ID: 7, Status: models.TierHot}
	e := New(LeadCreated, l)

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, LeadCreated, e.Type)
	assert.Equal(t, uint(7), e.LeadID)
	assert.Equal(t, models.TierHot, e.Tier)
	assert.False(t, e.OccurredAt.IsZero())
	assert.NotEqual(t, e.ID, New(LeadCreated, l).ID)
}

func TestNewAMQPPublisher_Validation(t *testing.T) {
	_, err := NewAMQPPublisher(AMQPPublisherOpts{Exchange: "x"})
	assert.Error(t, err)

	_, err = NewAMQPPublisher(AMQPPublisherOpts{Channel: &fakeChannel{}})
	assert.Error(t, err)

	_, err = NewAMQPPublisher(AMQPPublisherOpts{
		Channel:  &fakeChannel{declareErr: errors.New("denied")},
		Exchange: "x",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declare exchange")
}

func TestAMQPPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	p, err := NewAMQPPublisher(AMQPPublisherOpts{Channel: ch, Exchange: "leadyard.events", Log: quietLogger()})
	require.NoError(t, err)
	assert.Equal(t, []string{"leadyard.events"}, ch.declared)
	assert.Equal(t, "topic", ch.kind)

	e := New(LeadReminder, &models.Lead{ID: 3, Status: models.TierCold})
	e.Threshold = 2
	require.NoError(t, p.Publish(context.Background(), e))

	require.Len(t, ch.published, 1)
	msg := ch.published[0]
	assert.Equal(t, LeadReminder, ch.keys[0])
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, e.ID, msg.MessageId)

	var got Event
	require.NoError(t, json.Unmarshal(msg.Body, &got))
	assert.Equal(t, uint(3), got.LeadID)
	assert.Equal(t, 2, got.Threshold)
}

func TestAMQPPublisher_PublishError(t *testing.T) {
	ch := &fakeChannel{publishErr: errors.New("channel closed")}
	p, err := NewAMQPPublisher(AMQPPublisherOpts{Channel: ch, Exchange: "x", Log: quietLogger()})
	require.NoError(t, err)

	err = p.Publish(context.Background(), New(LeadCreated, &models.Lead{ID: 1}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lead.created")
}

func TestAMQPPublisher_Close(t *testing.T) {
	ch := &fakeChannel{}
	p, err := NewAMQPPublisher(AMQPPublisherOpts{Channel: ch, Exchange: "x", Log: quietLogger()})
	require.NoError(t, err)
	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestRecorder(t *testing.T) {
	var r Recorder
	_ = r.Publish(context.Background(), Event{Type: LeadCreated})
	_ = r.Publish(context.Background(), Event{Type: LeadArchived})
	assert.Equal(t, []string{LeadCreated, LeadArchived}, r.Types())

	var n NopPublisher
	assert.NoError(t, n.Publish(context.Background(), Event{}))
	assert.NoError(t, n.Close())
}
