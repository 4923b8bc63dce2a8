package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisherOpts holds parameters for creating an AMQPPublisher.
type AMQPPublisherOpts struct {
	Channel  Channel
	Exchange string
	Log      *logrus.Logger
	Timeout  time.Duration // per publish; defaults to 5s
}

// AMQPPublisher publishes events as persistent JSON messages to a topic
// exchange, routed by event type.
type AMQPPublisher struct {
	mu       sync.Mutex
	ch       Channel
	conn     *amqp.Connection
	exchange string
	log      *logrus.Logger
	timeout  time.Duration
}

// NewAMQPPublisher declares the exchange on ch and returns a publisher.
func NewAMQPPublisher(opts AMQPPublisherOpts) (*AMQPPublisher, error) {
	if opts.Channel == nil {
		return nil, fmt.Errorf("events: channel is required")
	}
	if opts.Exchange == "" {
		return nil, fmt.Errorf("events: exchange is required")
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if err := opts.Channel.ExchangeDeclare(opts.Exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("events: declare exchange %s: %w", opts.Exchange, err)
	}
	return &AMQPPublisher{
		ch:       opts.Channel,
		exchange: opts.Exchange,
		log:      opts.Log,
		timeout:  opts.Timeout,
	}, nil
}

// DialAMQP connects to url and returns a publisher owning the connection.
func DialAMQP(url, exchange string, log *logrus.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("events: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("events: open channel: %w", err)
	}
	p, err := NewAMQPPublisher(AMQPPublisherOpts{Channel: ch, Exchange: exchange, Log: log})
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// Publish sends e. Failures are logged and returned.
func (p *AMQPPublisher) Publish(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", e.Type, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	p.mu.Lock()
	err = p.ch.PublishWithContext(ctx, p.exchange, e.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID,
		Timestamp:    e.OccurredAt,
		Type:         e.Type,
		Body:         body,
	})
	p.mu.Unlock()

	fields := logrus.Fields{"event": e.Type, "lead_id": e.LeadID, "exchange": p.exchange}
	if err != nil {
		p.log.WithFields(fields).WithError(err).Warn("event publish failed")
		return fmt.Errorf("events: publish %s: %w", e.Type, err)
	}
	p.log.WithFields(fields).Debug("event published")
	return nil
}

// Close closes the channel and, when dialled, the connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
