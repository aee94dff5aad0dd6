package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends notifications to the events exchange, routed by event name.
type Publisher struct {
	ch  *amqp.Channel
	mu  sync.Mutex
	now func() time.Time
}

// NewPublisher opens a channel for notifications and declares the events exchange.
func NewPublisher(conn *amqp.Connection) (*Publisher, error) {
	if conn == nil {
		return nil, errors.New("rabbitmq connection is nil")
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open publisher channel: %w", err)
	}
	if err := DeclareEvents(ch); err != nil {
		_ = ch.Close()
		return nil, err
	}
	return &Publisher{ch: ch, now: time.Now}, nil
}

// Publish sends body as a persistent message whose routing key is the event name.
func (p *Publisher) Publish(ctx context.Context, event, key string, body []byte) error {
	headers := injectTrace(ctx, amqp.Table{KeyHeader: key})
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.ch.PublishWithContext(ctx,
		EventsExchange,
		event, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Type:         event,
			Timestamp:    p.now().UTC(),
			Headers:      headers,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", event, err)
	}
	return nil
}

// Close closes the publisher channel.
func (p *Publisher) Close() error {
	return p.ch.Close()
}
