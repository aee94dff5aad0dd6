// Package rabbitmq carries request/reply calls and order notifications over AMQP 0-9-1.
package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Broker topology shared by the order and inventory processes.
const (
	EventsExchange       = "order.events"
	EventsExchangeType   = "topic"
	RPCQueuePrefix       = "inventory.rpc."
	InventoryEventsQueue = "inventory.order-events"
	directReplyTo        = "amq.rabbitmq.reply-to"
)

// RPCQueue names the queue serving a request pattern.
func RPCQueue(pattern string) string {
	return RPCQueuePrefix + pattern
}

type dialSettings struct {
	attempts int
	delay    time.Duration
	logger   *slog.Logger
}

// DialOption tunes Dial.
type DialOption func(*dialSettings)

// WithDialRetry sets how many times Dial tries and how long it waits between tries.
func WithDialRetry(attempts int, delay time.Duration) DialOption {
	return func(s *dialSettings) {
		if attempts > 0 {
			s.attempts = attempts
		}
		s.delay = delay
	}
}

// WithDialLogger reports failed attempts.
func WithDialLogger(logger *slog.Logger) DialOption {
	return func(s *dialSettings) { s.logger = logger }
}

// Dial connects to the broker, retrying while the broker container starts up.
func Dial(ctx context.Context, url string, opts ...DialOption) (*amqp.Connection, error) {
	settings := dialSettings{attempts: 5, delay: 2 * time.Second}
	for _, opt := range opts {
		opt(&settings)
	}
	var lastErr error
	for attempt := 1; attempt <= settings.attempts; attempt++ {
		conn, err := amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if settings.logger != nil {
			settings.logger.Warn("rabbitmq dial failed", slog.Int("attempt", attempt), slog.String("error", err.Error()))
		}
		if attempt == settings.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(ctx.Err(), lastErr)
		case <-time.After(settings.delay):
		}
	}
	return nil, fmt.Errorf("could not connect to rabbitmq: %w", lastErr)
}

// DeclareEvents declares the durable topic exchange that carries order notifications.
func DeclareEvents(ch *amqp.Channel) error {
	err := ch.ExchangeDeclare(
		EventsExchange,
		EventsExchangeType,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare exchange %s: %w", EventsExchange, err)
	}
	return nil
}

// DeclareRPCQueues declares one durable queue per request pattern.
func DeclareRPCQueues(ch *amqp.Channel, patterns []string) error {
	for _, pattern := range patterns {
		if _, err := ch.QueueDeclare(RPCQueue(pattern), true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", RPCQueue(pattern), err)
		}
	}
	return nil
}

// BindEvents declares a durable queue and binds it to the events exchange for each event name.
func BindEvents(ch *amqp.Channel, queue string, events []string) error {
	if err := DeclareEvents(ch); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	for _, event := range events {
		if err := ch.QueueBind(queue, event, EventsExchange, false, nil); err != nil {
			return fmt.Errorf("bind %s to %s: %w", queue, event, err)
		}
	}
	return nil
}
