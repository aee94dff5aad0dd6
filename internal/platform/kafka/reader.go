package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

// EventHandler consumes a named notification.
type EventHandler interface {
	HandleEvent(ctx context.Context, name string, payload []byte) error
}

// messageReader is the slice of *kafka.Reader the consumer needs.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads notifications in a consumer group and commits each one after handling.
// Handler errors are logged and the message is committed anyway, matching fire-and-forget delivery.
type Consumer struct {
	reader messageReader
	logger *slog.Logger
}

// NewConsumer joins groupID on topic.
func NewConsumer(brokers []string, topic, groupID string, logger *slog.Logger) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers not configured")
	}
	return newConsumer(kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: groupID,
	}), logger), nil
}

func newConsumer(r messageReader, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Consumer{reader: r, logger: logger}
}

// Run hands messages to h until ctx ends.
func (c *Consumer) Run(ctx context.Context, h EventHandler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		name := headerValue(msg.Headers, EventTypeHeader)
		if err := h.HandleEvent(extractTrace(ctx, msg.Headers), name, msg.Value); err != nil {
			c.logger.Warn("kafka handler error",
				slog.String("event", name),
				slog.String("key", string(msg.Key)),
				slog.Int64("offset", msg.Offset),
				slog.String("error", err.Error()),
			)
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("commit offset %d: %w", msg.Offset, err)
		}
	}
}

// Close leaves the consumer group.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
