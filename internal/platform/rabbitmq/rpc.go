package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrClientClosed is returned by Request after Close or after the broker drops the channel.
var ErrClientClosed = errors.New("rabbitmq rpc client closed")

// RPCClient issues request/reply calls using RabbitMQ direct reply-to.
// Replies are matched to callers by correlation id. Callers bound the wait with their context.
type RPCClient struct {
	ch      *amqp.Channel
	pending *pendingReplies
	logger  *slog.Logger
	newID   func() string

	publishMu sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

// RPCOption tunes the client.
type RPCOption func(*RPCClient)

// WithRPCLogger sets the logger used for dropped replies.
func WithRPCLogger(logger *slog.Logger) RPCOption {
	return func(c *RPCClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewRPCClient opens a dedicated channel and starts consuming direct replies on it.
func NewRPCClient(conn *amqp.Connection, opts ...RPCOption) (*RPCClient, error) {
	if conn == nil {
		return nil, errors.New("rabbitmq connection is nil")
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open rpc channel: %w", err)
	}
	replies, err := ch.Consume(directReplyTo, "", true, true, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("consume direct replies: %w", err)
	}
	c := &RPCClient{
		ch:      ch,
		pending: newPendingReplies(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		newID:   uuid.NewString,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.route(replies)
	return c, nil
}

func (c *RPCClient) route(replies <-chan amqp.Delivery) {
	defer c.shutdown()
	for d := range replies {
		if !c.pending.resolve(d.CorrelationId, d.Body) {
			c.logger.Debug("dropping late rpc reply", slog.String("correlation_id", d.CorrelationId))
		}
	}
}

// Request publishes payload to the queue serving pattern and waits for the matching reply.
func (c *RPCClient) Request(ctx context.Context, pattern string, payload []byte) ([]byte, error) {
	select {
	case <-c.done:
		return nil, ErrClientClosed
	default:
	}

	id := c.newID()
	reply := c.pending.register(id)
	defer c.pending.forget(id)

	msg := amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: id,
		ReplyTo:       directReplyTo,
		Type:          pattern,
		Headers:       injectTrace(ctx, nil),
		Body:          payload,
	}
	if deadline, ok := ctx.Deadline(); ok {
		if ttl := time.Until(deadline); ttl > 0 {
			msg.Expiration = fmt.Sprintf("%d", ttl.Milliseconds())
		}
	}

	c.publishMu.Lock()
	err := c.ch.PublishWithContext(ctx, "", RPCQueue(pattern), false, false, msg)
	c.publishMu.Unlock()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("publish %s: %w", pattern, err)
	}

	select {
	case body := <-reply:
		return body, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrClientClosed
	}
}

// Close stops the reply consumer and closes the channel.
func (c *RPCClient) Close() error {
	err := c.ch.Close()
	c.shutdown()
	return err
}

func (c *RPCClient) shutdown() {
	c.closeOnce.Do(func() { close(c.done) })
}
