package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"
)

// RequestHandler answers a request pattern with an encoded reply.
type RequestHandler interface {
	Dispatch(ctx context.Context, pattern string, payload []byte) []byte
}

// EventHandler consumes a named notification.
type EventHandler interface {
	HandleEvent(ctx context.Context, name string, payload []byte) error
}

// Router manages multiple consumers (one per registered queue) on a single AMQP channel.
type Router struct {
	ch            *amqp.Channel
	prefetch      int
	callTimeout   time.Duration
	requeueOnErr  bool
	logger        *slog.Logger
	registrations []registration
}

type registration struct {
	queueName   string
	consumerTag string
	handle      func(ctx context.Context, d amqp.Delivery) error
}

// RouterOption tunes the router.
type RouterOption func(*Router)

func WithPrefetch(n int) RouterOption          { return func(r *Router) { r.prefetch = n } }
func WithTimeout(d time.Duration) RouterOption { return func(r *Router) { r.callTimeout = d } }
func WithRequeue(b bool) RouterOption          { return func(r *Router) { r.requeueOnErr = b } }

func WithRouterLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRouter constructs a Router. Defaults: prefetch=50, timeout=10s, requeueOnErr=false.
func NewRouter(ch *amqp.Channel, opts ...RouterOption) *Router {
	r := &Router{
		ch:          ch,
		prefetch:    50,
		callTimeout: 10 * time.Second,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Serve answers requests for each pattern on its RPC queue.
func (r *Router) Serve(patterns []string, h RequestHandler) {
	for _, pattern := range patterns {
		pattern := pattern
		r.registrations = append(r.registrations, registration{
			queueName:   RPCQueue(pattern),
			consumerTag: "rpc_" + pattern,
			handle: func(ctx context.Context, d amqp.Delivery) error {
				reply, ok := replyFor(ctx, h, pattern, d)
				if !ok {
					return nil
				}
				return r.ch.PublishWithContext(ctx, "", d.ReplyTo, false, false, reply)
			},
		})
	}
}

// Subscribe hands every notification arriving on queue to h.
func (r *Router) Subscribe(queueName string, h EventHandler) {
	r.registrations = append(r.registrations, registration{
		queueName:   queueName,
		consumerTag: "events_" + queueName,
		handle: func(ctx context.Context, d amqp.Delivery) error {
			return h.HandleEvent(ctx, eventName(d), d.Body)
		},
	})
}

// Run consumes every registered queue until ctx ends or the broker closes the channel.
// QoS (prefetch) is set per-channel and applies to all consumers on this channel.
func (r *Router) Run(ctx context.Context) error {
	if len(r.registrations) == 0 {
		return errors.New("rabbitmq router has no registrations")
	}
	if err := r.ch.Qos(r.prefetch, 0, false); err != nil {
		return err
	}

	var wg sync.WaitGroup
	for _, reg := range r.registrations {
		deliveries, err := r.ch.Consume(
			reg.queueName,
			reg.consumerTag,
			false, // manual ack
			false, // exclusive
			false, // no-local
			false, // no-wait
			nil,
		)
		if err != nil {
			return fmt.Errorf("consume %s: %w", reg.queueName, err)
		}
		wg.Add(1)
		go func(reg registration, msgs <-chan amqp.Delivery) {
			defer wg.Done()
			r.consume(ctx, reg, msgs)
		}(reg, deliveries)
	}

	stopped := make(chan struct{})
	go func() {
		wg.Wait()
		close(stopped)
	}()

	select {
	case <-ctx.Done():
		for _, reg := range r.registrations {
			_ = r.ch.Cancel(reg.consumerTag, false)
		}
		<-stopped
		return nil
	case <-stopped:
		if ctx.Err() != nil {
			return nil
		}
		return errors.New("rabbitmq deliveries closed by broker")
	}
}

// consume handles deliveries concurrently, at most prefetch at a time, and returns once
// the queue is closed and every started handler has settled its delivery.
func (r *Router) consume(ctx context.Context, reg registration, msgs <-chan amqp.Delivery) {
	var g errgroup.Group
	if r.prefetch > 0 {
		g.SetLimit(r.prefetch)
	}
	for d := range msgs {
		d := d
		g.Go(func() error {
			r.deliver(ctx, reg, d)
			return nil
		})
	}
	_ = g.Wait()
	r.logger.Info("rabbitmq consumer stopped", slog.String("queue", reg.queueName))
}

func (r *Router) deliver(ctx context.Context, reg registration, d amqp.Delivery) {
	callCtx, cancel := context.WithTimeout(extractTrace(ctx, d.Headers), r.callTimeout)
	err := reg.handle(callCtx, d)
	cancel()

	if err != nil {
		r.logger.Warn("rabbitmq handler error",
			slog.String("queue", reg.queueName),
			slog.String("routing_key", d.RoutingKey),
			slog.Bool("requeue", r.requeueOnErr),
			slog.String("error", err.Error()),
		)
		_ = d.Nack(false, r.requeueOnErr)
		return
	}
	_ = d.Ack(false)
}

// replyFor runs a request and builds its reply. Requests without a reply address are dropped.
func replyFor(ctx context.Context, h RequestHandler, pattern string, d amqp.Delivery) (amqp.Publishing, bool) {
	if d.ReplyTo == "" {
		return amqp.Publishing{}, false
	}
	body := h.Dispatch(ctx, pattern, d.Body)
	return amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: d.CorrelationId,
		Type:          pattern,
		Headers:       injectTrace(ctx, nil),
		Body:          body,
	}, true
}

// eventName prefers the message type and falls back to the routing key.
func eventName(d amqp.Delivery) string {
	if d.Type != "" {
		return d.Type
	}
	return d.RoutingKey
}
