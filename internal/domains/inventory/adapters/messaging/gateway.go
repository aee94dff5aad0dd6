package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/adapters/http/mapper"
	"github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/application"
	"github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/ports"
	"github.com/Apurer/order-inventory-coordinator/internal/shared/contracts"
)

// Gateway translates inventory messages into ledger calls. It is safe for concurrent use.
type Gateway struct {
	svc    ports.Service
	logger *slog.Logger
}

type Option func(*Gateway)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGateway wires the gateway to the ledger.
func NewGateway(svc ports.Service, opts ...Option) *Gateway {
	g := &Gateway{
		svc:    svc,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Patterns lists the request/reply patterns the gateway answers.
func (g *Gateway) Patterns() []string {
	return []string{
		contracts.PatternCheckInventory,
		contracts.PatternReserveInventory,
		contracts.PatternUpdateInventory,
	}
}

// Events lists the notifications the gateway listens to.
func (g *Gateway) Events() []string {
	return []string{contracts.EventOrderCreated, contracts.EventOrderStatusUpdated}
}

// Dispatch handles one request and always returns an encoded reply envelope.
func (g *Gateway) Dispatch(ctx context.Context, pattern string, payload []byte) []byte {
	var (
		data any
		err  error
	)
	switch pattern {
	case contracts.PatternCheckInventory:
		data, err = g.check(ctx, payload)
	case contracts.PatternReserveInventory:
		data, err = g.reserve(ctx, payload)
	case contracts.PatternUpdateInventory:
		data, err = g.update(ctx, payload)
	default:
		g.logger.WarnContext(ctx, "unknown inventory pattern", slog.String("pattern", pattern))
		return contracts.Failure(contracts.CodeUnknownPattern, fmt.Sprintf("unknown pattern %q", pattern))
	}
	if err != nil {
		code := codeFor(err)
		g.logger.LogAttrs(ctx, levelFor(code), "inventory request failed",
			slog.String("pattern", pattern), slog.String("code", code), slog.String("error", err.Error()))
		return contracts.Failure(code, err.Error())
	}
	reply, err := contracts.Success(data)
	if err != nil {
		return contracts.Failure(contracts.CodeInternal, err.Error())
	}
	return reply
}

// HandleEvent records an order notification. Notifications never mutate stock.
func (g *Gateway) HandleEvent(ctx context.Context, name string, payload []byte) error {
	switch name {
	case contracts.EventOrderCreated:
		var event contracts.OrderCreated
		if err := json.Unmarshal(payload, &event); err != nil {
			return fmt.Errorf("%w: %w", errBadPayload, err)
		}
		g.logger.InfoContext(ctx, "order created",
			slog.String("order_id", event.OrderID), slog.Int("items", len(event.Items)))
	case contracts.EventOrderStatusUpdated:
		var event contracts.OrderStatusUpdated
		if err := json.Unmarshal(payload, &event); err != nil {
			return fmt.Errorf("%w: %w", errBadPayload, err)
		}
		g.logger.InfoContext(ctx, "order status updated",
			slog.String("order_id", event.OrderID), slog.String("status", event.Status))
	default:
		g.logger.WarnContext(ctx, "ignoring unknown order event", slog.String("event", name))
	}
	return nil
}

func (g *Gateway) check(ctx context.Context, payload []byte) (any, error) {
	var req contracts.CheckRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("%w: %w", errBadPayload, err)
	}
	result, err := g.svc.Check(ctx, mapper.ToCheckInput(req))
	if err != nil {
		return nil, err
	}
	return mapper.FromAvailability(result), nil
}

func (g *Gateway) reserve(ctx context.Context, payload []byte) (any, error) {
	var req contracts.ReserveRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("%w: %w", errBadPayload, err)
	}
	result, err := g.svc.Reserve(ctx, mapper.ToReserveInput(req))
	if err != nil {
		return nil, err
	}
	return mapper.FromAvailability(result), nil
}

func (g *Gateway) update(ctx context.Context, payload []byte) (any, error) {
	var req contracts.UpdateInventoryRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("%w: %w", errBadPayload, err)
	}
	record, err := g.svc.Upsert(ctx, mapper.ToUpsertInput(req))
	if err != nil {
		return nil, err
	}
	return mapper.FromRecord(record), nil
}

var errBadPayload = errors.New("malformed payload")

func codeFor(err error) string {
	switch {
	case errors.Is(err, errBadPayload):
		return contracts.CodeBadPayload
	case errors.Is(err, application.ErrInvalidInput):
		return contracts.CodeValidation
	case errors.Is(err, ports.ErrNotFound):
		return contracts.CodeNotFound
	case errors.Is(err, ports.ErrReservationConflict):
		return contracts.CodeConflict
	default:
		return contracts.CodeInternal
	}
}

func levelFor(code string) slog.Level {
	if code == contracts.CodeInternal {
		return slog.LevelError
	}
	return slog.LevelWarn
}
