package observability

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/domain"
	"github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/ports"
)

const tracerName = "github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/adapters/observability/service"

// Service decorates the inventory ledger with tracing, logging, and metrics.
type Service struct {
	inner   ports.Service
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics serviceMetrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTracer(tr trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tr
	}
}

func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		s.metrics = newServiceMetrics(m)
	}
}

// New wraps the core inventory service.
func New(inner ports.Service, opts ...Option) ports.Service {
	s := &Service{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: newServiceMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.tracer == nil {
		s.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	return s
}

func (s *Service) Upsert(ctx context.Context, input ports.UpsertInput) (*domain.Record, error) {
	ctx, span := s.tracer.Start(ctx, "InventoryLedger.Upsert",
		trace.WithAttributes(attribute.String("inventory.product_id", input.ProductID), attribute.Int64("inventory.quantity", input.Quantity)))
	defer span.End()

	result, err := s.inner.Upsert(ctx, input)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to upsert stock", slog.String("product_id", input.ProductID))
	}
	s.logInfo(ctx, "stock upserted", slog.String("product_id", result.ProductID), slog.Int64("quantity", result.Quantity))
	return result, nil
}

func (s *Service) List(ctx context.Context) ([]*domain.Record, error) {
	ctx, span := s.tracer.Start(ctx, "InventoryLedger.List")
	defer span.End()

	result, err := s.inner.List(ctx)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to list stock")
	}
	span.SetAttributes(attribute.Int("inventory.records", len(result)))
	return result, nil
}

func (s *Service) Get(ctx context.Context, productID string) (*domain.Record, error) {
	ctx, span := s.tracer.Start(ctx, "InventoryLedger.Get", trace.WithAttributes(attribute.String("inventory.product_id", productID)))
	defer span.End()

	result, err := s.inner.Get(ctx, productID)
	if err != nil {
		return nil, s.handleError(ctx, span, err, "failed to load stock", slog.String("product_id", productID))
	}
	return result, nil
}

func (s *Service) Check(ctx context.Context, input ports.CheckInput) (domain.Availability, error) {
	ctx, span := s.tracer.Start(ctx, "InventoryLedger.Check",
		trace.WithAttributes(attribute.Int("inventory.items", len(input.Items)), attribute.Bool("inventory.tokenized", input.Token != "")))
	defer span.End()

	result, err := s.inner.Check(ctx, input)
	if err != nil {
		return result, s.handleError(ctx, span, err, "failed to check stock")
	}
	span.SetAttributes(attribute.Bool("inventory.available", result.Available))
	s.metrics.recordCheck(ctx, result.Available)
	return result, nil
}

func (s *Service) Reserve(ctx context.Context, input ports.ReserveInput) (domain.Availability, error) {
	ctx, span := s.tracer.Start(ctx, "InventoryLedger.Reserve",
		trace.WithAttributes(attribute.Int("inventory.items", len(input.Items)), attribute.Bool("inventory.tokenized", input.Token != "")))
	defer span.End()

	result, err := s.inner.Reserve(ctx, input)
	if err != nil {
		return result, s.handleError(ctx, span, err, "failed to reserve stock", slog.String("token", input.Token))
	}
	span.SetAttributes(attribute.Bool("inventory.available", result.Available))
	s.metrics.recordReservation(ctx, result.Available)
	if result.Available {
		s.logInfo(ctx, "stock reserved", slog.String("token", input.Token), slog.Int("items", len(input.Items)))
	} else {
		s.logInfo(ctx, "reservation refused", slog.String("token", input.Token), slog.String("reason", result.Message))
	}
	return result, nil
}

func (s *Service) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (s *Service) logError(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	s.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}

func (s *Service) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.logError(ctx, msg, err, attrs...)
	return err
}

type serviceMetrics struct {
	checks       metric.Int64Counter
	reservations metric.Int64Counter
}

func newServiceMetrics(m metric.Meter) serviceMetrics {
	if m == nil {
		return serviceMetrics{}
	}
	checks, _ := m.Int64Counter("inventory.ledger.checks", metric.WithDescription("Availability checks by outcome"))
	reservations, _ := m.Int64Counter("inventory.ledger.reservations", metric.WithDescription("Reservations by outcome"))
	return serviceMetrics{checks: checks, reservations: reservations}
}

func (m serviceMetrics) recordCheck(ctx context.Context, available bool) {
	if m.checks != nil {
		m.checks.Add(ctx, 1, metric.WithAttributes(attribute.Bool("available", available)))
	}
}

func (m serviceMetrics) recordReservation(ctx context.Context, available bool) {
	if m.reservations != nil {
		m.reservations.Add(ctx, 1, metric.WithAttributes(attribute.Bool("available", available)))
	}
}

var _ ports.Service = (*Service)(nil)
