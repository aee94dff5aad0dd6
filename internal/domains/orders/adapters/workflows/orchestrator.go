package workflows

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	oteltrace "go.opentelemetry.io/otel/trace"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	"github.com/Apurer/order-inventory-coordinator/internal/domains/orders/application"
	"github.com/Apurer/order-inventory-coordinator/internal/domains/orders/domain"
	"github.com/Apurer/order-inventory-coordinator/internal/domains/orders/ports"
	orderactivities "github.com/Apurer/order-inventory-coordinator/internal/platform/temporal/activities/orders"
	orderworkflows "github.com/Apurer/order-inventory-coordinator/internal/platform/temporal/workflows/orders"
)

var (
	_ ports.WorkflowOrchestrator = (*TemporalOrderWorkflows)(nil)
	_ ports.WorkflowOrchestrator = (*InlineOrderWorkflows)(nil)
)

// Identity decides the order id and reservation token before a workflow starts.
type Identity interface {
	OrderID(input ports.CreateOrderInput) string
	ReservationToken(input ports.CreateOrderInput, orderID string) string
}

// OrderLookup finds orders a previous workflow run already recorded.
type OrderLookup interface {
	Get(ctx context.Context, id string) (*domain.Order, error)
}

// TemporalOrderWorkflows starts order workflows on a Temporal cluster.
type TemporalOrderWorkflows struct {
	client    client.Client
	identity  Identity
	orders    OrderLookup
	taskQueue string
}

// NewTemporalOrderWorkflows wires a Temporal client into the orchestrator.
func NewTemporalOrderWorkflows(c client.Client, identity Identity, orders OrderLookup) *TemporalOrderWorkflows {
	return &TemporalOrderWorkflows{client: c, identity: identity, orders: orders, taskQueue: orderworkflows.OrderCreationTaskQueue}
}

// CreateOrder starts the order creation workflow and waits for its result.
// A keyed order that is already recorded is returned without starting a new run.
func (o *TemporalOrderWorkflows) CreateOrder(ctx context.Context, input ports.CreateOrderInput) (*domain.Order, error) {
	if o == nil || o.client == nil || o.identity == nil {
		return nil, errors.New("temporal order workflows not configured")
	}
	if err := application.ValidateCreateInput(input); err != nil {
		return nil, err
	}
	orderID := o.identity.OrderID(input)
	if strings.TrimSpace(input.IdempotencyKey) != "" && o.orders != nil {
		existing, err := o.orders.Get(ctx, orderID)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, ports.ErrNotFound) {
			return nil, err
		}
	}
	traceComponent := workflowTraceComponent(ctx)
	workflowID := fmt.Sprintf("order-creation-%s", orderID)
	options := client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: o.taskQueue,
	}
	run, err := o.client.ExecuteWorkflow(
		ctx,
		options,
		orderworkflows.OrderCreationWorkflow,
		orderworkflows.OrderCreationWorkflowInput{
			Command:          input,
			OrderID:          orderID,
			ReservationToken: o.identity.ReservationToken(input, orderID),
			TraceID:          traceComponent,
		},
	)
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &alreadyStarted) && strings.TrimSpace(input.IdempotencyKey) != "" {
			return awaitOrder(ctx, o.client.GetWorkflow(ctx, workflowID, alreadyStarted.RunId))
		}
		return nil, err
	}
	return awaitOrder(ctx, run)
}

func awaitOrder(ctx context.Context, run client.WorkflowRun) (*domain.Order, error) {
	var order domain.Order
	if err := run.Get(ctx, &order); err != nil {
		return nil, fromWorkflowError(err)
	}
	return &order, nil
}

// fromWorkflowError restores the coordinator's error taxonomy from activity failures.
func fromWorkflowError(err error) error {
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return err
	}
	var message string
	if appErr.HasDetails() {
		_ = appErr.Details(&message)
	}
	switch appErr.Type() {
	case orderactivities.ErrTypeInsufficientInventory:
		return &application.InsufficientInventoryError{Message: message}
	case orderactivities.ErrTypeReservationFailed:
		return fmt.Errorf("%w: %s", application.ErrReservationFailed, message)
	case orderactivities.ErrTypeInvalidInput:
		return fmt.Errorf("%w: %s", application.ErrInvalidInput, message)
	default:
		return err
	}
}

// InlineOrderWorkflows executes the coordinator directly without Temporal, useful for tests or dev fallbacks.
type InlineOrderWorkflows struct {
	service ports.Service
}

// NewInlineOrderWorkflows wraps the order service for synchronous execution.
func NewInlineOrderWorkflows(service ports.Service) *InlineOrderWorkflows {
	return &InlineOrderWorkflows{service: service}
}

// CreateOrder delegates to the application service without durable orchestration.
func (o *InlineOrderWorkflows) CreateOrder(ctx context.Context, input ports.CreateOrderInput) (*domain.Order, error) {
	if o == nil || o.service == nil {
		return nil, errors.New("inline order workflows not configured")
	}
	return o.service.Create(ctx, input)
}

func workflowTraceComponent(ctx context.Context) string {
	traceComponent := workflowTraceID(ctx)
	if traceComponent != "" {
		return traceComponent
	}
	return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
}

func workflowTraceID(ctx context.Context) string {
	span := oteltrace.SpanFromContext(ctx)
	if span == nil {
		return ""
	}
	spanCtx := span.SpanContext()
	if !spanCtx.IsValid() {
		return ""
	}
	traceID := spanCtx.TraceID()
	if !traceID.IsValid() {
		return ""
	}
	return traceID.String()
}
