package orders

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	ordersapp "github.com/Apurer/order-inventory-coordinator/internal/domains/orders/application"
	"github.com/Apurer/order-inventory-coordinator/internal/domains/orders/domain"
	ordersports "github.com/Apurer/order-inventory-coordinator/internal/domains/orders/ports"
)

const (
	// CheckInventoryActivityName performs one bounded check_inventory round trip.
	CheckInventoryActivityName = "orders.activities.CheckInventory"
	// ReserveInventoryActivityName performs the single reserve_inventory round trip.
	ReserveInventoryActivityName = "orders.activities.ReserveInventory"
	// RecordOrderActivityName persists the pending order.
	RecordOrderActivityName = "orders.activities.RecordOrder"
	// NotifyOrderCreatedActivityName publishes order_created.
	NotifyOrderCreatedActivityName = "orders.activities.NotifyOrderCreated"
)

// Application error types that cross the workflow boundary.
const (
	ErrTypeInsufficientInventory = "InsufficientInventory"
	ErrTypeReservationFailed     = "ReservationFailed"
	ErrTypeInvalidInput          = "InvalidInput"
	ErrTypeInventoryRejected     = "InventoryRejected"
)

// CheckInput is the check activity payload. Token lets a replayed check see its own reservation.
type CheckInput struct {
	Token string
	Items []ordersports.ItemInput
}

// ReserveInput is the reserve activity payload.
type ReserveInput struct {
	Token string
	Items []ordersports.ItemInput
}

// RecordOrderInput is the persist activity payload.
type RecordOrderInput struct {
	OrderID string
	Command ordersports.CreateOrderInput
	Prices  map[string]decimal.Decimal
}

// Activities exposes the order creation steps to Temporal.
type Activities struct {
	steps ordersports.CreationSteps
}

// NewActivities wires the coordinator steps into the Temporal activities bundle.
func NewActivities(steps ordersports.CreationSteps) *Activities {
	return &Activities{steps: steps}
}

// CheckInventory returns the checked prices. Only transport failures are left retryable.
func (a *Activities) CheckInventory(ctx context.Context, input CheckInput) (map[string]decimal.Decimal, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.steps == nil {
		return nil, errors.New("order activities not initialized")
	}
	logger.Info("CheckInventory activity started", "token", input.Token, "items", len(input.Items), "attempt", activity.GetInfo(ctx).Attempt)
	prices, err := a.steps.CheckInventory(ctx, input.Token, input.Items)
	if err != nil {
		logger.Warn("CheckInventory activity failed", "error", err)
		return nil, toApplicationError(err)
	}
	return prices, nil
}

// ReserveInventory performs the reservation. Every failure is terminal.
func (a *Activities) ReserveInventory(ctx context.Context, input ReserveInput) error {
	logger := activity.GetLogger(ctx)
	if a == nil || a.steps == nil {
		return errors.New("order activities not initialized")
	}
	logger.Info("ReserveInventory activity started", "token", input.Token)
	if err := a.steps.ReserveInventory(ctx, input.Token, input.Items); err != nil {
		logger.Error("ReserveInventory activity failed", "token", input.Token, "error", err)
		if errors.Is(err, ordersapp.ErrInsufficientInventory) {
			return toApplicationError(err)
		}
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeReservationFailed, err, err.Error())
	}
	return nil
}

// RecordOrder persists the order under the id chosen by the workflow starter.
func (a *Activities) RecordOrder(ctx context.Context, input RecordOrderInput) (*domain.Order, error) {
	logger := activity.GetLogger(ctx)
	if a == nil || a.steps == nil {
		return nil, errors.New("order activities not initialized")
	}
	order, err := a.steps.RecordOrder(ctx, input.OrderID, input.Command, input.Prices)
	if err != nil {
		logger.Error("RecordOrder activity failed", "orderId", input.OrderID, "error", err)
		if errors.Is(err, ordersapp.ErrInvalidInput) {
			return nil, toApplicationError(err)
		}
		return nil, err
	}
	logger.Info("RecordOrder activity completed", "orderId", order.ID)
	return order, nil
}

// NotifyOrderCreated publishes the creation notification.
func (a *Activities) NotifyOrderCreated(ctx context.Context, order *domain.Order) error {
	if a == nil || a.steps == nil {
		return errors.New("order activities not initialized")
	}
	return a.steps.NotifyOrderCreated(ctx, order)
}

func toApplicationError(err error) error {
	var insufficient *ordersapp.InsufficientInventoryError
	switch {
	case errors.As(err, &insufficient):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInsufficientInventory, err, insufficient.Message)
	case errors.Is(err, ordersapp.ErrInvalidInput):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidInput, err, err.Error())
	case errors.Is(err, ordersports.ErrTransportTimeout), errors.Is(err, ordersports.ErrTransportFailure):
		return err
	default:
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInventoryRejected, err, err.Error())
	}
}
