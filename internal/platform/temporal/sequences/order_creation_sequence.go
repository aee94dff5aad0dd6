package sequences

import (
	"time"

	"github.com/shopspring/decimal"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/Apurer/order-inventory-coordinator/internal/domains/orders/domain"
	ordersports "github.com/Apurer/order-inventory-coordinator/internal/domains/orders/ports"
	orderactivities "github.com/Apurer/order-inventory-coordinator/internal/platform/temporal/activities/orders"
)

// OrderCreationInput fixes the order id and reservation token before any activity runs,
// so activity retries and workflow replays never mint new ones.
type OrderCreationInput struct {
	OrderID          string
	ReservationToken string
	Command          ordersports.CreateOrderInput
}

// RunOrderCreationSequence checks, reserves, persists and announces an order.
func RunOrderCreationSequence(ctx workflow.Context, input OrderCreationInput) (*domain.Order, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("order creation sequence started", "orderId", input.OrderID)

	checkOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    500 * time.Millisecond,
			BackoffCoefficient: 2.0,
			MaximumInterval:    2 * time.Second,
			MaximumAttempts:    3,
		},
	}
	reserveOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	}
	persistOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    5,
		},
	}
	notifyOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Second,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	}

	check := orderactivities.CheckInput{Token: input.ReservationToken, Items: input.Command.Items}
	var prices map[string]decimal.Decimal
	if err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, checkOptions),
		orderactivities.CheckInventoryActivityName, check).Get(ctx, &prices); err != nil {
		logger.Error("order creation sequence check failed", "orderId", input.OrderID, "error", err)
		return nil, err
	}

	reserve := orderactivities.ReserveInput{Token: input.ReservationToken, Items: input.Command.Items}
	if err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, reserveOptions),
		orderactivities.ReserveInventoryActivityName, reserve).Get(ctx, nil); err != nil {
		logger.Error("order creation sequence reserve failed", "orderId", input.OrderID, "error", err)
		return nil, err
	}

	record := orderactivities.RecordOrderInput{OrderID: input.OrderID, Command: input.Command, Prices: prices}
	var order domain.Order
	if err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, persistOptions),
		orderactivities.RecordOrderActivityName, record).Get(ctx, &order); err != nil {
		logger.Error("order creation sequence persist failed", "orderId", input.OrderID, "error", err)
		return nil, err
	}

	// Notification is best effort, the order already exists.
	if err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, notifyOptions),
		orderactivities.NotifyOrderCreatedActivityName, &order).Get(ctx, nil); err != nil {
		logger.Warn("order creation sequence notify failed", "orderId", input.OrderID, "error", err)
	}
	logger.Info("order creation sequence completed", "orderId", order.ID)
	return &order, nil
}
