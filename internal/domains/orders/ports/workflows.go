package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Apurer/order-inventory-coordinator/internal/domains/orders/domain"
)

// WorkflowOrchestrator runs order creation either inline or as a durable workflow.
type WorkflowOrchestrator interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error)
}

// CreationSteps are the individually executable stages of order creation.
// Durable workflows run them as separate activities and own the retry policy themselves.
type CreationSteps interface {
	// CheckInventory makes one bounded check attempt under token and returns the price of every item.
	CheckInventory(ctx context.Context, token string, items []ItemInput) (map[string]decimal.Decimal, error)
	// ReserveInventory makes exactly one bounded reserve attempt under token.
	ReserveInventory(ctx context.Context, token string, items []ItemInput) error
	// RecordOrder persists a pending order priced from the check result.
	RecordOrder(ctx context.Context, orderID string, input CreateOrderInput, prices map[string]decimal.Decimal) (*domain.Order, error)
	// NotifyOrderCreated publishes order_created synchronously.
	NotifyOrderCreated(ctx context.Context, order *domain.Order) error
}
