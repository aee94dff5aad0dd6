package ports

import (
	"context"

	"github.com/Apurer/order-inventory-coordinator/internal/domains/orders/domain"
)

// ItemInput is a requested order line.
type ItemInput struct {
	ProductID string
	Quantity  int64
}

// CreateOrderInput carries a new order request. IdempotencyKey becomes the reservation token.
type CreateOrderInput struct {
	CustomerID     string
	Items          []ItemInput
	IdempotencyKey string
}

// Service exposes the order use cases to adapters.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*domain.Order, error)
	Get(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status string) (*domain.Order, error)
}
