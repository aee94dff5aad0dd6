package ports

import (
	"context"
	"errors"

	"github.com/Apurer/order-inventory-coordinator/internal/domains/orders/domain"
)

var ErrNotFound = errors.New("order not found")

// Repository abstracts order persistence.
type Repository interface {
	Save(ctx context.Context, order *domain.Order) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context) ([]*domain.Order, error)
}
