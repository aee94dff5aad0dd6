package ports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/domain"
)

var (
	ErrNotFound          = errors.New("inventory record not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ShortfallError reports the product that blocked an atomic decrement.
type ShortfallError struct {
	ProductID string
}

func (e *ShortfallError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s", e.ProductID)
}

func (e *ShortfallError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Repository persists stock records keyed by product id.
type Repository interface {
	// Save inserts or overwrites the record for record.ProductID.
	Save(ctx context.Context, record *domain.Record) (*domain.Record, error)
	GetByProductID(ctx context.Context, productID string) (*domain.Record, error)
	List(ctx context.Context) ([]*domain.Record, error)
	// Decrement subtracts every item or none of them. A product short of stock yields a *ShortfallError.
	Decrement(ctx context.Context, items []domain.Item, at time.Time) error
}
