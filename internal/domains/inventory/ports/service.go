package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/domain"
)

// UpsertInput carries a stock level to create or overwrite.
type UpsertInput struct {
	ProductID string
	Quantity  int64
	Price     decimal.Decimal
}

// CheckInput carries the items to check. A token with a live reservation short-circuits the check.
type CheckInput struct {
	Token string
	Items []domain.Item
}

// ReserveInput carries the items to reserve and the optional deduplication token.
type ReserveInput struct {
	Token string
	Items []domain.Item
}

// Service exposes the inventory ledger use cases to adapters.
type Service interface {
	Upsert(ctx context.Context, input UpsertInput) (*domain.Record, error)
	List(ctx context.Context) ([]*domain.Record, error)
	Get(ctx context.Context, productID string) (*domain.Record, error)
	Check(ctx context.Context, input CheckInput) (domain.Availability, error)
	Reserve(ctx context.Context, input ReserveInput) (domain.Availability, error)
}
