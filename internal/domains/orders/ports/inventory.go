package ports

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrTransportTimeout means no reply arrived before the request deadline.
	ErrTransportTimeout = errors.New("inventory request timed out")
	// ErrTransportFailure means the request could not be delivered or the reply could not be read.
	ErrTransportFailure = errors.New("inventory transport failure")
)

// InventoryItem is a product quantity requested from the inventory service.
type InventoryItem struct {
	ProductID string
	Quantity  int64
}

// Availability is the inventory service's answer to a check or reserve.
type Availability struct {
	Available bool
	Message   string
	Prices    map[string]decimal.Decimal
}

// InventoryClient talks to the inventory service over its request/reply channel.
type InventoryClient interface {
	// CheckInventory reports availability. A token holding a live reservation reports that reservation instead.
	CheckInventory(ctx context.Context, token string, items []InventoryItem) (Availability, error)
	// ReserveInventory decrements stock. The token lets the inventory side deduplicate retries.
	ReserveInventory(ctx context.Context, token string, items []InventoryItem) (Availability, error)
}
