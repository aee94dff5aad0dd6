package domain

import (
	"time"

	"github.com/Apurer/order-inventory-coordinator/internal/shared/contracts"
)

// Event is the base interface for all domain events.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent provides common event metadata.
type BaseEvent struct {
	Timestamp time.Time
}

// OccurredAt returns when the event occurred.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// OrderCreated is raised once a new order has been persisted.
type OrderCreated struct {
	BaseEvent
	OrderID string
	Items   []Item
}

// EventName returns the event type identifier.
func (e OrderCreated) EventName() string {
	return contracts.EventOrderCreated
}

// OrderStatusUpdated is raised after a status change has been persisted.
type OrderStatusUpdated struct {
	BaseEvent
	OrderID string
	Status  Status
	Items   []Item
}

// EventName returns the event type identifier.
func (e OrderStatusUpdated) EventName() string {
	return contracts.EventOrderStatusUpdated
}
