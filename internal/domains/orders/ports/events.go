package ports

import (
	"context"

	"github.com/Apurer/order-inventory-coordinator/internal/domains/orders/domain"
)

// EventPublisher delivers order notifications to whoever listens.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}
