package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Apurer/order-inventory-coordinator/internal/domains/orders/ports"
	"github.com/Apurer/order-inventory-coordinator/internal/shared/contracts"
)

// Requester sends one request and waits for its correlated reply envelope.
// Implementations must return promptly once ctx is done and drop any reply that arrives later.
type Requester interface {
	Request(ctx context.Context, pattern string, payload []byte) ([]byte, error)
}

var _ ports.InventoryClient = (*InventoryClient)(nil)

// InventoryClient speaks the inventory request/reply contract over a Requester.
type InventoryClient struct {
	requester Requester
}

func NewInventoryClient(requester Requester) *InventoryClient {
	return &InventoryClient{requester: requester}
}

func (c *InventoryClient) CheckInventory(ctx context.Context, token string, items []ports.InventoryItem) (ports.Availability, error) {
	return c.call(ctx, contracts.PatternCheckInventory, contracts.CheckRequest{Token: token, Items: toContractItems(items)})
}

func (c *InventoryClient) ReserveInventory(ctx context.Context, token string, items []ports.InventoryItem) (ports.Availability, error) {
	return c.call(ctx, contracts.PatternReserveInventory, contracts.ReserveRequest{Token: token, Items: toContractItems(items)})
}

func (c *InventoryClient) call(ctx context.Context, pattern string, request any) (ports.Availability, error) {
	if c == nil || c.requester == nil {
		return ports.Availability{}, fmt.Errorf("%w: inventory requester not configured", ports.ErrTransportFailure)
	}
	payload, err := json.Marshal(request)
	if err != nil {
		return ports.Availability{}, err
	}
	reply, err := c.requester.Request(ctx, pattern, payload)
	if err != nil {
		return ports.Availability{}, classify(err)
	}
	var result contracts.Availability
	if err := contracts.Decode(reply, &result); err != nil {
		var remote *contracts.RemoteError
		if errors.As(err, &remote) {
			return ports.Availability{}, remote
		}
		return ports.Availability{}, fmt.Errorf("%w: %w", ports.ErrTransportFailure, err)
	}
	return ports.Availability{Available: result.Available, Message: result.Message, Prices: result.Prices}, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, ports.ErrTransportTimeout), errors.Is(err, ports.ErrTransportFailure):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ports.ErrTransportTimeout, err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %w", ports.ErrTransportFailure, err)
	}
}

func toContractItems(items []ports.InventoryItem) []contracts.Item {
	out := make([]contracts.Item, 0, len(items))
	for _, item := range items {
		out = append(out, contracts.Item{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return out
}
