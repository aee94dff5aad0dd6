package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Apurer/order-inventory-coordinator/internal/domains/orders/domain"
	"github.com/Apurer/order-inventory-coordinator/internal/domains/orders/ports"
	"github.com/Apurer/order-inventory-coordinator/internal/shared/contracts"
)

// Sink delivers an encoded notification. key orders deliveries for the same order.
type Sink interface {
	Publish(ctx context.Context, event string, key string, body []byte) error
}

var (
	_ ports.EventPublisher = (*BrokerPublisher)(nil)
	_ ports.EventPublisher = (*LogPublisher)(nil)
)

// BrokerPublisher encodes order events into their wire contract and hands them to a broker sink.
type BrokerPublisher struct {
	sink Sink
}

func NewBrokerPublisher(sink Sink) *BrokerPublisher {
	return &BrokerPublisher{sink: sink}
}

func (p *BrokerPublisher) Publish(ctx context.Context, event domain.Event) error {
	key, body, err := Encode(event)
	if err != nil {
		return err
	}
	return p.sink.Publish(ctx, event.EventName(), key, body)
}

// LogPublisher only logs notifications. It backs deployments without a broker.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event domain.Event) error {
	key, body, err := Encode(event)
	if err != nil {
		return err
	}
	p.logger.InfoContext(ctx, "order event", slog.String("event", event.EventName()),
		slog.String("order_id", key), slog.String("payload", string(body)))
	return nil
}

// Encode maps an order event to its routing key and JSON body.
func Encode(event domain.Event) (string, []byte, error) {
	var (
		key     string
		payload any
	)
	switch e := event.(type) {
	case domain.OrderCreated:
		key = e.OrderID
		payload = contracts.OrderCreated{OrderID: e.OrderID, Items: toContractOrderItems(e.Items)}
	case domain.OrderStatusUpdated:
		key = e.OrderID
		payload = contracts.OrderStatusUpdated{OrderID: e.OrderID, Status: string(e.Status), Items: toContractOrderItems(e.Items)}
	default:
		return "", nil, fmt.Errorf("unsupported order event %T", event)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", nil, err
	}
	return key, body, nil
}

func toContractOrderItems(items []domain.Item) []contracts.OrderItem {
	out := make([]contracts.OrderItem, 0, len(items))
	for _, item := range items {
		out = append(out, contracts.OrderItem{ProductID: item.ProductID, Quantity: item.Quantity, Price: item.Price})
	}
	return out
}
