package mapper

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Apurer/order-inventory-coordinator/internal/domains/orders/domain"
	"github.com/Apurer/order-inventory-coordinator/internal/domains/orders/ports"
)

// ItemRequest is a requested order line as received over HTTP.
type ItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

// CreateOrderRequest is the POST /orders body.
type CreateOrderRequest struct {
	CustomerID string        `json:"customerId"`
	Items      []ItemRequest `json:"items"`
}

// UpdateStatusRequest is the PUT /orders/:id/status body.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// OrderItem is the transport view of an order line.
type OrderItem struct {
	ProductID string          `json:"productId"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Order is the transport view of an order.
type Order struct {
	ID          string          `json:"id"`
	CustomerID  string          `json:"customerId"`
	Items       []OrderItem     `json:"items"`
	Status      string          `json:"status"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ToCreateInput converts a request body plus the Idempotency-Key header into the service input.
func ToCreateInput(req CreateOrderRequest, idempotencyKey string) ports.CreateOrderInput {
	items := make([]ports.ItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, ports.ItemInput{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return ports.CreateOrderInput{CustomerID: req.CustomerID, Items: items, IdempotencyKey: idempotencyKey}
}

// FromDomainOrder converts a domain order to the transport representation.
func FromDomainOrder(order *domain.Order) Order {
	if order == nil {
		return Order{}
	}
	items := make([]OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItem{ProductID: item.ProductID, Quantity: item.Quantity, Price: item.Price})
	}
	return Order{
		ID:          order.ID,
		CustomerID:  order.CustomerID,
		Items:       items,
		Status:      string(order.Status),
		TotalAmount: order.TotalAmount,
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
	}
}

// FromDomainOrders converts a list of orders, never returning nil.
func FromDomainOrders(orders []*domain.Order) []Order {
	out := make([]Order, 0, len(orders))
	for _, order := range orders {
		out = append(out, FromDomainOrder(order))
	}
	return out
}
