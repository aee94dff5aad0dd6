package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status enumerates order progression.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

var (
	ErrEmptyCustomerID = errors.New("customer id must not be empty")
	ErrNoItems         = errors.New("order must contain at least one item")
	ErrEmptyProductID  = errors.New("product id must not be empty")
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	ErrInvalidStatus   = errors.New("order status is invalid")
)

// Item is one order line with the unit price captured when the order was placed.
type Item struct {
	ProductID string
	Quantity  int64
	Price     decimal.Decimal
}

// Order models the order aggregate.
type Order struct {
	ID          string
	CustomerID  string
	Items       []Item
	Status      Status
	TotalAmount decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewOrder validates and constructs a pending order. TotalAmount starts at zero.
func NewOrder(id, customerID string, items []Item, at time.Time) (*Order, error) {
	order := &Order{
		ID:          id,
		CustomerID:  strings.TrimSpace(customerID),
		Items:       append([]Item(nil), items...),
		Status:      StatusPending,
		TotalAmount: decimal.Zero,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}
	return order, nil
}

// Validate enforces invariants on the aggregate.
func (o *Order) Validate() error {
	if o.CustomerID == "" {
		return ErrEmptyCustomerID
	}
	if len(o.Items) == 0 {
		return ErrNoItems
	}
	for _, item := range o.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return ErrEmptyProductID
		}
		if item.Quantity <= 0 {
			return ErrInvalidQuantity
		}
	}
	if !status(o.Status).valid() {
		return ErrInvalidStatus
	}
	return nil
}

// UpdateStatus moves the order to any known status. Transitions are not restricted.
func (o *Order) UpdateStatus(next Status, at time.Time) error {
	if !status(next).valid() {
		return ErrInvalidStatus
	}
	o.Status = next
	o.UpdatedAt = at
	return nil
}

// Clone returns a detached copy.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = append([]Item(nil), o.Items...)
	return &clone
}

// ParseStatus converts raw input into a known status.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.TrimSpace(raw))
	if !status(s).valid() {
		return "", ErrInvalidStatus
	}
	return s, nil
}

type status Status

func (s status) valid() bool {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	default:
		return false
	}
}
