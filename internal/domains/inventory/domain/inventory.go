package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyProductID     = errors.New("product id must not be empty")
	ErrNegativeQuantity   = errors.New("quantity must not be negative")
	ErrNegativePrice      = errors.New("price must not be negative")
	ErrNonPositiveRequest = errors.New("requested quantity must be greater than zero")
)

// Record is the stock level and unit price held for one product.
type Record struct {
	ID        string
	ProductID string
	Quantity  int64
	Price     decimal.Decimal
	UpdatedAt time.Time
}

// NewRecord validates and constructs a stock record.
func NewRecord(id, productID string, quantity int64, price decimal.Decimal, at time.Time) (*Record, error) {
	record := &Record{
		ID:        id,
		ProductID: strings.TrimSpace(productID),
		Quantity:  quantity,
		Price:     price,
		UpdatedAt: at,
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	return record, nil
}

// Validate enforces the non-negative stock invariants.
func (r *Record) Validate() error {
	return ValidateStock(r.ProductID, r.Quantity, r.Price)
}

// Overwrite replaces quantity and price and refreshes UpdatedAt.
func (r *Record) Overwrite(quantity int64, price decimal.Decimal, at time.Time) error {
	if err := ValidateStock(r.ProductID, quantity, price); err != nil {
		return err
	}
	r.Quantity = quantity
	r.Price = price
	r.UpdatedAt = at
	return nil
}

// Covers reports whether the record holds at least quantity units.
func (r *Record) Covers(quantity int64) bool {
	return r != nil && r.Quantity >= quantity
}

// Clone returns a detached copy.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := *r
	return &clone
}

// ValidateStock checks the values accepted by an upsert.
func ValidateStock(productID string, quantity int64, price decimal.Decimal) error {
	if strings.TrimSpace(productID) == "" {
		return ErrEmptyProductID
	}
	if quantity < 0 {
		return ErrNegativeQuantity
	}
	if price.IsNegative() {
		return ErrNegativePrice
	}
	return nil
}

// Item is a requested product quantity.
type Item struct {
	ProductID string
	Quantity  int64
}

// ValidateItems rejects blank product ids and non-positive quantities.
func ValidateItems(items []Item) error {
	for _, item := range items {
		if strings.TrimSpace(item.ProductID) == "" {
			return ErrEmptyProductID
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: product %s", ErrNonPositiveRequest, item.ProductID)
		}
	}
	return nil
}

// Totals folds repeated product ids together and returns the items sorted by product id.
func Totals(items []Item) []Item {
	sums := make(map[string]int64, len(items))
	for _, item := range items {
		sums[item.ProductID] += item.Quantity
	}
	totals := make([]Item, 0, len(sums))
	for productID, quantity := range sums {
		totals = append(totals, Item{ProductID: productID, Quantity: quantity})
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].ProductID < totals[j].ProductID })
	return totals
}

// ProductIDs lists the distinct product ids referenced by items.
func ProductIDs(items []Item) []string {
	totals := Totals(items)
	ids := make([]string, 0, len(totals))
	for _, item := range totals {
		ids = append(ids, item.ProductID)
	}
	return ids
}

// Availability is the outcome of a check or reserve.
type Availability struct {
	Available bool
	Message   string
	Prices    map[string]decimal.Decimal
}

// Available reports success with the price of every requested product.
func Available(prices map[string]decimal.Decimal) Availability {
	return Availability{Available: true, Prices: prices}
}

// Unavailable names the first product that could not be satisfied.
func Unavailable(productID string) Availability {
	return Availability{Message: fmt.Sprintf("Insufficient inventory for product %s", productID)}
}

// Clone returns a copy with its own price map.
func (a Availability) Clone() Availability {
	if a.Prices == nil {
		return a
	}
	prices := make(map[string]decimal.Decimal, len(a.Prices))
	for k, v := range a.Prices {
		prices[k] = v
	}
	a.Prices = prices
	return a
}
