// Package contracts holds the message shapes exchanged between the order and inventory services.
package contracts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Request/reply patterns served by the inventory gateway.
const (
	PatternCheckInventory   = "check_inventory"
	PatternReserveInventory = "reserve_inventory"
	PatternUpdateInventory  = "update_inventory"
)

// Fire-and-forget notifications emitted by the order service.
const (
	EventOrderCreated       = "order_created"
	EventOrderStatusUpdated = "order_status_updated"
)

// Remote error codes carried in reply envelopes.
const (
	CodeValidation     = "validation"
	CodeNotFound       = "not_found"
	CodeConflict       = "conflict"
	CodeUnknownPattern = "unknown_pattern"
	CodeBadPayload     = "bad_payload"
	CodeInternal       = "internal"
)

// Item is a requested product quantity.
type Item struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

// CheckRequest is the check_inventory payload. A token whose reservation is still live
// answers with the reserved outcome instead of current stock.
type CheckRequest struct {
	Token string `json:"token,omitempty"`
	Items []Item `json:"items"`
}

// UnmarshalJSON accepts both the object form and a bare item array.
func (r *CheckRequest) UnmarshalJSON(data []byte) error {
	token, items, err := decodeItems(data)
	if err != nil {
		return err
	}
	*r = CheckRequest{Token: token, Items: items}
	return nil
}

// ReserveRequest is the reserve_inventory payload. Token deduplicates retried reservations.
type ReserveRequest struct {
	Token string `json:"token,omitempty"`
	Items []Item `json:"items"`
}

// UnmarshalJSON accepts both the object form and a bare item array.
func (r *ReserveRequest) UnmarshalJSON(data []byte) error {
	token, items, err := decodeItems(data)
	if err != nil {
		return err
	}
	*r = ReserveRequest{Token: token, Items: items}
	return nil
}

func decodeItems(data []byte) (string, []Item, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []Item
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return "", nil, err
		}
		return "", items, nil
	}
	var decoded struct {
		Token string `json:"token"`
		Items []Item `json:"items"`
	}
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return "", nil, err
	}
	return decoded.Token, decoded.Items, nil
}

// UpdateInventoryRequest is the update_inventory payload.
type UpdateInventoryRequest struct {
	ProductID string          `json:"productId"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// InventoryRecord is the wire view of a stock record.
type InventoryRecord struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Availability answers check_inventory and reserve_inventory.
type Availability struct {
	Available bool                       `json:"available"`
	Message   string                     `json:"message,omitempty"`
	Prices    map[string]decimal.Decimal `json:"prices,omitempty"`
}

// OrderItem is an order line as carried by order notifications.
type OrderItem struct {
	ProductID string          `json:"productId"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// OrderCreated is published after an order has been persisted.
type OrderCreated struct {
	OrderID string      `json:"orderId"`
	Items   []OrderItem `json:"items"`
}

// OrderStatusUpdated is published after an order status change.
type OrderStatusUpdated struct {
	OrderID string      `json:"orderId"`
	Status  string      `json:"status"`
	Items   []OrderItem `json:"items"`
}

// Envelope wraps every reply so failures travel alongside data.
type Envelope struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error *RemoteError    `json:"error,omitempty"`
}

// RemoteError is a failure reported by the remote handler.
type RemoteError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s: %s", e.Code, e.Message)
}

// Success encodes data inside a reply envelope.
func Success(data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Data: raw})
}

// Failure encodes a remote error inside a reply envelope.
func Failure(code, message string) []byte {
	out, err := json.Marshal(Envelope{Error: &RemoteError{Code: code, Message: message}})
	if err != nil {
		return []byte(`{"error":{"code":"internal","message":"failed to encode error reply"}}`)
	}
	return out
}

// Decode unwraps an envelope into out, returning the remote error when present.
func Decode(raw []byte, out any) error {
	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if envelope.Error != nil {
		return envelope.Error
	}
	if out == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode reply data: %w", err)
	}
	return nil
}
