package application

import (
	"errors"
	"fmt"

	"github.com/Apurer/order-inventory-coordinator/internal/domains/orders/domain"
)

var (
	// ErrInvalidInput signals the request violated a domain invariant.
	ErrInvalidInput = errors.New("invalid order input")
	// ErrInsufficientInventory signals the inventory service could not cover the order.
	ErrInsufficientInventory = errors.New("insufficient inventory")
	// ErrReservationFailed signals the reserve request failed or timed out after a successful check.
	ErrReservationFailed = errors.New("inventory reservation failed")
)

// InsufficientInventoryError carries the inventory service's explanation.
type InsufficientInventoryError struct {
	Message string
}

func (e *InsufficientInventoryError) Error() string {
	if e.Message == "" {
		return ErrInsufficientInventory.Error()
	}
	return e.Message
}

func (e *InsufficientInventoryError) Unwrap() error {
	return ErrInsufficientInventory
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrEmptyCustomerID) ||
		errors.Is(err, domain.ErrNoItems) ||
		errors.Is(err, domain.ErrEmptyProductID) ||
		errors.Is(err, domain.ErrInvalidQuantity) ||
		errors.Is(err, domain.ErrInvalidStatus) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return err
}
