package application

import (
	"errors"
	"fmt"

	"github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/domain"
)

var (
	// ErrInvalidInput signals the request violated a stock invariant.
	ErrInvalidInput = errors.New("invalid inventory input")
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrEmptyProductID) ||
		errors.Is(err, domain.ErrNegativeQuantity) ||
		errors.Is(err, domain.ErrNegativePrice) ||
		errors.Is(err, domain.ErrNonPositiveRequest) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return err
}
