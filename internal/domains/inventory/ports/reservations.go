package ports

import (
	"context"
	"errors"
	"time"

	"github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/domain"
)

// ErrReservationConflict indicates a reservation token was reused with a different set of items.
var ErrReservationConflict = errors.New("reservation token reused with a different request")

// Reservation remembers the outcome of a reserve call made under a token.
type Reservation struct {
	Token       string
	RequestHash string
	Result      domain.Availability
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// Expired reports whether the reservation stopped deduplicating at now.
func (r *Reservation) Expired(now time.Time) bool {
	return r != nil && !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// ReservationStore deduplicates reserve calls by token.
type ReservationStore interface {
	// Get returns the live reservation for the token, or nil when unknown or expired.
	Get(ctx context.Context, token string) (*Reservation, error)
	// Save stores the reservation. An existing token with the same hash returns the stored record;
	// a different hash returns ErrReservationConflict alongside the stored record.
	Save(ctx context.Context, reservation Reservation) (*Reservation, error)
}
