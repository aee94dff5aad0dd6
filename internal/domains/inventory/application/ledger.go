package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/domain"
	"github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/ports"
)

// DefaultReservationTTL bounds how long a reservation token deduplicates retries.
const DefaultReservationTTL = 24 * time.Hour

// Ledger owns stock records and serializes reservations per product.
type Ledger struct {
	repo           ports.Repository
	reservations   ports.ReservationStore
	reservationTTL time.Duration
	products       *keyedLocker
	tokens         *keyedLocker
	now            func() time.Time
	newID          func() string
}

// Option customizes the ledger.
type Option func(*Ledger)

// WithReservationStore enables token-based deduplication of reserve calls.
func WithReservationStore(store ports.ReservationStore, ttl time.Duration) Option {
	return func(l *Ledger) {
		l.reservations = store
		if ttl > 0 {
			l.reservationTTL = ttl
		}
	}
}

// WithClock overrides the time source for deterministic testing.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithIDGenerator overrides how new record ids are minted.
func WithIDGenerator(newID func() string) Option {
	return func(l *Ledger) {
		if newID != nil {
			l.newID = newID
		}
	}
}

// NewLedger wires the ledger with its repository.
func NewLedger(repo ports.Repository, opts ...Option) *Ledger {
	l := &Ledger{
		repo:           repo,
		reservationTTL: DefaultReservationTTL,
		products:       newKeyedLocker(),
		tokens:         newKeyedLocker(),
		now:            time.Now,
		newID:          uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Upsert creates the record for a product or overwrites its quantity and price.
func (l *Ledger) Upsert(ctx context.Context, input ports.UpsertInput) (*domain.Record, error) {
	productID := strings.TrimSpace(input.ProductID)
	if err := domain.ValidateStock(productID, input.Quantity, input.Price); err != nil {
		return nil, mapError(err)
	}
	unlock := l.products.Lock(productID)
	defer unlock()

	now := l.now()
	existing, err := l.repo.GetByProductID(ctx, productID)
	if errors.Is(err, ports.ErrNotFound) {
		record, err := domain.NewRecord(l.newID(), productID, input.Quantity, input.Price, now)
		if err != nil {
			return nil, mapError(err)
		}
		return l.repo.Save(ctx, record)
	}
	if err != nil {
		return nil, err
	}
	if err := existing.Overwrite(input.Quantity, input.Price, now); err != nil {
		return nil, mapError(err)
	}
	return l.repo.Save(ctx, existing)
}

// List returns a snapshot of every record.
func (l *Ledger) List(ctx context.Context) ([]*domain.Record, error) {
	return l.repo.List(ctx)
}

// Get loads the record for a product.
func (l *Ledger) Get(ctx context.Context, productID string) (*domain.Record, error) {
	return l.repo.GetByProductID(ctx, strings.TrimSpace(productID))
}

// Check reports whether every item can be satisfied without changing any record.
// When the token already holds a live reservation for the same items, that reservation's
// outcome is returned, so a retried order is not refused by its own earlier decrement.
func (l *Ledger) Check(ctx context.Context, input ports.CheckInput) (domain.Availability, error) {
	if err := domain.ValidateItems(input.Items); err != nil {
		return domain.Availability{}, mapError(err)
	}
	token := strings.TrimSpace(input.Token)
	if token != "" && l.reservations != nil {
		existing, err := l.reservation(ctx, token, input.Items)
		if err != nil {
			return domain.Availability{}, err
		}
		if existing != nil {
			return *existing, nil
		}
	}
	return l.check(ctx, input.Items)
}

// Reserve re-runs the check and decrements stock when it passes.
// A non-empty token makes repeated calls with the same items return the first outcome.
func (l *Ledger) Reserve(ctx context.Context, input ports.ReserveInput) (domain.Availability, error) {
	if err := domain.ValidateItems(input.Items); err != nil {
		return domain.Availability{}, mapError(err)
	}
	token := strings.TrimSpace(input.Token)
	if token == "" || l.reservations == nil {
		return l.reserve(ctx, input.Items)
	}

	unlockToken := l.tokens.Lock(token)
	defer unlockToken()

	fingerprint, err := FingerprintItems(input.Items)
	if err != nil {
		return domain.Availability{}, err
	}
	existing, err := l.reservation(ctx, token, input.Items)
	if err != nil {
		return domain.Availability{}, err
	}
	if existing != nil {
		return *existing, nil
	}

	result, err := l.reserve(ctx, input.Items)
	if err != nil || !result.Available {
		return result, err
	}
	now := l.now()
	_, err = l.reservations.Save(ctx, ports.Reservation{
		Token:       token,
		RequestHash: fingerprint,
		Result:      result.Clone(),
		CreatedAt:   now,
		ExpiresAt:   now.Add(l.reservationTTL),
	})
	if err != nil {
		return result, fmt.Errorf("record reservation %s: %w", token, err)
	}
	return result, nil
}

// reservation returns the live outcome stored under token, nil when there is none,
// or ErrReservationConflict when the token was used for different items.
func (l *Ledger) reservation(ctx context.Context, token string, items []domain.Item) (*domain.Availability, error) {
	fingerprint, err := FingerprintItems(items)
	if err != nil {
		return nil, err
	}
	existing, err := l.reservations.Get(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("load reservation %s: %w", token, err)
	}
	if existing == nil {
		return nil, nil
	}
	if existing.RequestHash != fingerprint {
		return nil, fmt.Errorf("%w: token %s", ports.ErrReservationConflict, token)
	}
	result := existing.Result.Clone()
	return &result, nil
}

func (l *Ledger) reserve(ctx context.Context, items []domain.Item) (domain.Availability, error) {
	unlock := l.products.Lock(domain.ProductIDs(items)...)
	defer unlock()

	result, err := l.check(ctx, items)
	if err != nil || !result.Available {
		return result, err
	}
	if err := l.repo.Decrement(ctx, domain.Totals(items), l.now()); err != nil {
		var shortfall *ports.ShortfallError
		if errors.As(err, &shortfall) {
			return domain.Unavailable(shortfall.ProductID), nil
		}
		return domain.Availability{}, err
	}
	return result, nil
}

// check walks items in request order and stops at the first one that cannot be met.
// Repeated product ids are compared against their running total.
func (l *Ledger) check(ctx context.Context, items []domain.Item) (domain.Availability, error) {
	prices := make(map[string]decimal.Decimal, len(items))
	requested := make(map[string]int64, len(items))
	for _, item := range items {
		record, err := l.repo.GetByProductID(ctx, item.ProductID)
		if errors.Is(err, ports.ErrNotFound) {
			return domain.Unavailable(item.ProductID), nil
		}
		if err != nil {
			return domain.Availability{}, err
		}
		requested[item.ProductID] += item.Quantity
		if !record.Covers(requested[item.ProductID]) {
			return domain.Unavailable(item.ProductID), nil
		}
		prices[item.ProductID] = record.Price
	}
	return domain.Available(prices), nil
}

var _ ports.Service = (*Ledger)(nil)
