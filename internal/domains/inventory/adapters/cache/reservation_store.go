package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/domain"
	"github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/ports"
)

const keyPrefix = "reservation:"

var _ ports.ReservationStore = (*ReservationStore)(nil)

// ReservationStore keeps reservation tokens in Redis and lets key expiry close the dedup window.
type ReservationStore struct {
	rdb redis.Cmdable
	now func() time.Time
}

// NewReservationStore wires a Redis-backed store. Any redis.Cmdable works, including cluster clients.
func NewReservationStore(rdb redis.Cmdable) *ReservationStore {
	return &ReservationStore{rdb: rdb, now: time.Now}
}

// WithClock overrides the time source for deterministic testing.
func (s *ReservationStore) WithClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *ReservationStore) Get(ctx context.Context, token string) (*ports.Reservation, error) {
	raw, err := s.rdb.Get(ctx, keyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	reservation, err := decode(raw)
	if err != nil {
		return nil, err
	}
	if reservation.Expired(s.now()) {
		return nil, nil
	}
	return reservation, nil
}

// Save writes the reservation with SETNX. A lost race compares request hashes against the winner.
func (s *ReservationStore) Save(ctx context.Context, reservation ports.Reservation) (*ports.Reservation, error) {
	now := s.now()
	if reservation.CreatedAt.IsZero() {
		reservation.CreatedAt = now
	}
	ttl := reservation.ExpiresAt.Sub(now)
	if reservation.ExpiresAt.IsZero() {
		ttl = 0
	} else if ttl <= 0 {
		return nil, errors.New("reservation already expired")
	}
	body, err := encode(reservation)
	if err != nil {
		return nil, err
	}
	stored, err := s.rdb.SetNX(ctx, keyPrefix+reservation.Token, body, ttl).Result()
	if err != nil {
		return nil, err
	}
	if stored {
		return &reservation, nil
	}

	existing, err := s.Get(ctx, reservation.Token)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, errors.New("reservation vanished while resolving a concurrent save")
	}
	if existing.RequestHash != reservation.RequestHash {
		return existing, ports.ErrReservationConflict
	}
	return existing, nil
}

type payload struct {
	Token       string                     `json:"token"`
	RequestHash string                     `json:"requestHash"`
	Available   bool                       `json:"available"`
	Message     string                     `json:"message,omitempty"`
	Prices      map[string]decimal.Decimal `json:"prices,omitempty"`
	CreatedAt   time.Time                  `json:"createdAt"`
	ExpiresAt   time.Time                  `json:"expiresAt"`
}

func encode(reservation ports.Reservation) (string, error) {
	raw, err := json.Marshal(payload{
		Token:       reservation.Token,
		RequestHash: reservation.RequestHash,
		Available:   reservation.Result.Available,
		Message:     reservation.Result.Message,
		Prices:      reservation.Result.Prices,
		CreatedAt:   reservation.CreatedAt,
		ExpiresAt:   reservation.ExpiresAt,
	})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decode(raw string) (*ports.Reservation, error) {
	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, err
	}
	return &ports.Reservation{
		Token:       p.Token,
		RequestHash: p.RequestHash,
		Result: domain.Availability{
			Available: p.Available,
			Message:   p.Message,
			Prices:    p.Prices,
		},
		CreatedAt: p.CreatedAt,
		ExpiresAt: p.ExpiresAt,
	}, nil
}
