package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/ports"
)

var _ ports.ReservationStore = (*ReservationStore)(nil)

// ReservationStore keeps reservation tokens in process memory for development and tests.
type ReservationStore struct {
	mu      sync.RWMutex
	records map[string]ports.Reservation
	now     func() time.Time
}

// NewReservationStore constructs an empty in-memory store.
func NewReservationStore() *ReservationStore {
	return &ReservationStore{
		records: map[string]ports.Reservation{},
		now:     time.Now,
	}
}

// WithClock overrides the time source for deterministic testing.
func (s *ReservationStore) WithClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Get returns the live reservation for the token, or nil when absent or expired.
func (s *ReservationStore) Get(_ context.Context, token string) (*ports.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[token]
	if !ok || record.Expired(s.now()) {
		return nil, nil
	}
	out := record
	out.Result = record.Result.Clone()
	return &out, nil
}

// Save persists the reservation or returns the live one already stored under the token.
// Expired tokens are evicted on the way in.
func (s *ReservationStore) Save(_ context.Context, reservation ports.Reservation) (*ports.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evict(now)
	if existing, ok := s.records[reservation.Token]; ok && !existing.Expired(now) {
		out := existing
		if existing.RequestHash != reservation.RequestHash {
			return &out, ports.ErrReservationConflict
		}
		return &out, nil
	}

	if reservation.CreatedAt.IsZero() {
		reservation.CreatedAt = now
	}
	reservation.Result = reservation.Result.Clone()
	s.records[reservation.Token] = reservation
	saved := reservation
	return &saved, nil
}

// PurgeExpired drops reservations whose dedup window has closed and reports how many were removed.
func (s *ReservationStore) PurgeExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evict(s.now()), nil
}

func (s *ReservationStore) evict(now time.Time) int64 {
	var removed int64
	for token, record := range s.records {
		if record.Expired(now) {
			delete(s.records, token)
			removed++
		}
	}
	return removed
}

func (s *ReservationStore) size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
