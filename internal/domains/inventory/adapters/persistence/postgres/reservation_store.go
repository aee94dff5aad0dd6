package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/domain"
	"github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/ports"
)

var _ ports.ReservationStore = (*ReservationStore)(nil)

// ReservationStore persists reservation tokens in PostgreSQL.
type ReservationStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewReservationStore wires a PostgreSQL-backed reservation store.
func NewReservationStore(db *gorm.DB) *ReservationStore {
	return &ReservationStore{db: db, now: time.Now}
}

// Get loads a live reservation by token, returning nil when absent or expired.
func (s *ReservationStore) Get(ctx context.Context, token string) (*ports.Reservation, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	var row reservationRecord
	if err := s.db.WithContext(ctx).First(&row, "token = ?", token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	reservation := row.toPort()
	if reservation.Expired(s.now()) {
		return nil, nil
	}
	return reservation, nil
}

// Save inserts the reservation; if the token already exists with the same hash it is returned,
// otherwise ErrReservationConflict is returned with the stored reservation.
// An expired row under the same token is replaced.
func (s *ReservationStore) Save(ctx context.Context, reservation ports.Reservation) (*ports.Reservation, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	row := toReservationRow(reservation)
	if row.CreatedAt.IsZero() {
		row.CreatedAt = s.now()
	}
	err := s.db.WithContext(ctx).Create(&row).Error
	if err == nil {
		return row.toPort(), nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, err
	}

	existing, getErr := s.Get(ctx, reservation.Token)
	if getErr != nil {
		return nil, getErr
	}
	if existing == nil {
		if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
			return nil, err
		}
		return row.toPort(), nil
	}
	if existing.RequestHash != reservation.RequestHash {
		return existing, ports.ErrReservationConflict
	}
	return existing, nil
}

// PurgeExpired deletes reservations whose dedup window has closed and reports how many were removed.
func (s *ReservationStore) PurgeExpired(ctx context.Context) (int64, error) {
	if err := s.ensureDB(); err != nil {
		return 0, err
	}
	result := s.db.WithContext(ctx).Where("expires_at <= ?", s.now()).Delete(&reservationRecord{})
	return result.RowsAffected, result.Error
}

func (s *ReservationStore) ensureDB() error {
	if s == nil || s.db == nil {
		return errors.New("postgres reservation store not configured")
	}
	return nil
}

type reservationResult struct {
	Available bool                       `json:"available"`
	Message   string                     `json:"message,omitempty"`
	Prices    map[string]decimal.Decimal `json:"prices,omitempty"`
}

type reservationRecord struct {
	Token       string            `gorm:"primaryKey;column:token;size:255"`
	RequestHash string            `gorm:"column:request_hash;size:128"`
	Result      reservationResult `gorm:"column:result;type:jsonb;serializer:json"`
	CreatedAt   time.Time         `gorm:"column:created_at"`
	ExpiresAt   time.Time         `gorm:"column:expires_at;index"`
}

func (reservationRecord) TableName() string { return "inventory_reservations" }

func toReservationRow(reservation ports.Reservation) reservationRecord {
	return reservationRecord{
		Token:       reservation.Token,
		RequestHash: reservation.RequestHash,
		Result: reservationResult{
			Available: reservation.Result.Available,
			Message:   reservation.Result.Message,
			Prices:    reservation.Result.Clone().Prices,
		},
		CreatedAt: reservation.CreatedAt,
		ExpiresAt: reservation.ExpiresAt,
	}
}

func (r reservationRecord) toPort() *ports.Reservation {
	return &ports.Reservation{
		Token:       r.Token,
		RequestHash: r.RequestHash,
		Result: domain.Availability{
			Available: r.Result.Available,
			Message:   r.Result.Message,
			Prices:    r.Result.Prices,
		},
		CreatedAt: r.CreatedAt,
		ExpiresAt: r.ExpiresAt,
	}
}
