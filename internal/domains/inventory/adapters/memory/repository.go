package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/domain"
	"github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository is an in-memory stock adapter.
type Repository struct {
	mu      sync.RWMutex
	records map[string]*domain.Record
}

func NewRepository() *Repository {
	return &Repository{records: map[string]*domain.Record{}}
}

func (r *Repository) Save(_ context.Context, record *domain.Record) (*domain.Record, error) {
	if record == nil {
		return nil, errors.New("inventory record is nil")
	}
	clone := record.Clone()
	if err := clone.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.records[clone.ProductID]; ok && clone.ID == "" {
		clone.ID = existing.ID
	}
	r.records[clone.ProductID] = clone
	return clone.Clone(), nil
}

func (r *Repository) GetByProductID(_ context.Context, productID string) (*domain.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[productID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return record.Clone(), nil
}

func (r *Repository) List(_ context.Context) ([]*domain.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*domain.Record, 0, len(r.records))
	for _, record := range r.records {
		list = append(list, record.Clone())
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ProductID < list[j].ProductID })
	return list, nil
}

func (r *Repository) Decrement(_ context.Context, items []domain.Item, at time.Time) error {
	totals := domain.Totals(items)
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range totals {
		record, ok := r.records[item.ProductID]
		if !ok || !record.Covers(item.Quantity) {
			return &ports.ShortfallError{ProductID: item.ProductID}
		}
	}
	for _, item := range totals {
		record := r.records[item.ProductID]
		record.Quantity -= item.Quantity
		record.UpdatedAt = at
	}
	return nil
}
