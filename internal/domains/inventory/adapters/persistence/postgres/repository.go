package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/domain"
	"github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/ports"
)

var _ ports.Repository = (*Repository)(nil)

// Repository persists stock records in PostgreSQL using GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository wires a PostgreSQL-backed repository. Caller manages DB lifecycle and migrations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type inventoryRecord struct {
	ProductID string          `gorm:"primaryKey;column:product_id;size:255"`
	ID        string          `gorm:"column:id;size:64;uniqueIndex"`
	Quantity  int64           `gorm:"column:quantity;check:chk_inventory_quantity,quantity >= 0"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(20,4)"`
	UpdatedAt time.Time       `gorm:"column:updated_at;index"`
}

func (inventoryRecord) TableName() string { return "inventory_records" }

// Save inserts or overwrites the record for its product id. The stored id is kept on overwrite.
func (r *Repository) Save(ctx context.Context, record *domain.Record) (*domain.Record, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	if record == nil {
		return nil, errors.New("inventory record is nil")
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	row := toRow(record)
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity":   row.Quantity,
				"price":      row.Price,
				"updated_at": row.UpdatedAt,
			}),
		}).Create(&row).Error; err != nil {
		return nil, err
	}
	return r.GetByProductID(ctx, row.ProductID)
}

// GetByProductID fetches the record for a product.
func (r *Repository) GetByProductID(ctx context.Context, productID string) (*domain.Record, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var row inventoryRecord
	if err := r.db.WithContext(ctx).First(&row, "product_id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

// List returns every record ordered by product id.
func (r *Repository) List(ctx context.Context) ([]*domain.Record, error) {
	if err := r.ensureDB(); err != nil {
		return nil, err
	}
	var rows []inventoryRecord
	if err := r.db.WithContext(ctx).Order("product_id").Find(&rows).Error; err != nil {
		return nil, err
	}
	records := make([]*domain.Record, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].toDomain())
	}
	return records, nil
}

// Decrement subtracts every item inside one transaction. Each row update is guarded by
// quantity >= requested so concurrent writers from other processes cannot overdraw.
func (r *Repository) Decrement(ctx context.Context, items []domain.Item, at time.Time) error {
	if err := r.ensureDB(); err != nil {
		return err
	}
	totals := domain.Totals(items)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range totals {
			result := tx.Model(&inventoryRecord{}).
				Where("product_id = ? AND quantity >= ?", item.ProductID, item.Quantity).
				Updates(map[string]any{
					"quantity":   gorm.Expr("quantity - ?", item.Quantity),
					"updated_at": at,
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return &ports.ShortfallError{ProductID: item.ProductID}
			}
		}
		return nil
	})
}

func (r *Repository) ensureDB() error {
	if r == nil || r.db == nil {
		return errors.New("postgres inventory repository not configured")
	}
	return nil
}

func toRow(record *domain.Record) inventoryRecord {
	return inventoryRecord{
		ProductID: record.ProductID,
		ID:        record.ID,
		Quantity:  record.Quantity,
		Price:     record.Price,
		UpdatedAt: record.UpdatedAt,
	}
}

func (r inventoryRecord) toDomain() *domain.Record {
	return &domain.Record{
		ID:        r.ID,
		ProductID: r.ProductID,
		Quantity:  r.Quantity,
		Price:     r.Price,
		UpdatedAt: r.UpdatedAt,
	}
}
