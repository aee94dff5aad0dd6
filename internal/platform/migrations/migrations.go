package migrations

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Run applies the schema for the inventory and orders contexts.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(
		&inventoryRecord{},
		&reservationRecord{},
		&orderRecord{},
	)
}

// Inventory schema mirrors the inventory Postgres adapter.
type inventoryRecord struct {
	ProductID string          `gorm:"primaryKey;column:product_id;size:255"`
	ID        string          `gorm:"column:id;size:64;uniqueIndex"`
	Quantity  int64           `gorm:"column:quantity;check:chk_inventory_quantity,quantity >= 0"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(20,4)"`
	UpdatedAt time.Time       `gorm:"column:updated_at;index"`
}

func (inventoryRecord) TableName() string { return "inventory_records" }

// Reservation schema mirrors the idempotent reservation store.
type reservationRecord struct {
	Token       string         `gorm:"primaryKey;column:token;size:255"`
	RequestHash string         `gorm:"column:request_hash;size:128"`
	Result      map[string]any `gorm:"column:result;type:jsonb;serializer:json"`
	CreatedAt   time.Time      `gorm:"column:created_at"`
	ExpiresAt   time.Time      `gorm:"column:expires_at;index"`
}

func (reservationRecord) TableName() string { return "inventory_reservations" }

// Order schema mirrors the orders Postgres adapter.
type orderRecord struct {
	ID          string           `gorm:"primaryKey;column:id;size:64"`
	CustomerID  string           `gorm:"column:customer_id;size:255;index"`
	Items       []map[string]any `gorm:"column:items;type:jsonb;serializer:json"`
	ProductIDs  pq.StringArray   `gorm:"column:product_ids;type:text[];index:idx_orders_product_ids,type:gin"`
	Status      string           `gorm:"column:status;type:varchar(32);index"`
	TotalAmount decimal.Decimal  `gorm:"column:total_amount;type:numeric(20,4)"`
	CreatedAt   time.Time        `gorm:"column:created_at;index"`
	UpdatedAt   time.Time        `gorm:"column:updated_at"`
}

func (orderRecord) TableName() string { return "orders" }
