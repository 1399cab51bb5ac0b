package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CachedProduct is the terminal-local snapshot of a ledger Product, used for
// price/stock lookups while offline. The snapshot is bulk-replaced on every
// refresh; StockQuantity may additionally be patched optimistically by the
// recording service while offline.
type CachedProduct struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name          string          `gorm:"column:name;not null"`
	Category      string          `gorm:"column:category;not null"`
	UnitPrice     decimal.Decimal `gorm:"column:unit_price;type:numeric;not null"`
	CostPrice     decimal.Decimal `gorm:"column:cost_price;type:numeric;not null"`
	StockQuantity int             `gorm:"column:stock_quantity;not null"`
	MinStockLevel int             `gorm:"column:min_stock_level;not null"`
	Unit          string          `gorm:"column:unit;not null"`
	SupplierID    *uuid.UUID      `gorm:"column:supplier_id;type:uuid"`
	Barcode       *string         `gorm:"column:barcode"`
	UpdatedAt     time.Time       `gorm:"column:updated_at"`
	CachedAt      time.Time       `gorm:"column:cached_at;not null"`
}
