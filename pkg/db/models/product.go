package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the ledger's catalog entry. StockQuantity is only ever mutated
// through atomic deltas (see ledger.AdjustProductStock), never read-modify-
// write from a terminal.
type Product struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name          string          `gorm:"column:name;not null"`
	Category      string          `gorm:"column:category;not null"`
	UnitPrice     decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	CostPrice     decimal.Decimal `gorm:"column:cost_price;type:numeric(12,2);not null"`
	StockQuantity int             `gorm:"column:stock_quantity;not null;default:0"`
	MinStockLevel int             `gorm:"column:min_stock_level;not null;default:0"`
	Unit          string          `gorm:"column:unit;not null;default:'pcs'"`
	SupplierID    *uuid.UUID      `gorm:"column:supplier_id;type:uuid"`
	Barcode       *string         `gorm:"column:barcode"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
