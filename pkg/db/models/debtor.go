package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Debtor is the accounts-receivable record derived from a pending sale.
// Exactly one debtor exists per pending sale with a positive amount; its
// items mirror the sale's items.
type Debtor struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SaleID        uuid.UUID       `gorm:"column:sale_id;type:uuid;not null;uniqueIndex:ux_debtors_sale_id"`
	CustomerName  string          `gorm:"column:customer_name;not null"`
	CustomerPhone *string         `gorm:"column:customer_phone"`
	Amount        decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	UserID        uuid.UUID       `gorm:"column:user_id;type:uuid;not null"`
	Items         []DebtorItem    `gorm:"foreignKey:DebtorID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// DebtorItem mirrors one sale line on the debtor record.
type DebtorItem struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DebtorID   uuid.UUID       `gorm:"column:debtor_id;type:uuid;not null;index"`
	ProductID  uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Quantity   int             `gorm:"column:quantity;not null"`
	UnitPrice  decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	TotalPrice decimal.Decimal `gorm:"column:total_price;type:numeric(12,2);not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}
