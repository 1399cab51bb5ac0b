package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kimanidev/dukapos-backend/pkg/enums"
)

// Sale is the ledger's system-of-record row for a recorded sale.
type Sale struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SaleNumber string    `gorm:"column:sale_number;not null;uniqueIndex:ux_sales_sale_number"`
	// ClientRef carries the terminal-generated local id and deduplicates
	// retried inserts: creating a sale with an existing client_ref returns
	// the existing row instead of a duplicate.
	ClientRef     *uuid.UUID          `gorm:"column:client_ref;type:uuid;uniqueIndex:ux_sales_client_ref"`
	CustomerName  *string             `gorm:"column:customer_name"`
	CustomerPhone *string             `gorm:"column:customer_phone"`
	TotalAmount   decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	TaxAmount     decimal.Decimal     `gorm:"column:tax_amount;type:numeric(12,2);not null"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:text;not null;default:'cash'"`
	Status        enums.SaleStatus    `gorm:"column:status;type:text;not null;default:'completed'"`
	UserID        uuid.UUID           `gorm:"column:user_id;type:uuid;not null"`
	TerminalID    *string             `gorm:"column:terminal_id"`
	Items         []SaleItem          `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
