package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kimanidev/dukapos-backend/pkg/enums"
)

// PendingSale is the local durable-queue record for a sale that has not yet
// been reconciled with the ledger. LocalID doubles as the idempotency key the
// ledger deduplicates sale creation by.
type PendingSale struct {
	LocalID       uuid.UUID           `gorm:"column:local_id;type:uuid;primaryKey"`
	CustomerName  *string             `gorm:"column:customer_name"`
	CustomerPhone *string             `gorm:"column:customer_phone"`
	TotalAmount   decimal.Decimal     `gorm:"column:total_amount;type:numeric;not null"`
	TaxAmount     decimal.Decimal     `gorm:"column:tax_amount;type:numeric;not null"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;not null"`
	Status        enums.SaleStatus    `gorm:"column:status;not null"`
	UserID        uuid.UUID           `gorm:"column:user_id;type:uuid;not null"`
	Items         PendingSaleItems    `gorm:"column:items;serializer:json;not null"`

	SyncStatus       enums.SyncStatus `gorm:"column:sync_status;not null;index"`
	RetryCount       int              `gorm:"column:retry_count;not null;default:0"`
	ErrorMessage     *string          `gorm:"column:error_message"`
	ServerSaleID     *uuid.UUID       `gorm:"column:server_sale_id;type:uuid"`
	ServerSaleNumber *string          `gorm:"column:server_sale_number"`

	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime;index"`
	SyncedAt  *time.Time `gorm:"column:synced_at"`
}

// PendingSaleItem is one queued line item, stored as JSON inside the record
// so the queue row stays a single durable write.
type PendingSaleItem struct {
	ProductID  uuid.UUID       `json:"product_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// PendingSaleItems is the JSON-serialized line item list.
type PendingSaleItems []PendingSaleItem

// Total sums the line totals.
func (items PendingSaleItems) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.TotalPrice)
	}
	return total
}
