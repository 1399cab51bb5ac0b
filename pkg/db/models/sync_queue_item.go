package models

import (
	"encoding/json"
	"time"

	"github.com/kimanidev/dukapos-backend/pkg/enums"
)

// SyncQueueItem is a generic queued operation for non-sale writes that must
// reach the ledger eventually (stock corrections recorded offline, and
// whatever comes next).
type SyncQueueItem struct {
	ID          uint                  `gorm:"column:id;primaryKey;autoIncrement"`
	Operation   enums.SyncOperation   `gorm:"column:operation;not null"`
	Data        json.RawMessage       `gorm:"column:data;type:text;not null"`
	Status      enums.QueueItemStatus `gorm:"column:status;not null;index"`
	Error       *string               `gorm:"column:error"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
	ProcessedAt *time.Time            `gorm:"column:processed_at"`
}

// StockAdjustmentPayload is the Data payload for update_product operations.
type StockAdjustmentPayload struct {
	ProductID string `json:"product_id"`
	Delta     int    `json:"delta"`
	Reason    string `json:"reason,omitempty"`
}
