package models

// SaleCounter is the single-row sequence behind human-readable sale numbers.
// Incremented atomically server-side so concurrent terminals never collide.
type SaleCounter struct {
	ID         int   `gorm:"column:id;primaryKey"`
	NextNumber int64 `gorm:"column:next_number;not null;default:1"`
}

// TableName pins the table name to the singular-counter convention.
func (SaleCounter) TableName() string {
	return "sale_counters"
}
