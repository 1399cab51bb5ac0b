package enums

import "fmt"

// SaleStatus tracks the settlement state of a sale.
type SaleStatus string

const (
	// SaleStatusCompleted means payment was received and stock deducted.
	SaleStatusCompleted SaleStatus = "completed"
	// SaleStatusPending means the customer owes the amount; a debtor record
	// mirrors the sale while it stays pending.
	SaleStatusPending SaleStatus = "pending"
	// SaleStatusCancelled means the sale was voided and stock restored.
	SaleStatusCancelled SaleStatus = "cancelled"
)

var validSaleStatuses = []SaleStatus{
	SaleStatusCompleted,
	SaleStatusPending,
	SaleStatusCancelled,
}

// String implements fmt.Stringer.
func (s SaleStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SaleStatus.
func (s SaleStatus) IsValid() bool {
	for _, candidate := range validSaleStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSaleStatus converts raw input into a SaleStatus.
func ParseSaleStatus(value string) (SaleStatus, error) {
	for _, candidate := range validSaleStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sale status %q", value)
}
