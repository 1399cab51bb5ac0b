package enums

import "fmt"

// SyncStatus tracks a locally queued sale through reconciliation with the
// remote ledger: pending -> syncing -> (synced | failed). A failed record may
// re-enter syncing on retry.
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSyncing SyncStatus = "syncing"
	SyncStatusFailed  SyncStatus = "failed"
	SyncStatusSynced  SyncStatus = "synced"
)

var validSyncStatuses = []SyncStatus{
	SyncStatusPending,
	SyncStatusSyncing,
	SyncStatusFailed,
	SyncStatusSynced,
}

// String implements fmt.Stringer.
func (s SyncStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SyncStatus.
func (s SyncStatus) IsValid() bool {
	for _, candidate := range validSyncStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the sync state machine allows moving to next.
// Synced is terminal.
func (s SyncStatus) CanTransitionTo(next SyncStatus) bool {
	switch s {
	case SyncStatusPending, SyncStatusFailed:
		return next == SyncStatusSyncing
	case SyncStatusSyncing:
		return next == SyncStatusSynced || next == SyncStatusFailed
	default:
		return false
	}
}

// ParseSyncStatus converts raw input into a SyncStatus.
func ParseSyncStatus(value string) (SyncStatus, error) {
	for _, candidate := range validSyncStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sync status %q", value)
}
