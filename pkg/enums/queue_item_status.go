package enums

// QueueItemStatus tracks a generic sync-queue operation.
type QueueItemStatus string

const (
	QueueItemStatusPending    QueueItemStatus = "pending"
	QueueItemStatusProcessing QueueItemStatus = "processing"
	QueueItemStatusCompleted  QueueItemStatus = "completed"
	QueueItemStatusFailed     QueueItemStatus = "failed"
)

var validQueueItemStatuses = []QueueItemStatus{
	QueueItemStatusPending,
	QueueItemStatusProcessing,
	QueueItemStatusCompleted,
	QueueItemStatusFailed,
}

// String implements fmt.Stringer.
func (s QueueItemStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known QueueItemStatus.
func (s QueueItemStatus) IsValid() bool {
	for _, candidate := range validQueueItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}
