package domain

import "time"

// ChangeType captures what changed in a history entry.
type ChangeType string

const (
	ChangeTypeStatus   ChangeType = "STATUS_CHANGE"
	ChangeTypeAssignee ChangeType = "ASSIGNEE_CHANGE"
	ChangeTypeFields   ChangeType = "FIELDS_CHANGE"
)

// RequestHistory is an immutable audit trail entry.
type RequestHistory struct {
	ID          int64
	RequestID   int64
	ChangedByID *int64
	ChangeType  ChangeType
	OldValue    map[string]any
	NewValue    map[string]any
	CreatedAt   time.Time
}
