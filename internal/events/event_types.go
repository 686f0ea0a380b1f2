package events

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRequestSubmitted     EventType = "request_submitted"
	EventRequestStatusChanged EventType = "request_status_changed"
	EventRequestAssigned      EventType = "request_assigned"
	EventDepartmentsSynced    EventType = "departments_synced"
)

// Actor encapsulates actor metadata for an event. UserID is nil for anonymous submissions.
type Actor struct {
	Type   domain.SubjectType `json:"type"`
	UserID *int64             `json:"user_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	RequestID int64       `json:"request_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// RequestSubmittedPayload payload.
type RequestSubmittedPayload struct {
	Department string                 `json:"department"`
	Category   domain.RequestCategory `json:"category"`
	Requester  string                 `json:"requester"`
}

// RequestStatusChangedPayload payload.
type RequestStatusChangedPayload struct {
	OldStatus domain.RequestStatus `json:"old_status"`
	NewStatus domain.RequestStatus `json:"new_status"`
}

// RequestAssignedPayload payload.
type RequestAssignedPayload struct {
	AssigneeID int64 `json:"assignee_id"`
	Automatic  bool  `json:"automatic"`
}

// DepartmentsSyncedPayload payload.
type DepartmentsSyncedPayload struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}
