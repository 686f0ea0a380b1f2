package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// AssigneeDetails describes the staff member a request is assigned to.
type AssigneeDetails struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// RequestResponse is the full request representation for signed-in callers.
type RequestResponse struct {
	ID                int64                  `json:"id"`
	RequesterName     string                 `json:"requester_name"`
	RequesterEmail    string                 `json:"requester_email"`
	Department        string                 `json:"department"`
	Category          domain.RequestCategory `json:"category"`
	CategoryDisplay   string                 `json:"category_display"`
	Description       string                 `json:"description"`
	Status            domain.RequestStatus   `json:"status"`
	StatusDisplay     string                 `json:"status_display"`
	AssignedTo        *int64                 `json:"assigned_to"`
	AssignedToDetails *AssigneeDetails       `json:"assigned_to_details"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

// PublicRequestStatus is what anonymous callers may see of a request.
type PublicRequestStatus struct {
	ID              int64                  `json:"id"`
	RequesterName   string                 `json:"requester_name"`
	Department      string                 `json:"department"`
	Category        domain.RequestCategory `json:"category"`
	CategoryDisplay string                 `json:"category_display"`
	Status          domain.RequestStatus   `json:"status"`
	StatusDisplay   string                 `json:"status_display"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// StatusChangeResponse reports a lifecycle transition.
type StatusChangeResponse struct {
	Message      string               `json:"message"`
	OldStatus    domain.RequestStatus `json:"old_status"`
	NewStatus    domain.RequestStatus `json:"new_status"`
	AutoAssigned bool                 `json:"auto_assigned"`
	Request      RequestResponse      `json:"request"`
}

// PageMeta describes a page of a listing.
type PageMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}

// HistoryEntryResponse is one audit trail entry.
type HistoryEntryResponse struct {
	ID          int64             `json:"id"`
	ChangedByID *int64            `json:"changed_by"`
	ChangeType  domain.ChangeType `json:"change_type"`
	OldValue    map[string]any    `json:"old_value"`
	NewValue    map[string]any    `json:"new_value"`
	CreatedAt   time.Time         `json:"created_at"`
}

// NewRequestResponse maps a request; assignee may be nil.
func NewRequestResponse(req *domain.ServiceRequest, assignee *domain.User) RequestResponse {
	out := RequestResponse{
		ID:              req.ID,
		RequesterName:   req.RequesterName,
		RequesterEmail:  req.RequesterEmail,
		Department:      req.Department,
		Category:        req.Category,
		CategoryDisplay: req.Category.Label(),
		Description:     req.Description,
		Status:          req.Status,
		StatusDisplay:   req.Status.Label(),
		AssignedTo:      req.AssignedTo,
		CreatedAt:       req.CreatedAt,
		UpdatedAt:       req.UpdatedAt,
	}
	if assignee != nil {
		out.AssignedToDetails = &AssigneeDetails{
			ID:        assignee.ID,
			Username:  assignee.Username,
			FirstName: assignee.FirstName,
			LastName:  assignee.LastName,
			Email:     assignee.Email,
		}
	}
	return out
}

// NewPublicRequestStatus maps the read-only public view.
func NewPublicRequestStatus(req *domain.ServiceRequest) PublicRequestStatus {
	return PublicRequestStatus{
		ID:              req.ID,
		RequesterName:   req.RequesterName,
		Department:      req.Department,
		Category:        req.Category,
		CategoryDisplay: req.Category.Label(),
		Status:          req.Status,
		StatusDisplay:   req.Status.Label(),
		CreatedAt:       req.CreatedAt,
		UpdatedAt:       req.UpdatedAt,
	}
}

// NewHistoryEntries maps audit entries.
func NewHistoryEntries(entries []domain.RequestHistory) []HistoryEntryResponse {
	out := make([]HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoryEntryResponse{
			ID:          e.ID,
			ChangedByID: e.ChangedByID,
			ChangeType:  e.ChangeType,
			OldValue:    e.OldValue,
			NewValue:    e.NewValue,
			CreatedAt:   e.CreatedAt,
		})
	}
	return out
}
