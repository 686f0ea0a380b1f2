package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/directory"
	"github.com/spec-kit/helpdesk/internal/domain"
)

// DepartmentResponse payload.
type DepartmentResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Code         string    `json:"code"`
	Manager      string    `json:"manager"`
	RequestCount int64     `json:"request_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// DepartmentChoicesResponse lists the options of the submission form.
type DepartmentChoicesResponse struct {
	Source      string             `json:"source"`
	Departments []directory.Choice `json:"departments"`
}

// SyncResponse reports a directory sync.
type SyncResponse struct {
	Message string            `json:"message"`
	Result  domain.SyncResult `json:"result"`
}

// NewDepartmentResponse maps a department and its request count.
func NewDepartmentResponse(dept domain.Department, requestCount int64) DepartmentResponse {
	return DepartmentResponse{
		ID:           dept.ID,
		Name:         dept.Name,
		Code:         dept.Code,
		Manager:      dept.Manager,
		RequestCount: requestCount,
		CreatedAt:    dept.CreatedAt,
	}
}
