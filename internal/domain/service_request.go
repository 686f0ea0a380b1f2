package domain

import "time"

// RequestStatus is the lifecycle state of a service request.
type RequestStatus string

const (
	StatusPending    RequestStatus = "pending"
	StatusInProgress RequestStatus = "in_progress"
	StatusResolved   RequestStatus = "resolved"
	StatusClosed     RequestStatus = "closed"
)

// RequestCategory classifies what the requester needs.
type RequestCategory string

const (
	CategoryPasswordReset        RequestCategory = "password_reset"
	CategorySoftwareInstallation RequestCategory = "software_installation"
	CategoryHardwareIssue        RequestCategory = "hardware_issue"
	CategoryPrinterIssue         RequestCategory = "printer_issue"
	CategoryNetworkIssue         RequestCategory = "network_issue"
	CategoryAccountAccess        RequestCategory = "account_access"
	CategoryOther                RequestCategory = "other"
)

// Choice pairs a stored code with its display label.
type Choice[T ~string] struct {
	Code  T
	Label string
}

var statuses = []Choice[RequestStatus]{
	{StatusPending, "Pending"},
	{StatusInProgress, "In Progress"},
	{StatusResolved, "Resolved"},
	{StatusClosed, "Closed"},
}

var categories = []Choice[RequestCategory]{
	{CategoryPasswordReset, "Password Reset"},
	{CategorySoftwareInstallation, "Software Installation"},
	{CategoryHardwareIssue, "Hardware Issue"},
	{CategoryPrinterIssue, "Printer Issue"},
	{CategoryNetworkIssue, "Network Issue"},
	{CategoryAccountAccess, "Account Access"},
	{CategoryOther, "Other"},
}

// Valid reports whether s is a known status.
func (s RequestStatus) Valid() bool {
	_, ok := lookup(statuses, s)
	return ok
}

// Label returns the display label, or the raw code when unknown.
func (s RequestStatus) Label() string {
	if label, ok := lookup(statuses, s); ok {
		return label
	}
	return string(s)
}

// Valid reports whether c is a known category.
func (c RequestCategory) Valid() bool {
	_, ok := lookup(categories, c)
	return ok
}

// Label returns the display label, or the raw code when unknown.
func (c RequestCategory) Label() string {
	if label, ok := lookup(categories, c); ok {
		return label
	}
	return string(c)
}

// Statuses returns every request status in display order. The slice is a copy.
func Statuses() []Choice[RequestStatus] {
	return append([]Choice[RequestStatus](nil), statuses...)
}

// Categories returns every request category in display order. The slice is a copy.
func Categories() []Choice[RequestCategory] {
	return append([]Choice[RequestCategory](nil), categories...)
}

// StatusCodes returns the status codes in display order.
func StatusCodes() []string {
	return codes(statuses)
}

// CategoryCodes returns the category codes in display order.
func CategoryCodes() []string {
	return codes(categories)
}

func lookup[T ~string](table []Choice[T], code T) (string, bool) {
	for _, choice := range table {
		if choice.Code == code {
			return choice.Label, true
		}
	}
	return "", false
}

func codes[T ~string](table []Choice[T]) []string {
	out := make([]string, 0, len(table))
	for _, choice := range table {
		out = append(out, string(choice.Code))
	}
	return out
}

// ServiceRequest is a helpdesk request raised against a department.
// Department is a free-text label matched to Department.Name by exact string comparison.
type ServiceRequest struct {
	ID             int64
	RequesterName  string
	RequesterEmail string
	Department     string
	Category       RequestCategory
	Description    string
	Status         RequestStatus
	AssignedTo     *int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
