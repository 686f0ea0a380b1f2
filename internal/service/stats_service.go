package service

import (
	"context"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// RequestStats summarizes requests by status and category.
type RequestStats struct {
	TotalRequests        int64            `json:"total_requests"`
	PendingRequests      int64            `json:"pending_requests"`
	InProgressRequests   int64            `json:"in_progress_requests"`
	ResolvedRequests     int64            `json:"resolved_requests"`
	ClosedRequests       int64            `json:"closed_requests"`
	CategoryDistribution map[string]int64 `json:"category_distribution"`
}

// DepartmentStats summarizes how requests spread over departments.
type DepartmentStats struct {
	TotalDepartments        int              `json:"total_departments"`
	DepartmentsWithRequests int              `json:"departments_with_requests"`
	RequestDistribution     map[string]int64 `json:"request_distribution"`
}

// StatsService computes dashboard figures on every call.
type StatsService struct {
	requests    repository.ServiceRequestRepository
	departments repository.DepartmentRepository
}

// NewStatsService builds the service.
func NewStatsService(requests repository.ServiceRequestRepository, departments repository.DepartmentRepository) *StatsService {
	return &StatsService{requests: requests, departments: departments}
}

// RequestStats counts requests per status and per category label.
func (s *StatsService) RequestStats(ctx context.Context, actor *domain.User) (*RequestStats, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	byStatus, err := s.requests.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	byCategory, err := s.requests.CountByCategory(ctx)
	if err != nil {
		return nil, err
	}

	stats := &RequestStats{
		PendingRequests:      byStatus[domain.StatusPending],
		InProgressRequests:   byStatus[domain.StatusInProgress],
		ResolvedRequests:     byStatus[domain.StatusResolved],
		ClosedRequests:       byStatus[domain.StatusClosed],
		CategoryDistribution: make(map[string]int64, len(domain.Categories())),
	}
	stats.TotalRequests = stats.PendingRequests + stats.InProgressRequests + stats.ResolvedRequests + stats.ClosedRequests
	for _, c := range domain.Categories() {
		stats.CategoryDistribution[c.Label] = byCategory[c.Code]
	}
	return stats, nil
}

// DepartmentStats counts requests per department name, exact match.
func (s *StatsService) DepartmentStats(ctx context.Context, actor *domain.User) (*DepartmentStats, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	depts, err := s.departments.List(ctx)
	if err != nil {
		return nil, err
	}
	byDepartment, err := s.requests.CountByDepartment(ctx)
	if err != nil {
		return nil, err
	}

	stats := &DepartmentStats{
		TotalDepartments:    len(depts),
		RequestDistribution: make(map[string]int64, len(depts)),
	}
	for _, dept := range depts {
		n := byDepartment[dept.Name]
		stats.RequestDistribution[dept.Name] = n
		if n > 0 {
			stats.DepartmentsWithRequests++
		}
	}
	return stats, nil
}
