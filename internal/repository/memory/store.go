// Package memory provides in-process implementations of the repository interfaces.
// It backs development runs without POSTGRES_DSN and the service tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// Store holds every table behind one lock so cross-table checks stay atomic.
type Store struct {
	mu          sync.RWMutex
	now         func() time.Time
	seq         map[string]int64
	requests    map[int64]domain.ServiceRequest
	departments map[int64]domain.Department
	users       map[int64]domain.User
	history     []domain.RequestHistory
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		now:         time.Now,
		seq:         map[string]int64{},
		requests:    map[int64]domain.ServiceRequest{},
		departments: map[int64]domain.Department{},
		users:       map[int64]domain.User{},
	}
}

// SetClock overrides the time source.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) nextID(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

// Requests returns the service request repository view.
func (s *Store) Requests() repository.ServiceRequestRepository { return &requestRepo{s} }

// Departments returns the department repository view.
func (s *Store) Departments() repository.DepartmentRepository { return &departmentRepo{s} }

// Users returns the user repository view.
func (s *Store) Users() repository.UserRepository { return &userRepo{s} }

// History returns the request history repository view.
func (s *Store) History() repository.RequestHistoryRepository { return &historyRepo{s} }

type requestRepo struct{ s *Store }

func (r *requestRepo) Create(_ context.Context, req *domain.ServiceRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	req.ID = r.s.nextID("requests")
	req.CreatedAt = now
	req.UpdatedAt = now
	r.s.requests[req.ID] = cloneRequest(*req)
	return nil
}

func (r *requestRepo) Update(_ context.Context, req *domain.ServiceRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.requests[req.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	req.CreatedAt = stored.CreatedAt
	req.UpdatedAt = r.s.now()
	r.s.requests[req.ID] = cloneRequest(*req)
	return nil
}

func (r *requestRepo) UpdateStatus(_ context.Context, id int64, status domain.RequestStatus, assignee *int64) (*repository.StatusUpdate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.requests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	update := &repository.StatusUpdate{
		PreviousStatus:   stored.Status,
		PreviousAssignee: copyID(stored.AssignedTo),
	}
	if stored.Status != status && stored.AssignedTo == nil && assignee != nil {
		stored.AssignedTo = copyID(assignee)
	}
	stored.Status = status
	stored.UpdatedAt = r.s.now()
	r.s.requests[id] = stored
	out := cloneRequest(stored)
	update.Request = &out
	return update, nil
}

func (r *requestRepo) GetByID(_ context.Context, id int64) (*domain.ServiceRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	stored, ok := r.s.requests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := cloneRequest(stored)
	return &out, nil
}

func (r *requestRepo) List(_ context.Context, filter repository.RequestFilter) ([]domain.ServiceRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	matched := r.s.filterRequests(filter)
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return []domain.ServiceRequest{}, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (r *requestRepo) Count(_ context.Context, filter repository.RequestFilter) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.filterRequests(filter))), nil
}

func (r *requestRepo) CountByStatus(context.Context) (map[domain.RequestStatus]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := map[domain.RequestStatus]int64{}
	for _, req := range r.s.requests {
		out[req.Status]++
	}
	return out, nil
}

func (r *requestRepo) CountByCategory(context.Context) (map[domain.RequestCategory]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := map[domain.RequestCategory]int64{}
	for _, req := range r.s.requests {
		out[req.Category]++
	}
	return out, nil
}

func (r *requestRepo) CountByDepartment(context.Context) (map[string]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := map[string]int64{}
	for _, req := range r.s.requests {
		out[req.Department]++
	}
	return out, nil
}

// filterRequests expects the read lock to be held.
func (s *Store) filterRequests(filter repository.RequestFilter) []domain.ServiceRequest {
	dept := strings.ToLower(strings.TrimSpace(filter.Department))
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	out := []domain.ServiceRequest{}
	for _, req := range s.requests {
		if filter.Status != nil && req.Status != *filter.Status {
			continue
		}
		if filter.Category != nil && req.Category != *filter.Category {
			continue
		}
		if dept != "" && !strings.Contains(strings.ToLower(req.Department), dept) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(req.RequesterName), search) &&
			!strings.Contains(strings.ToLower(req.Description), search) {
			continue
		}
		out = append(out, cloneRequest(req))
	}
	return out
}

// countReferences expects a lock to be held.
func (s *Store) countReferences(name string) int64 {
	var n int64
	for _, req := range s.requests {
		if req.Department == name {
			n++
		}
	}
	return n
}

func cloneRequest(req domain.ServiceRequest) domain.ServiceRequest {
	req.AssignedTo = copyID(req.AssignedTo)
	return req
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
