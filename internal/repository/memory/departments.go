package memory

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

type departmentRepo struct{ s *Store }

func (r *departmentRepo) Create(_ context.Context, dept *domain.Department) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkDepartmentUnique(dept, 0); err != nil {
		return err
	}
	r.s.insertDepartment(dept)
	return nil
}

func (r *departmentRepo) Update(_ context.Context, dept *domain.Department) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.departments[dept.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if err := r.s.checkDepartmentUnique(dept, dept.ID); err != nil {
		return err
	}
	dept.CreatedAt = stored.CreatedAt
	r.s.departments[dept.ID] = *dept
	return nil
}

func (r *departmentRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.departments[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if r.s.countReferences(stored.Name) > 0 {
		return repository.ErrReferenced
	}
	delete(r.s.departments, id)
	return nil
}

func (r *departmentRepo) GetByID(_ context.Context, id int64) (*domain.Department, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	stored, ok := r.s.departments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &stored, nil
}

func (r *departmentRepo) GetByName(_ context.Context, name string) (*domain.Department, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if stored, ok := r.s.departmentByName(name); ok {
		return &stored, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *departmentRepo) List(context.Context) ([]domain.Department, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.sortedDepartments(), nil
}

func (r *departmentRepo) ListWithCounts(context.Context) ([]domain.DepartmentWithCount, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	depts := r.s.sortedDepartments()
	out := make([]domain.DepartmentWithCount, 0, len(depts))
	for _, dept := range depts {
		out = append(out, domain.DepartmentWithCount{Department: dept, RequestCount: r.s.countReferences(dept.Name)})
	}
	return out, nil
}

func (r *departmentRepo) CountRequests(_ context.Context, name string) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.countReferences(name), nil
}

func (r *departmentRepo) Upsert(_ context.Context, dept *domain.Department) (repository.UpsertOutcome, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if stored, ok := r.s.departmentByName(dept.Name); ok {
		dept.ID, dept.Code, dept.CreatedAt = stored.ID, stored.Code, stored.CreatedAt
		if stored.Manager == dept.Manager {
			return repository.UpsertUnchanged, nil
		}
		stored.Manager = dept.Manager
		r.s.departments[stored.ID] = stored
		return repository.UpsertUpdated, nil
	}
	if err := r.s.checkDepartmentUnique(dept, 0); err != nil {
		return repository.UpsertUnchanged, err
	}
	r.s.insertDepartment(dept)
	return repository.UpsertCreated, nil
}

func (r *departmentRepo) CreateIfAbsent(_ context.Context, dept *domain.Department) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.departmentByName(dept.Name); ok {
		return false, nil
	}
	if err := r.s.checkDepartmentUnique(dept, 0); err != nil {
		return false, err
	}
	r.s.insertDepartment(dept)
	return true, nil
}

func (s *Store) insertDepartment(dept *domain.Department) {
	dept.ID = s.nextID("departments")
	dept.CreatedAt = s.now()
	s.departments[dept.ID] = *dept
}

func (s *Store) checkDepartmentUnique(dept *domain.Department, selfID int64) error {
	for id, stored := range s.departments {
		if id == selfID {
			continue
		}
		if stored.Name == dept.Name {
			return &repository.DuplicateError{Field: "name", Value: dept.Name}
		}
		if stored.Code == dept.Code {
			return &repository.DuplicateError{Field: "code", Value: dept.Code}
		}
	}
	return nil
}

func (s *Store) departmentByName(name string) (domain.Department, bool) {
	for _, stored := range s.departments {
		if stored.Name == name {
			return stored, true
		}
	}
	return domain.Department{}, false
}

func (s *Store) sortedDepartments() []domain.Department {
	out := make([]domain.Department, 0, len(s.departments))
	for _, dept := range s.departments {
		out = append(out, dept)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
