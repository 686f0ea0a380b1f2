package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// UpsertOutcome classifies what an upsert did to the stored row.
type UpsertOutcome int

const (
	UpsertUnchanged UpsertOutcome = iota
	UpsertCreated
	UpsertUpdated
)

func (o UpsertOutcome) String() string {
	switch o {
	case UpsertCreated:
		return "created"
	case UpsertUpdated:
		return "updated"
	default:
		return "unchanged"
	}
}

// DepartmentRepository manages department persistence.
type DepartmentRepository interface {
	Create(ctx context.Context, dept *domain.Department) error
	Update(ctx context.Context, dept *domain.Department) error
	// Delete removes the department unless a request references its name, returning ErrReferenced then.
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Department, error)
	GetByName(ctx context.Context, name string) (*domain.Department, error)
	List(ctx context.Context) ([]domain.Department, error)
	ListWithCounts(ctx context.Context) ([]domain.DepartmentWithCount, error)
	CountRequests(ctx context.Context, name string) (int64, error)
	// Upsert inserts by name, or updates only the manager of an existing row when it differs.
	Upsert(ctx context.Context, dept *domain.Department) (UpsertOutcome, error)
	// CreateIfAbsent inserts unless the name already exists.
	CreateIfAbsent(ctx context.Context, dept *domain.Department) (bool, error)
}

type departmentRepository struct {
	pool *pgxpool.Pool
}

// NewDepartmentRepository builds the repository.
func NewDepartmentRepository(pool *pgxpool.Pool) DepartmentRepository {
	return &departmentRepository{pool: pool}
}

func (r *departmentRepository) Create(ctx context.Context, dept *domain.Department) error {
	const query = `
        INSERT INTO departments (name, code, manager)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		dept.Name,
		dept.Code,
		dept.Manager,
	).Scan(&dept.ID, &dept.CreatedAt)
	return translateUnique(err, map[string]string{"name": dept.Name, "code": dept.Code})
}

func (r *departmentRepository) Update(ctx context.Context, dept *domain.Department) error {
	const query = `
        UPDATE departments SET name=$1, code=$2, manager=$3
        WHERE id=$4`
	cmd, err := r.pool.Exec(ctx, query,
		dept.Name,
		dept.Code,
		dept.Manager,
		dept.ID,
	)
	if err != nil {
		return translateUnique(err, map[string]string{"name": dept.Name, "code": dept.Code})
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *departmentRepository) Delete(ctx context.Context, id int64) error {
	const query = `
        DELETE FROM departments d
        WHERE d.id=$1 AND NOT EXISTS (SELECT 1 FROM service_requests r WHERE r.department = d.name)`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() > 0 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrReferenced
}

func (r *departmentRepository) GetByID(ctx context.Context, id int64) (*domain.Department, error) {
	const query = `
        SELECT id, name, code, manager, created_at
        FROM departments WHERE id=$1`
	return scanDepartment(r.pool.QueryRow(ctx, query, id))
}

func (r *departmentRepository) GetByName(ctx context.Context, name string) (*domain.Department, error) {
	const query = `
        SELECT id, name, code, manager, created_at
        FROM departments WHERE name=$1`
	return scanDepartment(r.pool.QueryRow(ctx, query, name))
}

func (r *departmentRepository) List(ctx context.Context) ([]domain.Department, error) {
	const query = `
        SELECT id, name, code, manager, created_at
        FROM departments ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Department{}
	for rows.Next() {
		dept, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *dept)
	}
	return result, rows.Err()
}

func (r *departmentRepository) ListWithCounts(ctx context.Context) ([]domain.DepartmentWithCount, error) {
	const query = `
        SELECT d.id, d.name, d.code, d.manager, d.created_at, COUNT(r.id)
        FROM departments d
        LEFT JOIN service_requests r ON r.department = d.name
        GROUP BY d.id
        ORDER BY d.name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.DepartmentWithCount{}
	for rows.Next() {
		var item domain.DepartmentWithCount
		if err := rows.Scan(&item.ID, &item.Name, &item.Code, &item.Manager, &item.CreatedAt, &item.RequestCount); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

func (r *departmentRepository) CountRequests(ctx context.Context, name string) (int64, error) {
	const query = `SELECT COUNT(*) FROM service_requests WHERE department=$1`
	var n int64
	if err := r.pool.QueryRow(ctx, query, name).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *departmentRepository) Upsert(ctx context.Context, dept *domain.Department) (UpsertOutcome, error) {
	// xmax is zero only for a freshly inserted tuple.
	const query = `
        INSERT INTO departments (name, code, manager)
        VALUES ($1,$2,$3)
        ON CONFLICT (name) DO UPDATE SET manager = EXCLUDED.manager
        WHERE departments.manager IS DISTINCT FROM EXCLUDED.manager
        RETURNING id, code, created_at, (xmax = 0)`
	var inserted bool
	err := r.pool.QueryRow(ctx, query, dept.Name, dept.Code, dept.Manager).
		Scan(&dept.ID, &dept.Code, &dept.CreatedAt, &inserted)
	if errors.Is(err, pgx.ErrNoRows) {
		return UpsertUnchanged, nil
	}
	if err != nil {
		return UpsertUnchanged, translateUnique(err, map[string]string{"code": dept.Code})
	}
	if inserted {
		return UpsertCreated, nil
	}
	return UpsertUpdated, nil
}

func (r *departmentRepository) CreateIfAbsent(ctx context.Context, dept *domain.Department) (bool, error) {
	const query = `
        INSERT INTO departments (name, code, manager)
        VALUES ($1,$2,$3)
        ON CONFLICT (name) DO NOTHING
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query, dept.Name, dept.Code, dept.Manager).Scan(&dept.ID, &dept.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, translateUnique(err, map[string]string{"code": dept.Code})
	}
	return true, nil
}

func scanDepartment(row pgx.Row) (*domain.Department, error) {
	var dept domain.Department
	if err := row.Scan(&dept.ID, &dept.Name, &dept.Code, &dept.Manager, &dept.CreatedAt); err != nil {
		return nil, err
	}
	return &dept, nil
}
