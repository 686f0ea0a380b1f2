package repository

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

const (
	requestsTable   = "service_requests"
	requestColumns  = "id, requester_name, requester_email, department, category, description, status, assigned_to, created_at, updated_at"
	defaultPageSize = 20
)

// RequestFilter captures list/search parameters.
// Department matches as a case-insensitive substring; Search matches requester name or description.
type RequestFilter struct {
	Status     *domain.RequestStatus
	Category   *domain.RequestCategory
	Department string
	Search     string
	Limit      int
	Offset     int
}

// StatusUpdate describes the row before and after a status change.
type StatusUpdate struct {
	PreviousStatus   domain.RequestStatus
	PreviousAssignee *int64
	Request          *domain.ServiceRequest
}

// ServiceRequestRepository encapsulates service request persistence.
type ServiceRequestRepository interface {
	Create(ctx context.Context, req *domain.ServiceRequest) error
	Update(ctx context.Context, req *domain.ServiceRequest) error
	// UpdateStatus sets the status and, when assignee is non-nil and the status actually
	// changes, fills assigned_to only if it is empty.
	UpdateStatus(ctx context.Context, id int64, status domain.RequestStatus, assignee *int64) (*StatusUpdate, error)
	GetByID(ctx context.Context, id int64) (*domain.ServiceRequest, error)
	List(ctx context.Context, filter RequestFilter) ([]domain.ServiceRequest, error)
	Count(ctx context.Context, filter RequestFilter) (int64, error)
	CountByStatus(ctx context.Context) (map[domain.RequestStatus]int64, error)
	CountByCategory(ctx context.Context) (map[domain.RequestCategory]int64, error)
	CountByDepartment(ctx context.Context) (map[string]int64, error)
}

type serviceRequestRepository struct {
	pool *pgxpool.Pool
}

// NewServiceRequestRepository instantiates repository.
func NewServiceRequestRepository(pool *pgxpool.Pool) ServiceRequestRepository {
	return &serviceRequestRepository{pool: pool}
}

func (r *serviceRequestRepository) Create(ctx context.Context, req *domain.ServiceRequest) error {
	const query = `
        INSERT INTO service_requests (requester_name, requester_email, department, category, description, status, assigned_to)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		req.RequesterName,
		req.RequesterEmail,
		req.Department,
		req.Category,
		req.Description,
		req.Status,
		req.AssignedTo,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
}

func (r *serviceRequestRepository) Update(ctx context.Context, req *domain.ServiceRequest) error {
	const query = `
        UPDATE service_requests SET requester_name=$1, requester_email=$2, department=$3, category=$4,
            description=$5, status=$6, assigned_to=$7, updated_at=NOW()
        WHERE id=$8
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		req.RequesterName,
		req.RequesterEmail,
		req.Department,
		req.Category,
		req.Description,
		req.Status,
		req.AssignedTo,
		req.ID,
	).Scan(&req.UpdatedAt)
	return err
}

func (r *serviceRequestRepository) UpdateStatus(ctx context.Context, id int64, status domain.RequestStatus, assignee *int64) (*StatusUpdate, error) {
	const query = `
        WITH prev AS (
            SELECT id, status, assigned_to FROM service_requests WHERE id=$1 FOR UPDATE
        )
        UPDATE service_requests AS r
        SET status=$2,
            assigned_to = CASE WHEN prev.status <> $2 THEN COALESCE(r.assigned_to, $3) ELSE r.assigned_to END,
            updated_at=NOW()
        FROM prev
        WHERE r.id = prev.id
        RETURNING prev.status, prev.assigned_to,
            r.id, r.requester_name, r.requester_email, r.department, r.category, r.description,
            r.status, r.assigned_to, r.created_at, r.updated_at`
	var (
		update StatusUpdate
		req    domain.ServiceRequest
	)
	if err := r.pool.QueryRow(ctx, query, id, status, assignee).Scan(
		&update.PreviousStatus,
		&update.PreviousAssignee,
		&req.ID,
		&req.RequesterName,
		&req.RequesterEmail,
		&req.Department,
		&req.Category,
		&req.Description,
		&req.Status,
		&req.AssignedTo,
		&req.CreatedAt,
		&req.UpdatedAt,
	); err != nil {
		return nil, err
	}
	update.Request = &req
	return &update, nil
}

func (r *serviceRequestRepository) GetByID(ctx context.Context, id int64) (*domain.ServiceRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM service_requests WHERE id=$1`
	req, err := scanRequest(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (r *serviceRequestRepository) List(ctx context.Context, filter RequestFilter) ([]domain.ServiceRequest, error) {
	query, args, err := buildListRequestsQuery(filter)
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.ServiceRequest{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *req)
	}
	return result, rows.Err()
}

func (r *serviceRequestRepository) Count(ctx context.Context, filter RequestFilter) (int64, error) {
	query, args, err := applyRequestFilter(psql.Select("COUNT(*)").From(requestsTable), filter).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}
	var total int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *serviceRequestRepository) CountByStatus(ctx context.Context) (map[domain.RequestStatus]int64, error) {
	counts := map[domain.RequestStatus]int64{}
	err := r.groupCount(ctx, "status", func(key string, n int64) {
		counts[domain.RequestStatus(key)] = n
	})
	return counts, err
}

func (r *serviceRequestRepository) CountByCategory(ctx context.Context) (map[domain.RequestCategory]int64, error) {
	counts := map[domain.RequestCategory]int64{}
	err := r.groupCount(ctx, "category", func(key string, n int64) {
		counts[domain.RequestCategory(key)] = n
	})
	return counts, err
}

func (r *serviceRequestRepository) CountByDepartment(ctx context.Context) (map[string]int64, error) {
	counts := map[string]int64{}
	err := r.groupCount(ctx, "department", func(key string, n int64) {
		counts[key] = n
	})
	return counts, err
}

func (r *serviceRequestRepository) groupCount(ctx context.Context, column string, fn func(string, int64)) error {
	query, args, err := buildGroupCountQuery(column)
	if err != nil {
		return fmt.Errorf("build group count: %w", err)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			key string
			n   int64
		)
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		fn(key, n)
	}
	return rows.Err()
}

func buildListRequestsQuery(filter RequestFilter) (string, []any, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder := psql.Select(strings.Split(requestColumns, ", ")...).From(requestsTable)
	return applyRequestFilter(builder, filter).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
}

func buildGroupCountQuery(column string) (string, []any, error) {
	return psql.Select(column, "COUNT(*)").From(requestsTable).GroupBy(column).ToSql()
}

func applyRequestFilter(builder sq.SelectBuilder, filter RequestFilter) sq.SelectBuilder {
	if filter.Status != nil {
		builder = builder.Where(sq.Eq{"status": *filter.Status})
	}
	if filter.Category != nil {
		builder = builder.Where(sq.Eq{"category": *filter.Category})
	}
	if dept := strings.TrimSpace(filter.Department); dept != "" {
		builder = builder.Where(sq.ILike{"department": containsPattern(dept)})
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := containsPattern(search)
		builder = builder.Where(sq.Or{
			sq.ILike{"requester_name": pattern},
			sq.ILike{"description": pattern},
		})
	}
	return builder
}

func scanRequest(row pgx.Row) (*domain.ServiceRequest, error) {
	var req domain.ServiceRequest
	if err := row.Scan(
		&req.ID,
		&req.RequesterName,
		&req.RequesterEmail,
		&req.Department,
		&req.Category,
		&req.Description,
		&req.Status,
		&req.AssignedTo,
		&req.CreatedAt,
		&req.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &req, nil
}
