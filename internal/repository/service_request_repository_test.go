package repository

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
)

func TestBuildListRequestsQueryWithoutFilters(t *testing.T) {
	query, args, err := buildListRequestsQuery(RequestFilter{})
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT id, requester_name, requester_email, department, category, description, status, assigned_to, created_at, updated_at FROM service_requests ORDER BY created_at DESC, id DESC LIMIT 20 OFFSET 0",
		query)
	assert.Empty(t, args)
}

func TestBuildListRequestsQueryWithFilters(t *testing.T) {
	status := domain.StatusPending
	category := domain.CategoryPrinterIssue
	query, args, err := buildListRequestsQuery(RequestFilter{
		Status:     &status,
		Category:   &category,
		Department: " fin ",
		Search:     "50%",
		Limit:      5,
		Offset:     10,
	})
	require.NoError(t, err)

	assert.Contains(t, query, "status = $1")
	assert.Contains(t, query, "category = $2")
	assert.Contains(t, query, "department ILIKE $3")
	assert.Contains(t, query, "(requester_name ILIKE $4 OR description ILIKE $5)")
	assert.Contains(t, query, "LIMIT 5 OFFSET 10")
	assert.Equal(t, []any{status, category, "%fin%", `%50\%%`, `%50\%%`}, args)
}

func TestBuildGroupCountQuery(t *testing.T) {
	query, args, err := buildGroupCountQuery("category")
	require.NoError(t, err)
	assert.Equal(t, "SELECT category, COUNT(*) FROM service_requests GROUP BY category", query)
	assert.Empty(t, args)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `a\_b\%c\\`, escapeLike(`a_b%c\`))
}

func TestTranslateUnique(t *testing.T) {
	plain := errors.New("boom")
	assert.Same(t, plain, translateUnique(plain, nil))
	assert.NoError(t, translateUnique(nil, nil))

	err := translateUnique(&pgconn.PgError{Code: uniqueViolation, ConstraintName: "departments_code_key"},
		map[string]string{"name": "Foo Inc", "code": "FOOINC"})
	var dup *DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "code", dup.Field)
	assert.Equal(t, "FOOINC", dup.Value)
}

func TestUpsertOutcomeString(t *testing.T) {
	assert.Equal(t, "created", UpsertCreated.String())
	assert.Equal(t, "updated", UpsertUpdated.String())
	assert.Equal(t, "unchanged", UpsertUnchanged.String())
}
