package repository

import (
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// ErrReferenced is returned when a row cannot be removed because other rows point at it.
var ErrReferenced = errors.New("row is still referenced")

// DuplicateError reports a unique constraint violation on Field.
type DuplicateError struct {
	Field string
	Value string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Field, e.Value)
}

// psql builds Postgres statements with $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// translateUnique maps a unique violation to a DuplicateError using the constraint name.
// values maps column names to the attempted values.
func translateUnique(err error, values map[string]string) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	for field, value := range values {
		if strings.Contains(pgErr.ConstraintName, "_"+field+"_") {
			return &DuplicateError{Field: field, Value: value}
		}
	}
	return &DuplicateError{Field: pgErr.ConstraintName}
}

// escapeLike makes user input literal inside a LIKE pattern.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// containsPattern builds a substring pattern for ILIKE.
func containsPattern(s string) string {
	return "%" + escapeLike(s) + "%"
}
