package persistence

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a row does not exist in the caller's scope.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write collides with an existing row.
	ErrConflict = errors.New("record already exists")
	// ErrSlugTaken is returned when a tenant slug is already in use.
	ErrSlugTaken = errors.New("slug already taken")
	// ErrMemberExists is returned when a user already has a tenant membership.
	ErrMemberExists = errors.New("user already belongs to a tenant")
)

const uniqueViolation = "23505"

// uniqueConstraint reports the violated constraint name for unique violations.
func uniqueConstraint(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}
