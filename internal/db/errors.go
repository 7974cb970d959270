package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrConflict is returned by repositories when a write violates a uniqueness constraint.
var ErrConflict = errors.New("db: unique constraint violation")

// pgUniqueViolation is the Postgres SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// MapError converts driver errors into package errors. Unique violations become
// ErrConflict; other errors are returned unchanged.
func MapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrConflict
	}
	return err
}
