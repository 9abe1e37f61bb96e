package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	UniqueViolation           = "23505"
	InvalidTextRepresentation = "22P02"
)

// HasCode reports whether err wraps a PostgreSQL error with the given SQLSTATE.
func HasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// IsMalformedID reports whether PostgreSQL rejected a parameter because it
// could not be cast, such as a non-UUID string compared against a UUID column.
// Lookups treat it the same as a missing row.
func IsMalformedID(err error) bool {
	return HasCode(err, InvalidTextRepresentation)
}
