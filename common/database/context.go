// Package database holds the timeouts and error helpers shared by the
// Postgres-backed stores.
package database

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	// DefaultQueryTimeout bounds a single read.
	DefaultQueryTimeout = 5 * time.Second

	// DefaultWriteTimeout bounds a single INSERT, UPDATE or DELETE.
	DefaultWriteTimeout = 10 * time.Second
)

// codeUniqueViolation is SQLSTATE unique_violation.
const codeUniqueViolation = "23505"

func QueryContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultQueryTimeout)
}

func WriteContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultWriteTimeout)
}

// IsUniqueViolation reports whether err is a Postgres unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}
