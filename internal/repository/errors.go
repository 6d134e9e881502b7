package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hray3182/lifeline-calendar/internal/models"
)

const (
	sqlStateUniqueViolation     = "23505"
	sqlStateForeignKeyViolation = "23503"
)

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgErrorCode(err) == sqlStateUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return pgErrorCode(err) == sqlStateForeignKeyViolation
}

// notFound maps pgx.ErrNoRows onto the domain sentinel.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}
