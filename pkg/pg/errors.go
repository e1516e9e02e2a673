package pg

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrEmptyConnectionString = errors.New("pg.errors.empty_connection_string")
	ErrParseConfig           = errors.New("pg.errors.parse_config")
	ErrConnect               = errors.New("pg.errors.connect")
	ErrHealthcheck           = errors.New("pg.errors.healthcheck")
	ErrNoMigrations          = errors.New("pg.errors.no_migrations")
	ErrMigrate               = errors.New("pg.errors.migrate")
)

// SQLSTATE codes the stores branch on.
const (
	codeUniqueViolation = "23505"
	codeCheckViolation  = "23514"
)

// IsNotFoundError reports whether err is pgx.ErrNoRows.
func IsNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsDuplicateKeyError reports a unique constraint violation.
func IsDuplicateKeyError(err error) bool {
	return hasCode(err, codeUniqueViolation)
}

// IsCheckViolationError reports a CHECK constraint violation, raised when a
// row breaks the schema's limit-shape constraints.
func IsCheckViolationError(err error) bool {
	return hasCode(err, codeCheckViolation)
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
