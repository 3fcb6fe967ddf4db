package repositories

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// isDuplicateKeyError reports whether err is a Postgres unique_violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
