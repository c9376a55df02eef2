package share

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

func pgConstraintError(err error, code, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == code && (constraint == "" || pgErr.ConstraintName == constraint)
}

func isTokenUniqueViolation(err error) bool {
	return pgConstraintError(err, pgUniqueViolation, "shareable_links_token_unique")
}

func isQuotaCheckViolation(err error) bool {
	return pgConstraintError(err, pgCheckViolation, "shareable_links_views_within_quota")
}

func isNegativeQuotaViolation(err error) bool {
	return pgConstraintError(err, pgCheckViolation, "shareable_links_max_views_nonnegative")
}

func isLinkForeignKeyViolation(err error) bool {
	return pgConstraintError(err, pgForeignKeyViolation, "")
}
