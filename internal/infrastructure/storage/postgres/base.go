// Package postgres provides PostgreSQL implementations of the domain
// repositories. Queries are built with squirrel, rows scanned with
// pgxscan; every repo routes through TxManager.GetQuerier so it runs on
// the active transaction when there is one.
package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"

	"bottega/internal/core/apperror"
)

const pgUniqueViolation = "23505"

// builder returns a squirrel builder with PostgreSQL $N placeholders.
func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// isUniqueViolation reports whether err is a unique constraint violation,
// optionally on a specific constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// parseOrderBy converts a filter order expression ("name", "-created_at")
// into a SQL ORDER BY clause, whitelisted against the table's columns.
func parseOrderBy(expr, fallback string, cols []string) (string, error) {
	if expr == "" {
		expr = fallback
	}
	col, dir := expr, "ASC"
	if strings.HasPrefix(expr, "-") {
		col, dir = expr[1:], "DESC"
	}
	for _, c := range cols {
		if c == col {
			return col + " " + dir, nil
		}
	}
	return "", apperror.NewValidation(fmt.Sprintf("invalid order column: %s", col)).
		WithDetail("field", "orderBy")
}
