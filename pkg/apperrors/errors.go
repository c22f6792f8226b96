// Package apperrors defines the error taxonomy shared by repositories, services and handlers.
//
// Callers wrap a sentinel with detail, e.g. fmt.Errorf("%w: score must be between 0 and 100", ErrValidation),
// and classify with errors.Is.
package apperrors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrDuplicate     = errors.New("duplicate")
	ErrSelfReference = errors.New("self reference")
	ErrIntegrity     = errors.New("integrity violation")
	ErrUnexpected    = errors.New("unexpected error")

	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// ErrConflict is kept for callers that only care that a write collided with existing state.
	ErrConflict = ErrDuplicate
)

// PostgreSQL SQLSTATE codes for integrity constraint violations.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgNotNullViolation    = "23502"
)

// Self-link check constraints are named with this suffix in the migrations.
const selfLinkConstraintSuffix = "_no_self_link"

// Validation returns an ErrValidation wrapping the formatted detail.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFound returns an ErrNotFound wrapping the formatted detail.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Duplicate returns an ErrDuplicate wrapping the formatted detail.
func Duplicate(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDuplicate, fmt.Sprintf(format, args...))
}

// SelfReference returns an ErrSelfReference wrapping the formatted detail.
func SelfReference(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSelfReference, fmt.Sprintf(format, args...))
}

// FromPg translates PostgreSQL constraint violations into the taxonomy.
// Errors that are not constraint violations are returned unchanged.
func FromPg(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, op)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgUniqueViolation:
		return fmt.Errorf("%w: %s: %s", ErrDuplicate, op, pgErr.Detail)
	case pgForeignKeyViolation:
		return fmt.Errorf("%w: %s: %s", ErrNotFound, op, pgErr.Detail)
	case pgCheckViolation:
		if strings.HasSuffix(pgErr.ConstraintName, selfLinkConstraintSuffix) {
			return fmt.Errorf("%w: %s", ErrSelfReference, op)
		}
		return fmt.Errorf("%w: %s: constraint %s", ErrValidation, op, pgErr.ConstraintName)
	case pgNotNullViolation:
		return fmt.Errorf("%w: %s: %s is required", ErrValidation, op, pgErr.ColumnName)
	}

	if strings.HasPrefix(pgErr.Code, "23") {
		return fmt.Errorf("%w: %s: %s", ErrIntegrity, op, pgErr.Message)
	}
	return err
}

// Kind returns a short machine-readable name for the error's category.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrDuplicate):
		return "duplicate"
	case errors.Is(err, ErrSelfReference):
		return "self_reference"
	case errors.Is(err, ErrIntegrity):
		return "integrity_error"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	default:
		return "unexpected_error"
	}
}
