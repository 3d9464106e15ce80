// Package common defines sentinel errors shared by the account store, the
// services and the transports. Callers should match them with errors.Is.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorStorage  = errors.New("db error")

	// Caller input errors.
	ErrorValidation = errors.New("validation error")

	// Duplicate username and similar constraint violations. Matches
	// ErrorValidation as well.
	ErrorConflict = fmt.Errorf("%w: already exists", ErrorValidation)

	// Hard delete requested for an account that was not soft-deleted first.
	ErrorAccountActive = fmt.Errorf("%w: account is active", ErrorValidation)

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
)

// Validationf returns an error that matches ErrorValidation and carries a
// human readable reason.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrorValidation, fmt.Sprintf(format, args...))
}

// StorageError wraps a driver error so that it matches ErrorStorage and still
// exposes the original cause to errors.As.
func StorageError(err error) error {
	return fmt.Errorf("%w: %w", ErrorStorage, err)
}
