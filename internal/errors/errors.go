package errors

import (
	"errors"
	"fmt"
)

// Common error types for the tenant state core
var (
	// Session errors. Expired and never-existed resolve to the same value so
	// callers cannot probe for token existence.
	ErrSessionAbsent = errors.New("session absent")

	// Durable store errors
	ErrDurableUnavailable = errors.New("durable store unavailable")
	ErrMigrationFailed    = errors.New("schema migration failed")

	// Account errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountNotFound    = errors.New("account not found")

	// Working set errors
	ErrNotFound       = errors.New("not found")
	ErrTenantMismatch = errors.New("record belongs to another tenant")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
