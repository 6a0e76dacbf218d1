/*
errors.go - Centralized error taxonomy for the HR core

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages return these (or wrap them with %w); the HTTP boundary
  maps them to status codes in api/errors.go.

ERROR CATEGORIES:
  1. Client errors - Validation, Conflict, InsufficientBalance
  2. Lookup errors - NotFound, TenantNotFound, TenantInactive
  3. Attendance    - AlreadyClockedIn, NoOpenSession
  4. Storage       - ConcurrentModification (optimistic token mismatch)

USAGE:
  Sentinels work with errors.Is, structured errors with errors.As:

    var insufficient *generic.InsufficientBalanceError
    if errors.As(err, &insufficient) {
        log.Printf("short by %s", insufficient.Requested.Sub(insufficient.Available))
    }

SEE ALSO:
  - api/errors.go: HTTP status mapping
  - leave/engine.go: Main producer of workflow errors
*/
package generic

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned for malformed or missing input.
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned when the request collides with existing state
	// (overlapping leave range, duplicate slug or email).
	ErrConflict = errors.New("conflict")

	// ErrInsufficientBalance is returned when a leave category cannot cover
	// the requested working days.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrNotFound is returned when a referenced record doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrTenantNotFound is returned when no organization owns a tenant key.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrTenantInactive is returned when the organization exists but has been
	// deactivated. Blocks every tenant-scoped operation.
	ErrTenantInactive = errors.New("tenant inactive")

	// ErrInvalidRange is returned when a date range ends before it starts.
	ErrInvalidRange = errors.New("invalid range: start after end")

	// ErrAlreadyClockedIn is returned when the user already has an open
	// attendance session today.
	ErrAlreadyClockedIn = errors.New("already clocked in")

	// ErrNoOpenSession is returned on clock-out without an open session.
	ErrNoOpenSession = errors.New("no open attendance session")

	// ErrConcurrentModification is returned when optimistic locking detects
	// that another writer updated the row first.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrInvalidCredentials is returned when login fails for any reason the
	// caller must not be able to distinguish.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Invalid is shorthand for a ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ConflictError describes what the new state collides with.
type ConflictError struct {
	Kind       string // e.g. "leave_request", "organization"
	ExistingID string
	Message    string
}

func (e *ConflictError) Error() string {
	if e.ExistingID != "" {
		return fmt.Sprintf("%s conflict with %s: %s", e.Kind, e.ExistingID, e.Message)
	}
	return fmt.Sprintf("%s conflict: %s", e.Kind, e.Message)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// InsufficientBalanceError provides details about a balance shortage.
type InsufficientBalanceError struct {
	UserID    string
	Category  string
	Year      int
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s balance for %d: available %s, requested %s",
		e.Category, e.Year, e.Available.String(), e.Requested.String())
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrTenantNotFound)
}
