/*
errors.go - Error taxonomy for the enrollment core

PURPOSE:
  All domain errors in one place. Every structured error unwraps to a
  sentinel so callers can classify with errors.Is and still pull details
  out with errors.As.

ERROR CATEGORIES:
  ValidationError   malformed or out-of-range input         -> 400
  InvalidDateError  missing or unparseable calendar date    -> 400
  NotFoundError     referenced entity absent                -> 404
  OverpaymentError  payment exceeds remaining balance       -> 400
  ConflictError     deletion/creation blocked by a rule     -> 400
  anything else     store failure, bug                      -> 500

USAGE:
  var over *center.OverpaymentError
  if errors.As(err, &over) {
      log.Printf("short by %s", over.Requested-over.Rest)
  }

SEE ALSO:
  - api/errors.go: HTTP status mapping
*/
package center

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrValidation  = errors.New("validation failed")
	ErrInvalidDate = errors.New("invalid date")
	ErrNotFound    = errors.New("not found")
	ErrOverpayment = errors.New("payment exceeds remaining balance")
	ErrConflict    = errors.New("conflict")

	// ErrDuplicateKey is returned by stores when a unique constraint fires.
	ErrDuplicateKey = errors.New("duplicate key")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports a business-rule violation on a single field.
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

func (e *ValidationError) Unwrap() error { return ErrValidation }

// InvalidDateError reports a date field that is absent or not a calendar date.
type InvalidDateError struct {
	Field string
	Value string
}

func (e *InvalidDateError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s is required (YYYY-MM-DD)", e.Field)
	}
	return fmt.Sprintf("%s %q is not a valid date (YYYY-MM-DD)", e.Field, e.Value)
}

func (e *InvalidDateError) Unwrap() error { return ErrInvalidDate }

// NotFoundError names the missing entity.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// OverpaymentError provides details about a payment that would push total
// payments past the registration amount.
type OverpaymentError struct {
	RegistrationID RegistrationID
	Rest           Money
	Requested      Money
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("payment of %s exceeds remaining balance %s on registration %d",
		e.Requested, e.Rest, e.RegistrationID)
}

func (e *OverpaymentError) Unwrap() error { return ErrOverpayment }

// ConflictError reports an operation blocked by existing data.
type ConflictError struct {
	Entity string
	ID     int64
	Reason string
}

func (e *ConflictError) Error() string {
	if e.ID == 0 {
		return fmt.Sprintf("%s: %s", e.Entity, e.Reason)
	}
	return fmt.Sprintf("%s %d %s", e.Entity, e.ID, e.Reason)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input
// or a business rule, i.e. the caller can fix it.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrOverpayment) ||
		errors.Is(err, ErrConflict)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func notFound(entity string, id int64) error {
	return &NotFoundError{Entity: entity, ID: id}
}
