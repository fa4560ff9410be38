/*
errors.go - Centralized error types for the waterfall engine

ERROR CATEGORIES:
  1. Validation errors   - Malformed config or input values (bad rates, amounts, dates)
  2. Precondition errors - The engine cannot run for this LP (unknown ID, no distributions)
  3. Arithmetic errors   - Division by zero in the catch-up formula

USAGE:
  res, err := engine.Run(lp)
  switch {
  case fund.IsNotFound(err):     // 404
  case fund.IsConflict(err):     // 409
  case fund.IsPrecondition(err): // 422
  case fund.IsClientError(err):  // 400
  }

SEE ALSO:
  - config.go: Returns ValidationError
  - engine.go: Returns PreconditionError
  - formula.go: Returns ArithmeticError
*/
package fund

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned when a config or input value is malformed.
	ErrValidation = errors.New("validation failed")

	// ErrPrecondition is returned when a waterfall run cannot start.
	ErrPrecondition = errors.New("precondition failed")

	// ErrArithmetic is returned when a formula is evaluated outside its domain.
	ErrArithmetic = errors.New("arithmetic error")

	// ErrLPNotFound is returned when no LP exists for a commitment ID.
	ErrLPNotFound = errors.New("limited partner not found")

	// ErrLPExists is returned when creating an LP whose ID is taken.
	ErrLPExists = errors.New("limited partner already exists")

	// ErrNoDistributions is returned when an LP has no distributions, which
	// leaves the preferred-return horizon undefined.
	ErrNoDistributions = errors.New("limited partner has no distributions")

	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidFlow   = errors.New("invalid flow type")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError describes one rejected field.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// PreconditionError explains why a run for CommitmentID was refused.
type PreconditionError struct {
	CommitmentID CommitmentID
	Err          error // ErrLPNotFound, ErrNoDistributions, ...
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("commitment %s: %v", e.CommitmentID, e.Err)
}

func (e *PreconditionError) Unwrap() []error { return []error{ErrPrecondition, e.Err} }

// ArithmeticError names the operation that left its domain.
type ArithmeticError struct {
	Op     string
	Reason string
}

func (e *ArithmeticError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *ArithmeticError) Unwrap() error { return ErrArithmetic }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// NotFound wraps ErrLPNotFound for id.
func NotFound(id CommitmentID) error {
	return &PreconditionError{CommitmentID: id, Err: ErrLPNotFound}
}

// AlreadyExists wraps ErrLPExists for id.
func AlreadyExists(id CommitmentID) error {
	return fmt.Errorf("commitment %s: %w", id, ErrLPExists)
}

// IsConflict returns true if the error reports a duplicate LP.
func IsConflict(err error) bool {
	return errors.Is(err, ErrLPExists)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidFlow)
}

// IsNotFound returns true if the error indicates a missing LP.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrLPNotFound)
}

// IsPrecondition returns true if a run was refused before any tier was computed.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrPrecondition)
}
