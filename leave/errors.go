/*
errors.go - Centralized error types for the leave core

PURPOSE:
  All error types in one place for consistency and discoverability.
  The HTTP layer maps these onto status codes; the core never speaks
  in status codes itself.

ERROR CATEGORIES:
  1. Validation errors - bad input, date-window violations,
     apply-time balance insufficiency (400-equivalent)
  2. Not-found errors  - unknown employee/leave id (404-equivalent)
  3. Conflict errors   - action on a non-Pending request, lost
     conditional update (400/409-equivalent)
  4. Hierarchy errors  - cyclic reportsTo graph, missing manager
  5. Internal errors   - unexpected store failure (500-equivalent,
     logged with context, generic message to caller)

USAGE:
  if errors.Is(err, leave.ErrStateConflict) { ... }
  var ve *leave.ValidationError
  if errors.As(err, &ve) { ... }
*/
package leave

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation marks client input the core refuses to act on.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned for unknown employee or leave ids.
	ErrNotFound = errors.New("not found")

	// ErrStateConflict is returned when an action requires Pending
	// status and the request has already reached a terminal state,
	// including losing the conditional update to a concurrent actor.
	ErrStateConflict = errors.New("state conflict")

	// ErrNoManager is returned when an employee has no reportsTo set
	// and therefore no initial approver.
	ErrNoManager = errors.New("no reporting manager")

	// ErrHierarchyCycle is returned when the reportsTo graph loops.
	ErrHierarchyCycle = errors.New("reporting hierarchy cycle")

	// ErrInternal wraps unexpected store failures.
	ErrInternal = errors.New("internal error")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError carries a caller-facing message. The message is
// surfaced verbatim, so it must not leak internals.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
func (e *ValidationError) Unwrap() error { return ErrValidation }

func validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// InsufficientBalanceError is the apply-time balance check failure.
// Approval-time shortfalls never produce this error; they fall back
// to LWP instead.
type InsufficientBalanceError struct {
	Category  LeaveType
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s leave balance. Available: %s, Requested: %s",
		e.Category, e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrValidation }

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind string // "employee", "leave", "holiday"
	ID   string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s not found: %s", e.Kind, e.ID) }
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// StateConflictError reports an action attempted on a request that is
// not (or no longer) Pending.
type StateConflictError struct {
	LeaveID LeaveID
	Status  LeaveStatus
	Action  string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("cannot %s leave %s in status %s: only pending requests can change",
		e.Action, e.LeaveID, e.Status)
}

func (e *StateConflictError) Unwrap() error { return ErrStateConflict }

// NoManagerError names the employee missing a reportsTo edge.
type NoManagerError struct {
	EmployeeID UserID
}

func (e *NoManagerError) Error() string {
	return fmt.Sprintf("no reporting manager found for employee %s", e.EmployeeID)
}

func (e *NoManagerError) Unwrap() error { return ErrNoManager }

// HierarchyCycleError reports a cyclic reportsTo chain. Depth is how
// far the walk got before the guard tripped.
type HierarchyCycleError struct {
	EmployeeID UserID
	Depth      int
}

func (e *HierarchyCycleError) Error() string {
	return fmt.Sprintf("reporting hierarchy cycle detected for employee %s (depth %d)",
		e.EmployeeID, e.Depth)
}

func (e *HierarchyCycleError) Unwrap() error { return ErrHierarchyCycle }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is the caller's fault and
// safe to surface verbatim.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrStateConflict)
}

// IsNotFound reports whether the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrNoManager)
}

func internalf(err error, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %w", ErrInternal, fmt.Sprintf(format, args...), err)
}
