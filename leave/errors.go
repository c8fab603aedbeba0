/*
errors.go - Error taxonomy for the leave ledger

PURPOSE:
  All ledger errors in one place. Operations return either a sentinel
  (compare with errors.Is) or a structured error that unwraps to one.

ERROR CATEGORIES:
  1. Lookup errors     - ErrEmployeeNotFound, ErrNotFound
  2. Validation errors - ErrInvalidRequest, ErrInvalidCategory, ErrInvalidDate, ErrDateOrder
  3. Business rules    - ErrInsufficientBalance, ErrAlreadyExists
  4. Store errors      - anything else, wrapped with context

EMPTY RESULTS:
  A query that matches nothing is NOT an error. HistoryResult and
  UpcomingResult carry an explicit Empty() signal instead.

USAGE:
  _, err := svc.Apply(ctx, req)
  var short *leave.InsufficientBalanceError
  if errors.As(err, &short) {
      fmt.Printf("only %d %s days left\n", short.Available, short.Category)
  }
*/
package leave

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEmployeeNotFound is returned when the employee id is unknown.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrAlreadyExists is returned when registering an id that is taken.
	ErrAlreadyExists = errors.New("employee already exists")

	// ErrInvalidCategory is returned for a category outside the closed set
	// or outside the employee's balance mapping.
	ErrInvalidCategory = errors.New("invalid leave category")

	// ErrInvalidDate is returned when a date is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date format (use YYYY-MM-DD)")

	// ErrDateOrder is returned when start date is after end date.
	ErrDateOrder = errors.New("start_date cannot be after end_date")

	// ErrInsufficientBalance is returned when a request needs more days than remain.
	ErrInsufficientBalance = errors.New("insufficient leave balance")

	// ErrNotFound is returned by approve/reject/cancel when no entry on the
	// date is in the required source status. An absent entry and an entry in
	// the wrong status are reported identically.
	ErrNotFound = errors.New("no matching leave entry")

	// ErrInvalidRequest is returned when a required field is missing or malformed.
	ErrInvalidRequest = errors.New("invalid request")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError provides details about a balance shortage.
type InsufficientBalanceError struct {
	EmployeeID EmployeeID
	Category   Category
	Requested  int
	Available  int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s leave balance: requested %d, available %d",
		e.Category, e.Requested, e.Available)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// CategoryError names the rejected category and the ones that would be accepted.
type CategoryError struct {
	Category string
	Valid    []Category
}

func (e *CategoryError) Error() string {
	names := make([]string, len(e.Valid))
	for i, c := range e.Valid {
		names[i] = string(c)
	}
	return fmt.Sprintf("invalid leave type %q, valid types: %s", e.Category, strings.Join(names, ", "))
}

func (e *CategoryError) Unwrap() error { return ErrInvalidCategory }

// DateError wraps a parse failure for a date field.
type DateError struct {
	Value string
	Err   error
}

func (e *DateError) Error() string {
	return fmt.Sprintf("invalid date %q (use YYYY-MM-DD)", e.Value)
}

func (e *DateError) Unwrap() []error { return []error{ErrInvalidDate, e.Err} }

// RequestError names the offending request field.
type RequestError struct {
	Field  string
	Reason string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *RequestError) Unwrap() error { return ErrInvalidRequest }

// TransitionError describes a transition that found no entry in the
// required status.
type TransitionError struct {
	EmployeeID EmployeeID
	Date       string
	Required   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("no %s leave found on %s for %s", e.Required, e.Date, e.EmployeeID)
}

func (e *TransitionError) Unwrap() error { return ErrNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing employee or entry.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) || errors.Is(err, ErrNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidCategory) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrDateOrder) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrAlreadyExists)
}
