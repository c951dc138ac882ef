/*
errors.go - Centralized error types for the billing engine

PURPOSE:
  All error types in one place for consistency and discoverability.

ERROR CATEGORIES:
  1. Validation errors - bad discount input, undefined divisions, bad ranges;
     recovered locally by rejecting the edit.
  2. Remote operation errors - a create/delete call against the store failed;
     recorded on the coordinator, never propagated further.
  Requests dropped by the concurrency guard are NOT errors: they are silent
  by design and have no type here.

USAGE:
  if errors.Is(err, billing.ErrNoDiscountableItems) { ... }
  if billing.IsValidation(err) { ... }

SEE ALSO:
  - coordinator.go: translates remote failures into LastError
*/
package billing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrRateOutOfRange is returned when a discount rate lies outside [0, 100).
	ErrRateOutOfRange = errors.New("discount rate out of range")

	// ErrNoDiscountableItems is returned when a discount target amount is set
	// while no line item is discountable: the back-solved rate is undefined.
	ErrNoDiscountableItems = errors.New("no discountable items")

	// ErrInvalidDateRange is returned when an event ends before it starts.
	ErrInvalidDateRange = errors.New("invalid date range: end before start")

	// ErrNotBillable is returned when a bill is requested for an event
	// without beneficiaries.
	ErrNotBillable = errors.New("event has no beneficiaries")

	// ErrInvalidDuration is returned for durations below one day.
	ErrInvalidDuration = errors.New("duration must be at least one day")

	// ErrDegressiveContract is returned when a configured degressive rate is
	// not monotonic or does not return 1 at duration 1.
	ErrDegressiveContract = errors.New("degressive rate violates contract")

	// ErrRemoteOperation is the base error for failed store calls.
	ErrRemoteOperation = errors.New("remote operation failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// RateOutOfRangeError reports the rejected value so the UI can flag it.
type RateOutOfRangeError struct {
	Value decimal.Decimal
}

func (e *RateOutOfRangeError) Error() string {
	return fmt.Sprintf("discount rate %s out of range [0, 100)", e.Value)
}

func (e *RateOutOfRangeError) Unwrap() error { return ErrRateOutOfRange }

// RemoteOperationError wraps a failed call against the document store.
// Op is "create estimate", "delete estimate", or "create bill".
type RemoteOperationError struct {
	Op     string
	Detail string
	Err    error
}

func (e *RemoteOperationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Detail)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteOperationError) Unwrap() error { return ErrRemoteOperation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidation returns true if the error is due to invalid local input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrRateOutOfRange) ||
		errors.Is(err, ErrNoDiscountableItems) ||
		errors.Is(err, ErrInvalidDateRange) ||
		errors.Is(err, ErrNotBillable) ||
		errors.Is(err, ErrInvalidDuration)
}

// IsRemote returns true if the error came from the document store.
func IsRemote(err error) bool {
	return errors.Is(err, ErrRemoteOperation)
}
