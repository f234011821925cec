package models

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation wraps all request/rule validation failures.
	ErrValidation = errors.New("validation error")

	// ErrInvalidTransition is returned when a lifecycle operation is requested
	// from a state that does not allow it. The record is left untouched.
	ErrInvalidTransition = errors.New("invalid schedule transition")

	// ErrOwnershipViolation is returned when a caller tries to act on an order
	// they do not own. Nothing is created or mutated.
	ErrOwnershipViolation = errors.New("caller does not own source order")

	// ErrConflict is returned when a versioned write loses a race with a
	// concurrent mutation. The caller may re-fetch and retry.
	ErrConflict = errors.New("record changed since load, retry")

	// ErrNoNextDelivery is returned by skip when the schedule has no computed
	// next delivery to advance from.
	ErrNoNextDelivery = errors.New("schedule has no next delivery")
)

// PartialCancelError reports a cancel whose local state change was saved but
// whose external plan-counter decrement failed. The cancellation is durable;
// the counter fix-up must happen out-of-band.
type PartialCancelError struct {
	Cause error
}

func (e *PartialCancelError) Error() string {
	return fmt.Sprintf("schedule cancelled, but plan counter update failed: %v", e.Cause)
}

func (e *PartialCancelError) Unwrap() error {
	return e.Cause
}
