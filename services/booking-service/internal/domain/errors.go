package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy of the coordination core. The HTTP layer maps these to
// status codes; nothing below it swallows them.
var (
	// ErrLockContention: another request holds the slot lock. Retryable.
	ErrLockContention = errors.New("slot lock held by another request")

	// ErrSchedulingConflict: an overlapping booking exists. Terminal for
	// this request.
	ErrSchedulingConflict = errors.New("slot unavailable")

	ErrBookingNotFound = errors.New("booking not found")
	ErrTableNotFound   = errors.New("table not found")

	// ErrDownstreamUnavailable: ledger or event bus unreachable.
	ErrDownstreamUnavailable = errors.New("downstream unavailable")
)

// ValidationError rejects malformed input before any locking happens.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IllegalTransitionError reports a transition attempted from a state that
// does not permit it. Exactly one concurrent caller wins a transition; the
// rest get this, never a silent success.
type IllegalTransitionError struct {
	Current Status
	Target  Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("cannot move booking from %s to %s", e.Current, e.Target)
}
