package reservation

import "errors"

// Error taxonomy surfaced to callers. Each maps to a distinct user-visible
// message: availability failures are retryable by resubmission, transition
// failures are client errors and never retried.
var (
	ErrInsufficientAvailability = errors.New("insufficient availability")
	ErrInvalidTransition        = errors.New("invalid status transition")
	ErrInvalidRange             = errors.New("invalid range: end must be after start")
	ErrGuestCapacityExceeded    = errors.New("guest capacity exceeded")
	ErrBookingNotFound          = errors.New("booking not found")
	ErrResourceNotFound         = errors.New("resource not found")
	ErrPermissionDenied         = errors.New("permission denied")
)
