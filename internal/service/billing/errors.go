package billing

import "errors"

var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrBookingFrozen   = errors.New("booking is cancelled; financial records are frozen")
	ErrInvalidDiscount = errors.New("discount must be between 0 and 100")
)
