package repository

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrUnitsUnavailable  = errors.New("not enough units available")
	ErrGuestCapacity     = errors.New("guest capacity exceeded")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrFrozen            = errors.New("booking is cancelled; financial records are frozen")
)
