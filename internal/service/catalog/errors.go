package catalog

import "errors"

var (
	ErrInvalidPricing   = errors.New("invalid pricing policy")
	ErrResourceConflict = errors.New("resource already exists")
	ErrUnitsConflict    = errors.New("conflict creating units")
	ErrResourceNotFound = errors.New("resource not found")
)
