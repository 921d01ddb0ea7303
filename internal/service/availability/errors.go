package availability

import "errors"

var (
	ErrInvalidRange     = errors.New("invalid range: end must be after start")
	ErrResourceNotFound = errors.New("resource not found")
)
