package report

import "errors"

var (
	ErrInvalidGroupBy = errors.New("group_by must be one of status, guest, unit")
	ErrInvalidRange   = errors.New("invalid range: end must be after start")
)
