package domain

import (
	"errors"
	"time"
)

var ErrInvalidRange = errors.New("invalid range: end must be after start")

// Range is a half-open interval [Starts, Ends).
type Range struct {
	Starts time.Time
	Ends   time.Time
}

// Validate rejects zero-length and inverted ranges.
func (r Range) Validate() error {
	if !r.Ends.After(r.Starts) {
		return ErrInvalidRange
	}
	return nil
}

// Overlaps reports whether two half-open intervals intersect:
// a.start < b.end AND b.start < a.end.
func (a Range) Overlaps(b Range) bool {
	return a.Starts.Before(b.Ends) && b.Starts.Before(a.Ends)
}
