package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
}

func TestRangeValidate(t *testing.T) {
	require.NoError(t, Range{Starts: day(1), Ends: day(2)}.Validate())

	err := Range{Starts: day(2), Ends: day(1)}.Validate()
	require.ErrorIs(t, err, ErrInvalidRange)

	// zero-length ranges are rejected too
	err = Range{Starts: day(1), Ends: day(1)}.Validate()
	require.ErrorIs(t, err, ErrInvalidRange)
}

func TestRangeOverlaps(t *testing.T) {
	testCases := []struct {
		name string
		a, b Range
		want bool
	}{
		{
			name: "identical ranges",
			a:    Range{Starts: day(1), Ends: day(5)},
			b:    Range{Starts: day(1), Ends: day(5)},
			want: true,
		},
		{
			name: "partial overlap",
			a:    Range{Starts: day(1), Ends: day(5)},
			b:    Range{Starts: day(3), Ends: day(8)},
			want: true,
		},
		{
			name: "containment",
			a:    Range{Starts: day(1), Ends: day(10)},
			b:    Range{Starts: day(3), Ends: day(5)},
			want: true,
		},
		{
			name: "back to back does not overlap",
			a:    Range{Starts: day(1), Ends: day(5)},
			b:    Range{Starts: day(5), Ends: day(8)},
			want: false,
		},
		{
			name: "disjoint",
			a:    Range{Starts: day(1), Ends: day(3)},
			b:    Range{Starts: day(6), Ends: day(8)},
			want: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.Overlaps(tc.b))
			// overlap is symmetric
			assert.Equal(t, tc.want, tc.b.Overlaps(tc.a))
		})
	}
}
