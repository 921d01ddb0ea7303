package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func units(ids ...int64) []Unit {
	out := make([]Unit, 0, len(ids))
	for _, id := range ids {
		out = append(out, Unit{ID: id, ResourceID: 1})
	}
	return out
}

func unitIDs(us []Unit) []int64 {
	out := make([]int64, 0, len(us))
	for _, u := range us {
		out = append(out, u.ID)
	}
	return out
}

func TestAvailableUnits(t *testing.T) {
	all := units(3, 1, 2, 5)

	got := AvailableUnits(all, map[int64]struct{}{2: {}, 5: {}})
	assert.Equal(t, []int64{1, 3}, unitIDs(got))

	// empty occupied set returns everything, sorted
	got = AvailableUnits(all, nil)
	assert.Equal(t, []int64{1, 2, 3, 5}, unitIDs(got))

	// fully occupied
	got = AvailableUnits(units(1), map[int64]struct{}{1: {}})
	assert.Empty(t, got)
}

func TestSelectUnits(t *testing.T) {
	testCases := []struct {
		name      string
		available []Unit
		n         int
		wantIDs   []int64
	}{
		{
			name:      "lowest ids win regardless of input order",
			available: units(7, 2, 9, 4),
			n:         2,
			wantIDs:   []int64{2, 4},
		},
		{
			name:      "exact fit",
			available: units(3, 1),
			n:         2,
			wantIDs:   []int64{1, 3},
		},
		{
			name:      "insufficient",
			available: units(1, 2),
			n:         3,
			wantIDs:   nil,
		},
		{
			name:      "zero requested",
			available: units(1, 2),
			n:         0,
			wantIDs:   nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := SelectUnits(tc.available, tc.n)
			if tc.wantIDs == nil {
				assert.Nil(t, got)
				return
			}
			assert.Equal(t, tc.wantIDs, unitIDs(got))
		})
	}
}

func TestSelectUnitsDeterministic(t *testing.T) {
	a := SelectUnits(units(9, 3, 6, 1), 2)
	b := SelectUnits(units(1, 6, 3, 9), 2)
	require.NotNil(t, a)
	assert.Equal(t, unitIDs(a), unitIDs(b))
}

func TestGuestsFit(t *testing.T) {
	assert.True(t, GuestsFit(4, 2, 2))
	assert.True(t, GuestsFit(3, 2, 2))
	assert.False(t, GuestsFit(5, 2, 2))
	assert.True(t, GuestsFit(0, 2, 1))
}
