package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStayDaysAndNights(t *testing.T) {
	testCases := []struct {
		name         string
		starts, ends time.Time
		wantDays     int
		wantNights   int
	}{
		{
			name:       "three full days apart",
			starts:     day(1),
			ends:       day(4),
			wantDays:   4,
			wantNights: 3,
		},
		{
			name:       "same day",
			starts:     day(1),
			ends:       day(1).Add(6 * time.Hour),
			wantDays:   1,
			wantNights: 1,
		},
		{
			name:       "partial day floors",
			starts:     day(1),
			ends:       day(2).Add(23 * time.Hour),
			wantDays:   2,
			wantNights: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			days := StayDays(tc.starts, tc.ends)
			assert.Equal(t, tc.wantDays, days)
			assert.Equal(t, tc.wantNights, Nights(days))
		})
	}
}

func TestBaseCostCents(t *testing.T) {
	// stayDays 4 means 3 nights
	assert.Equal(t, int64(30000), BaseCostCents(PerNight, 10000, 4, 2, 1, 8))
	assert.Equal(t, int64(60000), BaseCostCents(PerNight, 10000, 4, 2, 2, 8))

	// per-hour charges every stay day at hoursPerDay
	assert.Equal(t, int64(16000), BaseCostCents(PerHour, 1000, 2, 5, 1, 8))
	assert.Equal(t, int64(8000), BaseCostCents(PerHour, 1000, 2, 5, 1, 4))

	// per-person ignores duration
	assert.Equal(t, int64(25000), BaseCostCents(PerPerson, 5000, 4, 5, 1, 8))

	// unknown unit prices as zero
	assert.Zero(t, BaseCostCents(PriceUnit("weird"), 5000, 4, 5, 1, 8))
}

// A resource with one unit at 10000 cents per night, booked for three
// nights: base 30000, then a 1000-cent bill raises the total to 31000 and a
// 20000-cent payment leaves a balance of 11000.
func TestComputeFinancialsPerNight(t *testing.T) {
	b := &Booking{
		Guests:     2,
		Units:      units(1),
		Starts:     day(1),
		Ends:       day(4),
		Status:     StatusConfirmed,
		PriceCents: 10000,
		PriceUnit:  PerNight,
	}

	f, fellBack := ComputeFinancials(b, nil, DefaultHoursPerDay)
	require.False(t, fellBack)
	assert.Equal(t, int64(30000), f.BaseCostCents)
	assert.Equal(t, int64(30000), f.TotalBillCents)
	assert.Equal(t, int64(30000), f.BalanceCents)
	assert.Equal(t, 4, f.StayDays)
	assert.Equal(t, 3, f.Nights)

	b.Bills = []Bill{{AmountCents: 1000}}
	b.Payments = []Payment{{AmountCents: 20000}}

	f, _ = ComputeFinancials(b, nil, DefaultHoursPerDay)
	assert.Equal(t, int64(31000), f.TotalBillCents)
	assert.Equal(t, int64(20000), f.TotalPaymentsCents)
	assert.Equal(t, int64(11000), f.BalanceCents)
}

// A discount credits total payments instead of reducing the bill, so the
// billed total stays auditable against the base cost.
func TestComputeFinancialsDiscountIsCredit(t *testing.T) {
	b := &Booking{
		Guests:      2,
		Units:       units(1),
		Starts:      day(1),
		Ends:        day(4),
		PriceCents:  10000,
		PriceUnit:   PerNight,
		DiscountPct: 10,
	}

	f, _ := ComputeFinancials(b, nil, DefaultHoursPerDay)
	assert.Equal(t, int64(30000), f.TotalBillCents)
	assert.Equal(t, int64(3000), f.DiscountCents)
	assert.Equal(t, int64(3000), f.TotalPaymentsCents)
	assert.Equal(t, int64(27000), f.BalanceCents)
}

func TestComputeFinancialsPerHour(t *testing.T) {
	b := &Booking{
		Guests:     10,
		Units:      units(1),
		Starts:     day(1),
		Ends:       day(1).Add(5 * time.Hour),
		PriceCents: 2000,
		PriceUnit:  PerHour,
	}

	f, _ := ComputeFinancials(b, nil, 8)
	assert.Equal(t, int64(16000), f.BaseCostCents)

	f, _ = ComputeFinancials(b, nil, 4)
	assert.Equal(t, int64(8000), f.BaseCostCents)
}

func TestComputeFinancialsPerPerson(t *testing.T) {
	b := &Booking{
		Guests:     6,
		Units:      units(1, 2),
		Starts:     day(1),
		Ends:       day(2),
		PriceCents: 1500,
		PriceUnit:  PerPerson,
	}

	f, _ := ComputeFinancials(b, nil, DefaultHoursPerDay)
	assert.Equal(t, int64(1500*6*2), f.BaseCostCents)
}

func TestComputeFinancialsSnapshotFallback(t *testing.T) {
	b := &Booking{
		Guests: 2,
		Units:  units(1),
		Starts: day(1),
		Ends:   day(4),
	}
	live := &Resource{PriceCents: 10000, PriceUnit: PerNight}

	f, fellBack := ComputeFinancials(b, live, DefaultHoursPerDay)
	assert.True(t, fellBack)
	assert.Equal(t, int64(30000), f.BaseCostCents)

	// no snapshot and no live resource prices as zero
	f, fellBack = ComputeFinancials(b, nil, DefaultHoursPerDay)
	assert.True(t, !b.HasSnapshot())
	assert.False(t, fellBack)
	assert.Zero(t, f.BaseCostCents)
}
