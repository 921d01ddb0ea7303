package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reportBooking(userID int64, status BookingStatus, unitNames ...string) *Booking {
	us := make([]Unit, 0, len(unitNames))
	for i, n := range unitNames {
		us = append(us, Unit{ID: int64(i + 1), Name: n})
	}
	return &Booking{
		UserID:     userID,
		Guests:     2,
		Units:      us,
		Starts:     day(1),
		Ends:       day(2),
		Status:     status,
		PriceCents: 10000,
		PriceUnit:  PerNight,
	}
}

func groupKeys(rep Report) []string {
	keys := make([]string, 0, len(rep.Groups))
	for _, g := range rep.Groups {
		keys = append(keys, g.Key)
	}
	return keys
}

// Five bookings, three confirmed, one pending, one cancelled: status groups
// come out in the fixed display order and the cancelled booking's money lands
// only in the cancelled bucket.
func TestAggregateByStatus(t *testing.T) {
	bookings := []*Booking{
		reportBooking(1, StatusConfirmed, "Room 101"),
		reportBooking(2, StatusPending, "Room 101"),
		reportBooking(3, StatusConfirmed, "Room 102"),
		reportBooking(4, StatusCancelled, "Room 103"),
		reportBooking(5, StatusConfirmed, "Room 101"),
	}

	rep := Aggregate(bookings, GroupByStatus, nil, DefaultHoursPerDay)

	require.Equal(t, []string{"confirmed", "pending", "cancelled"}, groupKeys(rep))
	assert.Len(t, rep.Groups[0].Bookings, 3)
	assert.Len(t, rep.Groups[1].Bookings, 1)
	assert.Len(t, rep.Groups[2].Bookings, 1)

	// one night at 10000 per booking
	assert.Equal(t, 4, rep.Active.Count)
	assert.Equal(t, int64(40000), rep.Active.TotalOwedCents)
	assert.Equal(t, 1, rep.Cancelled.Count)
	assert.Equal(t, int64(10000), rep.Cancelled.TotalOwedCents)
}

func TestAggregateByStatusSkipsEmptyGroups(t *testing.T) {
	rep := Aggregate([]*Booking{reportBooking(1, StatusCompleted, "A")}, GroupByStatus, nil, DefaultHoursPerDay)
	assert.Equal(t, []string{"completed"}, groupKeys(rep))
}

func TestAggregateByGuest(t *testing.T) {
	bookings := []*Booking{
		reportBooking(10, StatusConfirmed, "A"),
		reportBooking(2, StatusConfirmed, "B"),
		reportBooking(10, StatusPending, "C"),
	}

	rep := Aggregate(bookings, GroupByGuest, nil, DefaultHoursPerDay)

	require.Equal(t, []string{"10", "2"}, groupKeys(rep))
	assert.Len(t, rep.Groups[0].Bookings, 2)
	assert.Len(t, rep.Groups[1].Bookings, 1)
}

// A booking spanning several units shows up under each of them, but its
// financials count once in the summary buckets.
func TestAggregateByUnitFanOut(t *testing.T) {
	bookings := []*Booking{
		reportBooking(1, StatusConfirmed, "Room 101", "Room 102"),
		reportBooking(2, StatusConfirmed, "Room 102"),
	}

	rep := Aggregate(bookings, GroupByUnit, nil, DefaultHoursPerDay)

	require.Equal(t, []string{"Room 101", "Room 102"}, groupKeys(rep))
	assert.Len(t, rep.Groups[0].Bookings, 1)
	assert.Len(t, rep.Groups[1].Bookings, 2)

	assert.Equal(t, 2, rep.Active.Count)
	// two-unit booking owes 20000, one-unit booking 10000
	assert.Equal(t, int64(30000), rep.Active.TotalOwedCents)
}

func TestAggregateFallsBackToLiveResource(t *testing.T) {
	b := reportBooking(1, StatusConfirmed, "A")
	b.ResourceID = 7
	b.PriceCents = 0
	b.PriceUnit = ""

	resources := map[int64]*Resource{7: {ID: 7, PriceCents: 2500, PriceUnit: PerNight}}

	rep := Aggregate([]*Booking{b}, GroupByStatus, resources, DefaultHoursPerDay)
	assert.Equal(t, int64(2500), rep.Active.TotalOwedCents)
}
