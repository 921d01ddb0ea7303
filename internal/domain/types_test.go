package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBookingStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusConfirmed.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}

func TestTransitionSources(t *testing.T) {
	assert.Equal(t, []BookingStatus{StatusPending}, StatusConfirmed.TransitionSources())
	assert.Equal(t, []BookingStatus{StatusPending, StatusConfirmed}, StatusCancelled.TransitionSources())
	assert.Equal(t, []BookingStatus{StatusConfirmed}, StatusCompleted.TransitionSources())
	// pending is the creation status, never a transition target
	assert.Nil(t, StatusPending.TransitionSources())
}

func TestBookingFrozen(t *testing.T) {
	b := &Booking{Status: StatusCancelled}
	assert.True(t, b.Frozen())

	b.Status = StatusCompleted
	assert.False(t, b.Frozen())
}

func TestPriceUnitValid(t *testing.T) {
	assert.True(t, PerNight.Valid())
	assert.True(t, PerHour.Valid())
	assert.True(t, PerPerson.Valid())
	assert.False(t, PriceUnit("per_week").Valid())
	assert.False(t, PriceUnit("").Valid())
}
