package domain

import (
	"time"

	"github.com/google/uuid"
)

type ResourceType string

const (
	ResourceLodging    ResourceType = "lodging"
	ResourceEventSpace ResourceType = "event_space"
	ResourceDining     ResourceType = "dining"
)

// PriceUnit is a closed set; BaseCostCents matches it exhaustively.
type PriceUnit string

const (
	PerNight  PriceUnit = "per_night"
	PerHour   PriceUnit = "per_hour"
	PerPerson PriceUnit = "per_person"
)

func (u PriceUnit) Valid() bool {
	switch u {
	case PerNight, PerHour, PerPerson:
		return true
	}
	return false
}

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCompleted BookingStatus = "completed"
	StatusCancelled BookingStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed.
func (s BookingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// TransitionSources returns the statuses a booking may be in for a legal
// transition into s. Empty for statuses that are never a transition target.
func (s BookingStatus) TransitionSources() []BookingStatus {
	switch s {
	case StatusConfirmed:
		return []BookingStatus{StatusPending}
	case StatusCancelled:
		return []BookingStatus{StatusPending, StatusConfirmed}
	case StatusCompleted:
		return []BookingStatus{StatusConfirmed}
	}
	return nil
}

// History action tags.
const (
	ActionCreated    = "created"
	ActionConfirmed  = "confirmed"
	ActionCancelled  = "cancelled"
	ActionCompleted  = "completed"
	ActionBillAdded  = "bill_added"
	ActionPaymentAdd = "payment_added"
	ActionDiscount   = "discount_set"
)

type Resource struct {
	ID               int64        `json:"id"`
	Type             ResourceType `json:"type"`
	Name             string       `json:"name"`
	PriceCents       int64        `json:"price_cents"`
	PriceUnit        PriceUnit    `json:"price_unit"`
	Currency         string       `json:"currency"`
	MaxGuestsPerUnit int          `json:"max_guests_per_unit"`
	CreatedAt        time.Time    `json:"created_at"`
}

// Unit is one independently bookable slot within a resource ("Room 101").
type Unit struct {
	ID         int64  `json:"id"`
	ResourceID int64  `json:"resource_id"`
	Name       string `json:"name"`
}

type Bill struct {
	ID          uuid.UUID `json:"id"`
	BookingID   uuid.UUID `json:"booking_id"`
	AmountCents int64     `json:"amount_cents"`
	Label       string    `json:"label"`
	CreatedAt   time.Time `json:"created_at"`
}

type Payment struct {
	ID          uuid.UUID `json:"id"`
	BookingID   uuid.UUID `json:"booking_id"`
	AmountCents int64     `json:"amount_cents"`
	CreatedAt   time.Time `json:"created_at"`
}

// HistoryEntry is append-only; entries are never updated or deleted.
type HistoryEntry struct {
	ID        int64     `json:"id"`
	BookingID uuid.UUID `json:"booking_id"`
	Action    string    `json:"action"`
	ActorID   int64     `json:"actor_id"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

type Booking struct {
	ID         uuid.UUID     `json:"id"`
	ResourceID int64         `json:"resource_id"`
	UserID     int64         `json:"user_id"`
	Guests     int           `json:"guests"`
	Units      []Unit        `json:"units"`
	Starts     time.Time     `json:"starts_at"`
	Ends       time.Time     `json:"ends_at"`
	Status     BookingStatus `json:"status"`

	// Pricing snapshot captured at creation time; later price changes on the
	// resource do not alter existing bookings.
	PriceCents int64     `json:"price_cents"`
	PriceUnit  PriceUnit `json:"price_unit"`
	Currency   string    `json:"currency"`

	DiscountPct int `json:"discount_pct"`

	Bills    []Bill         `json:"bills"`
	Payments []Payment      `json:"payments"`
	History  []HistoryEntry `json:"history"`

	CreatedAt time.Time `json:"created_at"`
}

// Frozen reports whether financial records on the booking are read-only.
// A cancelled booking keeps its bills and payments for audit but accepts no
// further mutation.
func (b *Booking) Frozen() bool {
	return b.Status == StatusCancelled
}

func (b *Booking) Range() Range {
	return Range{Starts: b.Starts, Ends: b.Ends}
}

// HasSnapshot reports whether the booking carries its own pricing snapshot.
// Rows written before snapshots were recorded fall back to the live resource.
func (b *Booking) HasSnapshot() bool {
	return b.PriceCents > 0 && b.PriceUnit.Valid()
}

// ResourceWithUnits is the read shape for a resource and its inventory.
type ResourceWithUnits struct {
	Resource
	Units []Unit `json:"units"`
}

// ReservationRequest is the input to the reservation writer.
type ReservationRequest struct {
	ResourceID int64
	UserID     int64
	Guests     int
	UnitCount  int
	Starts     time.Time
	Ends       time.Time
}
