package httpgin

import (
	"time"

	"github.com/levkoval/resv-go/internal/domain"
)

type ReserveRequest struct {
	UserID    int64  `json:"user_id" binding:"required"`
	Guests    int    `json:"guests" binding:"required,gt=0"`
	UnitCount int    `json:"unit_count" binding:"required,gt=0"`
	StartsAt  string `json:"starts_at" binding:"required"`
	EndsAt    string `json:"ends_at" binding:"required"`
}

type AddBillRequest struct {
	AmountCents int64  `json:"amount_cents" binding:"required"`
	Label       string `json:"label" binding:"required"`
}

type AddPaymentRequest struct {
	AmountCents int64 `json:"amount_cents" binding:"required"`
}

type SetDiscountRequest struct {
	DiscountPct int `json:"discount_pct" binding:"min=0,max=100"`
}

type CreateResourceRequest struct {
	Type             string `json:"type" binding:"required"`
	Name             string `json:"name" binding:"required"`
	PriceCents       int64  `json:"price_cents" binding:"required,gt=0"`
	PriceUnit        string `json:"price_unit" binding:"required"`
	Currency         string `json:"currency" binding:"required,len=3"`
	MaxGuestsPerUnit int    `json:"max_guests_per_unit" binding:"required,gt=0"`
}

type BatchCreateUnitsRequest struct {
	Names []string `json:"names" binding:"required,min=1,dive,required"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type ReserveResponse struct {
	BookingID string  `json:"booking_id"`
	UnitIDs   []int64 `json:"unit_ids"`
}

type CreateResourceResponse struct {
	ResourceID int64 `json:"resource_id"`
}

// BookingResponse pairs the booking with its derived financial snapshot.
type BookingResponse struct {
	Booking    *domain.Booking   `json:"booking"`
	Financials domain.Financials `json:"financials"`
}

type AvailabilityResponse struct {
	ResourceID int64         `json:"resource_id"`
	Units      []domain.Unit `json:"units"`
	Free       int           `json:"free"`
	// CanBook is present when the request asked for a unit count.
	CanBook *bool `json:"can_book,omitempty"`
}

func parseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
