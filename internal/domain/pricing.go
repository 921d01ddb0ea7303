package domain

import "time"

// DefaultHoursPerDay is the assumed hours of event service per day for
// per-hour pricing. Overridable through config.
const DefaultHoursPerDay = 8

// Financials is a booking's derived financial snapshot. All amounts are in
// integer minor currency units; formatting happens at the boundary.
type Financials struct {
	TotalBillCents     int64 `json:"total_bill_cents"`
	TotalPaymentsCents int64 `json:"total_payments_cents"`
	BalanceCents       int64 `json:"balance_cents"`
	BaseCostCents      int64 `json:"base_cost_cents"`
	DiscountCents      int64 `json:"discount_cents"`
	StayDays           int   `json:"stay_days"`
	Nights             int   `json:"nights"`
}

// StayDays is the inclusive day count of a range:
// floor(end-start in days) + 1.
func StayDays(starts, ends time.Time) int {
	if ends.Before(starts) {
		return 0
	}
	return int(ends.Sub(starts)/(24*time.Hour)) + 1
}

// Nights is stayDays - 1, floored at one so a same-day lodging booking is
// still charged one night.
func Nights(stayDays int) int {
	if n := stayDays - 1; n > 1 {
		return n
	}
	return 1
}

// BaseCostCents computes the base cost for one pricing mode. The switch is
// exhaustive over PriceUnit; an unknown unit prices as zero and is caught by
// validation at resource creation.
func BaseCostCents(unit PriceUnit, priceCents int64, stayDays, guests, unitCount, hoursPerDay int) int64 {
	switch unit {
	case PerNight:
		return priceCents * int64(Nights(stayDays)) * int64(unitCount)
	case PerHour:
		return priceCents * int64(stayDays) * int64(hoursPerDay) * int64(unitCount)
	case PerPerson:
		return priceCents * int64(guests) * int64(unitCount)
	}
	return 0
}

// ComputeFinancials derives the financial snapshot for a booking. When the
// booking lacks a pricing snapshot it falls back to the live resource and the
// second return value is true; callers log the fallback for audit.
//
// A discount is modeled as a payment-equivalent credit added to total
// payments, not subtracted from the bill, so both totals stay independently
// auditable.
func ComputeFinancials(b *Booking, live *Resource, hoursPerDay int) (Financials, bool) {
	if hoursPerDay <= 0 {
		hoursPerDay = DefaultHoursPerDay
	}

	priceCents := b.PriceCents
	priceUnit := b.PriceUnit
	fellBack := false
	if !b.HasSnapshot() && live != nil {
		priceCents = live.PriceCents
		priceUnit = live.PriceUnit
		fellBack = true
	}

	days := StayDays(b.Starts, b.Ends)
	unitCount := len(b.Units)

	base := BaseCostCents(priceUnit, priceCents, days, b.Guests, unitCount, hoursPerDay)
	discount := base * int64(b.DiscountPct) / 100

	var billed int64
	for _, bill := range b.Bills {
		billed += bill.AmountCents
	}

	var paid int64
	for _, p := range b.Payments {
		paid += p.AmountCents
	}

	f := Financials{
		BaseCostCents:      base,
		DiscountCents:      discount,
		TotalBillCents:     base + billed,
		TotalPaymentsCents: paid + discount,
		StayDays:           days,
		Nights:             Nights(days),
	}
	f.BalanceCents = f.TotalBillCents - f.TotalPaymentsCents

	return f, fellBack
}
