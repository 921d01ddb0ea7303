package domain

import (
	"sort"
	"strconv"
)

type GroupBy string

const (
	GroupByStatus GroupBy = "status"
	GroupByGuest  GroupBy = "guest"
	GroupByUnit   GroupBy = "unit"
)

func (g GroupBy) Valid() bool {
	switch g {
	case GroupByStatus, GroupByGuest, GroupByUnit:
		return true
	}
	return false
}

// statusDisplayOrder is the fixed enumeration order for status grouping.
var statusDisplayOrder = []BookingStatus{
	StatusConfirmed,
	StatusPending,
	StatusCompleted,
	StatusCancelled,
}

type ReportGroup struct {
	Key      string     `json:"key"`
	Bookings []*Booking `json:"bookings"`
}

// BucketSummary sums financials() output across a bucket's bookings.
type BucketSummary struct {
	Count          int   `json:"count"`
	TotalPaidCents int64 `json:"total_paid_cents"`
	TotalOwedCents int64 `json:"total_owed_cents"`
	BalanceCents   int64 `json:"balance_cents"`
}

func (s *BucketSummary) add(f Financials) {
	s.Count++
	s.TotalPaidCents += f.TotalPaymentsCents
	s.TotalOwedCents += f.TotalBillCents
	s.BalanceCents += f.BalanceCents
}

type Report struct {
	GroupBy   GroupBy       `json:"group_by"`
	Groups    []ReportGroup `json:"groups"`
	Active    BucketSummary `json:"active"`
	Cancelled BucketSummary `json:"cancelled"`
}

// Aggregate groups bookings and builds the two-bucket financial summary.
// Status groups come out in the fixed display order; guest and unit groups in
// ascending lexical key order. A booking claiming several units appears once
// under each unit; it appears exactly once in every other grouping and in the
// summary buckets. The resources map supplies live pricing for bookings
// without a snapshot.
func Aggregate(bookings []*Booking, by GroupBy, resources map[int64]*Resource, hoursPerDay int) Report {
	rep := Report{GroupBy: by}

	byKey := make(map[string][]*Booking)
	for _, b := range bookings {
		switch by {
		case GroupByStatus:
			byKey[string(b.Status)] = append(byKey[string(b.Status)], b)
		case GroupByGuest:
			key := strconv.FormatInt(b.UserID, 10)
			byKey[key] = append(byKey[key], b)
		case GroupByUnit:
			for _, u := range b.Units {
				byKey[u.Name] = append(byKey[u.Name], b)
			}
		}

		f, _ := ComputeFinancials(b, resources[b.ResourceID], hoursPerDay)
		if b.Status == StatusCancelled {
			rep.Cancelled.add(f)
		} else {
			rep.Active.add(f)
		}
	}

	if by == GroupByStatus {
		for _, st := range statusDisplayOrder {
			if bs, ok := byKey[string(st)]; ok {
				rep.Groups = append(rep.Groups, ReportGroup{Key: string(st), Bookings: bs})
			}
		}
		return rep
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rep.Groups = append(rep.Groups, ReportGroup{Key: k, Bookings: byKey[k]})
	}

	return rep
}
