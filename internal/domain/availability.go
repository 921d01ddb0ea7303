package domain

import "sort"

// AvailableUnits returns the resource's units minus the occupied set,
// preserving ascending unit id order.
func AvailableUnits(units []Unit, occupied map[int64]struct{}) []Unit {
	out := make([]Unit, 0, len(units))
	for _, u := range units {
		if _, taken := occupied[u.ID]; !taken {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SelectUnits picks n units from the available set, lowest unit id first, so
// repeated identical requests claim the same units. Returns nil when fewer
// than n are available.
func SelectUnits(available []Unit, n int) []Unit {
	if n <= 0 || len(available) < n {
		return nil
	}
	sorted := make([]Unit, len(available))
	copy(sorted, available)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return sorted[:n]
}

// GuestsFit checks the creation-time capacity rule:
// guests <= maxGuestsPerUnit * unitCount.
func GuestsFit(guests, maxGuestsPerUnit, unitCount int) bool {
	return guests <= maxGuestsPerUnit*unitCount
}
