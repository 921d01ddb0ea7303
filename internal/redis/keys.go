package redisx

import (
	"fmt"
	"time"
)

const ns = "resvgo:v1"

func KeyResourceSummary(resourceID int64) string {
	return fmt.Sprintf("%s:resource:%d:summary", ns, resourceID)
}

func KeyResourceAvailability(resourceID int64, from, to time.Time) string {
	return fmt.Sprintf("%s:resource:%d:avail:%d:%d", ns, resourceID, from.Unix(), to.Unix())
}

func KeyReport(from, to time.Time, groupBy string) string {
	return fmt.Sprintf("%s:report:%d:%d:%s", ns, from.Unix(), to.Unix(), groupBy)
}

// KeyRateLimitPrefix is the key prefix for a rate-limit scope; the limiter
// appends the per-caller suffix itself.
func KeyRateLimitPrefix(scope string) string {
	return fmt.Sprintf("%s:rl:%s", ns, scope)
}

func ChannelBookingsChanged() string {
	return ns + ":bookings:changed"
}
