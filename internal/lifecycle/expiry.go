package lifecycle

import "time"

// dateOnly truncates a timestamp to its calendar day so that expiry
// math is idempotent across repeated calls on the same day.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ComputeExpiry derives the expiry date for a listing published on
// listedDate. The second return is false when the platform has no rule
// or the rule says the listing never expires.
func (r Rules) ComputeExpiry(platform string, listedDate time.Time) (time.Time, bool) {
	rule, ok := r[platform]
	if !ok || rule.Days == 0 {
		return time.Time{}, false
	}
	return dateOnly(listedDate).AddDate(0, 0, rule.Days), true
}

// DaysUntilExpiry recomputes the expiry from the listed date and
// subtracts today. Negative means the listing already expired. The
// second return is false for platforms that never expire.
//
// Always re-derived rather than cached: the constant cost buys freedom
// from a stored value going stale.
func (r Rules) DaysUntilExpiry(platform string, listedDate, now time.Time) (int, bool) {
	expiry, ok := r.ComputeExpiry(platform, listedDate)
	if !ok {
		return 0, false
	}
	return daysBetween(dateOnly(now), expiry), true
}

// daysBetween returns the whole days from a to b. Both calendar days
// are re-anchored at UTC midnight first, so DST transitions (23h or
// 25h local days) cannot skew the count.
func daysBetween(a, b time.Time) int {
	au := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bu := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bu.Sub(au).Hours() / 24)
}
