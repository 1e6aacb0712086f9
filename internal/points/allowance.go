package points

import "time"

// dayBounds returns the start of the calendar day containing now in loc and
// the start of the next one, both in UTC.
func dayBounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}

func remaining(limit, sent int) int {
	if sent >= limit {
		return 0
	}
	return limit - sent
}
