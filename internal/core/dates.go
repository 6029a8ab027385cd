package core

import "time"

// DateOnly truncates t to midnight UTC. All engine dates are day-granular.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthKey returns the "YYYY-MM" grouping key for a date.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// DaysInMonth returns the number of days in the month containing t.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddMonthsClamped advances start by n calendar months, anchoring to the
// start date's day-of-month and clamping to the last valid day of shorter
// months. Jan 31 + 1 month is Feb 28 (29 in leap years), + 2 months is
// Mar 31 again: the anchor never drifts.
func AddMonthsClamped(start time.Time, n int) time.Time {
	start = DateOnly(start)
	if n == 0 {
		return start
	}
	anchorDay := start.Day()
	y, m, _ := start.Date()
	// First-of-month arithmetic avoids time.AddDate's overflow into the
	// following month (Jan 31 + 1 month would become Mar 2/3).
	first := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	day := anchorDay
	if last := DaysInMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

// InRange reports whether t falls inside [start, end] at day granularity.
func InRange(t, start, end time.Time) bool {
	d := DateOnly(t)
	return !d.Before(DateOnly(start)) && !d.After(DateOnly(end))
}
