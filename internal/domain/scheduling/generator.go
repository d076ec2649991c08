// Package scheduling expands recurrence rules into concrete shifts,
// detects temporal conflicts against a caregiver's existing schedule, and
// projects authorized-unit consumption.
package scheduling

import (
	"fmt"
	"sort"
	"time"
)

// GenerateDates expands (startDate, weeks, weekdays) into the ordered list
// of concrete dates to schedule. Weeks are anchored to the Sunday of
// startDate's week: for each week, one date is emitted per selected weekday
// (0=Sunday..6=Saturday) falling within that week. Dates before startDate
// are skipped, so a Monday start with Monday+Wednesday selected begins that
// same week. Deterministic: identical inputs always yield the identical
// sequence.
func GenerateDates(startDate time.Time, weeks int, weekdays []int) []time.Time {
	days := append([]int(nil), weekdays...)
	sort.Ints(days)

	start := time.Date(startDate.Year(), startDate.Month(), startDate.Day(), 0, 0, 0, 0, time.UTC)
	weekStart := start.AddDate(0, 0, -int(start.Weekday()))

	var out []time.Time
	for w := 0; w < weeks; w++ {
		for _, d := range days {
			date := weekStart.AddDate(0, 0, w*7+d)
			if date.Before(start) {
				continue
			}
			out = append(out, date)
		}
	}
	return out
}

// ParseTimeOfDay parses an "HH:MM" wall-clock string.
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	return t.Hour(), t.Minute(), nil
}

// At combines a date with a wall-clock time in UTC.
func At(date time.Time, hour, minute int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, time.UTC)
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching boundaries do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
