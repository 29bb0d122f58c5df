// Package barday centralizes the operational-day boundary math.
//
// A bar day runs 03:00-03:00 rather than midnight-to-midnight so that
// late-night activity (1-2 AM) is attributed to the prior evening. Every
// component that zeroes counters or windows "today" goes through this
// package instead of reimplementing the hour comparison.
package barday

import "time"

// CutoverHour is the local hour at which one bar day ends and the next
// begins.
const CutoverHour = 3

// Start returns the beginning of the bar day containing now.
// Before 03:00 that is 03:00 of the previous calendar day.
func Start(now time.Time) time.Time {
	day := now
	if now.Hour() < CutoverHour {
		day = now.AddDate(0, 0, -1)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), CutoverHour, 0, 0, 0, now.Location())
}

// HoursSinceStart returns the elapsed fraction of the current bar day.
func HoursSinceStart(now time.Time) float64 {
	return now.Sub(Start(now)).Hours()
}
