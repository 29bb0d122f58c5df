// Package dwell estimates average guest stay duration from occupancy
// and cumulative entry counters.
//
// Two algorithms are provided. Occupancy integration is preferred: it
// integrates guest-hours over a time-ordered snapshot series. Little's
// Law is the coarse fallback when only aggregate occupancy and entry
// counts exist for a period. Both are gated by sanity bands; a result
// outside its band means bad or sparse data and is reported as nil
// rather than surfaced.
package dwell

import (
	"math"
	"sort"
	"time"

	"github.com/pulsehq/pulse/pkg/metrics"
)

// Sanity bands in minutes. The integration method sees finer-grained
// data and is trusted over a wider band than the Little's Law fallback.
const (
	IntegrationMinMinutes = 5
	IntegrationMaxMinutes = 240
	LittlesLawMinMinutes  = 15
	LittlesLawMaxMinutes  = 180

	minutesPerHour = 60

	// staleGap bounds the final partial interval from the last snapshot
	// to "now". A longer gap means the sensor went offline and the tail
	// must not be counted as continuously occupied time.
	staleGap = 2 * time.Hour
)

// Snapshot is one occupancy observation inside the current bar day.
type Snapshot struct {
	At        time.Time
	Occupancy int
}

// FromSnapshots estimates average stay minutes by trapezoidal
// integration of occupancy over the snapshot series. Requires at least
// two snapshots and a positive entry count for the day; returns nil
// otherwise, and nil again when the estimate falls outside the sanity
// band. todayEntries of zero with occupancy present usually means a
// counter reset mid-session; that is an unavailable answer, not a zero.
func FromSnapshots(snapshots []Snapshot, todayEntries int, now time.Time) *int {
	if len(snapshots) < 2 || todayEntries <= 0 {
		return nil
	}

	ordered := make([]Snapshot, len(snapshots))
	copy(ordered, snapshots)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].At.Before(ordered[j].At) })

	var guestHours float64
	for i := 0; i < len(ordered)-1; i++ {
		dt := ordered[i+1].At.Sub(ordered[i].At).Hours()
		if dt <= 0 {
			continue
		}
		avg := float64(ordered[i].Occupancy+ordered[i+1].Occupancy) / 2
		guestHours += avg * dt
	}

	last := ordered[len(ordered)-1]
	if gap := now.Sub(last.At); gap > 0 && gap < staleGap {
		guestHours += float64(last.Occupancy) * gap.Hours()
	}

	mins := int(math.Round(guestHours / float64(todayEntries) * minutesPerHour))
	return gate(mins, IntegrationMinMinutes, IntegrationMaxMinutes)
}

// FromLittlesLaw estimates average stay minutes as W = L / lambda:
// average occupancy divided by the arrival rate over the period.
// Returns nil for unusable inputs or an estimate outside [15, 180].
func FromLittlesLaw(avgOccupancy float64, totalEntries int, periodHours float64) *int {
	if totalEntries <= 0 || periodHours <= 0 || avgOccupancy <= 0 {
		return nil
	}
	arrivalRate := float64(totalEntries) / periodHours
	mins := int(math.Round(avgOccupancy / arrivalRate * minutesPerHour))
	return gate(mins, LittlesLawMinMinutes, LittlesLawMaxMinutes)
}

// gate discards implausible estimates. The anomaly is counted so sensor
// problems show up in metrics without a fabricated number reaching guests.
func gate(mins, lo, hi int) *int {
	if mins < lo || mins > hi {
		metrics.RecordDwellGated()
		return nil
	}
	return &mins
}
