package learning

import (
	"sort"
	"time"

	"github.com/pulsehq/pulse/internal/domain/dwell"
	"github.com/pulsehq/pulse/internal/domain/model"
)

// BuildHourly aggregates raw readings into the hourly performance
// records the learner consumes. Hours are truncated in UTC; entry and
// exit counts are deltas of the cumulative counters within each hour.
func BuildHourly(readings []model.SensorReading) []model.HourlyPerformance {
	if len(readings) == 0 {
		return nil
	}

	ordered := make([]model.SensorReading, len(readings))
	copy(ordered, readings)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Timestamp.Before(ordered[j].Timestamp) })

	byHour := make(map[time.Time][]model.SensorReading)
	for _, r := range ordered {
		h := r.Timestamp.UTC().Truncate(time.Hour)
		byHour[h] = append(byHour[h], r)
	}

	hourStarts := make([]time.Time, 0, len(byHour))
	for h := range byHour {
		hourStarts = append(hourStarts, h)
	}
	sort.Slice(hourStarts, func(i, j int) bool { return hourStarts[i].Before(hourStarts[j]) })

	records := make([]model.HourlyPerformance, 0, len(hourStarts))
	for _, start := range hourStarts {
		records = append(records, summarizeHour(start, byHour[start]))
	}
	return records
}

func summarizeHour(start time.Time, readings []model.SensorReading) model.HourlyPerformance {
	rec := model.HourlyPerformance{HourStart: start}

	rec.Sound = meanFactor(readings, model.FactorSound)
	rec.Light = meanFactor(readings, model.FactorLight)
	rec.Temperature = meanFactor(readings, model.FactorTemperature)
	rec.Humidity = meanFactor(readings, model.FactorHumidity)

	var occSum float64
	var occN int
	var first, last *model.Occupancy
	for i := range readings {
		occ := readings[i].Occupancy
		if occ == nil {
			continue
		}
		occSum += float64(occ.Current)
		occN++
		if first == nil {
			first = occ
		}
		last = occ
	}
	if occN > 0 {
		rec.AvgOccupancy = occSum / float64(occN)
	}
	if first != nil && last != nil {
		rec.EntryCount = counterDelta(first.Entries, last.Entries)
		rec.ExitCount = counterDelta(first.Exits, last.Exits)
	}

	rec.AvgDwellMinutes = dwell.FromLittlesLaw(rec.AvgOccupancy, rec.EntryCount, 1)
	return rec
}

// counterDelta handles a cumulative counter that reset mid-hour (device
// reboot): the post-reset value is the best available delta.
func counterDelta(first, last int) int {
	if last < first {
		return last
	}
	return last - first
}

func meanFactor(readings []model.SensorReading, f model.Factor) *float64 {
	var sum float64
	var n int
	for _, r := range readings {
		if v := r.FactorValue(f); v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	m := sum / float64(n)
	return &m
}
