// Package retention derives guest-retention metrics from entry/exit
// counters. Everything here is plain arithmetic over measured counters:
// no estimation and no fallback, which makes these the only metrics in
// the system that are exact rather than inferred. Dwell time is an
// estimate; retention is a measurement.
package retention

import (
	"math"

	"github.com/pulsehq/pulse/internal/domain/model"
)

// Crowd trend thresholds on the entry/exit ratio.
const (
	growingRatio   = 1.2
	shrinkingRatio = 0.8

	// ratio stand-ins when exits are zero: a venue that has admitted
	// guests but released none is maximally "growing" without dividing
	// by zero.
	ratioAllEntries = 99
	ratioNoTraffic  = 1
)

// Compute derives retention metrics for the current bar day. current is
// the occupancy right now, todayEntries/todayExits are bar-day deltas of
// the cumulative counters, hoursOpen is time since the bar-day start.
// The second result is false when no guest has entered yet, in which
// case there is nothing to measure.
func Compute(current, todayEntries, todayExits int, hoursOpen float64) (model.RetentionMetrics, bool) {
	if todayEntries <= 0 && todayExits <= 0 {
		return model.RetentionMetrics{CrowdTrend: model.TrendStable, EntryExitRatio: ratioNoTraffic}, false
	}

	m := model.RetentionMetrics{}

	if todayEntries > 0 {
		m.RetentionRate = int(math.Round(float64(current) / float64(todayEntries) * 100))
	}

	if hoursOpen > 0 {
		m.ExitsPerHour = float64(todayExits) / hoursOpen
	}
	if current > 0 {
		m.TurnoverRate = round2(m.ExitsPerHour / float64(current))
	}

	switch {
	case todayExits > 0:
		m.EntryExitRatio = round2(float64(todayEntries) / float64(todayExits))
	case todayEntries > 0:
		m.EntryExitRatio = ratioAllEntries
	default:
		m.EntryExitRatio = ratioNoTraffic
	}

	switch {
	case m.EntryExitRatio > growingRatio:
		m.CrowdTrend = model.TrendGrowing
	case m.EntryExitRatio < shrinkingRatio:
		m.CrowdTrend = model.TrendShrinking
	default:
		m.CrowdTrend = model.TrendStable
	}

	return m, true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
