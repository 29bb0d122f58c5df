package scoring

import (
	"math"

	"github.com/pulsehq/pulse/internal/domain/model"
)

// Tolerance constants for the linear falloff outside an optimal range.
// Generic industry ranges are wide and forgiving; a venue's own learned
// range is tighter and punishes deviation faster.
const (
	GenericTolerance = 0.5
	LearnedTolerance = 0.2

	maxScoreValue = 100
)

// ScoreFactor scores one value against one optimal range.
// Inside [min, max] the score is exactly 100; outside it falls off
// linearly within tolerance*(max-min) and clamps at 0. Callers must skip
// missing values entirely rather than zero-filling them.
func ScoreFactor(value float64, r model.OptimalRange, tolerance float64) int {
	if !r.Valid() || tolerance <= 0 {
		return 0
	}
	if value >= r.Min && value <= r.Max {
		return maxScoreValue
	}
	deviation := r.Min - value
	if value > r.Max {
		deviation = value - r.Max
	}
	band := (r.Max - r.Min) * tolerance
	score := int(math.Round(maxScoreValue - deviation/band*maxScoreValue))
	return clampScore(score)
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > maxScoreValue {
		return maxScoreValue
	}
	return s
}

// DefaultGenericRanges returns the fixed industry baseline ranges used
// when a venue has no learned profile. Temperatures are Fahrenheit,
// matching the device payload.
func DefaultGenericRanges() model.RangeSet {
	return model.RangeSet{
		Sound:       model.OptimalRange{Min: 65, Max: 85, Confidence: 1},
		Light:       model.OptimalRange{Min: 50, Max: 300, Confidence: 1},
		Temperature: model.OptimalRange{Min: 68, Max: 74, Confidence: 1},
		Humidity:    model.OptimalRange{Min: 40, Max: 55, Confidence: 1},
	}
}
