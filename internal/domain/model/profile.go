package model

import "time"

// OptimalRange is the band of a factor associated with the best outcomes.
// Confidence reflects how much historical data informed the range, not
// statistical variance.
type OptimalRange struct {
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Confidence float64 `json:"confidence"` // 0..1
}

// Valid reports whether the range can score a value at all.
func (r OptimalRange) Valid() bool {
	return r.Max > r.Min
}

// RangeSet holds one OptimalRange per factor.
type RangeSet struct {
	Sound       OptimalRange `json:"sound"`
	Light       OptimalRange `json:"light"`
	Temperature OptimalRange `json:"temperature"`
	Humidity    OptimalRange `json:"humidity"`
}

// Range returns the range for a factor.
func (s RangeSet) Range(f Factor) OptimalRange {
	switch f {
	case FactorSound:
		return s.Sound
	case FactorLight:
		return s.Light
	case FactorTemperature:
		return s.Temperature
	case FactorHumidity:
		return s.Humidity
	default:
		return OptimalRange{}
	}
}

// SetRange stores the range for a factor.
func (s *RangeSet) SetRange(f Factor, r OptimalRange) {
	switch f {
	case FactorSound:
		s.Sound = r
	case FactorLight:
		s.Light = r
	case FactorTemperature:
		s.Temperature = r
	case FactorHumidity:
		s.Humidity = r
	}
}

// Weights holds the per-factor contribution to the weighted average.
// A populated set sums to roughly 1.0.
type Weights struct {
	Sound       float64 `json:"sound"`
	Light       float64 `json:"light"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
}

// EqualWeights returns the neutral 0.25-each weighting.
func EqualWeights() Weights {
	return Weights{Sound: 0.25, Light: 0.25, Temperature: 0.25, Humidity: 0.25}
}

// Weight returns the weight for a factor.
func (w Weights) Weight(f Factor) float64 {
	switch f {
	case FactorSound:
		return w.Sound
	case FactorLight:
		return w.Light
	case FactorTemperature:
		return w.Temperature
	case FactorHumidity:
		return w.Humidity
	default:
		return 0
	}
}

// SetWeight stores the weight for a factor.
func (w *Weights) SetWeight(f Factor, v float64) {
	switch f {
	case FactorSound:
		w.Sound = v
	case FactorLight:
		w.Light = v
	case FactorTemperature:
		w.Temperature = v
	case FactorHumidity:
		w.Humidity = v
	}
}

// Benchmarks summarize the venue's own best hours.
type Benchmarks struct {
	AvgDwellTop20     float64  `json:"avg_dwell_top20"`     // minutes
	AvgOccupancyTop20 float64  `json:"avg_occupancy_top20"` // guests
	AvgRevenueTop20   *float64 `json:"avg_revenue_top20,omitempty"`
}

// VenueLearningProfile is the learned scoring state for one venue.
// Recomputed periodically from trailing hourly performance records; the
// scoring path only ever reads a complete snapshot of it.
type VenueLearningProfile struct {
	VenueID            string     `json:"venue_id"`
	OptimalRanges      RangeSet   `json:"optimal_ranges"`
	Weights            Weights    `json:"weights"`
	LearningConfidence float64    `json:"learning_confidence"` // 0..1
	DataPointsAnalyzed int        `json:"data_points_analyzed"`
	Benchmarks         Benchmarks `json:"benchmarks"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// HourlyPerformance is one hour of aggregated venue history fed to the
// range learner.
type HourlyPerformance struct {
	HourStart       time.Time `json:"hour_start"`
	Sound           *float64  `json:"sound,omitempty"`
	Light           *float64  `json:"light,omitempty"`
	Temperature     *float64  `json:"temperature,omitempty"`
	Humidity        *float64  `json:"humidity,omitempty"`
	AvgOccupancy    float64   `json:"avg_occupancy"`
	AvgDwellMinutes *int      `json:"avg_dwell_minutes,omitempty"`
	EntryCount      int       `json:"entry_count"` // entries during the hour
	ExitCount       int       `json:"exit_count"`  // exits during the hour
}

// FactorValue returns the hour's average for a factor, or nil.
func (h HourlyPerformance) FactorValue(f Factor) *float64 {
	switch f {
	case FactorSound:
		return h.Sound
	case FactorLight:
		return h.Light
	case FactorTemperature:
		return h.Temperature
	case FactorHumidity:
		return h.Humidity
	default:
		return nil
	}
}
