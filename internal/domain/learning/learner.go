// Package learning maintains a venue's learned optimal ranges from its
// own hourly performance history.
//
// This is a rolling statistical summary, not a trained model: the hours
// are ranked by a performance proxy, the top quantile defines each
// factor's sweet-spot range, and confidence grows with the number of
// top-quantile hours observed. No convergence guarantee is needed, only
// that confidence rises monotonically as more history accumulates.
package learning

import (
	"math"
	"sort"
	"time"

	"github.com/pulsehq/pulse/internal/domain/model"
	"github.com/pulsehq/pulse/pkg/metrics"
)

const (
	// topQuantile is the share of hours treated as the sweet spot.
	topQuantile = 0.2

	// fullConfidenceHours is how many top-quantile hours amount to full
	// trust in the learned profile. Roughly a month of nightly peaks.
	fullConfidenceHours = 40

	// rangeTrimQuantile trims outliers off each end of the top-quantile
	// values when deriving a factor's [min, max].
	rangeTrimQuantile = 0.1
)

// Learn computes a venue's learning profile from a window of hourly
// performance records. Hours with no occupancy signal are ignored; with
// no usable hours at all the returned profile has zero confidence and
// the scoring path degrades to fully generic.
func Learn(venueID string, hours []model.HourlyPerformance) model.VenueLearningProfile {
	profile := model.VenueLearningProfile{
		VenueID:   venueID,
		Weights:   model.EqualWeights(),
		UpdatedAt: time.Now().UTC(),
	}

	usable := make([]model.HourlyPerformance, 0, len(hours))
	for _, h := range hours {
		if h.AvgOccupancy > 0 {
			usable = append(usable, h)
		}
	}
	profile.DataPointsAnalyzed = len(usable)
	if len(usable) == 0 {
		return profile
	}

	sort.Slice(usable, func(i, j int) bool {
		return performanceProxy(usable[i]) > performanceProxy(usable[j])
	})
	topCount := int(math.Ceil(float64(len(usable)) * topQuantile))
	if topCount < 1 {
		topCount = 1
	}
	top, rest := usable[:topCount], usable[topCount:]

	for _, f := range model.AllFactors() {
		topVals := factorValues(top, f)
		if len(topVals) < 2 {
			continue // too sparse; leave the range invalid so scoring skips it
		}
		lo, hi := trimmedRange(topVals)
		profile.OptimalRanges.SetRange(f, model.OptimalRange{
			Min:        lo,
			Max:        hi,
			Confidence: confidenceFor(len(topVals)),
		})
	}

	profile.Weights = discriminativeWeights(top, rest)
	profile.LearningConfidence = confidenceFor(topCount)
	profile.Benchmarks = benchmarks(top)

	metrics.RecordProfileLearned(profile.LearningConfidence)
	return profile
}

// performanceProxy ranks an hour by how busy it was and how well it held
// its crowd: occupancy scaled by the share of entries not yet exited.
// Both components are monotone in "the night is going well".
func performanceProxy(h model.HourlyPerformance) float64 {
	retained := 1.0
	if h.EntryCount > 0 {
		retained = 1 - float64(h.ExitCount)/float64(h.EntryCount)
		retained = math.Max(0, math.Min(1, retained))
	}
	return h.AvgOccupancy * (0.5 + 0.5*retained)
}

func factorValues(hours []model.HourlyPerformance, f model.Factor) []float64 {
	vals := make([]float64, 0, len(hours))
	for _, h := range hours {
		if v := h.FactorValue(f); v != nil {
			vals = append(vals, *v)
		}
	}
	return vals
}

// trimmedRange returns the central band spanned by the values, trimming
// rangeTrimQuantile off each end so a single outlier hour cannot drag
// the learned range.
func trimmedRange(vals []float64) (lo, hi float64) {
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	cut := int(float64(len(sorted)) * rangeTrimQuantile)
	trimmed := sorted[cut : len(sorted)-cut]
	if len(trimmed) == 0 {
		trimmed = sorted
	}
	return trimmed[0], trimmed[len(trimmed)-1]
}

func confidenceFor(samples int) float64 {
	return math.Min(1, float64(samples)/fullConfidenceHours)
}

// discriminativeWeights weights each factor by how strongly its values
// separate the top-quantile hours from the rest, normalized to sum to 1.
// With no separation signal the weights stay equal.
func discriminativeWeights(top, rest []model.HourlyPerformance) model.Weights {
	const eps = 1e-9

	w := model.Weights{}
	var total float64
	for _, f := range model.AllFactors() {
		topVals := factorValues(top, f)
		restVals := factorValues(rest, f)
		if len(topVals) == 0 || len(restVals) == 0 {
			continue
		}
		all := append(append([]float64{}, topVals...), restVals...)
		spread := stddev(all)
		if spread < eps {
			continue
		}
		separation := math.Abs(mean(topVals)-mean(restVals)) / spread
		w.SetWeight(f, separation)
		total += separation
	}
	if total < eps {
		return model.EqualWeights()
	}
	for _, f := range model.AllFactors() {
		w.SetWeight(f, w.Weight(f)/total)
	}
	return w
}

func benchmarks(top []model.HourlyPerformance) model.Benchmarks {
	b := model.Benchmarks{}
	var occSum float64
	var dwellSum, dwellN int
	for _, h := range top {
		occSum += h.AvgOccupancy
		if h.AvgDwellMinutes != nil {
			dwellSum += *h.AvgDwellMinutes
			dwellN++
		}
	}
	if len(top) > 0 {
		b.AvgOccupancyTop20 = occSum / float64(len(top))
	}
	if dwellN > 0 {
		b.AvgDwellTop20 = float64(dwellSum) / float64(dwellN)
	}
	return b
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func stddev(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	m := mean(vals)
	var sq float64
	for _, v := range vals {
		sq += (v - m) * (v - m)
	}
	return math.Sqrt(sq / float64(len(vals)))
}
