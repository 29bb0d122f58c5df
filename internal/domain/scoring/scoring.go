// Package scoring computes the blended atmosphere score for a reading.
package scoring

import (
	"fmt"
	"math"
	"time"

	"github.com/pulsehq/pulse/internal/domain/model"
	"github.com/pulsehq/pulse/pkg/metrics"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithGenericRanges overrides the industry baseline ranges.
func WithGenericRanges(ranges model.RangeSet) Option {
	return func(e *Engine) {
		e.generic = ranges
	}
}

// WithGenericWeights overrides the factor weights used for the generic
// score. Weights for the learned score always come from the profile.
func WithGenericWeights(w model.Weights) Option {
	return func(e *Engine) {
		e.genericWeights = w
	}
}

// Engine blends a generic industry score with a venue-learned score by
// the profile's learning confidence. Pure computation over the reading
// and a profile snapshot; no side effects beyond metrics.
type Engine struct {
	generic        model.RangeSet
	genericWeights model.Weights
}

// NewEngine creates a scoring engine with configuration options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		generic:        DefaultGenericRanges(),
		genericWeights: model.EqualWeights(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Score computes the PulseScoreResult for a reading against a profile
// snapshot. The profile may be nil (no learning yet). The second result
// is false when no factor value was available at all; the returned
// result then carries a nil score with the status still classified.
func (e *Engine) Score(r model.SensorReading, profile *model.VenueLearningProfile) (model.PulseScoreResult, bool) {
	confidence := 0.0
	if profile != nil {
		confidence = clamp01(profile.LearningConfidence)
	}

	generic, genericOK := e.weightedScore(r, e.generic, e.genericWeights, GenericTolerance)
	var (
		learned   int
		learnedOK bool
	)
	if profile != nil && confidence > 0 {
		learned, learnedOK = e.weightedScore(r, profile.OptimalRanges, profile.Weights, LearnedTolerance)
	}

	result := model.PulseScoreResult{
		Confidence:    confidence,
		Status:        model.StageFor(confidence),
		StatusMessage: statusMessage(confidence),
		Breakdown: model.ScoreBreakdown{
			GenericWeight: 1 - confidence,
			LearnedWeight: confidence,
			FactorScores:  e.factorBreakdown(r, profile),
		},
		ComputedAt: time.Now().UTC(),
	}

	if !genericOK {
		// No factor data at all; a fabricated default would be worse
		// than admitting there is nothing to score.
		metrics.RecordScoreUnavailable()
		return result, false
	}

	result.Breakdown.GenericScore = intPtr(generic)
	final := generic
	if learnedOK {
		result.Breakdown.LearnedScore = intPtr(learned)
		final = int(math.Round(float64(generic)*(1-confidence) + float64(learned)*confidence))
	}
	final = clampScore(final)
	result.Score = intPtr(final)
	metrics.RecordScoreComputed(float64(final))
	return result, true
}

// weightedScore averages the per-factor scores over the factors present
// in the reading, renormalizing weights over that subset. The second
// result is false when no factor was scorable.
func (e *Engine) weightedScore(r model.SensorReading, ranges model.RangeSet, weights model.Weights, tolerance float64) (int, bool) {
	var sum, weightSum float64
	for _, f := range model.AllFactors() {
		v := r.FactorValue(f)
		if v == nil {
			continue
		}
		rng := ranges.Range(f)
		if !rng.Valid() {
			continue
		}
		w := weights.Weight(f)
		if w <= 0 {
			continue
		}
		sum += float64(ScoreFactor(*v, rng, tolerance)) * w
		weightSum += w
	}
	if weightSum == 0 {
		return 0, false
	}
	return clampScore(int(math.Round(sum / weightSum))), true
}

// factorBreakdown records each present factor's generic and learned
// scores for the result's breakdown section.
func (e *Engine) factorBreakdown(r model.SensorReading, profile *model.VenueLearningProfile) []model.FactorScore {
	scores := make([]model.FactorScore, 0, len(model.AllFactors()))
	for _, f := range model.AllFactors() {
		v := r.FactorValue(f)
		if v == nil {
			continue
		}
		fs := model.FactorScore{Factor: f.String(), Weight: e.genericWeights.Weight(f)}
		if rng := e.generic.Range(f); rng.Valid() {
			fs.Generic = intPtr(ScoreFactor(*v, rng, GenericTolerance))
		}
		if profile != nil && profile.LearningConfidence > 0 {
			fs.Weight = profile.Weights.Weight(f)
			if rng := profile.OptimalRanges.Range(f); rng.Valid() {
				fs.Learned = intPtr(ScoreFactor(*v, rng, LearnedTolerance))
			}
		}
		scores = append(scores, fs)
	}
	return scores
}

func statusMessage(confidence float64) string {
	pct := int(math.Round(confidence * 100))
	switch model.StageFor(confidence) {
	case model.StageOptimized:
		return fmt.Sprintf("Tuned to your venue (%d%% calibrated)", pct)
	case model.StageRefining:
		return fmt.Sprintf("Refining your venue profile (%d%% calibrated)", pct)
	default:
		return fmt.Sprintf("Learning your venue (%d%% calibrated)", pct)
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func intPtr(v int) *int { return &v }
