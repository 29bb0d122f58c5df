package model

import "time"

// Stage is the lifecycle phase of a venue's learning profile.
type Stage string

// Lifecycle stages with their confidence thresholds.
const (
	StageLearning  Stage = "learning"  // confidence < 0.3
	StageRefining  Stage = "refining"  // 0.3 <= confidence < 0.85
	StageOptimized Stage = "optimized" // confidence >= 0.85

	RefiningThreshold  = 0.3
	OptimizedThreshold = 0.85
)

// StageFor classifies a learning confidence into its lifecycle stage.
func StageFor(confidence float64) Stage {
	switch {
	case confidence >= OptimizedThreshold:
		return StageOptimized
	case confidence >= RefiningThreshold:
		return StageRefining
	default:
		return StageLearning
	}
}

// FactorScore is the per-factor detail inside a score breakdown.
// Nil scores mean the factor or range was unavailable.
type FactorScore struct {
	Factor  string  `json:"factor"`
	Generic *int    `json:"generic,omitempty"`
	Learned *int    `json:"learned,omitempty"`
	Weight  float64 `json:"weight"`
}

// ScoreBreakdown explains how the blended score was produced.
type ScoreBreakdown struct {
	GenericScore  *int          `json:"generic_score,omitempty"`
	LearnedScore  *int          `json:"learned_score,omitempty"`
	GenericWeight float64       `json:"generic_weight"`
	LearnedWeight float64       `json:"learned_weight"`
	FactorScores  []FactorScore `json:"factor_scores"`
}

// PulseScoreResult is the blended atmosphere score for one reading.
// Score is nil when no factor value was available; a nil score is the
// truthful answer, never a default.
type PulseScoreResult struct {
	Score         *int           `json:"score"` // 0..100
	Confidence    float64        `json:"confidence"`
	Status        Stage          `json:"status"`
	StatusMessage string         `json:"status_message"`
	Breakdown     ScoreBreakdown `json:"breakdown"`
	ComputedAt    time.Time      `json:"computed_at"`
}

// Trend classifies the crowd direction from the entry/exit ratio.
type Trend string

// Crowd trend values.
const (
	TrendGrowing   Trend = "growing"
	TrendStable    Trend = "stable"
	TrendShrinking Trend = "shrinking"
)

// RetentionMetrics are pure counter arithmetic. Unlike dwell time these
// are measurements, not estimates: every field is exact given the
// counters, with no fallback involved.
type RetentionMetrics struct {
	RetentionRate  int     `json:"retention_rate"`   // percent of today's entries still inside
	TurnoverRate   float64 `json:"turnover_rate"`    // exits per hour per current guest
	EntryExitRatio float64 `json:"entry_exit_ratio"` // todayEntries / todayExits
	ExitsPerHour   float64 `json:"exits_per_hour"`
	CrowdTrend     Trend   `json:"crowd_trend"`
}

// DwellEstimate is the average-stay estimate plus the algorithm that
// produced it. Minutes is nil when no sane estimate exists.
type DwellEstimate struct {
	Minutes *int   `json:"minutes"`
	Method  string `json:"method"` // occupancy_integration, littles_law, unavailable
}

// Dwell estimate method names.
const (
	DwellMethodIntegration = "occupancy_integration"
	DwellMethodLittlesLaw  = "littles_law"
	DwellMethodUnavailable = "unavailable"
)
