package model

// DayStats is the per-calendar-day summary derived from raw readings.
// Aggregates are always recomputed from the raw stream, never mutated
// incrementally.
type DayStats struct {
	Date      string   `json:"date"` // 2006-01-02
	Guests    int      `json:"guests"`
	AvgSound  *float64 `json:"avg_sound,omitempty"`
	AvgLight  *float64 `json:"avg_light,omitempty"`
	PeakCrowd int      `json:"peak_crowd"`
	PeakHour  *int     `json:"peak_hour,omitempty"` // 0..23
	IsBest    bool     `json:"is_best"`
	IsWorst   bool     `json:"is_worst"`
}

// Bucket is one bin of the sweet-spot analysis: readings whose factor
// value fell in [Lo, Hi) with their mean score.
type Bucket struct {
	Label     string  `json:"label"`
	Lo        float64 `json:"lo"`
	Hi        float64 `json:"hi"`
	AvgScore  float64 `json:"avg_score"`
	Samples   int     `json:"samples"`
	IsOptimal bool    `json:"is_optimal"`
}

// HeatmapCell is average occupancy for one (day-of-week, hour) slot,
// with intensity normalized 0-100 against the grid's maximum cell.
type HeatmapCell struct {
	Weekday      int     `json:"weekday"` // time.Weekday numbering, Sunday = 0
	Hour         int     `json:"hour"`    // 0..23
	AvgOccupancy float64 `json:"avg_occupancy"`
	Intensity    int     `json:"intensity"`
	Samples      int     `json:"samples"`
}

// HistorySummary bundles every aggregate derived from a reading window.
type HistorySummary struct {
	Days         []DayStats    `json:"days"`
	SoundBuckets []Bucket      `json:"sound_buckets"`
	LightBuckets []Bucket      `json:"light_buckets"`
	CrowdBuckets []Bucket      `json:"crowd_buckets"`
	Heatmap      []HeatmapCell `json:"heatmap"`
}
