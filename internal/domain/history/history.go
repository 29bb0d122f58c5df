// Package history recomputes day summaries, sweet-spot buckets and
// occupancy heatmaps from a raw reading window. Aggregates are always
// derived from the raw stream; nothing here mutates state between calls,
// so a missed refresh can never leave drifted numbers behind.
package history

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/pulsehq/pulse/internal/domain/model"
	"github.com/pulsehq/pulse/internal/domain/scoring"
)

// Bucket widths for the sweet-spot analysis.
const (
	soundBucketWidth = 5  // dB
	lightBucketWidth = 50 // lux
	crowdBucketWidth = 20 // guests

	// minOptimalSamples is how many readings a bucket needs before it
	// may be flagged as the sweet spot. A thinner bucket's mean is one
	// or two samples of noise; until some bucket reaches this floor the
	// window flags no sweet spot at all.
	minOptimalSamples = 3

	// minRankedDays is how many days with guests are needed before a
	// best/worst day is marked at all.
	minRankedDays = 2

	dateLayout = "2006-01-02"
)

// ScoreFunc scores a reading for bucket analysis; nil means unscorable.
type ScoreFunc func(model.SensorReading) *int

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithScoreFunc overrides the scoring function used for sweet-spot
// buckets. The default scores against the generic industry ranges.
func WithScoreFunc(fn ScoreFunc) Option {
	return func(a *Aggregator) {
		if fn != nil {
			a.score = fn
		}
	}
}

// Aggregator groups raw readings into derived history aggregates.
type Aggregator struct {
	score ScoreFunc
}

// New creates an aggregator with configuration options.
func New(opts ...Option) *Aggregator {
	engine := scoring.NewEngine()
	a := &Aggregator{
		score: func(r model.SensorReading) *int {
			result, ok := engine.Score(r, nil)
			if !ok {
				return nil
			}
			return result.Score
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate computes the full history summary for a reading window.
func (a *Aggregator) Aggregate(readings []model.SensorReading) model.HistorySummary {
	ordered := make([]model.SensorReading, len(readings))
	copy(ordered, readings)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Timestamp.Before(ordered[j].Timestamp) })

	return model.HistorySummary{
		Days:         a.dayStats(ordered),
		SoundBuckets: a.buckets(ordered, model.FactorSound, soundBucketWidth, "dB"),
		LightBuckets: a.buckets(ordered, model.FactorLight, lightBucketWidth, "lx"),
		CrowdBuckets: a.crowdBuckets(ordered),
		Heatmap:      heatmap(ordered),
	}
}

// dayStats summarizes each calendar day and marks the best and worst
// days by guest count. Days without any counted guest never rank,
// ranking needs at least two qualifying days, and a flat window where
// every qualifying day ties marks neither flag.
func (a *Aggregator) dayStats(ordered []model.SensorReading) []model.DayStats {
	byDay := make(map[string][]model.SensorReading)
	var dayKeys []string
	for _, r := range ordered {
		key := r.Timestamp.UTC().Format(dateLayout)
		if _, seen := byDay[key]; !seen {
			dayKeys = append(dayKeys, key)
		}
		byDay[key] = append(byDay[key], r)
	}

	days := make([]model.DayStats, 0, len(dayKeys))
	for _, key := range dayKeys {
		days = append(days, summarizeDay(key, byDay[key]))
	}

	bestIdx, worstIdx, ranked := -1, -1, 0
	for i, d := range days {
		if d.Guests <= 0 {
			continue
		}
		ranked++
		if bestIdx < 0 || d.Guests > days[bestIdx].Guests {
			bestIdx = i
		}
		if worstIdx < 0 || d.Guests < days[worstIdx].Guests {
			worstIdx = i
		}
	}
	if ranked >= minRankedDays && bestIdx != worstIdx {
		days[bestIdx].IsBest = true
		days[worstIdx].IsWorst = true
	}
	return days
}

func summarizeDay(key string, readings []model.SensorReading) model.DayStats {
	d := model.DayStats{Date: key}

	d.AvgSound = meanPositive(readings, model.FactorSound)
	d.AvgLight = meanPositive(readings, model.FactorLight)

	var firstEntries, lastEntries int
	var haveCounters bool
	hourPeaks := map[int]int{}
	for _, r := range readings {
		occ := r.Occupancy
		if occ == nil {
			continue
		}
		if !haveCounters {
			firstEntries = occ.Entries
			haveCounters = true
		}
		lastEntries = occ.Entries
		if occ.Current > d.PeakCrowd {
			d.PeakCrowd = occ.Current
		}
		h := r.Timestamp.UTC().Hour()
		if occ.Current > hourPeaks[h] {
			hourPeaks[h] = occ.Current
		}
	}
	if haveCounters {
		if g := lastEntries - firstEntries; g > 0 {
			d.Guests = g
		}
	}
	if len(hourPeaks) > 0 {
		peakHour, peak := 0, -1
		for h, occ := range hourPeaks {
			if occ > peak || (occ == peak && h < peakHour) {
				peakHour, peak = h, occ
			}
		}
		d.PeakHour = &peakHour
	}
	return d
}

// meanPositive averages a factor's samples, skipping missing and
// non-positive values (a 0 lux or 0 dB sample is a dead sensor, not a
// silent room).
func meanPositive(readings []model.SensorReading, f model.Factor) *float64 {
	var sum float64
	var n int
	for _, r := range readings {
		v := r.FactorValue(f)
		if v == nil || *v <= 0 {
			continue
		}
		sum += *v
		n++
	}
	if n == 0 {
		return nil
	}
	m := sum / float64(n)
	return &m
}

// buckets partitions a factor's observed values into fixed-width bins
// and scores each bin, flagging the best-scoring bin as the sweet spot.
func (a *Aggregator) buckets(ordered []model.SensorReading, f model.Factor, width float64, unit string) []model.Bucket {
	type acc struct {
		scoreSum int
		samples  int
	}
	bins := map[float64]*acc{}
	for _, r := range ordered {
		v := r.FactorValue(f)
		if v == nil {
			continue
		}
		s := a.score(r)
		if s == nil {
			continue
		}
		lo := math.Floor(*v/width) * width
		b, ok := bins[lo]
		if !ok {
			b = &acc{}
			bins[lo] = b
		}
		b.scoreSum += *s
		b.samples++
	}
	return finishBuckets(bins, width, unit, func(b *acc) (float64, int) {
		return float64(b.scoreSum) / float64(b.samples), b.samples
	})
}

// crowdBuckets buckets by occupancy instead of a sensor factor.
func (a *Aggregator) crowdBuckets(ordered []model.SensorReading) []model.Bucket {
	type acc struct {
		scoreSum int
		samples  int
	}
	bins := map[float64]*acc{}
	for _, r := range ordered {
		if r.Occupancy == nil {
			continue
		}
		s := a.score(r)
		if s == nil {
			continue
		}
		lo := math.Floor(float64(r.Occupancy.Current)/crowdBucketWidth) * crowdBucketWidth
		b, ok := bins[lo]
		if !ok {
			b = &acc{}
			bins[lo] = b
		}
		b.scoreSum += *s
		b.samples++
	}
	return finishBuckets(bins, crowdBucketWidth, "guests", func(b *acc) (float64, int) {
		return float64(b.scoreSum) / float64(b.samples), b.samples
	})
}

func finishBuckets[T any](bins map[float64]*T, width float64, unit string, stats func(*T) (float64, int)) []model.Bucket {
	los := make([]float64, 0, len(bins))
	for lo := range bins {
		los = append(los, lo)
	}
	sort.Float64s(los)

	out := make([]model.Bucket, 0, len(los))
	bestIdx, bestScore := -1, -1.0
	for i, lo := range los {
		avg, samples := stats(bins[lo])
		b := model.Bucket{
			Label:    fmt.Sprintf("%g-%g %s", lo, lo+width, unit),
			Lo:       lo,
			Hi:       lo + width,
			AvgScore: math.Round(avg*10) / 10,
			Samples:  samples,
		}
		out = append(out, b)
		if samples >= minOptimalSamples && avg > bestScore {
			bestIdx, bestScore = i, avg
		}
	}
	if bestIdx >= 0 {
		out[bestIdx].IsOptimal = true
	}
	return out
}

// heatmap builds the 7x24 average-occupancy grid, normalized 0-100
// against the busiest cell. Cells without samples are omitted.
func heatmap(ordered []model.SensorReading) []model.HeatmapCell {
	type cellKey struct {
		weekday time.Weekday
		hour    int
	}
	type acc struct {
		sum float64
		n   int
	}
	grid := map[cellKey]*acc{}
	for _, r := range ordered {
		if r.Occupancy == nil {
			continue
		}
		ts := r.Timestamp.UTC()
		key := cellKey{weekday: ts.Weekday(), hour: ts.Hour()}
		c, ok := grid[key]
		if !ok {
			c = &acc{}
			grid[key] = c
		}
		c.sum += float64(r.Occupancy.Current)
		c.n++
	}

	cells := make([]model.HeatmapCell, 0, len(grid))
	maxAvg := 0.0
	for key, c := range grid {
		avg := c.sum / float64(c.n)
		if avg > maxAvg {
			maxAvg = avg
		}
		cells = append(cells, model.HeatmapCell{
			Weekday:      int(key.weekday),
			Hour:         key.hour,
			AvgOccupancy: math.Round(avg*10) / 10,
			Samples:      c.n,
		})
	}
	if maxAvg > 0 {
		for i := range cells {
			cells[i].Intensity = int(math.Round(cells[i].AvgOccupancy / maxAvg * 100))
		}
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Weekday != cells[j].Weekday {
			return cells[i].Weekday < cells[j].Weekday
		}
		return cells[i].Hour < cells[j].Hour
	})
	return cells
}
