package history_test

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	history "github.com/pulsehq/pulse/internal/domain/history"
	"github.com/pulsehq/pulse/internal/domain/model"
)

func floatPtr(v float64) *float64 { return &v }

// dayReadings builds a short evening of readings for the given date with
// a cumulative entry counter reaching the wanted guest total.
func dayReadings(date time.Time, guests int, sound float64) []model.SensorReading {
	var out []model.SensorReading
	for i := 0; i <= 3; i++ {
		entries := 1000 + guests*i/3
		out = append(out, model.SensorReading{
			Timestamp: date.Add(20*time.Hour + time.Duration(i)*30*time.Minute),
			Decibels:  floatPtr(sound),
			Occupancy: &model.Occupancy{
				Current: guests * (i + 1) / 6,
				Entries: entries,
				Exits:   entries - guests*(i+1)/6,
			},
		})
	}
	return out
}

func TestAggregate_DayStats(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, 8, d, 0, 0, 0, 0, time.UTC) }

	Convey("Given three days of differing traffic", t, func() {
		var readings []model.SensorReading
		readings = append(readings, dayReadings(day(25), 50, 72)...)
		readings = append(readings, dayReadings(day(26), 10, 65)...)
		readings = append(readings, dayReadings(day(27), 80, 78)...)

		summary := history.New().Aggregate(readings)

		Convey("Then each calendar day gets a summary in order", func() {
			So(summary.Days, ShouldHaveLength, 3)
			So(summary.Days[0].Date, ShouldEqual, "2026-08-25")
			So(summary.Days[2].Date, ShouldEqual, "2026-08-27")
		})

		Convey("Then the busiest day is best and the quietest worst", func() {
			So(summary.Days[2].IsBest, ShouldBeTrue)
			So(summary.Days[1].IsWorst, ShouldBeTrue)
			So(summary.Days[0].IsBest, ShouldBeFalse)
			So(summary.Days[0].IsWorst, ShouldBeFalse)
		})

		Convey("Then guests derive from the entry counter delta", func() {
			So(summary.Days[0].Guests, ShouldEqual, 50)
			So(summary.Days[2].Guests, ShouldEqual, 80)
		})

		Convey("Then day averages reflect the sensors", func() {
			So(summary.Days[0].AvgSound, ShouldNotBeNil)
			So(*summary.Days[0].AvgSound, ShouldEqual, 72)
		})
	})

	Convey("Given two days with identical guest counts", t, func() {
		var readings []model.SensorReading
		readings = append(readings, dayReadings(day(25), 60, 72)...)
		readings = append(readings, dayReadings(day(26), 60, 74)...)

		summary := history.New().Aggregate(readings)

		Convey("Then neither day is marked best or worst", func() {
			So(summary.Days, ShouldHaveLength, 2)
			for _, d := range summary.Days {
				So(d.IsBest, ShouldBeFalse)
				So(d.IsWorst, ShouldBeFalse)
			}
		})
	})

	Convey("Given a single day with guests", t, func() {
		summary := history.New().Aggregate(dayReadings(day(25), 60, 70))

		Convey("Then no best or worst day is marked", func() {
			So(summary.Days, ShouldHaveLength, 1)
			So(summary.Days[0].IsBest, ShouldBeFalse)
			So(summary.Days[0].IsWorst, ShouldBeFalse)
		})
	})

	Convey("Given days without any counted guest", t, func() {
		readings := []model.SensorReading{
			{Timestamp: day(25).Add(21 * time.Hour), Decibels: floatPtr(70)},
			{Timestamp: day(26).Add(21 * time.Hour), Decibels: floatPtr(71)},
		}
		summary := history.New().Aggregate(readings)

		Convey("Then they are summarized but never ranked", func() {
			So(summary.Days, ShouldHaveLength, 2)
			So(summary.Days[0].IsBest, ShouldBeFalse)
			So(summary.Days[1].IsWorst, ShouldBeFalse)
		})
	})

	Convey("Given dead sensor samples", t, func() {
		readings := []model.SensorReading{
			{Timestamp: day(25).Add(20 * time.Hour), Decibels: floatPtr(0)},
			{Timestamp: day(25).Add(21 * time.Hour), Decibels: floatPtr(80)},
		}
		summary := history.New().Aggregate(readings)

		Convey("Then zero samples are excluded from the average", func() {
			So(*summary.Days[0].AvgSound, ShouldEqual, 80)
		})
	})

	Convey("Given occupancy peaks through the night", t, func() {
		base := day(25)
		readings := []model.SensorReading{
			{Timestamp: base.Add(20 * time.Hour), Occupancy: &model.Occupancy{Current: 40, Entries: 40}},
			{Timestamp: base.Add(22 * time.Hour), Occupancy: &model.Occupancy{Current: 150, Entries: 170}},
			{Timestamp: base.Add(23 * time.Hour), Occupancy: &model.Occupancy{Current: 90, Entries: 200}},
		}
		summary := history.New().Aggregate(readings)

		Convey("Then the peak crowd and hour are recorded", func() {
			So(summary.Days[0].PeakCrowd, ShouldEqual, 150)
			So(summary.Days[0].PeakHour, ShouldNotBeNil)
			So(*summary.Days[0].PeakHour, ShouldEqual, 22)
		})
	})
}

func TestAggregate_Buckets(t *testing.T) {
	base := time.Date(2026, 8, 25, 21, 0, 0, 0, time.UTC)

	Convey("Given readings across two sound bands", t, func() {
		var readings []model.SensorReading
		// Four readings at 72 dB (in the generic sweet spot, scores 100).
		for i := 0; i < 4; i++ {
			readings = append(readings, model.SensorReading{
				Timestamp: base.Add(time.Duration(i) * time.Minute),
				Decibels:  floatPtr(72),
			})
		}
		// Four readings at 93 dB (outside, scores 20).
		for i := 0; i < 4; i++ {
			readings = append(readings, model.SensorReading{
				Timestamp: base.Add(time.Duration(10+i) * time.Minute),
				Decibels:  floatPtr(93),
			})
		}
		summary := history.New().Aggregate(readings)

		Convey("Then values bin into 5 dB buckets", func() {
			So(summary.SoundBuckets, ShouldHaveLength, 2)
			So(summary.SoundBuckets[0].Label, ShouldEqual, "70-75 dB")
			So(summary.SoundBuckets[1].Label, ShouldEqual, "90-95 dB")
		})

		Convey("Then the best-scoring bucket is the sweet spot", func() {
			So(summary.SoundBuckets[0].IsOptimal, ShouldBeTrue)
			So(summary.SoundBuckets[0].AvgScore, ShouldEqual, 100)
			So(summary.SoundBuckets[1].IsOptimal, ShouldBeFalse)
		})
	})

	Convey("Given a high-scoring bucket with too few samples", t, func() {
		readings := []model.SensorReading{
			// Two perfect readings only.
			{Timestamp: base, Decibels: floatPtr(72)},
			{Timestamp: base.Add(time.Minute), Decibels: floatPtr(73)},
			// Four mediocre ones.
			{Timestamp: base.Add(2 * time.Minute), Decibels: floatPtr(93)},
			{Timestamp: base.Add(3 * time.Minute), Decibels: floatPtr(93)},
			{Timestamp: base.Add(4 * time.Minute), Decibels: floatPtr(93)},
			{Timestamp: base.Add(5 * time.Minute), Decibels: floatPtr(93)},
		}
		summary := history.New().Aggregate(readings)

		Convey("Then the sparse bucket cannot be the sweet spot", func() {
			So(summary.SoundBuckets[0].IsOptimal, ShouldBeFalse)
			So(summary.SoundBuckets[1].IsOptimal, ShouldBeTrue)
		})
	})

	Convey("Given a window where every bucket is sparse", t, func() {
		readings := []model.SensorReading{
			{Timestamp: base, Decibels: floatPtr(72)},
			{Timestamp: base.Add(time.Minute), Decibels: floatPtr(93)},
		}
		summary := history.New().Aggregate(readings)

		Convey("Then no sweet spot is flagged at all", func() {
			So(summary.SoundBuckets, ShouldHaveLength, 2)
			for _, b := range summary.SoundBuckets {
				So(b.IsOptimal, ShouldBeFalse)
			}
		})
	})

	Convey("Given occupancy readings", t, func() {
		var readings []model.SensorReading
		for i := 0; i < 3; i++ {
			readings = append(readings, model.SensorReading{
				Timestamp: base.Add(time.Duration(i) * time.Minute),
				Decibels:  floatPtr(72),
				Occupancy: &model.Occupancy{Current: 45 + i},
			})
		}
		summary := history.New().Aggregate(readings)

		Convey("Then crowd buckets bin by 20 guests", func() {
			So(summary.CrowdBuckets, ShouldHaveLength, 1)
			So(summary.CrowdBuckets[0].Label, ShouldEqual, "40-60 guests")
			So(summary.CrowdBuckets[0].Samples, ShouldEqual, 3)
		})
	})

	Convey("Given a custom score function", t, func() {
		fixed := 42
		agg := history.New(history.WithScoreFunc(func(model.SensorReading) *int { return &fixed }))
		summary := agg.Aggregate([]model.SensorReading{
			{Timestamp: base, Decibels: floatPtr(72)},
		})

		Convey("Then buckets score through the override", func() {
			So(summary.SoundBuckets[0].AvgScore, ShouldEqual, 42)
		})
	})
}

func TestAggregate_Heatmap(t *testing.T) {
	// 2026-08-25 is a Tuesday.
	tuesday := time.Date(2026, 8, 25, 22, 0, 0, 0, time.UTC)
	friday := time.Date(2026, 8, 28, 23, 0, 0, 0, time.UTC)

	Convey("Given occupancy on two separate nights", t, func() {
		readings := []model.SensorReading{
			{Timestamp: tuesday, Occupancy: &model.Occupancy{Current: 50}},
			{Timestamp: tuesday.Add(10 * time.Minute), Occupancy: &model.Occupancy{Current: 70}},
			{Timestamp: friday, Occupancy: &model.Occupancy{Current: 200}},
		}
		summary := history.New().Aggregate(readings)

		Convey("Then each weekday-hour slot becomes one cell", func() {
			So(summary.Heatmap, ShouldHaveLength, 2)
		})

		Convey("Then cells sort by weekday then hour", func() {
			So(summary.Heatmap[0].Weekday, ShouldEqual, int(time.Tuesday))
			So(summary.Heatmap[0].Hour, ShouldEqual, 22)
			So(summary.Heatmap[1].Weekday, ShouldEqual, int(time.Friday))
		})

		Convey("Then intensity normalizes against the busiest cell", func() {
			So(summary.Heatmap[1].Intensity, ShouldEqual, 100)
			So(summary.Heatmap[0].AvgOccupancy, ShouldEqual, 60)
			So(summary.Heatmap[0].Intensity, ShouldEqual, 30)
		})
	})

	Convey("Given no occupancy data", t, func() {
		summary := history.New().Aggregate([]model.SensorReading{
			{Timestamp: tuesday, Decibels: floatPtr(70)},
		})

		Convey("Then the heatmap is empty", func() {
			So(summary.Heatmap, ShouldBeEmpty)
		})
	})
}
