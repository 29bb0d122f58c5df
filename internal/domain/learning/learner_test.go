package learning_test

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	learning "github.com/pulsehq/pulse/internal/domain/learning"
	"github.com/pulsehq/pulse/internal/domain/model"
)

func floatPtr(v float64) *float64 { return &v }

// busyHour builds an hour with the given occupancy and sound level; the
// retention component is held neutral so tests control the ranking
// purely through occupancy.
func busyHour(idx int, occupancy float64, sound float64) model.HourlyPerformance {
	return model.HourlyPerformance{
		HourStart:    time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(idx) * time.Hour),
		Sound:        floatPtr(sound),
		AvgOccupancy: occupancy,
	}
}

func TestLearn(t *testing.T) {
	Convey("Given no usable history", t, func() {
		profile := learning.Learn("venue-001", nil)

		Convey("Then the profile carries zero confidence and equal weights", func() {
			So(profile.VenueID, ShouldEqual, "venue-001")
			So(profile.LearningConfidence, ShouldEqual, 0)
			So(profile.DataPointsAnalyzed, ShouldEqual, 0)
			So(profile.Weights, ShouldResemble, model.EqualWeights())
		})

		Convey("Then the ranges stay invalid so scoring skips them", func() {
			So(profile.OptimalRanges.Sound.Valid(), ShouldBeFalse)
		})
	})

	Convey("Given hours with no occupancy signal", t, func() {
		hours := []model.HourlyPerformance{
			{HourStart: time.Now(), Sound: floatPtr(70)},
			{HourStart: time.Now(), Sound: floatPtr(75)},
		}
		profile := learning.Learn("venue-001", hours)

		Convey("Then they are excluded entirely", func() {
			So(profile.DataPointsAnalyzed, ShouldEqual, 0)
			So(profile.LearningConfidence, ShouldEqual, 0)
		})
	})

	Convey("Given a history where loud hours are the busy ones", t, func() {
		// 20 busy hours around 80 dB, 80 quiet hours around 60 dB.
		hours := make([]model.HourlyPerformance, 0, 100)
		for i := 0; i < 20; i++ {
			hours = append(hours, busyHour(i, 200+float64(i), 79+float64(i%3)))
		}
		for i := 0; i < 80; i++ {
			hours = append(hours, busyHour(20+i, 20+float64(i%10), 59+float64(i%4)))
		}
		profile := learning.Learn("venue-001", hours)

		Convey("Then the learned sound range brackets the busy hours", func() {
			So(profile.OptimalRanges.Sound.Valid(), ShouldBeTrue)
			So(profile.OptimalRanges.Sound.Min, ShouldBeGreaterThanOrEqualTo, 79)
			So(profile.OptimalRanges.Sound.Max, ShouldBeLessThanOrEqualTo, 81)
		})

		Convey("Then confidence reflects the top-quantile sample count", func() {
			// 20 top hours out of the 40 needed for full confidence.
			So(profile.LearningConfidence, ShouldEqual, 0.5)
			So(profile.DataPointsAnalyzed, ShouldEqual, 100)
		})

		Convey("Then sound dominates the weights since it separates busy from quiet", func() {
			So(profile.Weights.Sound, ShouldBeGreaterThan, 0.9)
		})

		Convey("Then the weights sum to one", func() {
			w := profile.Weights
			sum := w.Sound + w.Light + w.Temperature + w.Humidity
			So(sum, ShouldAlmostEqual, 1, 1e-9)
		})

		Convey("Then the benchmarks summarize the top hours", func() {
			So(profile.Benchmarks.AvgOccupancyTop20, ShouldBeGreaterThan, 200)
		})
	})

	Convey("Given more history than the full-confidence threshold", t, func() {
		hours := make([]model.HourlyPerformance, 0, 250)
		for i := 0; i < 250; i++ {
			hours = append(hours, busyHour(i, 50+float64(i%40), 70))
		}
		profile := learning.Learn("venue-001", hours)

		Convey("Then confidence caps at one", func() {
			So(profile.LearningConfidence, ShouldEqual, 1)
		})
	})

	Convey("Given growing history windows", t, func() {
		build := func(n int) []model.HourlyPerformance {
			hours := make([]model.HourlyPerformance, 0, n)
			for i := 0; i < n; i++ {
				hours = append(hours, busyHour(i, 40+float64(i%20), 72))
			}
			return hours
		}

		Convey("Then confidence grows monotonically with data", func() {
			small := learning.Learn("venue-001", build(25))
			medium := learning.Learn("venue-001", build(100))
			large := learning.Learn("venue-001", build(200))
			So(small.LearningConfidence, ShouldBeLessThan, medium.LearningConfidence)
			So(medium.LearningConfidence, ShouldBeLessThanOrEqualTo, large.LearningConfidence)
		})
	})

	Convey("Given a factor present in only one top hour", t, func() {
		hours := []model.HourlyPerformance{
			{HourStart: time.Now(), AvgOccupancy: 100, Sound: floatPtr(80), Light: floatPtr(120)},
			{HourStart: time.Now(), AvgOccupancy: 90, Sound: floatPtr(78)},
			{HourStart: time.Now(), AvgOccupancy: 10, Sound: floatPtr(60)},
			{HourStart: time.Now(), AvgOccupancy: 12, Sound: floatPtr(62)},
		}
		profile := learning.Learn("venue-001", hours)

		Convey("Then no light range is learned from a single sample", func() {
			So(profile.OptimalRanges.Light.Valid(), ShouldBeFalse)
		})
	})
}

func TestBuildHourly(t *testing.T) {
	base := time.Date(2026, 8, 29, 21, 0, 0, 0, time.UTC)

	reading := func(offset time.Duration, sound float64, occ *model.Occupancy) model.SensorReading {
		return model.SensorReading{
			Timestamp: base.Add(offset),
			Decibels:  floatPtr(sound),
			Occupancy: occ,
		}
	}

	Convey("Given readings spanning two hours", t, func() {
		readings := []model.SensorReading{
			reading(0, 70, &model.Occupancy{Current: 100, Entries: 500, Exits: 400}),
			reading(30*time.Minute, 74, &model.Occupancy{Current: 120, Entries: 560, Exits: 440}),
			reading(65*time.Minute, 80, &model.Occupancy{Current: 140, Entries: 640, Exits: 480}),
		}
		hours := learning.BuildHourly(readings)

		Convey("Then readings group by UTC hour", func() {
			So(hours, ShouldHaveLength, 2)
			So(hours[0].HourStart, ShouldResemble, base)
			So(hours[1].HourStart, ShouldResemble, base.Add(time.Hour))
		})

		Convey("Then factor averages cover the hour", func() {
			So(*hours[0].Sound, ShouldEqual, 72)
			So(*hours[1].Sound, ShouldEqual, 80)
		})

		Convey("Then entry and exit counts are in-hour counter deltas", func() {
			So(hours[0].AvgOccupancy, ShouldEqual, 110)
			So(hours[0].EntryCount, ShouldEqual, 60)
			So(hours[0].ExitCount, ShouldEqual, 40)
		})

		Convey("Then the hourly dwell estimate comes from Little's Law", func() {
			// 110 average guests from 60 entries in the hour: 110 minutes.
			So(hours[0].AvgDwellMinutes, ShouldNotBeNil)
			So(*hours[0].AvgDwellMinutes, ShouldEqual, 110)
		})
	})

	Convey("Given a counter reset mid-hour", t, func() {
		readings := []model.SensorReading{
			reading(0, 70, &model.Occupancy{Current: 100, Entries: 9000, Exits: 8000}),
			reading(20*time.Minute, 70, &model.Occupancy{Current: 40, Entries: 35, Exits: 10}),
		}
		hours := learning.BuildHourly(readings)

		Convey("Then the post-reset value stands in for the delta", func() {
			So(hours, ShouldHaveLength, 1)
			So(hours[0].EntryCount, ShouldEqual, 35)
			So(hours[0].ExitCount, ShouldEqual, 10)
		})
	})

	Convey("Given no readings", t, func() {
		Convey("Then the result is empty", func() {
			So(learning.BuildHourly(nil), ShouldBeEmpty)
		})
	})
}
