package model_test

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/pulsehq/pulse/internal/domain/model"
)

func floatPtr(v float64) *float64 { return &v }

func TestReadingID(t *testing.T) {
	Convey("Given a device observation", t, func() {
		Convey("When building the idempotency key", func() {
			ts := time.Date(2026, 8, 29, 22, 15, 0, 0, time.UTC)

			Convey("Then it is deviceID@timestamp", func() {
				So(model.ReadingID("pi-01", ts), ShouldEqual, "pi-01@2026-08-29T22:15:00Z")
			})

			Convey("Then zoned timestamps normalize to UTC", func() {
				zoned := time.Date(2026, 8, 29, 17, 15, 0, 0, time.FixedZone("EST", -5*3600))
				So(model.ReadingID("pi-01", zoned), ShouldEqual, "pi-01@2026-08-29T22:15:00Z")
			})

			Convey("Then identical observations share a key", func() {
				So(model.ReadingID("pi-01", ts), ShouldEqual, model.ReadingID("pi-01", ts))
				So(model.ReadingID("pi-02", ts), ShouldNotEqual, model.ReadingID("pi-01", ts))
			})
		})
	})
}

func TestFactor(t *testing.T) {
	Convey("Given the scored factors", t, func() {
		Convey("Then each has a stable wire name", func() {
			So(model.FactorSound.String(), ShouldEqual, "sound")
			So(model.FactorLight.String(), ShouldEqual, "light")
			So(model.FactorTemperature.String(), ShouldEqual, "temperature")
			So(model.FactorHumidity.String(), ShouldEqual, "humidity")
		})

		Convey("Then AllFactors covers all four in order", func() {
			So(model.AllFactors(), ShouldResemble, [4]model.Factor{
				model.FactorSound, model.FactorLight, model.FactorTemperature, model.FactorHumidity,
			})
		})
	})
}

func TestFactorValue(t *testing.T) {
	Convey("Given a reading with a partial sensor set", t, func() {
		r := model.SensorReading{
			Decibels:    floatPtr(74),
			IndoorTemp:  floatPtr(71),
			OutdoorTemp: floatPtr(55),
		}

		Convey("Then present channels map to their factor", func() {
			So(*r.FactorValue(model.FactorSound), ShouldEqual, 74)
			So(*r.FactorValue(model.FactorTemperature), ShouldEqual, 71)
		})

		Convey("Then absent channels are nil, not zero", func() {
			So(r.FactorValue(model.FactorLight), ShouldBeNil)
			So(r.FactorValue(model.FactorHumidity), ShouldBeNil)
		})
	})
}

func TestStageFor(t *testing.T) {
	Convey("Given learning confidences", t, func() {
		Convey("Then they classify into lifecycle stages", func() {
			So(model.StageFor(0), ShouldEqual, model.StageLearning)
			So(model.StageFor(0.29), ShouldEqual, model.StageLearning)
			So(model.StageFor(0.3), ShouldEqual, model.StageRefining)
			So(model.StageFor(0.84), ShouldEqual, model.StageRefining)
			So(model.StageFor(0.85), ShouldEqual, model.StageOptimized)
			So(model.StageFor(1), ShouldEqual, model.StageOptimized)
		})
	})
}

func TestOptimalRange(t *testing.T) {
	Convey("Given optimal ranges", t, func() {
		Convey("Then only ranges with max above min are valid", func() {
			So(model.OptimalRange{Min: 65, Max: 85}.Valid(), ShouldBeTrue)
			So(model.OptimalRange{Min: 85, Max: 65}.Valid(), ShouldBeFalse)
			So(model.OptimalRange{Min: 70, Max: 70}.Valid(), ShouldBeFalse)
			So(model.OptimalRange{}.Valid(), ShouldBeFalse)
		})
	})
}

func TestWeights(t *testing.T) {
	Convey("Given the neutral weighting", t, func() {
		w := model.EqualWeights()

		Convey("Then every factor carries a quarter", func() {
			So(w.Sound, ShouldEqual, 0.25)
			So(w.Light, ShouldEqual, 0.25)
			So(w.Temperature, ShouldEqual, 0.25)
			So(w.Humidity, ShouldEqual, 0.25)
		})
	})

	Convey("Given a range set", t, func() {
		rs := model.RangeSet{
			Sound: model.OptimalRange{Min: 72, Max: 80},
			Light: model.OptimalRange{Min: 40, Max: 120},
		}

		Convey("Then Range resolves by factor", func() {
			So(rs.Range(model.FactorSound), ShouldResemble, model.OptimalRange{Min: 72, Max: 80})
			So(rs.Range(model.FactorLight), ShouldResemble, model.OptimalRange{Min: 40, Max: 120})
			So(rs.Range(model.FactorHumidity), ShouldResemble, model.OptimalRange{})
		})
	})
}
