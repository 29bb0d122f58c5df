package scoring_test

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/pulsehq/pulse/internal/domain/model"
	scoring "github.com/pulsehq/pulse/internal/domain/scoring"
)

func floatPtr(v float64) *float64 { return &v }

func TestScoreFactor(t *testing.T) {
	Convey("Given the generic sound range 65-85 dB", t, func() {
		r := model.OptimalRange{Min: 65, Max: 85, Confidence: 1}

		Convey("When the value falls inside the range", func() {
			Convey("Then the score is exactly 100", func() {
				So(scoring.ScoreFactor(75, r, scoring.GenericTolerance), ShouldEqual, 100)
				So(scoring.ScoreFactor(65, r, scoring.GenericTolerance), ShouldEqual, 100)
				So(scoring.ScoreFactor(85, r, scoring.GenericTolerance), ShouldEqual, 100)
			})
		})

		Convey("When the value deviates above the range", func() {
			Convey("Then the score falls off linearly within the tolerance band", func() {
				// Band is (85-65)*0.5 = 10 dB.
				So(scoring.ScoreFactor(90, r, scoring.GenericTolerance), ShouldEqual, 50)
				So(scoring.ScoreFactor(95, r, scoring.GenericTolerance), ShouldEqual, 0)
			})

			Convey("Then values past the band clamp to zero", func() {
				So(scoring.ScoreFactor(120, r, scoring.GenericTolerance), ShouldEqual, 0)
			})
		})

		Convey("When the value deviates below the range", func() {
			Convey("Then the falloff is symmetric", func() {
				So(scoring.ScoreFactor(60, r, scoring.GenericTolerance), ShouldEqual, 50)
				So(scoring.ScoreFactor(55, r, scoring.GenericTolerance), ShouldEqual, 0)
			})
		})

		Convey("When the learned tolerance applies", func() {
			Convey("Then the same deviation is punished harder", func() {
				// Band shrinks to (85-65)*0.2 = 4 dB.
				So(scoring.ScoreFactor(87, r, scoring.LearnedTolerance), ShouldEqual, 50)
				So(scoring.ScoreFactor(90, r, scoring.LearnedTolerance), ShouldEqual, 0)
			})
		})
	})

	Convey("Given an invalid range", t, func() {
		Convey("Then any value scores zero", func() {
			So(scoring.ScoreFactor(75, model.OptimalRange{Min: 85, Max: 65}, scoring.GenericTolerance), ShouldEqual, 0)
			So(scoring.ScoreFactor(75, model.OptimalRange{}, scoring.GenericTolerance), ShouldEqual, 0)
		})
	})

	Convey("Given a non-positive tolerance", t, func() {
		Convey("Then any value scores zero", func() {
			r := model.OptimalRange{Min: 65, Max: 85}
			So(scoring.ScoreFactor(75, r, 0), ShouldEqual, 0)
		})
	})
}

func TestEngine_Score(t *testing.T) {
	Convey("Given a scoring engine with default generic ranges", t, func() {
		engine := scoring.NewEngine()

		Convey("When scoring a reading with all factors in the generic sweet spot", func() {
			r := model.SensorReading{
				Decibels:   floatPtr(75),
				Light:      floatPtr(150),
				IndoorTemp: floatPtr(71),
				Humidity:   floatPtr(48),
				Timestamp:  time.Now(),
			}
			result, ok := engine.Score(r, nil)

			Convey("Then the score is 100 with no learned contribution", func() {
				So(ok, ShouldBeTrue)
				So(result.Score, ShouldNotBeNil)
				So(*result.Score, ShouldEqual, 100)
				So(result.Confidence, ShouldEqual, 0)
				So(result.Breakdown.GenericWeight, ShouldEqual, 1)
				So(result.Breakdown.LearnedScore, ShouldBeNil)
			})

			Convey("Then the status reflects the learning stage", func() {
				So(result.Status, ShouldEqual, model.StageLearning)
				So(result.StatusMessage, ShouldContainSubstring, "0% calibrated")
			})

			Convey("Then the breakdown lists every present factor", func() {
				So(result.Breakdown.FactorScores, ShouldHaveLength, 4)
			})
		})

		Convey("When a factor channel is missing", func() {
			r := model.SensorReading{
				Decibels: floatPtr(75), // scores 100
				Humidity: floatPtr(70), // outside 40-55 by 15, band 7.5, scores 0
			}
			result, ok := engine.Score(r, nil)

			Convey("Then the weights renormalize over the present factors", func() {
				So(ok, ShouldBeTrue)
				So(*result.Score, ShouldEqual, 50)
				So(result.Breakdown.FactorScores, ShouldHaveLength, 2)
			})
		})

		Convey("When no factor value is available at all", func() {
			r := model.SensorReading{Pressure: floatPtr(1013)}
			result, ok := engine.Score(r, nil)

			Convey("Then no score is fabricated", func() {
				So(ok, ShouldBeFalse)
				So(result.Score, ShouldBeNil)
				So(result.Breakdown.GenericScore, ShouldBeNil)
			})
		})

		Convey("When a profile at half confidence disagrees with the generic ranges", func() {
			profile := &model.VenueLearningProfile{
				VenueID:            "venue-001",
				LearningConfidence: 0.5,
				OptimalRanges: model.RangeSet{
					Sound: model.OptimalRange{Min: 70, Max: 75, Confidence: 0.5},
				},
				Weights: model.Weights{Sound: 1},
			}
			// 80 dB is inside the generic range but 5 dB over the
			// learned one; learned band is 5*0.2 = 1 dB, so learned
			// score is 0.
			r := model.SensorReading{Decibels: floatPtr(80)}
			result, ok := engine.Score(r, profile)

			Convey("Then the blend splits the difference", func() {
				So(ok, ShouldBeTrue)
				So(*result.Breakdown.GenericScore, ShouldEqual, 100)
				So(*result.Breakdown.LearnedScore, ShouldEqual, 0)
				So(*result.Score, ShouldEqual, 50)
				So(result.Status, ShouldEqual, model.StageRefining)
			})
		})

		Convey("When the profile reaches full confidence", func() {
			profile := &model.VenueLearningProfile{
				LearningConfidence: 1,
				OptimalRanges: model.RangeSet{
					Sound: model.OptimalRange{Min: 78, Max: 82, Confidence: 1},
				},
				Weights: model.Weights{Sound: 1},
			}
			r := model.SensorReading{Decibels: floatPtr(80)}
			result, ok := engine.Score(r, profile)

			Convey("Then the learned score fully replaces the generic one", func() {
				So(ok, ShouldBeTrue)
				So(*result.Score, ShouldEqual, 100)
				So(result.Status, ShouldEqual, model.StageOptimized)
				So(result.Breakdown.LearnedWeight, ShouldEqual, 1)
			})
		})

		Convey("When the profile confidence is out of bounds", func() {
			profile := &model.VenueLearningProfile{
				LearningConfidence: 1.7,
				OptimalRanges: model.RangeSet{
					Sound: model.OptimalRange{Min: 78, Max: 82, Confidence: 1},
				},
				Weights: model.Weights{Sound: 1},
			}
			r := model.SensorReading{Decibels: floatPtr(80)}
			result, ok := engine.Score(r, profile)

			Convey("Then it clamps to 1", func() {
				So(ok, ShouldBeTrue)
				So(result.Confidence, ShouldEqual, 1)
			})
		})

		Convey("When scoring the same reading twice", func() {
			r := model.SensorReading{Decibels: floatPtr(80), Light: floatPtr(200)}
			first, ok1 := engine.Score(r, nil)
			second, ok2 := engine.Score(r, nil)

			Convey("Then the result is deterministic", func() {
				So(ok1, ShouldBeTrue)
				So(ok2, ShouldBeTrue)
				So(*first.Score, ShouldEqual, *second.Score)
			})
		})
	})

	Convey("Given an engine with overridden generic ranges", t, func() {
		engine := scoring.NewEngine(
			scoring.WithGenericRanges(model.RangeSet{
				Sound: model.OptimalRange{Min: 40, Max: 50, Confidence: 1},
			}),
			scoring.WithGenericWeights(model.Weights{Sound: 1}),
		)

		Convey("When scoring against the custom range", func() {
			result, ok := engine.Score(model.SensorReading{Decibels: floatPtr(45)}, nil)

			Convey("Then the override applies", func() {
				So(ok, ShouldBeTrue)
				So(*result.Score, ShouldEqual, 100)
			})
		})
	})
}
