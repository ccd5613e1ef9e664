package scoring_test

import (
	"context"
	"testing"

	"github.com/internalign/skillmatch/internal/domain/model"
	"github.com/internalign/skillmatch/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestScoreSubmission(t *testing.T) {
	Convey("Given a project needing python and sql equally", t, func() {
		reqs := model.RequirementsFromMap(map[string]int{"python": 50, "sql": 50})

		Convey("When the candidate fails the sql test", func() {
			ev := scoring.ScoreSubmission(reqs, model.Submission{
				"python": {SelfRating: 8, TestScore: 9},
				"sql":    {SelfRating: 5, TestScore: 4},
			})

			Convey("Then python weighs 45 and sql 20", func() {
				So(ev.Score, ShouldEqual, 65.0)
				So(ev.FeedbackText(), ShouldEqual, "sql needs improvement")
			})

			Convey("And a test scale of 100 reads the same result on a 0-10 scale", func() {
				e := scoring.NewEngine(scoring.WithTestScale(100))
				scaled, err := e.Score(context.Background(), reqs, model.Submission{
					"python": {SelfRating: 8, TestScore: 9},
					"sql":    {SelfRating: 5, TestScore: 4},
				})
				So(err, ShouldBeNil)
				So(scaled.Score, ShouldEqual, 6.5)
			})
		})

		Convey("When every test meets confidence", func() {
			ev := scoring.ScoreSubmission(reqs, model.Submission{
				"python": {SelfRating: 6, TestScore: 10},
				"sql":    {SelfRating: 5, TestScore: 5},
			})

			Convey("Then feedback is Excellent Match", func() {
				So(ev.Feedback, ShouldBeEmpty)
				So(ev.FeedbackText(), ShouldEqual, scoring.ExcellentMatch)
				So(ev.Score, ShouldEqual, 75.0)
			})
		})

		Convey("When a test passes but falls under the self rating", func() {
			ev := scoring.ScoreSubmission(reqs, model.Submission{
				"python": {SelfRating: 9, TestScore: 6},
				"sql":    {SelfRating: 2, TestScore: 3},
			})

			Convey("Then both rules are reported in skill order", func() {
				So(ev.FeedbackText(), ShouldEqual, "python performance below confidence, sql needs improvement")
			})
		})

		Convey("When a low test score comes with a low self rating", func() {
			ev := scoring.ScoreSubmission(reqs, model.Submission{
				"python": {SelfRating: 0, TestScore: 4},
				"sql":    {SelfRating: 10, TestScore: 10},
			})

			Convey("Then needs improvement wins regardless of self rating", func() {
				So(ev.FeedbackText(), ShouldEqual, "python needs improvement, sql performance below confidence")
			})
		})

		Convey("When ratings are missing", func() {
			ev := scoring.ScoreSubmission(reqs, model.Submission{
				"python": {SelfRating: 5, TestScore: 10},
				"rust":   {SelfRating: 10, TestScore: 10},
			})

			Convey("Then missing skills count as zero and extras are ignored", func() {
				So(ev.Score, ShouldEqual, 50.0)
				So(ev.FeedbackText(), ShouldEqual, "sql needs improvement")
			})
		})
	})

	Convey("Given an empty requirement map", t, func() {
		ev := scoring.ScoreSubmission(nil, model.Submission{"go": {SelfRating: 1, TestScore: 1}})

		Convey("Then the score is zero with Excellent Match", func() {
			So(ev.Score, ShouldEqual, 0.0)
			So(ev.FeedbackText(), ShouldEqual, "Excellent Match")
		})
	})

	Convey("Given weights that do not sum to 100", t, func() {
		reqs := model.RequirementsFromMap(map[string]int{"a": 3, "b": 7, "c": 1})

		Convey("Then the maximum score is the weight sum", func() {
			ev := scoring.ScoreSubmission(reqs, model.Submission{
				"a": {TestScore: 10}, "b": {TestScore: 10}, "c": {TestScore: 10},
			})
			So(ev.Score, ShouldEqual, 11.0)
		})

		Convey("Then the score is rounded to two decimals", func() {
			ev := scoring.ScoreSubmission(reqs, model.Submission{
				"a": {TestScore: 7}, "b": {TestScore: 7}, "c": {TestScore: 7},
			})
			So(ev.Score, ShouldEqual, 7.7)
		})
	})
}

func TestScoreProperties(t *testing.T) {
	Convey("Given a fixed requirement set", t, func() {
		reqs := model.RequirementsFromMap(map[string]int{"go": 40, "k8s": 35, "sql": 25})
		base := model.Submission{
			"go":  {SelfRating: 7, TestScore: 6},
			"k8s": {SelfRating: 3, TestScore: 8},
			"sql": {SelfRating: 9, TestScore: 2},
		}

		Convey("Then scoring is deterministic", func() {
			first := scoring.ScoreSubmission(reqs, base)
			for i := 0; i < 20; i++ {
				again := scoring.ScoreSubmission(reqs, base)
				So(again.Score, ShouldEqual, first.Score)
				So(again.FeedbackText(), ShouldEqual, first.FeedbackText())
			}
		})

		Convey("Then the score never drops as a test score rises", func() {
			for _, skill := range []string{"go", "k8s", "sql"} {
				prev := -1.0
				for test := 0; test <= 10; test++ {
					sub := model.Submission{}
					for k, v := range base {
						sub[k] = v
					}
					r := sub[skill]
					r.TestScore = test
					sub[skill] = r

					score := scoring.ScoreSubmission(reqs, sub).Score
					So(score, ShouldBeGreaterThanOrEqualTo, prev)
					prev = score
				}
			}
		})
	})
}

func TestEngineOptions(t *testing.T) {
	Convey("Given an engine with a custom improvement cutoff", t, func() {
		e := scoring.NewEngine(scoring.WithImprovementBelow(8), scoring.WithTestScale(100))
		reqs := []model.SkillRequirement{{Skill: "go", Weight: 100}}

		Convey("When scoring a test of 7", func() {
			ev, err := e.Score(context.Background(), reqs, model.Submission{"go": {TestScore: 7}})

			Convey("Then the custom cutoff and scale apply", func() {
				So(err, ShouldBeNil)
				So(ev.Score, ShouldEqual, 7.0)
				So(ev.FeedbackText(), ShouldEqual, "go needs improvement")
			})
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := e.Score(ctx, reqs, model.Submission{})

			Convey("Then it returns the context error", func() {
				So(err, ShouldWrap, context.Canceled)
			})
		})
	})
}

func TestScoreAgainstThreshold(t *testing.T) {
	Convey("Given unweighted skill values", t, func() {
		Convey("When one value is lacking", func() {
			res := scoring.ScoreAgainstThreshold([]scoring.ThresholdSkill{
				{Name: "a", Value: 80}, {Name: "b", Value: 50},
			})

			Convey("Then the mean misses the threshold", func() {
				So(res.Mean, ShouldEqual, 65.0)
				So(res.Matched, ShouldBeFalse)
				So(res.Lacking, ShouldResemble, []string{"b"})
			})
		})

		Convey("When the mean is exactly the threshold", func() {
			res := scoring.ScoreAgainstThreshold([]scoring.ThresholdSkill{
				{Name: "x", Value: 70}, {Name: "y", Value: 70},
			})

			Convey("Then it matches with nothing lacking", func() {
				So(res.Matched, ShouldBeTrue)
				So(res.Lacking, ShouldBeEmpty)
			})
		})

		Convey("When lacking skills appear out of name order", func() {
			res := scoring.ScoreAgainstThreshold([]scoring.ThresholdSkill{
				{Name: "z", Value: 10}, {Name: "m", Value: 100}, {Name: "a", Value: 59},
			})

			Convey("Then they keep input order", func() {
				So(res.Lacking, ShouldResemble, []string{"z", "a"})
			})
		})

		Convey("When the list is empty", func() {
			res := scoring.ScoreAgainstThreshold(nil)

			Convey("Then the mean is zero and nothing matches", func() {
				So(res.Mean, ShouldEqual, 0.0)
				So(res.Matched, ShouldBeFalse)
				So(res.Lacking, ShouldBeEmpty)
			})
		})
	})

	Convey("Given an engine with a lower threshold", t, func() {
		e := scoring.NewEngine(scoring.WithMatchThreshold(60), scoring.WithLackingBelow(40))
		res, err := e.Threshold(context.Background(), []scoring.ThresholdSkill{
			{Name: "a", Value: 80}, {Name: "b", Value: 50},
		})

		Convey("Then the same values now match", func() {
			So(err, ShouldBeNil)
			So(res.Matched, ShouldBeTrue)
			So(res.Lacking, ShouldBeEmpty)
		})
	})
}
