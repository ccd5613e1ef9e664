// Package scoring computes weighted match scores and feedback from skill ratings.
package scoring

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/internalign/skillmatch/internal/domain/model"
)

// Default scoring configuration constants.
const (
	defaultTestScale        = 10
	defaultImprovementBelow = 5
	defaultMatchThreshold   = 70
	defaultLackingBelow     = 60

	// ExcellentMatch is the feedback text when no skill produced an entry.
	ExcellentMatch = "Excellent Match"

	feedbackSeparator = ", "
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithTestScale sets the divisor that maps a test score to a weight fraction.
func WithTestScale(scale float64) Option {
	return func(e *Engine) {
		if scale > 0 {
			e.testScale = scale
		}
	}
}

// WithImprovementBelow sets the test score under which a skill needs improvement.
func WithImprovementBelow(cutoff int) Option {
	return func(e *Engine) {
		e.improvementBelow = cutoff
	}
}

// WithMatchThreshold sets the mean a threshold evaluation must reach.
func WithMatchThreshold(threshold float64) Option {
	return func(e *Engine) {
		e.matchThreshold = threshold
	}
}

// WithLackingBelow sets the value under which a skill is reported as lacking.
func WithLackingBelow(cutoff int) Option {
	return func(e *Engine) {
		e.lackingBelow = cutoff
	}
}

// Evaluation is the outcome of scoring one submission.
type Evaluation struct {
	Score    float64
	Feedback []string
}

// FeedbackText joins the feedback entries, or returns ExcellentMatch when empty.
func (e Evaluation) FeedbackText() string {
	if len(e.Feedback) == 0 {
		return ExcellentMatch
	}
	return strings.Join(e.Feedback, feedbackSeparator)
}

// ThresholdSkill is one unweighted skill value, 0-100.
type ThresholdSkill struct {
	Name  string
	Value int
}

// ThresholdResult is the outcome of a threshold evaluation.
type ThresholdResult struct {
	Mean    float64
	Matched bool
	Lacking []string
}

// Engine scores submissions. It is stateless after construction and safe for
// concurrent use.
type Engine struct {
	testScale        float64
	improvementBelow int
	matchThreshold   float64
	lackingBelow     int
}

// NewEngine creates a scoring engine with configuration options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		testScale:        defaultTestScale,
		improvementBelow: defaultImprovementBelow,
		matchThreshold:   defaultMatchThreshold,
		lackingBelow:     defaultLackingBelow,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Score computes the weighted score and feedback for a submission.
// Skills are processed in requirement order; ratings for skills the project
// does not require are ignored and missing ratings count as zero.
func (e *Engine) Score(ctx context.Context, reqs []model.SkillRequirement, sub model.Submission) (Evaluation, error) {
	if err := ctx.Err(); err != nil {
		return Evaluation{}, fmt.Errorf("context cancelled: %w", err)
	}

	var total float64
	var feedback []string
	for _, req := range reqs {
		r := sub[req.Skill]
		total += (float64(r.TestScore) / e.testScale) * float64(req.Weight)

		switch {
		case r.TestScore < e.improvementBelow:
			feedback = append(feedback, req.Skill+" needs improvement")
		case r.TestScore < r.SelfRating:
			feedback = append(feedback, req.Skill+" performance below confidence")
		}
	}

	return Evaluation{Score: round2(total), Feedback: feedback}, nil
}

// Threshold computes the mean of unweighted values and reports the skills
// below the lacking cutoff, in input order. An empty list has mean 0.
func (e *Engine) Threshold(ctx context.Context, values []ThresholdSkill) (ThresholdResult, error) {
	if err := ctx.Err(); err != nil {
		return ThresholdResult{}, fmt.Errorf("context cancelled: %w", err)
	}

	res := ThresholdResult{Lacking: []string{}}
	if len(values) == 0 {
		res.Matched = res.Mean >= e.matchThreshold
		return res, nil
	}

	sum := 0
	for _, v := range values {
		sum += v.Value
		if v.Value < e.lackingBelow {
			res.Lacking = append(res.Lacking, v.Name)
		}
	}
	res.Mean = float64(sum) / float64(len(values))
	res.Matched = res.Mean >= e.matchThreshold
	return res, nil
}

var defaultEngine = NewEngine() //nolint:gochecknoglobals // stateless default

// ScoreSubmission scores a submission with the default engine.
func ScoreSubmission(reqs []model.SkillRequirement, sub model.Submission) Evaluation {
	ev, _ := defaultEngine.Score(context.Background(), reqs, sub)
	return ev
}

// ScoreAgainstThreshold evaluates values with the default engine.
func ScoreAgainstThreshold(values []ThresholdSkill) ThresholdResult {
	res, _ := defaultEngine.Threshold(context.Background(), values)
	return res
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
