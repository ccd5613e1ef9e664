// Package types contains the request and response shapes of the HTTP API.
package types

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Rating bounds accepted at the input boundary.
const (
	MinRating = 0
	MaxRating = 10
)

// ProjectRequest creates a project from a {skill: weight} map.
type ProjectRequest struct {
	Name   string         `json:"name" validate:"required,max=200"`
	Skills map[string]int `json:"skills" validate:"dive,keys,required,max=64,endkeys,gte=0"`
}

// Validate validates the ProjectRequest using the validator.
func (r *ProjectRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Project is the read shape of a project.
type Project struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	OwnerID   string         `json:"owner_id"`
	Skills    map[string]int `json:"skills"`
	MaxScore  int            `json:"max_score"`
	CreatedAt time.Time      `json:"created_at"`
}

// RatingInput is one skill's self rating and test score.
type RatingInput struct {
	SelfRating int `json:"self_rating" validate:"gte=0,lte=10"`
	TestScore  int `json:"test_score" validate:"gte=0,lte=10"`
}

// SubmissionRequest carries a candidate's ratings for one project attempt.
// SubmissionID is an optional client key that makes retries idempotent.
type SubmissionRequest struct {
	SubmissionID string                 `json:"submission_id,omitempty" validate:"omitempty,max=128"`
	Ratings      map[string]RatingInput `json:"ratings" validate:"dive,keys,required,endkeys"`
}

// Validate validates the SubmissionRequest using the validator.
func (r *SubmissionRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// SubmissionResponse is returned after a submission is scored and stored.
type SubmissionResponse struct {
	ResultID    string    `json:"result_id"`
	CandidateID string    `json:"candidate_id"`
	ProjectID   string    `json:"project_id"`
	Score       float64   `json:"score"`
	Feedback    string    `json:"feedback"`
	SubmittedAt time.Time `json:"submitted_at"`
	Duplicate   bool      `json:"duplicate"`
}

// Result is the read shape of one stored scoring result.
type Result struct {
	ResultID     string    `json:"result_id"`
	SubmissionID string    `json:"submission_id,omitempty"`
	Score        float64   `json:"score"`
	Feedback     string    `json:"feedback"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// ResultsResponse lists one candidate's results for a project in submission order.
type ResultsResponse struct {
	ProjectID   string   `json:"project_id"`
	CandidateID string   `json:"candidate_id"`
	Results     []Result `json:"results"`
}

// Entry represents a ranking entry.
type Entry struct {
	Rank        int       `json:"rank"`
	ResultID    string    `json:"result_id"`
	CandidateID string    `json:"candidate_id"`
	ProjectID   string    `json:"project_id"`
	Score       float64   `json:"score"`
	Feedback    string    `json:"feedback"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// RankingResponse is the ordered ranking of a project.
type RankingResponse struct {
	ProjectID string  `json:"project_id"`
	Policy    string  `json:"policy"`
	Total     int     `json:"total"`
	Entries   []Entry `json:"entries"`
}

// ThresholdSkill is one unweighted skill value.
type ThresholdSkill struct {
	Name  string `json:"name" validate:"required"`
	Value int    `json:"value" validate:"gte=0,lte=100"`
}

// ThresholdRequest asks whether a set of skill values meets the match threshold.
type ThresholdRequest struct {
	Skills []ThresholdSkill `json:"skills" validate:"dive"`
}

// Validate validates the ThresholdRequest using the validator.
func (r *ThresholdRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// ThresholdResponse reports the mean, the verdict and the lacking skills.
type ThresholdResponse struct {
	Mean    float64  `json:"mean"`
	Matched bool     `json:"matched"`
	Lacking []string `json:"lacking"`
}
