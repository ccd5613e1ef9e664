// Package model contains domain models passed between layers.
package model

import (
	"sort"
	"time"
)

// SkillRequirement is one weighted skill a project asks for.
type SkillRequirement struct {
	Skill  string
	Weight int
}

// Project is a named set of required skills.
// Requirements keep a fixed order; feedback follows that order.
type Project struct {
	ID           string
	Name         string
	OwnerID      string
	Requirements []SkillRequirement
	CreatedAt    time.Time
}

// Skills returns the set of skill names the project knows.
func (p Project) Skills() map[string]struct{} {
	out := make(map[string]struct{}, len(p.Requirements))
	for _, r := range p.Requirements {
		out[r.Skill] = struct{}{}
	}
	return out
}

// MaxScore is the highest reachable score: the sum of weights.
func (p Project) MaxScore() int {
	total := 0
	for _, r := range p.Requirements {
		total += r.Weight
	}
	return total
}

// RequirementsFromMap builds requirements from a {skill: weight} map,
// ordered by skill name so results do not depend on map iteration.
func RequirementsFromMap(weights map[string]int) []SkillRequirement {
	out := make([]SkillRequirement, 0, len(weights))
	for skill, w := range weights {
		out = append(out, SkillRequirement{Skill: skill, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Skill < out[j].Skill })
	return out
}

// Rating is a candidate's self-rating and test score for one skill.
type Rating struct {
	SelfRating int
	TestScore  int
}

// Submission maps skill name to rating for one project attempt.
type Submission map[string]Rating

// Result is the immutable outcome of scoring one submission.
type Result struct {
	ID           string
	SubmissionID string // client idempotency key, may be empty
	CandidateID  string
	ProjectID    string
	Score        float64
	Feedback     string
	SubmittedAt  time.Time
	Seq          uint64 // store-assigned insertion order
}
