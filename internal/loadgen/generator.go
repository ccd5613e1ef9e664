package loadgen

import (
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/internalign/skillmatch/internal/domain/model"
	"github.com/internalign/skillmatch/internal/domain/types"
)

var skillNames = []string{
	"go", "python", "sql", "kubernetes", "terraform",
	"react", "rust", "java", "aws", "postgres",
}

const maxWeight = 100

// plan is the generated project and its submissions.
type plan struct {
	skills      map[string]int
	submissions []submission
}

type submission struct {
	candidateID  string
	submissionID string
	ratings      map[string]types.RatingInput
}

// modelSubmission converts the ratings for local scoring.
func (s submission) modelSubmission() model.Submission {
	out := make(model.Submission, len(s.ratings))
	for skill, r := range s.ratings {
		out[skill] = model.Rating{SelfRating: r.SelfRating, TestScore: r.TestScore}
	}
	return out
}

// generate builds a plan. Weights and ratings depend only on the seed;
// candidate and submission ids are fresh for every run.
func generate(cfg Config) plan {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)) //nolint:gosec // load data

	skills := make(map[string]int, cfg.Skills)
	for _, name := range skillNames[:cfg.Skills] {
		skills[name] = 1 + rng.IntN(maxWeight)
	}

	subs := make([]submission, 0, cfg.Candidates)
	for i := 0; i < cfg.Candidates; i++ {
		ratings := make(map[string]types.RatingInput, cfg.Skills)
		for _, name := range skillNames[:cfg.Skills] {
			// Leave some skills out to exercise the missing-is-zero rule.
			if rng.IntN(10) == 0 {
				continue
			}
			ratings[name] = types.RatingInput{
				SelfRating: rng.IntN(types.MaxRating + 1),
				TestScore:  rng.IntN(types.MaxRating + 1),
			}
		}
		subs = append(subs, submission{
			candidateID:  "cand-" + uuid.NewString(),
			submissionID: uuid.NewString(),
			ratings:      ratings,
		})
	}
	return plan{skills: skills, submissions: subs}
}
