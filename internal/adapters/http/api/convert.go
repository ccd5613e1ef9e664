package api

import (
	"github.com/internalign/skillmatch/internal/domain/model"
	"github.com/internalign/skillmatch/internal/domain/ranking"
	"github.com/internalign/skillmatch/internal/domain/types"
)

func toProject(p model.Project) types.Project {
	skills := make(map[string]int, len(p.Requirements))
	for _, r := range p.Requirements {
		skills[r.Skill] = r.Weight
	}
	return types.Project{
		ID:        p.ID,
		Name:      p.Name,
		OwnerID:   p.OwnerID,
		Skills:    skills,
		MaxScore:  p.MaxScore(),
		CreatedAt: p.CreatedAt,
	}
}

func toSubmissionResponse(r model.Result, duplicate bool) types.SubmissionResponse {
	return types.SubmissionResponse{
		ResultID:    r.ID,
		CandidateID: r.CandidateID,
		ProjectID:   r.ProjectID,
		Score:       r.Score,
		Feedback:    r.Feedback,
		SubmittedAt: r.SubmittedAt,
		Duplicate:   duplicate,
	}
}

func toResult(r model.Result) types.Result {
	return types.Result{
		ResultID:     r.ID,
		SubmissionID: r.SubmissionID,
		Score:        r.Score,
		Feedback:     r.Feedback,
		SubmittedAt:  r.SubmittedAt,
	}
}

func toEntry(e ranking.Entry) Entry {
	return Entry{
		Rank:        e.Rank,
		ResultID:    e.Result.ID,
		CandidateID: e.Result.CandidateID,
		ProjectID:   e.Result.ProjectID,
		Score:       e.Result.Score,
		Feedback:    e.Result.Feedback,
		SubmittedAt: e.Result.SubmittedAt,
	}
}
