package loadgen

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/internalign/skillmatch/internal/domain/model"
	"github.com/internalign/skillmatch/internal/domain/scoring"
	"github.com/internalign/skillmatch/internal/domain/types"
	"github.com/internalign/skillmatch/pkg/logger"
)

// scoreTolerance absorbs float formatting between server and local scoring.
const scoreTolerance = 0.005

// Run executes a complete load run against cfg.BaseURL.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.Get().Named("loadgen")
	start := time.Now()
	c := newClient(cfg.BaseURL, cfg.Timeout)
	report := &Report{}

	log.Info(ctx, "starting skillmatch load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("candidates", cfg.Candidates),
		logger.Int("skills", cfg.Skills),
		logger.Int("workers", cfg.Workers),
		logger.Int("replays", cfg.Replays),
	)

	if err := checkServiceHealth(ctx, c); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	p := generate(cfg)
	var project types.Project
	if _, err := c.do(ctx, company(cfg.CompanyID), http.MethodPost, "/projects",
		types.ProjectRequest{Name: "loadgen " + time.Now().UTC().Format(time.RFC3339), Skills: p.skills}, &project); err != nil {
		return nil, fmt.Errorf("project creation failed: %w", err)
	}
	report.ProjectID = project.ID
	log.Info(ctx, "project created", logger.String("project", project.ID), logger.Int("maxScore", project.MaxScore))

	scores, err := submitAll(ctx, c, cfg, p, project.ID, report, log)
	if err != nil {
		return report, fmt.Errorf("submission failed: %w", err)
	}
	if err := replay(ctx, c, cfg, p, project.ID, scores, report); err != nil {
		return report, fmt.Errorf("replay failed: %w", err)
	}

	var ranking types.RankingResponse
	path := "/projects/" + project.ID + "/ranking?limit=" + strconv.Itoa(cfg.RankingLimit)
	if _, err := c.do(ctx, company(cfg.CompanyID), http.MethodGet, path, nil, &ranking); err != nil {
		return report, fmt.Errorf("ranking retrieval failed: %w", err)
	}
	report.RankingTotal = ranking.Total
	report.RankingReturned = len(ranking.Entries)
	if len(ranking.Entries) > 0 {
		report.TopCandidate = ranking.Entries[0].CandidateID
		report.TopScore = ranking.Entries[0].Score
	}

	report.Duration = time.Since(start)
	if err := verifyRun(cfg, report, ranking, scores); err != nil {
		return report, err
	}

	log.Info(ctx, "load run completed",
		logger.String("project", report.ProjectID),
		logger.Int("scored", report.Scored),
		logger.Int("duplicates", report.Duplicates),
		logger.Int("rankingTotal", report.RankingTotal),
		logger.String("topCandidate", report.TopCandidate),
		logger.Float64("topScore", report.TopScore),
		logger.Duration("duration", report.Duration),
	)
	return report, nil
}

func checkServiceHealth(ctx context.Context, c *client) error {
	_, err := c.do(ctx, identity{}, http.MethodGet, "/healthz", nil, nil)
	return err
}

// submitAll posts every generated submission with at most cfg.Workers in
// flight. Per-request failures are counted, not fatal; it returns the
// server score per candidate.
func submitAll(ctx context.Context, c *client, cfg Config, p plan, projectID string, report *Report, log logger.Logger) (map[string]float64, error) {
	var (
		mu     sync.Mutex
		scores = make(map[string]float64, len(p.submissions))
	)
	reqs := model.RequirementsFromMap(p.skills)
	path := "/projects/" + projectID + "/submissions"

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, sub := range p.submissions {
		g.Go(func() error {
			var res types.SubmissionResponse
			_, err := c.do(gCtx, candidate(sub.candidateID), http.MethodPost, path,
				types.SubmissionRequest{SubmissionID: sub.submissionID, Ratings: sub.ratings}, &res)

			mu.Lock()
			defer mu.Unlock()
			report.Submitted++
			if err != nil {
				if gCtx.Err() != nil {
					return gCtx.Err()
				}
				report.Failed++
				log.Warn(gCtx, "submission failed", logger.String("candidate", sub.candidateID), logger.Error(err))
				return nil
			}
			report.Scored++
			scores[sub.candidateID] = res.Score
			if cfg.VerifyScores {
				want := scoring.ScoreSubmission(reqs, sub.modelSubmission()).Score
				if math.Abs(want-res.Score) > scoreTolerance {
					report.ScoreMismatches++
					log.Warn(gCtx, "score mismatch",
						logger.String("candidate", sub.candidateID),
						logger.Float64("server", res.Score),
						logger.Float64("local", want),
					)
				}
			}
			if cfg.Verbose {
				log.Info(gCtx, "submission scored",
					logger.String("candidate", sub.candidateID),
					logger.Float64("score", res.Score),
					logger.String("feedback", res.Feedback),
				)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return scores, err
	}
	return scores, nil
}

// replay re-sends the first cfg.Replays submissions and expects the stored
// result back each time.
func replay(ctx context.Context, c *client, cfg Config, p plan, projectID string, scores map[string]float64, report *Report) error {
	path := "/projects/" + projectID + "/submissions"
	var errs []error
	for _, sub := range p.submissions[:cfg.Replays] {
		if _, ok := scores[sub.candidateID]; !ok {
			continue
		}
		var res types.SubmissionResponse
		if _, err := c.do(ctx, candidate(sub.candidateID), http.MethodPost, path,
			types.SubmissionRequest{SubmissionID: sub.submissionID, Ratings: sub.ratings}, &res); err != nil {
			errs = append(errs, err)
			continue
		}
		if !res.Duplicate || res.Score != scores[sub.candidateID] {
			errs = append(errs, fmt.Errorf("candidate %s: replay returned duplicate=%t score=%v: %w",
				sub.candidateID, res.Duplicate, res.Score, ErrVerification))
			continue
		}
		report.Duplicates++
	}
	return errors.Join(errs...)
}
