// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/internalign/skillmatch/internal/adapters/repository"
	"github.com/internalign/skillmatch/internal/domain/dedupe"
	"github.com/internalign/skillmatch/internal/domain/model"
	"github.com/internalign/skillmatch/internal/domain/ranking"
	"github.com/internalign/skillmatch/internal/domain/scoring"
	"github.com/internalign/skillmatch/internal/domain/types"
	"github.com/internalign/skillmatch/pkg/logger"
	"github.com/internalign/skillmatch/pkg/metrics"
)

// Service scores submissions, stores results and serves rankings.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	deduper dedupe.Deduper
	engine  *scoring.Engine

	// Configuration
	dedupeSize int
	policy     ranking.Policy
	now        func() time.Time

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the project and result backend. The service owns it and
// closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithEngine sets the scoring engine.
func WithEngine(engine *scoring.Engine) Option {
	return func(s *Service) {
		if engine != nil {
			s.engine = engine
		}
	}
}

// WithDedupeSize sets the size of the idempotency cache. Zero or negative
// means unbounded.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		s.dedupeSize = size
	}
}

// WithRankPolicy sets which results of a candidate count toward rankings.
func WithRankPolicy(p ranking.Policy) Option {
	return func(s *Service) {
		if p != "" {
			s.policy = p
		}
	}
}

// WithClock overrides the time source used for submission timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		engine:     scoring.NewEngine(),
		dedupeSize: 50000,
		policy:     ranking.PolicyAll,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewTreapStore()
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))

	metrics.UpdateProjectsTotal(s.store.CountProjects(ctx))
	metrics.UpdateResultsTotal(s.store.CountResults(ctx))

	s.started = true
	s.logger.Info(ctx, "skillmatch service started",
		logger.String("store", storeName(s.store)),
		logger.String("policy", string(s.policy)),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop shuts down the service and closes its store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error(context.Background(), "failed to close store", logger.Error(err))
	}
	s.started = false
	s.logger.Info(context.Background(), "skillmatch service stopped")
}

func storeName(st repository.Store) string {
	switch st.(type) {
	case *repository.TreapStore:
		return repository.StoreMemory
	case *repository.SQLiteStore:
		return repository.StoreSQLite
	default:
		return fmt.Sprintf("%T", st)
	}
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

func caller(ctx context.Context) (model.Identity, error) {
	id, ok := model.IdentityFrom(ctx)
	if !ok || strings.TrimSpace(id.UserID) == "" {
		return model.Identity{}, model.ErrUnauthenticated
	}
	return id, nil
}

// CreateProject stores a new project owned by the calling admin or company.
func (s *Service) CreateProject(ctx context.Context, name string, skills map[string]int) (model.Project, error) {
	const op = "service.create_project"
	if err := s.ready(); err != nil {
		return model.Project{}, err
	}
	id, err := caller(ctx)
	if err != nil {
		return model.Project{}, err
	}
	if !id.CanManageProjects() {
		return model.Project{}, fmt.Errorf("%s: role %q: %w", op, id.Role, model.ErrForbidden)
	}
	if strings.TrimSpace(name) == "" {
		return model.Project{}, fmt.Errorf("%s: empty name: %w", op, model.ErrInvalidProject)
	}
	for skill, w := range skills {
		if strings.TrimSpace(skill) == "" {
			return model.Project{}, fmt.Errorf("%s: empty skill name: %w", op, model.ErrInvalidProject)
		}
		if w < 0 {
			return model.Project{}, fmt.Errorf("%s: negative weight for %q: %w", op, skill, model.ErrInvalidProject)
		}
	}

	p := model.Project{
		ID:           uuid.NewString(),
		Name:         name,
		OwnerID:      id.UserID,
		Requirements: model.RequirementsFromMap(skills),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.PutProject(ctx, p); err != nil {
		s.logger.Error(ctx, "failed to store project", logger.String("project", p.ID), logger.Error(err))
		metrics.RecordErrorByComponent("service", "store")
		return model.Project{}, fmt.Errorf("%s: %w", op, err)
	}
	metrics.UpdateProjectsTotal(s.store.CountProjects(ctx))
	s.logger.Debug(ctx, "project created",
		logger.String("project", p.ID),
		logger.String("owner", p.OwnerID),
		logger.Int("skills", len(p.Requirements)),
	)
	return p, nil
}

// GetProject returns a project by id.
func (s *Service) GetProject(ctx context.Context, projectID string) (model.Project, error) {
	if err := s.ready(); err != nil {
		return model.Project{}, err
	}
	if _, err := caller(ctx); err != nil {
		return model.Project{}, err
	}
	return s.store.GetProject(ctx, projectID)
}

// ListProjects returns all projects in creation order.
func (s *Service) ListProjects(ctx context.Context) ([]model.Project, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if _, err := caller(ctx); err != nil {
		return nil, err
	}
	return s.store.ListProjects(ctx)
}

// validateSubmission checks ratings against the project's skills and the
// accepted rating range. Nothing is stored when it fails.
func validateSubmission(p model.Project, sub model.Submission) (string, error) {
	known := p.Skills()
	for skill, r := range sub {
		if _, ok := known[skill]; !ok {
			return "unknown_skill", fmt.Errorf("unknown skill %q: %w", skill, model.ErrInvalidSubmission)
		}
		if r.SelfRating < types.MinRating || r.SelfRating > types.MaxRating ||
			r.TestScore < types.MinRating || r.TestScore > types.MaxRating {
			return "out_of_range", fmt.Errorf("rating for %q outside %d-%d: %w",
				skill, types.MinRating, types.MaxRating, model.ErrInvalidSubmission)
		}
	}
	return "", nil
}

// Submit scores a candidate's submission against a project and stores the
// result as one unit. When submissionID is set, a retry with the same id
// returns the stored result with duplicate=true instead of scoring again.
func (s *Service) Submit(ctx context.Context, projectID, submissionID string, sub model.Submission) (model.Result, bool, error) {
	const op = "service.submit"
	if err := s.ready(); err != nil {
		return model.Result{}, false, err
	}
	id, err := caller(ctx)
	if err != nil {
		return model.Result{}, false, err
	}
	if !id.IsCandidate() {
		metrics.RecordSubmissionRejected("forbidden")
		return model.Result{}, false, fmt.Errorf("%s: role %q: %w", op, id.Role, model.ErrForbidden)
	}

	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		metrics.RecordSubmissionRejected("project_not_found")
		return model.Result{}, false, fmt.Errorf("%s: %w", op, err)
	}
	if reason, err := validateSubmission(p, sub); err != nil {
		metrics.RecordSubmissionRejected(reason)
		s.logger.Warn(ctx, "submission rejected",
			logger.String("project", projectID),
			logger.String("candidate", id.UserID),
			logger.Error(err),
		)
		return model.Result{}, false, fmt.Errorf("%s: %w", op, err)
	}

	key := ""
	if submissionID != "" {
		key = projectID + "/" + id.UserID + "/" + submissionID
		if s.deduper.SeenAndRecord(ctx, key) {
			return s.duplicate(ctx, key)
		}
	}

	start := time.Now()
	ev, err := s.engine.Score(ctx, p.Requirements, sub)
	metrics.RecordScoringLatency(float64(time.Since(start).Microseconds()) / 1000)
	if err != nil {
		s.release(ctx, key)
		return model.Result{}, false, fmt.Errorf("%s: %w", op, err)
	}

	stored, err := s.store.InsertResult(ctx, model.Result{
		ID:           uuid.NewString(),
		SubmissionID: submissionID,
		CandidateID:  id.UserID,
		ProjectID:    projectID,
		Score:        ev.Score,
		Feedback:     ev.FeedbackText(),
		SubmittedAt:  s.now().UTC(),
	})
	if err != nil {
		s.release(ctx, key)
		s.logger.Error(ctx, "failed to store result",
			logger.String("project", projectID),
			logger.String("candidate", id.UserID),
			logger.Error(err),
		)
		metrics.RecordErrorByComponent("service", "store")
		return model.Result{}, false, fmt.Errorf("%s: %w", op, err)
	}
	if key != "" {
		s.deduper.Resolve(ctx, key, stored.ID)
	}

	metrics.RecordSubmissionScored(stored.Score)
	metrics.UpdateResultsTotal(s.store.CountResults(ctx))
	s.logger.Debug(ctx, "submission scored",
		logger.String("project", projectID),
		logger.String("candidate", id.UserID),
		logger.String("result", stored.ID),
		logger.Float64("score", stored.Score),
		logger.String("feedback", stored.Feedback),
	)
	return stored, false, nil
}

func (s *Service) duplicate(ctx context.Context, key string) (model.Result, bool, error) {
	metrics.RecordSubmissionDuplicate()
	resultID, ok := s.deduper.ResultFor(ctx, key)
	if !ok {
		return model.Result{}, true, ErrSubmissionInFlight
	}
	r, err := s.store.GetResult(ctx, resultID)
	if err != nil {
		return model.Result{}, true, fmt.Errorf("service.submit: duplicate lookup: %w", err)
	}
	s.logger.Debug(ctx, "duplicate submission", logger.String("key", key), logger.String("result", resultID))
	return r, true, nil
}

func (s *Service) release(ctx context.Context, key string) {
	if key != "" {
		s.deduper.Unrecord(ctx, key)
	}
}

// Rank returns the ranking of a project under the configured policy.
// limit <= 0 returns every entry; total is the size before the limit.
func (s *Service) Rank(ctx context.Context, projectID string, limit int) ([]ranking.Entry, int, error) {
	const op = "service.rank"
	if err := s.ready(); err != nil {
		return nil, 0, err
	}
	id, err := caller(ctx)
	if err != nil {
		return nil, 0, err
	}
	if !id.CanManageProjects() {
		return nil, 0, fmt.Errorf("%s: role %q: %w", op, id.Role, model.ErrForbidden)
	}

	start := time.Now()
	results, err := s.store.ProjectResults(ctx, projectID)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	entries := ranking.AssignRanks(ranking.Apply(s.policy, results))
	total := len(entries)
	if limit > 0 && limit < total {
		entries = entries[:limit]
	}
	metrics.RecordRankingQuery(float64(time.Since(start).Microseconds())/1000, len(entries))
	s.logger.Debug(ctx, "ranking served",
		logger.String("project", projectID),
		logger.Int("total", total),
		logger.Int("returned", len(entries)),
	)
	return entries, total, nil
}

// Policy returns the configured ranking policy.
func (s *Service) Policy() ranking.Policy {
	return s.policy
}

// CandidateResults lists a candidate's results for a project in submission
// order. Candidates may only read their own history; an empty candidateID
// means the caller.
func (s *Service) CandidateResults(ctx context.Context, projectID, candidateID string) ([]model.Result, error) {
	const op = "service.candidate_results"
	if err := s.ready(); err != nil {
		return nil, err
	}
	id, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	switch {
	case id.IsCandidate() && candidateID == "":
		candidateID = id.UserID
	case id.IsCandidate() && candidateID != id.UserID:
		return nil, fmt.Errorf("%s: other candidate: %w", op, model.ErrForbidden)
	case !id.IsCandidate() && !id.CanManageProjects():
		return nil, fmt.Errorf("%s: role %q: %w", op, id.Role, model.ErrForbidden)
	case candidateID == "":
		return nil, fmt.Errorf("%s: candidate_id required: %w", op, model.ErrInvalidQuery)
	}

	results, err := s.store.CandidateResults(ctx, projectID, candidateID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return results, nil
}

// MatchThreshold evaluates unweighted skill values against the match threshold.
func (s *Service) MatchThreshold(ctx context.Context, values []scoring.ThresholdSkill) (scoring.ThresholdResult, error) {
	if err := s.ready(); err != nil {
		return scoring.ThresholdResult{}, err
	}
	if _, err := caller(ctx); err != nil {
		return scoring.ThresholdResult{}, err
	}
	res, err := s.engine.Threshold(ctx, values)
	if err != nil {
		return scoring.ThresholdResult{}, fmt.Errorf("service.match_threshold: %w", err)
	}
	metrics.RecordThresholdEvaluation(res.Matched)
	return res, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":    s.started,
		"policy":     string(s.policy),
		"dedupeSize": s.dedupeSize,
	}
	if s.started {
		ctx := context.Background()
		projects := s.store.CountProjects(ctx)
		results := s.store.CountResults(ctx)

		stats["store"] = storeName(s.store)
		stats["projects"] = projects
		stats["results"] = results
		stats["dedupeEntries"] = s.deduper.Size()

		metrics.UpdateProjectsTotal(projects)
		metrics.UpdateResultsTotal(results)
	}
	return stats
}
