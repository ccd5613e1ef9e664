// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/internalign/skillmatch/internal/domain/model"
	"github.com/internalign/skillmatch/internal/domain/ranking"
	"github.com/internalign/skillmatch/internal/domain/scoring"
	"github.com/internalign/skillmatch/internal/domain/types"
	"github.com/internalign/skillmatch/pkg/logger"
)

// DefaultMaxRankingLimit caps ranking page sizes when no option is given.
const DefaultMaxRankingLimit = 100

// maxBodyBytes bounds request bodies read by handlers.
const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	CreateProject(ctx context.Context, name string, skills map[string]int) (model.Project, error)
	GetProject(ctx context.Context, projectID string) (model.Project, error)
	ListProjects(ctx context.Context) ([]model.Project, error)

	// Submit scores and stores a submission. duplicate reports an idempotent retry.
	Submit(ctx context.Context, projectID, submissionID string, sub model.Submission) (res model.Result, duplicate bool, err error)
	CandidateResults(ctx context.Context, projectID, candidateID string) ([]model.Result, error)

	// Read operations expose ranking data.
	Rank(ctx context.Context, projectID string, limit int) ([]ranking.Entry, int, error)
	Policy() ranking.Policy

	MatchThreshold(ctx context.Context, values []scoring.ThresholdSkill) (scoring.ThresholdResult, error)
}

// Entry mirrors the read shape returned by ranking queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	projectsHandler   *ProjectsHandler
	submissionHandler *SubmissionHandler
	rankingHandler    *RankingHandler
	thresholdHandler  *ThresholdHandler

	logger logger.Logger
}

// ServerOption configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	maxRankingLimit int
	logger          logger.Logger
}

// WithMaxRankingLimit caps the limit query parameter of ranking requests.
func WithMaxRankingLimit(n int) ServerOption {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxRankingLimit = n
		}
	}
}

// WithServerLogger sets the logger used for failed requests.
func WithServerLogger(l logger.Logger) ServerOption {
	return func(c *serverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	cfg := serverConfig{maxRankingLimit: DefaultMaxRankingLimit}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Get().Named("api")
	}
	return &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(statsProvider),
		projectsHandler:   NewProjectsHandler(deps, cfg.logger),
		submissionHandler: NewSubmissionHandler(deps, cfg.logger),
		rankingHandler:    NewRankingHandler(deps, cfg.maxRankingLimit, cfg.logger),
		thresholdHandler:  NewThresholdHandler(deps, cfg.logger),
		logger:            cfg.logger,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	s.handle(mux, "POST /projects", "projects_create", s.projectsHandler.HandleCreate)
	s.handle(mux, "GET /projects", "projects_list", s.projectsHandler.HandleList)
	s.handle(mux, "GET /projects/{id}", "projects_get", s.projectsHandler.HandleGet)
	s.handle(mux, "POST /projects/{id}/submissions", "submissions", s.submissionHandler.HandleSubmit)
	s.handle(mux, "GET /projects/{id}/results", "results", s.submissionHandler.HandleResults)
	s.handle(mux, "GET /projects/{id}/ranking", "ranking", s.rankingHandler.HandleGetRanking)
	s.handle(mux, "POST /match/threshold", "threshold", s.thresholdHandler.HandleThreshold)
}

func (s *Server) handle(mux *http.ServeMux, pattern, endpoint string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, MetricsMiddleware(IdentityMiddleware(h), endpoint))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail writes err with the status its kind maps to. Server errors are logged.
func fail(ctx context.Context, log logger.Logger, w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		log.Error(ctx, "request failed", logger.String("code", code), logger.Error(err))
	}
	writeError(w, status, code, err)
}

func decodeJSON(r *http.Request, w http.ResponseWriter, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
