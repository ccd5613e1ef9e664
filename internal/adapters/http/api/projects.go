package api

import (
	"context"
	"net/http"

	"github.com/internalign/skillmatch/internal/domain/model"
	"github.com/internalign/skillmatch/internal/domain/types"
	"github.com/internalign/skillmatch/pkg/logger"
)

// ProjectDependencies defines the project registry operations.
type ProjectDependencies interface {
	CreateProject(ctx context.Context, name string, skills map[string]int) (model.Project, error)
	GetProject(ctx context.Context, projectID string) (model.Project, error)
	ListProjects(ctx context.Context) ([]model.Project, error)
}

// ProjectsHandler handles project requests.
type ProjectsHandler struct {
	deps   ProjectDependencies
	logger logger.Logger
}

// NewProjectsHandler creates a new projects handler.
func NewProjectsHandler(deps ProjectDependencies, log logger.Logger) *ProjectsHandler {
	return &ProjectsHandler{deps: deps, logger: log}
}

// HandleCreate handles POST /projects requests.
func (h *ProjectsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_project"
	var req types.ProjectRequest
	if err := decodeJSON(r, w, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.Validate(); err != nil {
		fail(r.Context(), h.logger, w, WrapKind(op, model.ErrInvalidProject, err))
		return
	}
	p, err := h.deps.CreateProject(r.Context(), req.Name, req.Skills)
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	w.Header().Set("Location", "/projects/"+p.ID)
	writeJSON(w, http.StatusCreated, toProject(p))
}

// HandleList handles GET /projects requests.
func (h *ProjectsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_projects"
	projects, err := h.deps.ListProjects(r.Context())
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	out := make([]types.Project, 0, len(projects))
	for _, p := range projects {
		out = append(out, toProject(p))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGet handles GET /projects/{id} requests.
func (h *ProjectsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_project"
	p, err := h.deps.GetProject(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, toProject(p))
}
