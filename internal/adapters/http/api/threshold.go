package api

import (
	"context"
	"net/http"

	"github.com/internalign/skillmatch/internal/domain/scoring"
	"github.com/internalign/skillmatch/internal/domain/types"
	"github.com/internalign/skillmatch/pkg/logger"
)

// ThresholdDependencies defines the threshold match operation.
type ThresholdDependencies interface {
	MatchThreshold(ctx context.Context, values []scoring.ThresholdSkill) (scoring.ThresholdResult, error)
}

// ThresholdHandler handles threshold match requests.
type ThresholdHandler struct {
	deps   ThresholdDependencies
	logger logger.Logger
}

// NewThresholdHandler creates a new threshold handler.
func NewThresholdHandler(deps ThresholdDependencies, log logger.Logger) *ThresholdHandler {
	return &ThresholdHandler{deps: deps, logger: log}
}

// HandleThreshold handles POST /match/threshold requests.
func (h *ThresholdHandler) HandleThreshold(w http.ResponseWriter, r *http.Request) {
	const op = "api.match_threshold"
	var req types.ThresholdRequest
	if err := decodeJSON(r, w, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	values := make([]scoring.ThresholdSkill, 0, len(req.Skills))
	for _, s := range req.Skills {
		values = append(values, scoring.ThresholdSkill{Name: s.Name, Value: s.Value})
	}
	res, err := h.deps.MatchThreshold(r.Context(), values)
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.ThresholdResponse{
		Mean:    res.Mean,
		Matched: res.Matched,
		Lacking: res.Lacking,
	})
}
