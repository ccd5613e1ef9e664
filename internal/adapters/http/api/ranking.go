package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/internalign/skillmatch/internal/domain/ranking"
	"github.com/internalign/skillmatch/internal/domain/types"
	"github.com/internalign/skillmatch/pkg/logger"
)

// RankingDependencies defines the interface for ranking operations.
type RankingDependencies interface {
	Rank(ctx context.Context, projectID string, limit int) ([]ranking.Entry, int, error)
	Policy() ranking.Policy
}

// RankingHandler handles ranking requests.
type RankingHandler struct {
	deps     RankingDependencies
	maxLimit int
	logger   logger.Logger
}

// NewRankingHandler creates a new ranking handler.
func NewRankingHandler(deps RankingDependencies, maxLimit int, log logger.Logger) *RankingHandler {
	if maxLimit < 1 {
		maxLimit = DefaultMaxRankingLimit
	}
	return &RankingHandler{
		deps:     deps,
		maxLimit: maxLimit,
		logger:   log,
	}
}

// HandleGetRanking handles GET /projects/{id}/ranking?limit=N requests.
// Without limit the first maxLimit entries are returned.
func (h *RankingHandler) HandleGetRanking(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_ranking"
	n := h.maxLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		v, err := strconv.Atoi(limitStr)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "bad_request",
				WrapKind(op, ErrBadRequest, fmt.Errorf("limit must be a positive integer, got %q", limitStr)))
			return
		}
		if v > h.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded",
				WrapKind(op, ErrLimitExceeded, fmt.Errorf("limit %d above %d", v, h.maxLimit)))
			return
		}
		n = v
	}

	projectID := r.PathValue("id")
	entries, total, err := h.deps.Rank(r.Context(), projectID, n)
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	out := types.RankingResponse{
		ProjectID: projectID,
		Policy:    string(h.deps.Policy()),
		Total:     total,
		Entries:   make([]Entry, 0, len(entries)),
	}
	for _, e := range entries {
		out.Entries = append(out.Entries, toEntry(e))
	}
	writeJSON(w, http.StatusOK, out)
}
