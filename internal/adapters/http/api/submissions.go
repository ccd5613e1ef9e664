package api

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/internalign/skillmatch/internal/domain/model"
	"github.com/internalign/skillmatch/internal/domain/types"
	"github.com/internalign/skillmatch/pkg/logger"
)

// Form field suffixes carrying a skill's ratings, e.g. python_self, python_test.
const (
	selfSuffix = "_self"
	testSuffix = "_test"

	// HeaderIdempotencyKey is read when the body carries no submission id.
	HeaderIdempotencyKey = "Idempotency-Key"

	maxSubmissionIDLen = 128
)

// SubmissionDependencies defines the submission operations.
type SubmissionDependencies interface {
	Submit(ctx context.Context, projectID, submissionID string, sub model.Submission) (model.Result, bool, error)
	CandidateResults(ctx context.Context, projectID, candidateID string) ([]model.Result, error)
}

// SubmissionHandler handles submission and result history requests.
type SubmissionHandler struct {
	deps   SubmissionDependencies
	logger logger.Logger
}

// NewSubmissionHandler creates a new submission handler.
func NewSubmissionHandler(deps SubmissionDependencies, log logger.Logger) *SubmissionHandler {
	return &SubmissionHandler{deps: deps, logger: log}
}

// HandleSubmit handles POST /projects/{id}/submissions requests. Ratings
// arrive as JSON or as <skill>_self / <skill>_test form fields.
func (h *SubmissionHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit"
	submissionID, sub, err := readSubmission(w, r)
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	if submissionID == "" {
		submissionID = strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
	}
	if len(submissionID) > maxSubmissionIDLen {
		fail(r.Context(), h.logger, w, WrapKind(op, model.ErrInvalidSubmission,
			fmt.Errorf("submission_id longer than %d", maxSubmissionIDLen)))
		return
	}

	res, duplicate, err := h.deps.Submit(r.Context(), r.PathValue("id"), submissionID, sub)
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	status := http.StatusCreated
	if duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, toSubmissionResponse(res, duplicate))
}

// HandleResults handles GET /projects/{id}/results?candidate_id= requests.
func (h *SubmissionHandler) HandleResults(w http.ResponseWriter, r *http.Request) {
	const op = "api.candidate_results"
	projectID := r.PathValue("id")
	candidateID := strings.TrimSpace(r.URL.Query().Get("candidate_id"))

	results, err := h.deps.CandidateResults(r.Context(), projectID, candidateID)
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	if candidateID == "" {
		if id, ok := model.IdentityFrom(r.Context()); ok {
			candidateID = id.UserID
		}
	}
	out := types.ResultsResponse{
		ProjectID:   projectID,
		CandidateID: candidateID,
		Results:     make([]types.Result, 0, len(results)),
	}
	for _, res := range results {
		out.Results = append(out.Results, toResult(res))
	}
	writeJSON(w, http.StatusOK, out)
}

func readSubmission(w http.ResponseWriter, r *http.Request) (string, model.Submission, error) {
	mediaType := "application/json"
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return "", nil, fmt.Errorf("content type: %w: %w", ErrBadRequest, err)
		}
		mediaType = mt
	}

	switch mediaType {
	case "application/json":
		var req types.SubmissionRequest
		if err := decodeJSON(r, w, &req); err != nil {
			return "", nil, fmt.Errorf("%w: %w", model.ErrInvalidSubmission, err)
		}
		if err := req.Validate(); err != nil {
			return "", nil, fmt.Errorf("%w: %w", model.ErrInvalidSubmission, err)
		}
		sub := make(model.Submission, len(req.Ratings))
		for skill, in := range req.Ratings {
			sub[skill] = model.Rating{SelfRating: in.SelfRating, TestScore: in.TestScore}
		}
		return strings.TrimSpace(req.SubmissionID), sub, nil

	case "application/x-www-form-urlencoded", "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var err error
		if mediaType == "multipart/form-data" {
			err = r.ParseMultipartForm(maxBodyBytes)
		} else {
			err = r.ParseForm()
		}
		if err != nil {
			return "", nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
		}
		sub, err := submissionFromForm(r.PostForm)
		if err != nil {
			return "", nil, err
		}
		return strings.TrimSpace(r.PostForm.Get("submission_id")), sub, nil

	default:
		return "", nil, fmt.Errorf("unsupported content type %q: %w", mediaType, ErrBadRequest)
	}
}

// submissionFromForm collects <skill>_self and <skill>_test fields. Empty
// fields count as absent; other fields are ignored.
func submissionFromForm(form map[string][]string) (model.Submission, error) {
	sub := make(model.Submission)
	for key, vals := range form {
		skill, isSelf, ok := splitRatingKey(key)
		if !ok || len(vals) == 0 {
			continue
		}
		raw := strings.TrimSpace(vals[0])
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("field %s: %q is not an integer: %w", key, raw, model.ErrInvalidSubmission)
		}
		rating := sub[skill]
		if isSelf {
			rating.SelfRating = n
		} else {
			rating.TestScore = n
		}
		sub[skill] = rating
	}
	return sub, nil
}

func splitRatingKey(key string) (skill string, isSelf, ok bool) {
	if s, found := strings.CutSuffix(key, selfSuffix); found && s != "" {
		return s, true, true
	}
	if s, found := strings.CutSuffix(key, testSuffix); found && s != "" {
		return s, false, true
	}
	return "", false, false
}
