package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/internalign/skillmatch/internal/adapters/http/api"
	service "github.com/internalign/skillmatch/internal/app"
	"github.com/internalign/skillmatch/internal/domain/model"
	"github.com/internalign/skillmatch/internal/domain/ranking"
	"github.com/internalign/skillmatch/internal/domain/scoring"
	"github.com/internalign/skillmatch/internal/domain/types"
	"github.com/internalign/skillmatch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type caller struct {
	id   string
	role string
}

var (
	acme      = caller{"acme", model.RoleCompany}
	alice     = caller{"alice", model.RoleCandidate}
	bob       = caller{"bob", model.RoleCandidate}
	anonymous = caller{}
)

type harness struct {
	mux *http.ServeMux
	svc *service.Service
}

func newHarness(opts ...api.ServerOption) *harness {
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := service.New(service.WithClock(func() time.Time { return t0 }))
	So(svc.Start(context.Background()), ShouldBeNil)

	mux := http.NewServeMux()
	api.NewServer(svc, svc, opts...).Register(context.Background(), mux)
	return &harness{mux: mux, svc: svc}
}

func (h *harness) do(c caller, method, path, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.id != "" {
		req.Header.Set(api.HeaderUserID, c.id)
		req.Header.Set(api.HeaderUserRole, c.role)
	}
	w := httptest.NewRecorder()
	h.mux.ServeHTTP(w, req)
	return w
}

func (h *harness) doJSON(c caller, method, path, body string) *httptest.ResponseRecorder {
	return h.do(c, method, path, "application/json", body)
}

func (h *harness) createProject(skills string) string {
	w := h.doJSON(acme, http.MethodPost, "/projects", `{"name":"Backend","skills":`+skills+`}`)
	So(w.Code, ShouldEqual, http.StatusCreated)
	var p types.Project
	So(json.Unmarshal(w.Body.Bytes(), &p), ShouldBeNil)
	return p.ID
}

func decode[T any](w *httptest.ResponseRecorder) T {
	var v T
	So(json.Unmarshal(w.Body.Bytes(), &v), ShouldBeNil)
	return v
}

func errorCode(w *httptest.ResponseRecorder) string {
	var e struct {
		Code string `json:"code"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &e)
	return e.Code
}

func TestServer_Operational(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		h := newHarness()
		defer h.svc.Stop()

		Convey("Then health serves the metrics registry", func() {
			w := h.do(anonymous, http.MethodGet, "/healthz", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then stats report the running service", func() {
			w := h.do(anonymous, http.MethodGet, "/stats", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
			stats := decode[map[string]any](w)
			So(stats["started"], ShouldEqual, true)
			So(stats["policy"], ShouldEqual, "all")
		})

		Convey("Then unsupported methods are refused by the mux", func() {
			w := h.do(acme, http.MethodDelete, "/projects", "", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestServer_Projects(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		h := newHarness()
		defer h.svc.Stop()

		Convey("When a company creates a project", func() {
			w := h.doJSON(acme, http.MethodPost, "/projects", `{"name":"Backend","skills":{"python":50,"sql":50}}`)

			Convey("Then it is stored and readable", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				p := decode[types.Project](w)
				So(p.ID, ShouldNotBeEmpty)
				So(p.OwnerID, ShouldEqual, "acme")
				So(p.MaxScore, ShouldEqual, 100)
				So(w.Header().Get("Location"), ShouldEqual, "/projects/"+p.ID)

				got := h.do(alice, http.MethodGet, "/projects/"+p.ID, "", "")
				So(got.Code, ShouldEqual, http.StatusOK)
				So(decode[types.Project](got).Skills, ShouldResemble, map[string]int{"python": 50, "sql": 50})

				list := h.do(alice, http.MethodGet, "/projects", "", "")
				So(list.Code, ShouldEqual, http.StatusOK)
				So(decode[[]types.Project](list), ShouldHaveLength, 1)
			})
		})

		Convey("When the request is not allowed or malformed", func() {
			body := `{"name":"Backend","skills":{"python":50}}`

			Convey("Then candidates are forbidden", func() {
				w := h.doJSON(alice, http.MethodPost, "/projects", body)
				So(w.Code, ShouldEqual, http.StatusForbidden)
				So(errorCode(w), ShouldEqual, "forbidden")
			})

			Convey("Then anonymous callers are unauthenticated", func() {
				w := h.doJSON(anonymous, http.MethodPost, "/projects", body)
				So(w.Code, ShouldEqual, http.StatusUnauthorized)
			})

			Convey("Then unknown roles are unauthenticated", func() {
				w := h.doJSON(caller{"eve", "superuser"}, http.MethodPost, "/projects", body)
				So(w.Code, ShouldEqual, http.StatusUnauthorized)
				So(errorCode(w), ShouldEqual, "unauthenticated")
			})

			Convey("Then broken JSON is a bad request", func() {
				w := h.doJSON(acme, http.MethodPost, "/projects", `{"name":`)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then negative weights are a bad request", func() {
				w := h.doJSON(acme, http.MethodPost, "/projects", `{"name":"x","skills":{"python":-1}}`)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then unknown projects are not found", func() {
				w := h.do(acme, http.MethodGet, "/projects/nope", "", "")
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(errorCode(w), ShouldEqual, "not_found")
			})
		})
	})
}

func TestServer_Submissions(t *testing.T) {
	Convey("Given a project requiring python and sql", t, func() {
		h := newHarness()
		defer h.svc.Stop()
		id := h.createProject(`{"python":50,"sql":50}`)
		path := "/projects/" + id + "/submissions"

		Convey("When a candidate submits JSON ratings", func() {
			w := h.doJSON(alice, http.MethodPost, path,
				`{"ratings":{"python":{"self_rating":8,"test_score":9},"sql":{"self_rating":6,"test_score":4}}}`)

			Convey("Then the weighted score and feedback are returned", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				res := decode[types.SubmissionResponse](w)
				So(res.Score, ShouldEqual, 65.0)
				So(res.Feedback, ShouldEqual, "sql needs improvement")
				So(res.CandidateID, ShouldEqual, "alice")
				So(res.Duplicate, ShouldBeFalse)
			})
		})

		Convey("When a candidate submits form fields", func() {
			form := url.Values{"python_self": {"8"}, "python_test": {"9"}, "sql_test": {"4"}, "csrf": {"x"}}
			w := h.do(alice, http.MethodPost, path, "application/x-www-form-urlencoded", form.Encode())

			Convey("Then missing fields count as zero", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				res := decode[types.SubmissionResponse](w)
				So(res.Score, ShouldEqual, 65.0)
				So(res.Feedback, ShouldEqual, "sql needs improvement")
			})
		})

		Convey("When the ratings are invalid", func() {
			Convey("Then a non-integer form field is rejected", func() {
				form := url.Values{"python_test": {"nine"}}
				w := h.do(alice, http.MethodPost, path, "application/x-www-form-urlencoded", form.Encode())
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then a fractional JSON rating is rejected", func() {
				w := h.doJSON(alice, http.MethodPost, path, `{"ratings":{"python":{"test_score":7.5}}}`)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then an out-of-range rating is rejected", func() {
				w := h.doJSON(alice, http.MethodPost, path, `{"ratings":{"python":{"test_score":11}}}`)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then an unknown skill is rejected", func() {
				w := h.doJSON(alice, http.MethodPost, path, `{"ratings":{"rust":{"test_score":7}}}`)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then an unsupported content type is rejected", func() {
				w := h.do(alice, http.MethodPost, path, "text/plain", "python_test=9")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("And nothing is stored", func() {
				So(h.svc.GetStats()["results"], ShouldEqual, 0)
			})
		})

		Convey("When the same submission id is retried", func() {
			body := `{"submission_id":"attempt-1","ratings":{"python":{"self_rating":5,"test_score":7}}}`
			first := h.doJSON(alice, http.MethodPost, path, body)
			second := h.doJSON(alice, http.MethodPost, path, body)

			Convey("Then the stored result is returned once", func() {
				So(first.Code, ShouldEqual, http.StatusCreated)
				So(second.Code, ShouldEqual, http.StatusOK)
				a, b := decode[types.SubmissionResponse](first), decode[types.SubmissionResponse](second)
				So(b.Duplicate, ShouldBeTrue)
				So(b.ResultID, ShouldEqual, a.ResultID)
				So(h.svc.GetStats()["results"], ShouldEqual, 1)
			})
		})

		Convey("When the idempotency header carries the submission id", func() {
			req := func() *httptest.ResponseRecorder {
				r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"ratings":{}}`))
				r.Header.Set(api.HeaderUserID, alice.id)
				r.Header.Set(api.HeaderUserRole, alice.role)
				r.Header.Set(api.HeaderIdempotencyKey, "k1")
				w := httptest.NewRecorder()
				h.mux.ServeHTTP(w, r)
				return w
			}
			So(req().Code, ShouldEqual, http.StatusCreated)
			So(req().Code, ShouldEqual, http.StatusOK)
		})

		Convey("When a company submits", func() {
			w := h.doJSON(acme, http.MethodPost, path, `{"ratings":{}}`)
			So(w.Code, ShouldEqual, http.StatusForbidden)
		})

		Convey("When the project does not exist", func() {
			w := h.doJSON(alice, http.MethodPost, "/projects/nope/submissions", `{"ratings":{}}`)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When reading result history", func() {
			So(h.doJSON(alice, http.MethodPost, path, `{"ratings":{"python":{"test_score":6}}}`).Code, ShouldEqual, http.StatusCreated)
			So(h.doJSON(alice, http.MethodPost, path, `{"ratings":{"python":{"test_score":8}}}`).Code, ShouldEqual, http.StatusCreated)
			So(h.doJSON(bob, http.MethodPost, path, `{"ratings":{"python":{"test_score":2}}}`).Code, ShouldEqual, http.StatusCreated)

			Convey("Then a candidate sees their own results in order", func() {
				w := h.do(alice, http.MethodGet, "/projects/"+id+"/results", "", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				res := decode[types.ResultsResponse](w)
				So(res.CandidateID, ShouldEqual, "alice")
				So(res.Results, ShouldHaveLength, 2)
				So(res.Results[0].Score, ShouldEqual, 30.0)
				So(res.Results[1].Score, ShouldEqual, 40.0)
			})

			Convey("Then a candidate cannot read someone else's results", func() {
				w := h.do(alice, http.MethodGet, "/projects/"+id+"/results?candidate_id=bob", "", "")
				So(w.Code, ShouldEqual, http.StatusForbidden)
			})

			Convey("Then a company must name the candidate", func() {
				So(h.do(acme, http.MethodGet, "/projects/"+id+"/results", "", "").Code, ShouldEqual, http.StatusBadRequest)

				w := h.do(acme, http.MethodGet, "/projects/"+id+"/results?candidate_id=bob", "", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode[types.ResultsResponse](w).Results, ShouldHaveLength, 1)
			})
		})
	})
}

func TestServer_Ranking(t *testing.T) {
	Convey("Given a project with three submissions", t, func() {
		h := newHarness(api.WithMaxRankingLimit(10))
		defer h.svc.Stop()
		id := h.createProject(`{"python":100}`)
		path := "/projects/" + id + "/submissions"
		for _, s := range []struct {
			who  caller
			test string
		}{{alice, "5"}, {bob, "9"}, {caller{"carol", model.RoleCandidate}, "5"}} {
			form := url.Values{"python_test": {s.test}}
			So(h.do(s.who, http.MethodPost, path, "application/x-www-form-urlencoded", form.Encode()).Code, ShouldEqual, http.StatusCreated)
		}
		rankPath := "/projects/" + id + "/ranking"

		Convey("When a company reads the ranking", func() {
			w := h.do(acme, http.MethodGet, rankPath, "", "")

			Convey("Then entries are ordered by score with ties in submission order", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				res := decode[types.RankingResponse](w)
				So(res.Total, ShouldEqual, 3)
				So(res.Policy, ShouldEqual, "all")
				So(res.Entries, ShouldHaveLength, 3)
				So(res.Entries[0].CandidateID, ShouldEqual, "bob")
				So(res.Entries[0].Rank, ShouldEqual, 1)
				So(res.Entries[1].CandidateID, ShouldEqual, "alice")
				So(res.Entries[2].CandidateID, ShouldEqual, "carol")
				So(res.Entries[1].Rank, ShouldEqual, res.Entries[2].Rank)
			})
		})

		Convey("When a limit is given", func() {
			w := h.do(acme, http.MethodGet, rankPath+"?limit=1", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			res := decode[types.RankingResponse](w)
			So(res.Entries, ShouldHaveLength, 1)
			So(res.Total, ShouldEqual, 3)
		})

		Convey("When the limit is invalid", func() {
			So(h.do(acme, http.MethodGet, rankPath+"?limit=0", "", "").Code, ShouldEqual, http.StatusBadRequest)
			So(h.do(acme, http.MethodGet, rankPath+"?limit=abc", "", "").Code, ShouldEqual, http.StatusBadRequest)

			w := h.do(acme, http.MethodGet, rankPath+"?limit=11", "", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorCode(w), ShouldEqual, "limit_exceeded")
		})

		Convey("When a candidate asks for the ranking", func() {
			So(h.do(alice, http.MethodGet, rankPath, "", "").Code, ShouldEqual, http.StatusForbidden)
		})

		Convey("When the project is unknown", func() {
			So(h.do(acme, http.MethodGet, "/projects/nope/ranking", "", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestServer_Threshold(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		h := newHarness()
		defer h.svc.Stop()

		Convey("When three skills average below the threshold", func() {
			w := h.doJSON(alice, http.MethodPost, "/match/threshold",
				`{"skills":[{"name":"a","value":70},{"name":"b","value":50},{"name":"c","value":75}]}`)

			Convey("Then the mean, verdict and lacking skills are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				res := decode[types.ThresholdResponse](w)
				So(res.Mean, ShouldEqual, 65.0)
				So(res.Matched, ShouldBeFalse)
				So(res.Lacking, ShouldResemble, []string{"b"})
			})
		})

		Convey("When a value is out of range", func() {
			w := h.doJSON(alice, http.MethodPost, "/match/threshold", `{"skills":[{"name":"a","value":170}]}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

// failingDeps fails every operation with an unclassified error.
type failingDeps struct{ err error }

func (f failingDeps) CreateProject(context.Context, string, map[string]int) (model.Project, error) {
	return model.Project{}, f.err
}
func (f failingDeps) GetProject(context.Context, string) (model.Project, error) {
	return model.Project{}, f.err
}
func (f failingDeps) ListProjects(context.Context) ([]model.Project, error) { return nil, f.err }
func (f failingDeps) Submit(context.Context, string, string, model.Submission) (model.Result, bool, error) {
	return model.Result{}, false, f.err
}
func (f failingDeps) CandidateResults(context.Context, string, string) ([]model.Result, error) {
	return nil, f.err
}
func (f failingDeps) Rank(context.Context, string, int) ([]ranking.Entry, int, error) {
	return nil, 0, f.err
}
func (f failingDeps) Policy() ranking.Policy { return ranking.PolicyAll }
func (f failingDeps) MatchThreshold(context.Context, []scoring.ThresholdSkill) (scoring.ThresholdResult, error) {
	return scoring.ThresholdResult{}, f.err
}

func TestServer_Errors(t *testing.T) {
	Convey("Given dependencies that fail", t, func() {
		mux := http.NewServeMux()
		h := &harness{mux: mux}

		Convey("When the failure is unclassified", func() {
			api.NewServer(failingDeps{err: errors.New("disk on fire")}, nil).Register(context.Background(), mux)
			w := h.do(acme, http.MethodGet, "/projects", "", "")

			Convey("Then it maps to an internal error", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(errorCode(w), ShouldEqual, "internal_error")
			})

			Convey("And stats still answer without a provider", func() {
				So(h.do(anonymous, http.MethodGet, "/stats", "", "").Code, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When a submission is still in flight", func() {
			api.NewServer(failingDeps{err: service.ErrSubmissionInFlight}, nil).Register(context.Background(), mux)
			w := h.doJSON(alice, http.MethodPost, "/projects/p/submissions", `{"ratings":{}}`)
			So(w.Code, ShouldEqual, http.StatusConflict)
		})

		Convey("When the service is not running", func() {
			api.NewServer(failingDeps{err: service.ErrNotStarted}, nil).Register(context.Background(), mux)
			w := h.do(acme, http.MethodGet, "/projects", "", "")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})

	Convey("Given the op-tagged error helpers", t, func() {
		cause := errors.New("eof")
		err := api.WrapKind("api.test", api.ErrBadRequest, cause)

		Convey("Then both kind and cause are inspectable", func() {
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.test: bad request: eof")
			So(api.NewKind("api.test", api.ErrBadRequest).Error(), ShouldEqual, "api.test: bad request")
			So(errors.Is(api.Wrap("api.test", cause), cause), ShouldBeTrue)
		})
	})
}
