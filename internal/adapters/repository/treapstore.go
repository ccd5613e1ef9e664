package repository

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/internalign/skillmatch/internal/domain/model"
	"github.com/internalign/skillmatch/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Each project owns a treap of its results ordered by score DESC, then
// sequence ASC. "less" means ranks earlier, so in-order traversal yields
// the ranking from best to worst.

// scoreScale matches the two-decimal rounding of the scoring engine.
const scoreScale = 100

type scoreFP int64

func toFixedPoint(x float64) scoreFP {
	switch {
	case math.IsNaN(x):
		return 0
	case x*scoreScale >= math.MaxInt64:
		return scoreFP(math.MaxInt64)
	case x*scoreScale <= math.MinInt64:
		return scoreFP(math.MinInt64)
	}
	return scoreFP(math.Round(x * scoreScale))
}

// treap node
type node struct {
	id    string
	score scoreFP
	seq   uint64
	prio  uint64
	left  *node
	right *node
}

// less returns true if a should appear before b in the ranking.
func less(aScore scoreFP, aSeq uint64, bScore scoreFP, bSeq uint64) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aSeq < bSeq
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	return y
}

func insert(n, nn *node) *node {
	if n == nil {
		return nn
	}
	if less(nn.score, nn.seq, n.score, n.seq) {
		n.left = insert(n.left, nn)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, nn)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	return n
}

// collectAll appends results in rank order (highest scores first).
func collectAll(n *node, byID map[string]model.Result, out *[]model.Result) {
	if n == nil {
		return
	}
	collectAll(n.left, byID, out)
	if r, ok := byID[n.id]; ok {
		*out = append(*out, r)
	}
	collectAll(n.right, byID, out)
}

// TreapStore keeps projects and results in memory.
type TreapStore struct {
	mu           sync.RWMutex
	seed         uint64
	rng          *rand.Rand
	seq          uint64
	projects     map[string]model.Project
	projectOrder []string
	roots        map[string]*node         // project id -> treap of results
	results      map[string]model.Result  // result id -> result
	byCandidate  map[candidateKey][]string // result ids in submission order
}

type candidateKey struct {
	projectID   string
	candidateID string
}

// NewTreapStore constructs a treap store with configuration options.
func NewTreapStore(opts ...Option) *TreapStore {
	s := &TreapStore{
		seed:        uint64(time.Now().UnixNano()),
		projects:    make(map[string]model.Project),
		roots:       make(map[string]*node),
		results:     make(map[string]model.Result),
		byCandidate: make(map[candidateKey][]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rng = rand.New(rand.NewPCG(s.seed, s.seed^0x9e3779b97f4a7c15)) //nolint:gosec // treap balance only
	return s
}

func observe(store, op string, start time.Time) {
	metrics.RecordRepositoryLatency(store, op, float64(time.Since(start).Microseconds())/1000)
}

// PutProject implements ProjectStore.PutProject.
func (s *TreapStore) PutProject(ctx context.Context, p model.Project) error {
	defer observe(StoreMemory, "put_project", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[p.ID]; ok {
		return fmt.Errorf("project %s: %w", p.ID, ErrDuplicateID)
	}
	p.Requirements = append([]model.SkillRequirement(nil), p.Requirements...)
	s.projects[p.ID] = p
	s.projectOrder = append(s.projectOrder, p.ID)
	return nil
}

// GetProject implements ProjectStore.GetProject.
func (s *TreapStore) GetProject(ctx context.Context, id string) (model.Project, error) {
	defer observe(StoreMemory, "get_project", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Project{}, ErrProjectNotFound
	}
	return p, nil
}

// ListProjects implements ProjectStore.ListProjects.
func (s *TreapStore) ListProjects(ctx context.Context) ([]model.Project, error) {
	defer observe(StoreMemory, "list_projects", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Project, 0, len(s.projectOrder))
	for _, id := range s.projectOrder {
		out = append(out, s.projects[id])
	}
	return out, nil
}

// CountProjects returns the number of projects.
func (s *TreapStore) CountProjects(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.projects)
}

// InsertResult implements ResultStore.InsertResult with O(log n) expected time.
func (s *TreapStore) InsertResult(ctx context.Context, r model.Result) (model.Result, error) {
	defer observe(StoreMemory, "insert_result", time.Now())

	if err := ctx.Err(); err != nil {
		return model.Result{}, fmt.Errorf("insert result: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[r.ProjectID]; !ok {
		return model.Result{}, ErrProjectNotFound
	}
	if _, ok := s.results[r.ID]; ok {
		return model.Result{}, fmt.Errorf("result %s: %w", r.ID, ErrDuplicateID)
	}

	s.seq++
	r.Seq = s.seq
	s.results[r.ID] = r
	s.roots[r.ProjectID] = insert(s.roots[r.ProjectID], &node{
		id:    r.ID,
		score: toFixedPoint(r.Score),
		seq:   r.Seq,
		prio:  s.rng.Uint64(),
	})
	key := candidateKey{projectID: r.ProjectID, candidateID: r.CandidateID}
	s.byCandidate[key] = append(s.byCandidate[key], r.ID)
	return r, nil
}

// GetResult implements ResultStore.GetResult.
func (s *TreapStore) GetResult(ctx context.Context, id string) (model.Result, error) {
	defer observe(StoreMemory, "get_result", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[id]
	if !ok {
		return model.Result{}, ErrResultNotFound
	}
	return r, nil
}

// ProjectResults implements ResultStore.ProjectResults by in-order traversal.
func (s *TreapStore) ProjectResults(ctx context.Context, projectID string) ([]model.Result, error) {
	defer observe(StoreMemory, "project_results", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.projects[projectID]; !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return nil, ErrProjectNotFound
	}
	out := make([]model.Result, 0)
	collectAll(s.roots[projectID], s.results, &out)
	return out, nil
}

// CandidateResults implements ResultStore.CandidateResults.
func (s *TreapStore) CandidateResults(ctx context.Context, projectID, candidateID string) ([]model.Result, error) {
	defer observe(StoreMemory, "candidate_results", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.projects[projectID]; !ok {
		return nil, ErrProjectNotFound
	}
	ids := s.byCandidate[candidateKey{projectID: projectID, candidateID: candidateID}]
	out := make([]model.Result, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.results[id])
	}
	return out, nil
}

// CountResults returns the number of stored results.
func (s *TreapStore) CountResults(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}

// Close implements Store.Close. The memory store holds no resources.
func (s *TreapStore) Close() error {
	return nil
}
