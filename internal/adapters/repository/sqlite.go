package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/internalign/skillmatch/internal/domain/model"
	"github.com/internalign/skillmatch/pkg/metrics"

	_ "modernc.org/sqlite"
)

const schemaVersion = 1

// SQLiteStore is a durable Store on a single SQLite file.
type SQLiteStore struct {
	db          *sql.DB
	busyTimeout time.Duration
	pingTimeout time.Duration
}

// OpenSQLite opens (or creates) the database at path and migrates its schema.
func OpenSQLite(ctx context.Context, path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	s := &SQLiteStore{
		busyTimeout: 5 * time.Second,
		pingTimeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	// modernc sqlite takes pragmas in the DSN: file:foo.db?_pragma=busy_timeout(5000)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", path, s.busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite wants a single writer; one connection also serialises inserts.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, s.pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s.db = db
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRowContext(ctx, `PRAGMA user_version;`).Scan(&v); err != nil {
		return fmt.Errorf("migrate: read version: %w", err)
	}
	if v >= schemaVersion {
		return tx.Commit()
	}

	stmts := []string{`
CREATE TABLE IF NOT EXISTS projects (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  owner_id TEXT NOT NULL DEFAULT '',
  skills TEXT NOT NULL DEFAULT '[]',
  created_at TEXT NOT NULL
);`, `
CREATE TABLE IF NOT EXISTS results (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL UNIQUE,
  submission_id TEXT NOT NULL DEFAULT '',
  candidate_id TEXT NOT NULL,
  project_id TEXT NOT NULL REFERENCES projects(id),
  score REAL NOT NULL,
  feedback TEXT NOT NULL,
  submitted_at TEXT NOT NULL
);`, `
CREATE INDEX IF NOT EXISTS idx_results_ranking
ON results(project_id, score DESC, seq);`, `
CREATE INDEX IF NOT EXISTS idx_results_candidate
ON results(project_id, candidate_id, seq);`,
		fmt.Sprintf(`PRAGMA user_version = %d;`, schemaVersion),
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return tx.Commit()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// PutProject implements ProjectStore.PutProject.
func (s *SQLiteStore) PutProject(ctx context.Context, p model.Project) error {
	defer observe(StoreSQLite, "put_project", time.Now())

	skills, err := json.Marshal(p.Requirements)
	if err != nil {
		return fmt.Errorf("encode skills: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO projects (id, name, owner_id, skills, created_at) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.OwnerID, string(skills), p.CreatedAt.UTC().Format(time.RFC3339Nano))
	if isUniqueViolation(err) {
		return fmt.Errorf("project %s: %w", p.ID, ErrDuplicateID)
	}
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (model.Project, error) {
	var (
		p         model.Project
		skills    string
		createdAt string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.OwnerID, &skills, &createdAt); err != nil {
		return model.Project{}, err
	}
	if err := json.Unmarshal([]byte(skills), &p.Requirements); err != nil {
		return model.Project{}, fmt.Errorf("decode skills: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return model.Project{}, fmt.Errorf("decode created_at: %w", err)
	}
	p.CreatedAt = t
	return p, nil
}

// GetProject implements ProjectStore.GetProject.
func (s *SQLiteStore) GetProject(ctx context.Context, id string) (model.Project, error) {
	defer observe(StoreSQLite, "get_project", time.Now())

	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, owner_id, skills, created_at FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Project{}, ErrProjectNotFound
	}
	if err != nil {
		return model.Project{}, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// ListProjects implements ProjectStore.ListProjects.
func (s *SQLiteStore) ListProjects(ctx context.Context) ([]model.Project, error) {
	defer observe(StoreSQLite, "list_projects", time.Now())

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, owner_id, skills, created_at FROM projects ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	out := make([]model.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("list projects: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CountProjects returns the number of projects, or 0 if the query fails.
func (s *SQLiteStore) CountProjects(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`).Scan(&n); err != nil {
		return 0
	}
	return n
}

// InsertResult implements ResultStore.InsertResult in one transaction.
func (s *SQLiteStore) InsertResult(ctx context.Context, r model.Result) (model.Result, error) {
	defer observe(StoreSQLite, "insert_result", time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Result{}, fmt.Errorf("insert result: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM projects WHERE id = ?`, r.ProjectID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Result{}, ErrProjectNotFound
	}
	if err != nil {
		return model.Result{}, fmt.Errorf("insert result: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
INSERT INTO results (id, submission_id, candidate_id, project_id, score, feedback, submitted_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SubmissionID, r.CandidateID, r.ProjectID, r.Score, r.Feedback,
		r.SubmittedAt.UTC().Format(time.RFC3339Nano))
	if isUniqueViolation(err) {
		return model.Result{}, fmt.Errorf("result %s: %w", r.ID, ErrDuplicateID)
	}
	if err != nil {
		return model.Result{}, fmt.Errorf("insert result: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return model.Result{}, fmt.Errorf("insert result: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Result{}, fmt.Errorf("insert result: %w", err)
	}
	r.Seq = uint64(seq)
	return r, nil
}

const resultColumns = `seq, id, submission_id, candidate_id, project_id, score, feedback, submitted_at`

func scanResult(row rowScanner) (model.Result, error) {
	var (
		r           model.Result
		seq         int64
		submittedAt string
	)
	if err := row.Scan(&seq, &r.ID, &r.SubmissionID, &r.CandidateID, &r.ProjectID, &r.Score, &r.Feedback, &submittedAt); err != nil {
		return model.Result{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, submittedAt)
	if err != nil {
		return model.Result{}, fmt.Errorf("decode submitted_at: %w", err)
	}
	r.Seq = uint64(seq)
	r.SubmittedAt = t
	return r, nil
}

// GetResult implements ResultStore.GetResult.
func (s *SQLiteStore) GetResult(ctx context.Context, id string) (model.Result, error) {
	defer observe(StoreSQLite, "get_result", time.Now())

	r, err := scanResult(s.db.QueryRowContext(ctx,
		`SELECT `+resultColumns+` FROM results WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Result{}, ErrResultNotFound
	}
	if err != nil {
		return model.Result{}, fmt.Errorf("get result: %w", err)
	}
	return r, nil
}

func (s *SQLiteStore) queryResults(ctx context.Context, projectID, query string, args ...any) ([]model.Result, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM projects WHERE id = ?`, projectID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordErrorByComponent("repository", "not_found")
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Result, 0)
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ProjectResults implements ResultStore.ProjectResults.
func (s *SQLiteStore) ProjectResults(ctx context.Context, projectID string) ([]model.Result, error) {
	defer observe(StoreSQLite, "project_results", time.Now())

	out, err := s.queryResults(ctx, projectID,
		`SELECT `+resultColumns+` FROM results WHERE project_id = ? ORDER BY score DESC, seq ASC`, projectID)
	if err != nil && !errors.Is(err, ErrProjectNotFound) {
		return nil, fmt.Errorf("project results: %w", err)
	}
	return out, err
}

// CandidateResults implements ResultStore.CandidateResults.
func (s *SQLiteStore) CandidateResults(ctx context.Context, projectID, candidateID string) ([]model.Result, error) {
	defer observe(StoreSQLite, "candidate_results", time.Now())

	out, err := s.queryResults(ctx, projectID,
		`SELECT `+resultColumns+` FROM results WHERE project_id = ? AND candidate_id = ? ORDER BY seq ASC`,
		projectID, candidateID)
	if err != nil && !errors.Is(err, ErrProjectNotFound) {
		return nil, fmt.Errorf("candidate results: %w", err)
	}
	return out, err
}

// CountResults returns the number of stored results, or 0 if the query fails.
func (s *SQLiteStore) CountResults(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM results`).Scan(&n); err != nil {
		return 0
	}
	return n
}

// Close implements Store.Close.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
