// Package repository persists projects and scoring results.
package repository

import (
	"context"

	"github.com/internalign/skillmatch/internal/domain/model"
)

// Store names reported in metrics and configuration.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// ProjectStore provides read/write access to projects.
type ProjectStore interface {
	// PutProject stores a new project. Returns ErrDuplicateID if the id exists.
	PutProject(ctx context.Context, p model.Project) error

	// GetProject returns ErrProjectNotFound if the project is unknown.
	GetProject(ctx context.Context, id string) (model.Project, error)

	// ListProjects returns all projects in creation order.
	ListProjects(ctx context.Context) ([]model.Project, error)

	CountProjects(ctx context.Context) int
}

// ResultStore provides append-only access to scoring results.
type ResultStore interface {
	// InsertResult stores r as a single unit and returns it with its
	// store-assigned sequence number. Results are never updated.
	InsertResult(ctx context.Context, r model.Result) (model.Result, error)

	// GetResult returns ErrResultNotFound if the result is unknown.
	GetResult(ctx context.Context, id string) (model.Result, error)

	// ProjectResults returns a project's results ordered by score desc,
	// then sequence asc.
	ProjectResults(ctx context.Context, projectID string) ([]model.Result, error)

	// CandidateResults returns one candidate's results for a project in
	// submission order.
	CandidateResults(ctx context.Context, projectID, candidateID string) ([]model.Result, error)

	CountResults(ctx context.Context) int
}

// Store is a full backend for the service.
type Store interface {
	ProjectStore
	ResultStore
	Close() error
}

var (
	_ Store = (*TreapStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)
