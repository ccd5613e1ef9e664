// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Functions accept context.Context as the first parameter.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/internalign/skillmatch/internal/adapters/repository"
	"github.com/internalign/skillmatch/internal/domain/ranking"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Store selects the result backend: memory or sqlite.
	Store string `koanf:"store"`

	// SQLitePath is the database file used when Store is sqlite.
	SQLitePath string `koanf:"sqlite_path"`

	// DedupeSize bounds the submission idempotency cache. <= 0 is unbounded.
	DedupeSize int `koanf:"dedupe_size"`

	// RankPolicy decides which results of a candidate are ranked: all, best, latest.
	RankPolicy string `koanf:"rank_policy"`

	// MatchThreshold is the mean a threshold evaluation must reach.
	MatchThreshold float64 `koanf:"match_threshold"`

	// LackingBelow marks threshold skills under this value as lacking.
	LackingBelow int `koanf:"lacking_below"`

	// ImprovementBelow marks test scores under this value as needing improvement.
	ImprovementBelow int `koanf:"improvement_below"`

	// MaxRankingLimit caps GET /projects/{id}/ranking?limit.
	MaxRankingLimit int `koanf:"max_ranking_limit"`
}

// New creates a Config with defaults. Context is accepted first to follow
// the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		Store:            repository.StoreMemory,
		SQLitePath:       "skillmatch.db",
		DedupeSize:       50_000,
		RankPolicy:       string(ranking.PolicyAll),
		MatchThreshold:   70,
		LackingBelow:     60,
		ImprovementBelow: 5,
		MaxRankingLimit:  100,
	}
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate(_ context.Context) error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Store != repository.StoreMemory && c.Store != repository.StoreSQLite:
		return fmt.Errorf("%w: store %q: %w", ErrInvalidConfig, c.Store, repository.ErrUnknownStore)
	case c.Store == repository.StoreSQLite && strings.TrimSpace(c.SQLitePath) == "":
		return fmt.Errorf("%w: sqlite_path must be set for the sqlite store", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	case c.MaxRankingLimit < 1:
		return fmt.Errorf("%w: max_ranking_limit must be positive", ErrInvalidConfig)
	}
	if _, err := ranking.ParsePolicy(c.RankPolicy); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
