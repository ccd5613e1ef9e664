// Package loadgen drives a running skillmatch service end to end: it creates
// a project, submits generated candidates concurrently and verifies the
// resulting ranking.
package loadgen

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Defaults for Config.
const (
	DefaultBaseURL      = "http://localhost:9080"
	DefaultCandidates   = 500
	DefaultSkills       = 4
	DefaultTimeout      = 30 * time.Second
	DefaultReplays      = 10
	DefaultRankingLimit = 100
	DefaultCompanyID    = "loadgen-company"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL      string        // Base URL of the service
	Candidates   int           // Candidates to generate, one submission each
	Skills       int           // Skills in the generated project
	Workers      int           // Concurrent submitters
	Timeout      time.Duration // HTTP request timeout
	Seed         uint64        // Seed for skill weights and ratings
	Replays      int           // Submissions re-sent to check idempotency
	RankingLimit int           // Entries fetched from the ranking
	CompanyID    string        // Owner of the generated project
	VerifyScores bool          // Recompute scores locally and compare
	Verbose      bool          // Log every submission
}

// DefaultConfig returns a Config with defaults filled in.
func DefaultConfig() Config {
	return Config{
		BaseURL:      DefaultBaseURL,
		Candidates:   DefaultCandidates,
		Skills:       DefaultSkills,
		Workers:      runtime.NumCPU() * 2,
		Timeout:      DefaultTimeout,
		Seed:         1,
		Replays:      DefaultReplays,
		RankingLimit: DefaultRankingLimit,
		CompanyID:    DefaultCompanyID,
		VerifyScores: true,
	}
}

// Validate reports the first unusable field.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.BaseURL) == "":
		return fmt.Errorf("%w: base url must not be empty", ErrInvalidConfig)
	case c.Candidates < 1:
		return fmt.Errorf("%w: candidates must be positive", ErrInvalidConfig)
	case c.Skills < 1 || c.Skills > len(skillNames):
		return fmt.Errorf("%w: skills must be between 1 and %d", ErrInvalidConfig, len(skillNames))
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	case c.Replays < 0 || c.Replays > c.Candidates:
		return fmt.Errorf("%w: replays must be between 0 and candidates", ErrInvalidConfig)
	case c.RankingLimit < 1:
		return fmt.Errorf("%w: ranking limit must be positive", ErrInvalidConfig)
	case strings.TrimSpace(c.CompanyID) == "":
		return fmt.Errorf("%w: company id must not be empty", ErrInvalidConfig)
	}
	return nil
}

// Report summarizes a load run.
type Report struct {
	ProjectID       string
	Submitted       int
	Scored          int
	Duplicates      int
	Failed          int
	ScoreMismatches int
	RankingTotal    int
	RankingReturned int
	TopCandidate    string
	TopScore        float64
	Duration        time.Duration
}
