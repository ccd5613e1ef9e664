// Command loadgen drives a running skillmatch service: it creates a project,
// submits generated candidates concurrently and verifies the ranking.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/internalign/skillmatch/internal/loadgen"
	"github.com/internalign/skillmatch/pkg/logger"
)

// defaultRunTimeout bounds a whole run.
const defaultRunTimeout = 10 * time.Minute

var (
	cfg        = loadgen.DefaultConfig()
	logFormat  string
	runTimeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "loadgen",
	Short: "Load and verify a skillmatch service",
	Long: "loadgen creates a project with generated skill weights, submits one generated " +
		"rating set per candidate concurrently, replays some submissions to check idempotency " +
		"and verifies that the ranking is ordered by score.",
	SilenceUsage: true,
	RunE:         runLoad,
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&cfg.BaseURL, "url", "u", cfg.BaseURL, "Base URL of the service")
	f.IntVarP(&cfg.Candidates, "candidates", "n", cfg.Candidates, "Number of candidates to submit")
	f.IntVar(&cfg.Skills, "skills", cfg.Skills, "Number of skills in the generated project")
	f.IntVarP(&cfg.Workers, "workers", "w", cfg.Workers, "Number of concurrent submitters")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "HTTP request timeout")
	f.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "Seed for generated weights and ratings")
	f.IntVar(&cfg.Replays, "replays", cfg.Replays, "Submissions re-sent to check idempotency")
	f.IntVar(&cfg.RankingLimit, "ranking-limit", cfg.RankingLimit, "Entries fetched from the ranking")
	f.StringVar(&cfg.CompanyID, "company", cfg.CompanyID, "User id that owns the generated project")
	f.BoolVar(&cfg.VerifyScores, "verify-scores", cfg.VerifyScores, "Recompute scores locally and compare")
	f.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Log every submission")
	f.StringVar(&logFormat, "log-format", "text", "Log format: text or json")
	f.DurationVar(&runTimeout, "run-timeout", defaultRunTimeout, "Timeout for the whole run")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runLoad(cmd *cobra.Command, _ []string) error {
	if err := logger.Init(logger.WithFormat(logFormat), logger.WithOutput(cmd.OutOrStdout())); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	report, err := loadgen.Run(ctx, cfg)
	if report != nil {
		fmt.Fprintf(cmd.OutOrStdout(),
			"project=%s submitted=%d scored=%d duplicates=%d failed=%d ranking=%d/%d top=%s (%.2f) in %s\n",
			report.ProjectID, report.Submitted, report.Scored, report.Duplicates, report.Failed,
			report.RankingReturned, report.RankingTotal, report.TopCandidate, report.TopScore,
			report.Duration.Round(time.Millisecond))
	}
	return err
}
