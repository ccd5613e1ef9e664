package loadgen

import (
	"fmt"

	"github.com/internalign/skillmatch/internal/domain/types"
)

// verifyRun checks the run counters and the fetched ranking.
func verifyRun(cfg Config, report *Report, ranking types.RankingResponse, scores map[string]float64) error {
	if report.Failed > 0 {
		return fmt.Errorf("%d of %d submissions failed: %w", report.Failed, report.Submitted, ErrVerification)
	}
	if report.ScoreMismatches > 0 {
		return fmt.Errorf("%d scores differ from local scoring: %w", report.ScoreMismatches, ErrVerification)
	}
	if ranking.Total < report.Scored {
		return fmt.Errorf("ranking holds %d results, %d were scored: %w", ranking.Total, report.Scored, ErrVerification)
	}
	want := min(cfg.RankingLimit, ranking.Total)
	if len(ranking.Entries) != want {
		return fmt.Errorf("ranking returned %d entries, want %d: %w", len(ranking.Entries), want, ErrVerification)
	}
	if err := verifyRanking(ranking.Entries); err != nil {
		return err
	}
	if len(ranking.Entries) > 0 {
		best := ranking.Entries[0].Score
		for _, s := range scores {
			if s > best {
				return fmt.Errorf("top entry %.2f is below a scored %.2f: %w", best, s, ErrVerification)
			}
		}
	}
	return nil
}

// verifyRanking checks that entries are sorted by score descending and that
// ranks are dense: equal scores share a rank, the next score gets rank+1.
func verifyRanking(entries []types.Entry) error {
	for i, e := range entries {
		if i == 0 {
			if e.Rank != 1 {
				return fmt.Errorf("first entry has rank %d: %w", e.Rank, ErrVerification)
			}
			continue
		}
		prev := entries[i-1]
		switch {
		case e.Score > prev.Score:
			return fmt.Errorf("entry %d (%.2f) above entry %d (%.2f): %w", i, e.Score, i-1, prev.Score, ErrVerification)
		case e.Score == prev.Score && e.Rank != prev.Rank:
			return fmt.Errorf("tied entries %d and %d have ranks %d and %d: %w", i-1, i, prev.Rank, e.Rank, ErrVerification)
		case e.Score < prev.Score && e.Rank != prev.Rank+1:
			return fmt.Errorf("entry %d has rank %d after rank %d: %w", i, e.Rank, prev.Rank, ErrVerification)
		}
	}
	return nil
}
