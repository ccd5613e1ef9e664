// Package ranking orders scoring results for a project and assigns ranks.
package ranking

import (
	"fmt"
	"sort"
	"strings"

	"github.com/internalign/skillmatch/internal/domain/model"
)

// Policy decides which results of a candidate count toward a ranking.
type Policy string

// Supported ranking policies.
const (
	PolicyAll    Policy = "all"
	PolicyBest   Policy = "best"
	PolicyLatest Policy = "latest"
)

// ParsePolicy converts a configuration string into a Policy. Empty means all.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyAll:
		return PolicyAll, nil
	case PolicyBest:
		return PolicyBest, nil
	case PolicyLatest:
		return PolicyLatest, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// Entry is a ranked result.
type Entry struct {
	Rank   int
	Result model.Result
}

// Order sorts results in place by score descending. Equal scores keep
// submission order (sequence ascending).
func Order(results []model.Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Seq < results[j].Seq
	})
}

// Apply filters ordered results according to the policy. The input must
// already be ordered; the output keeps that order.
func Apply(p Policy, ordered []model.Result) []model.Result {
	switch p {
	case PolicyBest:
		seen := make(map[string]struct{}, len(ordered))
		out := make([]model.Result, 0, len(ordered))
		for _, r := range ordered {
			if _, ok := seen[r.CandidateID]; ok {
				continue
			}
			seen[r.CandidateID] = struct{}{}
			out = append(out, r)
		}
		return out
	case PolicyLatest:
		newest := make(map[string]uint64, len(ordered))
		for _, r := range ordered {
			if seq, ok := newest[r.CandidateID]; !ok || r.Seq > seq {
				newest[r.CandidateID] = r.Seq
			}
		}
		out := make([]model.Result, 0, len(newest))
		for _, r := range ordered {
			if newest[r.CandidateID] == r.Seq {
				out = append(out, r)
			}
		}
		return out
	default:
		return ordered
	}
}

// AssignRanks numbers ordered results. Equal scores share a rank and ranks
// stay consecutive, so scores 9, 9, 7 rank 1, 1, 2.
func AssignRanks(ordered []model.Result) []Entry {
	out := make([]Entry, len(ordered))
	rank := 0
	for i, r := range ordered {
		if i == 0 || r.Score != ordered[i-1].Score {
			rank++
		}
		out[i] = Entry{Rank: rank, Result: r}
	}
	return out
}

// Rank orders a copy of results, applies the policy and assigns ranks.
func Rank(p Policy, results []model.Result) []Entry {
	ordered := make([]model.Result, len(results))
	copy(ordered, results)
	Order(ordered)
	return AssignRanks(Apply(p, ordered))
}
