package review

import (
	"math/rand"
	"sort"
	"time"

	"github.com/finch-review/finch/internal/core"
)

// Filter applies per-repository configuration to a validated comment set
// before persistence and posting. The probabilistic drop step is intentional
// signal-to-noise tuning: low-value minor and major comments are thinned out
// so reviewers are not overwhelmed. The RNG is injected so tests and audits
// can pin the randomness.
type Filter struct {
	rng *rand.Rand
}

// NewFilter creates a filter. A nil rng gets a time-seeded source.
func NewFilter(rng *rand.Rand) *Filter {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Filter{rng: rng}
}

// Apply filters and prioritizes comments:
//
//  1. drop severities not enabled for the repository
//  2. independently drop each minor/major comment with probability equal to
//     the repository's ignore-threshold for that severity; critical comments
//     are never probabilistically dropped
//  3. if more than MaxCommentsPerReview survive, keep the highest-severity
//     ones, ties broken by original order
func (f *Filter) Apply(comments []core.ReviewComment, cfg *core.RepoReviewConfig) []core.ReviewComment {
	kept := make([]core.ReviewComment, 0, len(comments))
	for _, c := range comments {
		if !cfg.SeverityEnabled(c.Severity) {
			continue
		}
		if f.dropProbabilistically(c.Severity, cfg) {
			continue
		}
		kept = append(kept, c)
	}

	limit := cfg.MaxCommentsPerReview
	if limit > 0 && len(kept) > limit {
		sort.SliceStable(kept, func(i, j int) bool {
			return kept[i].Severity.Rank() > kept[j].Severity.Rank()
		})
		kept = kept[:limit]
	}
	return kept
}

func (f *Filter) dropProbabilistically(s core.Severity, cfg *core.RepoReviewConfig) bool {
	var threshold float64
	switch s {
	case core.SeverityMinor:
		threshold = cfg.IgnoreMinorThreshold
	case core.SeverityMajor:
		threshold = cfg.IgnoreMajorThreshold
	default:
		return false
	}
	if threshold <= 0 {
		return false
	}
	return f.rng.Float64() < threshold
}
