package review

import (
	"github.com/finch-review/finch/internal/core"
)

// Adaptive thresholds are capped so a severity can never be silenced
// entirely by historical feedback.
const maxAdaptiveThreshold = 0.9

// ResolveThresholds returns the minor and major ignore-thresholds the filter
// should use. In manual mode the configured values pass through unchanged.
// In adaptive mode each threshold is the ratio of "ignored" actions to total
// feedback actions for that severity bucket; buckets with no feedback fall
// back to the configured value. The filter itself stays agnostic to where
// the numbers came from.
func ResolveThresholds(cfg *core.RepoReviewConfig, stats map[core.Severity]core.FeedbackStat) (minor, major float64) {
	minor = cfg.IgnoreMinorThreshold
	major = cfg.IgnoreMajorThreshold
	if cfg.ThresholdMode != core.ThresholdAdaptive {
		return minor, major
	}

	if stat, ok := stats[core.SeverityMinor]; ok && stat.Total > 0 {
		minor = clampThreshold(float64(stat.Ignored) / float64(stat.Total))
	}
	if stat, ok := stats[core.SeverityMajor]; ok && stat.Total > 0 {
		major = clampThreshold(float64(stat.Ignored) / float64(stat.Total))
	}
	return minor, major
}

func clampThreshold(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > maxAdaptiveThreshold {
		return maxAdaptiveThreshold
	}
	return v
}
