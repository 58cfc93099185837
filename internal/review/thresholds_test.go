package review

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/finch-review/finch/internal/core"
)

func TestResolveThresholds_ManualModePassesThrough(t *testing.T) {
	cfg := core.DefaultRepoReviewConfig()
	cfg.IgnoreMinorThreshold = 0.3
	cfg.IgnoreMajorThreshold = 0.1

	stats := map[core.Severity]core.FeedbackStat{
		core.SeverityMinor: {Ignored: 9, Total: 10},
	}

	minor, major := ResolveThresholds(cfg, stats)
	assert.Equal(t, 0.3, minor, "manual mode ignores feedback entirely")
	assert.Equal(t, 0.1, major)
}

func TestResolveThresholds_AdaptiveUsesFeedbackRatio(t *testing.T) {
	cfg := core.DefaultRepoReviewConfig()
	cfg.ThresholdMode = core.ThresholdAdaptive
	cfg.IgnoreMinorThreshold = 0.2
	cfg.IgnoreMajorThreshold = 0.05

	stats := map[core.Severity]core.FeedbackStat{
		core.SeverityMinor: {Ignored: 6, Total: 10},
		core.SeverityMajor: {Ignored: 1, Total: 4},
	}

	minor, major := ResolveThresholds(cfg, stats)
	assert.InDelta(t, 0.6, minor, 1e-9)
	assert.InDelta(t, 0.25, major, 1e-9)
}

func TestResolveThresholds_AdaptiveCapsAtNinetyPercent(t *testing.T) {
	cfg := core.DefaultRepoReviewConfig()
	cfg.ThresholdMode = core.ThresholdAdaptive

	stats := map[core.Severity]core.FeedbackStat{
		core.SeverityMinor: {Ignored: 100, Total: 100},
	}

	minor, _ := ResolveThresholds(cfg, stats)
	assert.Equal(t, maxAdaptiveThreshold, minor, "feedback can never fully silence a severity")
}

func TestResolveThresholds_AdaptiveFallsBackOnEmptyBucket(t *testing.T) {
	cfg := core.DefaultRepoReviewConfig()
	cfg.ThresholdMode = core.ThresholdAdaptive
	cfg.IgnoreMinorThreshold = 0.15
	cfg.IgnoreMajorThreshold = 0.25

	minor, major := ResolveThresholds(cfg, map[core.Severity]core.FeedbackStat{
		core.SeverityMajor: {Ignored: 0, Total: 0},
	})
	assert.Equal(t, 0.15, minor, "no feedback at all falls back to the configured value")
	assert.Equal(t, 0.25, major, "a bucket with zero total is treated as no feedback")
}
