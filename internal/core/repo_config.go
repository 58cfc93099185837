package core

// ThresholdMode selects how per-severity ignore-thresholds are obtained.
type ThresholdMode string

const (
	// ThresholdManual uses the fixed values configured for the repository.
	ThresholdManual ThresholdMode = "manual"
	// ThresholdAdaptive derives thresholds from historical accept/ignore feedback.
	ThresholdAdaptive ThresholdMode = "adaptive"
)

// RepoReviewConfig represents the structure of the .finch.yml file plus the
// per-repository settings stored in the database. The comment filter consumes
// it read-only; it does not own its lifecycle.
type RepoReviewConfig struct {
	EnabledSeverities    []Severity    `yaml:"enabled_severities" json:"enabledSeverities"`
	ThresholdMode        ThresholdMode `yaml:"threshold_mode" json:"thresholdMode"`
	IgnoreMinorThreshold float64       `yaml:"ignore_minor_threshold" json:"ignoreMinorThreshold"`
	IgnoreMajorThreshold float64       `yaml:"ignore_major_threshold" json:"ignoreMajorThreshold"`
	// MaxCommentsPerReview caps how many comments survive filtering. Zero or
	// negative means no cap; suppressing every comment is done by disabling
	// severities, not by setting this to zero.
	MaxCommentsPerReview int     `yaml:"max_comments_per_review" json:"maxCommentsPerReview"`
	Model                string  `yaml:"model" json:"model"`
	Temperature          float64 `yaml:"temperature" json:"temperature"`
	MaxTokens            int     `yaml:"max_tokens" json:"maxTokens"`
}

// DefaultRepoReviewConfig returns a config with default values.
func DefaultRepoReviewConfig() *RepoReviewConfig {
	return &RepoReviewConfig{
		EnabledSeverities:    []Severity{SeverityCritical, SeverityMajor, SeverityMinor},
		ThresholdMode:        ThresholdManual,
		IgnoreMinorThreshold: 0,
		IgnoreMajorThreshold: 0,
		MaxCommentsPerReview: 25,
		Model:                "gpt-4o-mini",
		Temperature:          0.2,
		MaxTokens:            4096,
	}
}

// SeverityEnabled reports whether comments of the given severity should be
// kept for this repository.
func (c *RepoReviewConfig) SeverityEnabled(s Severity) bool {
	for _, enabled := range c.EnabledSeverities {
		if enabled == s {
			return true
		}
	}
	return false
}
