package core

import "time"

// StructuredReview is the per-PR response unit produced by the review
// pipeline. It is constructed once per pull request event and superseded,
// never mutated, by the next event for the same PR.
type StructuredReview struct {
	Summary  string          `json:"summary"`
	Comments []ReviewComment `json:"comments"`
}

// SeverityCounts returns the number of comments per severity bucket.
func (r *StructuredReview) SeverityCounts() map[Severity]int {
	counts := make(map[Severity]int, 3)
	for _, c := range r.Comments {
		counts[c.Severity]++
	}
	return counts
}

// EnvelopeMetadata captures the outcome of one review generation call.
type EnvelopeMetadata struct {
	Success      bool          `json:"success"`
	Error        string        `json:"error,omitempty"`
	UsedFallback bool          `json:"usedFallback"`
	RetryCount   int           `json:"retryCount"`
	AnalysisTime time.Duration `json:"analysisTime"`
}

// Envelope is the complete request/response/metadata bundle produced per
// review generation call. All errors short of fatal pre-flight failures are
// captured here rather than propagated past the orchestrator boundary.
type Envelope struct {
	ID               string
	Raw              string
	Parsed           *StructuredReview
	ValidationErrors []string
	FallbackComments []ReviewComment
	Metadata         EnvelopeMetadata
	StartedAt        time.Time
	FinishedAt       time.Time
}

// ReviewRecord is a finalized review as persisted in the database, linked to
// the pull request event that produced it.
type ReviewRecord struct {
	ID           int64     `db:"id"`
	RepoFullName string    `db:"repo_full_name"`
	PRNumber     int       `db:"pr_number"`
	HeadSHA      string    `db:"head_sha"`
	Summary      string    `db:"summary"`
	CommentsJSON []byte    `db:"comments"`
	Success      bool      `db:"success"`
	UsedFallback bool      `db:"used_fallback"`
	RetryCount   int       `db:"retry_count"`
	AnalysisMS   int64     `db:"analysis_ms"`
	CreatedAt    time.Time `db:"created_at"`
}

// FeedbackAction is a user's reaction to a posted review comment.
type FeedbackAction string

const (
	FeedbackAccepted FeedbackAction = "accepted"
	FeedbackIgnored  FeedbackAction = "ignored"
)

// Feedback is a single accept/ignore action recorded against a severity
// bucket. Accumulated feedback drives adaptive ignore-thresholds.
type Feedback struct {
	ID           int64          `db:"id"`
	RepoFullName string         `db:"repo_full_name"`
	PRNumber     int            `db:"pr_number"`
	Severity     Severity       `db:"severity"`
	Action       FeedbackAction `db:"action"`
	CreatedAt    time.Time      `db:"created_at"`
}

// FeedbackStat aggregates feedback counts for one severity bucket.
type FeedbackStat struct {
	Ignored int `db:"ignored"`
	Total   int `db:"total"`
}
