// Package github provides functionality for interacting with the GitHub API.
package github

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/go-github/v73/github"

	"github.com/finch-review/finch/internal/core"
)

const checkRunName = "Finch Review"

// StatusUpdater defines the contract for updating the status of a GitHub
// Check Run and posting review results on pull requests.
type StatusUpdater interface {
	InProgress(ctx context.Context, event *core.GitHubEvent, title, summary string) (int64, error)
	Completed(ctx context.Context, event *core.GitHubEvent, checkRunID int64, conclusion, title, summary string) error
	PostStructuredReview(ctx context.Context, event *core.GitHubEvent, review *core.StructuredReview, inline, offDiff []core.ReviewComment) error
	PostSimpleComment(ctx context.Context, event *core.GitHubEvent, body string) error
}

type statusUpdater struct {
	client Client
}

// NewStatusUpdater creates and returns a new instance of a statusUpdater.
func NewStatusUpdater(client Client) StatusUpdater {
	return &statusUpdater{client: client}
}

// PostSimpleComment posts a single, general comment on the pull request.
func (s *statusUpdater) PostSimpleComment(ctx context.Context, event *core.GitHubEvent, body string) error {
	return s.client.CreateComment(ctx, event.RepoOwner, event.RepoName, event.PRNumber, body)
}

// InProgress creates a new GitHub Check Run with an "in_progress" status.
func (s *statusUpdater) InProgress(ctx context.Context, event *core.GitHubEvent, title, summary string) (int64, error) {
	opts := github.CreateCheckRunOptions{
		Name:    checkRunName,
		HeadSHA: event.HeadSHA,
		Status:  github.Ptr("in_progress"),
		Output: &github.CheckRunOutput{
			Title:   &title,
			Summary: &summary,
		},
	}
	checkRun, err := s.client.CreateCheckRun(ctx, event.RepoOwner, event.RepoName, opts)
	if err != nil {
		return 0, fmt.Errorf("failed to create check run: %w", err)
	}
	return checkRun.GetID(), nil
}

// Completed updates an existing GitHub Check Run to a "completed" status.
func (s *statusUpdater) Completed(ctx context.Context, event *core.GitHubEvent, checkRunID int64, conclusion, title, summary string) error {
	now := time.Now()
	opts := github.UpdateCheckRunOptions{
		Status:      github.Ptr("completed"),
		Conclusion:  &conclusion,
		CompletedAt: &github.Timestamp{Time: now},
		Output: &github.CheckRunOutput{
			Title:   &title,
			Summary: &summary,
		},
	}
	_, err := s.client.UpdateCheckRun(ctx, event.RepoOwner, event.RepoName, checkRunID, opts)
	return err
}

// PostStructuredReview posts a pull request review. Inline comments go on
// their diff lines with severity badges; comments whose lines are not part of
// the diff are folded into the summary body instead of being dropped.
func (s *statusUpdater) PostStructuredReview(ctx context.Context, event *core.GitHubEvent, review *core.StructuredReview, inline, offDiff []core.ReviewComment) error {
	var drafts []DraftReviewComment
	for _, c := range inline {
		drafts = append(drafts, DraftReviewComment{
			Path: c.FilePath,
			Line: c.Line,
			Body: formatInlineComment(c),
		})
	}

	body := formatReviewSummary(review, offDiff)
	reviewEvent := chooseReviewEvent(event, inline, offDiff)
	return s.client.CreateReview(ctx, event.RepoOwner, event.RepoName, event.PRNumber, reviewEvent, body, drafts)
}

// chooseReviewEvent escalates to REQUEST_CHANGES when a critical or major
// finding lands on a pull request the requesting user did not author. GitHub
// rejects REQUEST_CHANGES reviews on one's own pull request, so self-authored
// ones stay at COMMENT regardless of severity.
func chooseReviewEvent(event *core.GitHubEvent, inline, offDiff []core.ReviewComment) string {
	if event.PRAuthor == event.Sender {
		return ReviewEventComment
	}
	for _, c := range inline {
		if c.Severity.Rank() >= core.SeverityMajor.Rank() {
			return ReviewEventRequestChanges
		}
	}
	for _, c := range offDiff {
		if c.Severity.Rank() >= core.SeverityMajor.Rank() {
			return ReviewEventRequestChanges
		}
	}
	return ReviewEventComment
}

// formatInlineComment renders one finding as a GitHub comment with a severity
// header, an alert block for the rationale, and an optional suggestion.
func formatInlineComment(c core.ReviewComment) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "### %s %s | %s\n\n", severityEmoji(c.Severity), strings.ToUpper(string(c.Severity)), c.Message)
	fmt.Fprintf(&sb, "> [!%s]\n", severityAlert(c.Severity))
	for _, line := range strings.Split(c.Rationale, "\n") {
		if strings.TrimSpace(line) == "" {
			sb.WriteString(">\n")
			continue
		}
		fmt.Fprintf(&sb, "> %s\n", line)
	}

	if c.Suggestion != "" {
		sb.WriteString("\n**Suggestion**\n\n")
		if strings.Contains(c.Suggestion, "```") {
			sb.WriteString(c.Suggestion)
			sb.WriteString("\n")
		} else {
			fmt.Fprintf(&sb, "```suggestion\n%s\n```\n", c.Suggestion)
		}
	}

	return sb.String()
}

// formatReviewSummary generates the review body: the model's summary, a
// severity statistics table, and any findings that could not be anchored to a
// diff line.
func formatReviewSummary(review *core.StructuredReview, offDiff []core.ReviewComment) string {
	var sb strings.Builder

	sb.WriteString("### 📝 Finch Review Summary\n\n")
	sb.WriteString(review.Summary)
	sb.WriteString("\n")

	counts := review.SeverityCounts()
	if len(review.Comments) > 0 {
		sb.WriteString("\n---\n")
		sb.WriteString("#### 📊 Findings\n\n")
		sb.WriteString("| Severity | Count |\n")
		sb.WriteString("|----------|-------|\n")
		for _, sev := range []core.Severity{core.SeverityCritical, core.SeverityMajor, core.SeverityMinor} {
			if count := counts[sev]; count > 0 {
				fmt.Fprintf(&sb, "| %s %s | %d |\n", severityEmoji(sev), sev, count)
			}
		}
	}

	if len(offDiff) > 0 {
		sb.WriteString("\n---\n")
		sb.WriteString("#### 📌 Findings outside the diff\n\n")
		for _, c := range offDiff {
			fmt.Fprintf(&sb, "- %s **%s** `%s:%d` %s\n", severityEmoji(c.Severity), c.Severity, c.FilePath, c.Line, c.Message)
		}
	}

	return sb.String()
}

// severityEmoji returns an emoji badge for the given severity level.
func severityEmoji(severity core.Severity) string {
	switch severity {
	case core.SeverityCritical:
		return "🔴"
	case core.SeverityMajor:
		return "🟠"
	case core.SeverityMinor:
		return "🟡"
	default:
		return "⚪"
	}
}

// severityAlert returns the GitHub Alert type for a severity.
func severityAlert(severity core.Severity) string {
	switch severity {
	case core.SeverityCritical:
		return "CAUTION"
	case core.SeverityMajor:
		return "WARNING"
	default:
		return "NOTE"
	}
}
