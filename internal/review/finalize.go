package review

import (
	"github.com/finch-review/finch/internal/core"
)

const degradedSummary = "Automated review could not validate the model's output for this pull request. The findings below are synthesized per changed file; a manual review is recommended."

// emergencyComment is the terminal safety net used when even the fallback
// comment list is empty.
func emergencyComment() core.ReviewComment {
	return core.ReviewComment{
		FilePath:  "unknown",
		Line:      1,
		Severity:  core.SeverityMinor,
		Message:   "Automated review completed without any usable findings; manual review recommended.",
		Rationale: "Neither the model response nor the fallback generator produced a valid comment for this pull request.",
	}
}

// Finalize is the last gate before persistence and posting. It re-validates
// the orchestrator's best candidate comment-by-comment, dropping (never
// repairing) anything invalid, and substitutes the fallback response when the
// candidate is nil or ends up with zero surviving comments. The returned
// review always passes ValidateReview; nothing downstream re-validates.
func Finalize(parsed *core.StructuredReview, fallback []core.ReviewComment) (*core.StructuredReview, bool) {
	if parsed != nil {
		kept := make([]core.ReviewComment, 0, len(parsed.Comments))
		for _, c := range parsed.Comments {
			if len(ValidateComment(c)) == 0 {
				kept = append(kept, c)
			}
		}
		if len(kept) > MaxCommentsInput {
			kept = kept[:MaxCommentsInput]
		}
		if len(kept) > 0 {
			return &core.StructuredReview{
				Summary:  normalizeSummary(parsed.Summary),
				Comments: kept,
			}, false
		}
	}

	// Fallback path. The fallback generator produces valid comments by
	// construction, but the gate's output guarantee must hold for any input,
	// so stray invalid entries are repaired rather than trusted.
	comments := make([]core.ReviewComment, 0, len(fallback))
	for _, c := range fallback {
		if len(ValidateComment(c)) > 0 {
			c = RepairComment(RawModelComment{
				FilePath:   c.FilePath,
				Line:       c.Line,
				Severity:   string(c.Severity),
				Message:    c.Message,
				Rationale:  c.Rationale,
				Suggestion: c.Suggestion,
			})
		}
		comments = append(comments, c)
	}
	if len(comments) == 0 {
		comments = []core.ReviewComment{emergencyComment()}
	}
	if len(comments) > MaxCommentsInput {
		comments = comments[:MaxCommentsInput]
	}
	return &core.StructuredReview{
		Summary:  degradedSummary,
		Comments: comments,
	}, true
}
