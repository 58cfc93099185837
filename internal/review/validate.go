// Package review implements the AI-review response pipeline: recovery of
// malformed model output, schema validation, retry orchestration, fallback
// synthesis, and per-repository comment filtering.
package review

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/finch-review/finch/internal/core"
)

// Field bounds for the structural contract. Comments failing any of these are
// dropped, not coerced.
const (
	MaxMessageLen    = 500
	MinRationaleLen  = 10
	MaxRationaleLen  = 1000
	MaxSuggestionLen = 2000
	MinSummaryLen    = 10
	MaxSummaryLen    = 2000
	MaxCommentsInput = 50
)

// ValidateComment checks one candidate comment against the structural
// contract. It returns the full list of problems so callers can report every
// violation at once; an empty slice means the comment is valid.
func ValidateComment(c core.ReviewComment) []string {
	var errs []string

	if c.FilePath == "" {
		errs = append(errs, "filePath must not be empty")
	}
	if c.Line < 1 {
		errs = append(errs, fmt.Sprintf("line must be >= 1, got %d", c.Line))
	}
	if !c.Severity.IsValid() {
		errs = append(errs, fmt.Sprintf("severity %q is not one of critical/major/minor", c.Severity))
	}
	if len(c.Message) == 0 {
		errs = append(errs, "message must not be empty")
	} else if len(c.Message) > MaxMessageLen {
		errs = append(errs, fmt.Sprintf("message exceeds %d characters", MaxMessageLen))
	}
	if len(c.Rationale) < MinRationaleLen {
		errs = append(errs, fmt.Sprintf("rationale must be at least %d characters", MinRationaleLen))
	} else if len(c.Rationale) > MaxRationaleLen {
		errs = append(errs, fmt.Sprintf("rationale exceeds %d characters", MaxRationaleLen))
	}
	if len(c.Suggestion) > MaxSuggestionLen {
		errs = append(errs, fmt.Sprintf("suggestion exceeds %d characters", MaxSuggestionLen))
	}

	return errs
}

// ValidateReview checks a whole candidate review, including every comment.
func ValidateReview(r *core.StructuredReview) []string {
	if r == nil {
		return []string{"review is nil"}
	}

	var errs []string
	if len(r.Summary) < MinSummaryLen {
		errs = append(errs, fmt.Sprintf("summary must be at least %d characters", MinSummaryLen))
	} else if len(r.Summary) > MaxSummaryLen {
		errs = append(errs, fmt.Sprintf("summary exceeds %d characters", MaxSummaryLen))
	}
	if len(r.Comments) > MaxCommentsInput {
		errs = append(errs, fmt.Sprintf("review has %d comments, maximum is %d", len(r.Comments), MaxCommentsInput))
	}
	for i, c := range r.Comments {
		for _, problem := range ValidateComment(c) {
			errs = append(errs, fmt.Sprintf("comment %d: %s", i, problem))
		}
	}
	return errs
}

// DecodeReview parses a JSON document into a StructuredReview and validates
// it. The top-level object is closed: any field other than summary and
// comments fails the decode. Inside comments the decode is lenient, so extra
// keys the model invents (confidence scores, the legacy code field) are
// ignored rather than burning a retry; wrong types and bound violations are
// still reported. A non-empty error list means the document is unusable as-is
// and the attempt counts as a validation failure.
func DecodeReview(jsonStr string) (*core.StructuredReview, []string) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(jsonStr), &top); err != nil {
		return nil, []string{fmt.Sprintf("decoding review: %v", err)}
	}

	var unknown []string
	for key := range top {
		if key != "summary" && key != "comments" {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		errs := make([]string, 0, len(unknown))
		for _, key := range unknown {
			errs = append(errs, fmt.Sprintf("unknown top-level field %q", key))
		}
		return nil, errs
	}

	var r core.StructuredReview
	if raw, ok := top["summary"]; ok {
		if err := json.Unmarshal(raw, &r.Summary); err != nil {
			return nil, []string{fmt.Sprintf("decoding summary: %v", err)}
		}
	}
	if raw, ok := top["comments"]; ok {
		if err := json.Unmarshal(raw, &r.Comments); err != nil {
			return nil, []string{fmt.Sprintf("decoding comments: %v", err)}
		}
	}

	if errs := ValidateReview(&r); len(errs) > 0 {
		return nil, errs
	}
	return &r, nil
}

// Ordered keyword tiers for the fallback severity classifier. Checked
// critical tier first; the first match wins.
var (
	criticalKeywords = []string{
		"security", "vulnerability", "bug", "crash", "deadlock",
		"null-pointer", "null pointer", "infinite-loop", "infinite loop",
	}
	majorKeywords = []string{
		"performance", "memory-leak", "memory leak", "complexity",
		"error-handling", "error handling", "scalability",
	}
)

// ClassifySeverity buckets free text into a severity by ordered keyword
// matching over the lower-cased concatenation of message and rationale.
// It is a fallback used only when the model's own severity label is missing
// or unusable; it never overrides an explicit, valid value.
func ClassifySeverity(message, rationale string) core.Severity {
	text := strings.ToLower(message + " " + rationale)

	for _, kw := range criticalKeywords {
		if strings.Contains(text, kw) {
			return core.SeverityCritical
		}
	}
	for _, kw := range majorKeywords {
		if strings.Contains(text, kw) {
			return core.SeverityMajor
		}
	}
	return core.SeverityMinor
}
