package review

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/finch-review/finch/internal/core"
)

// RawModelComment is a loosely-typed comment candidate as the model actually
// emits it. Models sometimes use the legacy shape: a low/medium/high severity
// scale and a "code" field instead of "suggestion". RepairComment is the
// single adapter from either shape onto the canonical one.
type RawModelComment struct {
	FilePath   string `json:"filePath"`
	Path       string `json:"path"`
	Line       int    `json:"line"`
	Severity   string `json:"severity"`
	Message    string `json:"message"`
	Rationale  string `json:"rationale"`
	Suggestion string `json:"suggestion"`
	Code       string `json:"code"`
}

// RepairComment maps a loose candidate onto a structurally valid
// ReviewComment. It never fails: missing fields are replaced with
// severity-appropriate generated text and out-of-bound values are clamped.
func RepairComment(raw RawModelComment) core.ReviewComment {
	path := strings.TrimSpace(raw.FilePath)
	if path == "" {
		path = strings.TrimSpace(raw.Path)
	}
	if path == "" {
		path = "unknown"
	}

	line := raw.Line
	if line < 1 {
		line = 1
	}

	message := strings.TrimSpace(raw.Message)
	rationale := strings.TrimSpace(raw.Rationale)

	severity, ok := canonicalSeverity(raw.Severity)
	if !ok {
		severity = ClassifySeverity(message, rationale)
	}

	if message == "" {
		message = defaultMessage(severity)
	}
	if len(rationale) < MinRationaleLen {
		rationale = defaultRationale(severity)
	}

	suggestion := strings.TrimSpace(raw.Suggestion)
	if suggestion == "" {
		suggestion = strings.TrimSpace(raw.Code)
	}

	return core.ReviewComment{
		FilePath:   path,
		Line:       line,
		Severity:   severity,
		Message:    truncate(message, MaxMessageLen),
		Rationale:  truncate(rationale, MaxRationaleLen),
		Suggestion: truncate(suggestion, MaxSuggestionLen),
	}
}

// canonicalSeverity maps both the canonical scale and the legacy
// low/medium/high scale onto critical/major/minor.
func canonicalSeverity(s string) (core.Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical", "high":
		return core.SeverityCritical, true
	case "major", "medium":
		return core.SeverityMajor, true
	case "minor", "low":
		return core.SeverityMinor, true
	default:
		return "", false
	}
}

func defaultMessage(s core.Severity) string {
	switch s {
	case core.SeverityCritical:
		return "Potential critical issue detected in this change."
	case core.SeverityMajor:
		return "Potential maintainability or performance issue in this change."
	default:
		return "Minor improvement opportunity in this change."
	}
}

func defaultRationale(s core.Severity) string {
	switch s {
	case core.SeverityCritical:
		return "The automated review flagged this location as high risk; verify correctness and security implications manually."
	case core.SeverityMajor:
		return "The automated review flagged this location as worth attention; verify behavior under load and in error paths."
	default:
		return "The automated review flagged this location for a small readability or style improvement."
	}
}

const fallbackSummary = "Automated review could not produce a validated result for this pull request. The comments below were generated per changed file; a manual review is recommended."

// normalizeSummary clamps a summary into its validity bounds, substituting
// generated text when the input is too short to stand on its own.
func normalizeSummary(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < MinSummaryLen {
		return fallbackSummary
	}
	return truncate(s, MaxSummaryLen)
}

// truncate shortens s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && s[n]&0xC0 == 0x80 {
		n--
	}
	return s[:n]
}

// High-risk extensions get stricter fallback severities: these are the
// languages where large unreviewed changes are most likely to hide problems.
var highRiskExts = map[string]string{
	".ts":   "TypeScript",
	".tsx":  "TypeScript",
	".js":   "JavaScript",
	".jsx":  "JavaScript",
	".py":   "Python",
	".java": "Java",
	".go":   "Go",
	".rs":   "Rust",
}

// GenerateFallbackComments synthesizes one guaranteed-valid comment per
// distinct changed file. It is invoked when the retry budget is exhausted
// without a schema-valid response: the system must never silently produce
// zero feedback for a PR it claims to have reviewed, because absence of
// signal is indistinguishable from "no issues found". An empty file list
// still yields exactly one comment.
func GenerateFallbackComments(rawResponse string, changedFiles []core.ChangedFile) []core.ReviewComment {
	if len(changedFiles) == 0 {
		return []core.ReviewComment{emptyChangeSetComment(rawResponse)}
	}

	seen := make(map[string]struct{}, len(changedFiles))
	comments := make([]core.ReviewComment, 0, len(changedFiles))
	for _, f := range changedFiles {
		if _, dup := seen[f.Path]; dup {
			continue
		}
		seen[f.Path] = struct{}{}
		comments = append(comments, fallbackCommentForFile(f))
	}
	return comments
}

func fallbackCommentForFile(f core.ChangedFile) core.ReviewComment {
	return core.ReviewComment{
		FilePath:  f.Path,
		Line:      1,
		Severity:  fallbackSeverity(f),
		Message:   truncate(fallbackMessage(f), MaxMessageLen),
		Rationale: "The automated review did not return a usable result for this pull request, so this file could not be analyzed in detail.",
	}
}

// fallbackSeverity rates a file by change volume and extension risk tier.
func fallbackSeverity(f core.ChangedFile) core.Severity {
	changes := f.Changes()
	if _, highRisk := highRiskExts[strings.ToLower(filepath.Ext(f.Path))]; highRisk {
		if changes > 100 {
			return core.SeverityCritical
		}
		if changes > 20 {
			return core.SeverityMajor
		}
	}
	if changes > 200 {
		return core.SeverityMajor
	}
	return core.SeverityMinor
}

func fallbackMessage(f core.ChangedFile) string {
	changes := f.Changes()
	lang, highRisk := highRiskExts[strings.ToLower(filepath.Ext(f.Path))]
	if !highRisk {
		return fmt.Sprintf("File %s has %d changed lines; manual review recommended.", f.Path, changes)
	}

	concern := "correctness"
	switch lang {
	case "TypeScript":
		concern = "type safety"
	case "JavaScript":
		concern = "runtime type errors"
	case "Python":
		concern = "runtime errors and typing"
	case "Go", "Rust":
		concern = "error handling and concurrency"
	case "Java":
		concern = "null handling and resource management"
	}
	return fmt.Sprintf("%s file %s has %d changed lines; manual review recommended for %s.", lang, f.Path, changes, concern)
}

func emptyChangeSetComment(rawResponse string) core.ReviewComment {
	message := "Automated review could not determine which files changed; manual review recommended."
	if strings.TrimSpace(rawResponse) == "" {
		message = "Automated review received no model output and no changed-file list; manual review recommended."
	}
	return core.ReviewComment{
		FilePath:  "unknown",
		Line:      1,
		Severity:  core.SeverityMinor,
		Message:   message,
		Rationale: "A review was requested but neither a usable model response nor a changed-file list was available.",
	}
}
