// Package core defines the essential interfaces and data structures that form the
// backbone of the application. These components are designed to be abstract,
// allowing for flexible and decoupled implementations of the application's logic.
package core

// Severity is the impact bucket assigned to a review comment.
type Severity string

const (
	// SeverityCritical covers security, crash, and data-loss findings.
	SeverityCritical Severity = "critical"
	// SeverityMajor covers performance and maintainability findings.
	SeverityMajor Severity = "major"
	// SeverityMinor covers style findings.
	SeverityMinor Severity = "minor"
)

// Rank returns the ordinal used for truncation ordering (critical > major > minor).
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityMajor:
		return 2
	case SeverityMinor:
		return 1
	default:
		return 0
	}
}

// IsValid reports whether s is one of the three canonical severities.
func (s Severity) IsValid() bool {
	return s == SeverityCritical || s == SeverityMajor || s == SeverityMinor
}

// ReviewComment is a single actionable finding targeting a line in the new
// version of a changed file.
type ReviewComment struct {
	FilePath   string   `json:"filePath"`
	Line       int      `json:"line"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	Rationale  string   `json:"rationale"`
	Suggestion string   `json:"suggestion,omitempty"`
}
