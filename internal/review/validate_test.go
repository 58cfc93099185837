package review

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finch-review/finch/internal/core"
)

func validComment() core.ReviewComment {
	return core.ReviewComment{
		FilePath:  "internal/server/router.go",
		Line:      42,
		Severity:  core.SeverityMajor,
		Message:   "Handler ignores the request context",
		Rationale: "Dropping the context breaks cancellation propagation for downstream calls.",
	}
}

func TestValidateComment(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *core.ReviewComment)
		valid  bool
	}{
		{
			name:   "valid comment",
			mutate: func(_ *core.ReviewComment) {},
			valid:  true,
		},
		{
			name:   "missing file path",
			mutate: func(c *core.ReviewComment) { c.FilePath = "" },
		},
		{
			name:   "line zero",
			mutate: func(c *core.ReviewComment) { c.Line = 0 },
		},
		{
			name:   "negative line",
			mutate: func(c *core.ReviewComment) { c.Line = -3 },
		},
		{
			name:   "severity outside enum",
			mutate: func(c *core.ReviewComment) { c.Severity = "blocker" },
		},
		{
			name:   "legacy severity scale rejected",
			mutate: func(c *core.ReviewComment) { c.Severity = "high" },
		},
		{
			name:   "empty message",
			mutate: func(c *core.ReviewComment) { c.Message = "" },
		},
		{
			name:   "message too long",
			mutate: func(c *core.ReviewComment) { c.Message = strings.Repeat("x", MaxMessageLen+1) },
		},
		{
			name:   "rationale too short",
			mutate: func(c *core.ReviewComment) { c.Rationale = "short" },
		},
		{
			name:   "rationale too long",
			mutate: func(c *core.ReviewComment) { c.Rationale = strings.Repeat("x", MaxRationaleLen+1) },
		},
		{
			name:   "suggestion too long",
			mutate: func(c *core.ReviewComment) { c.Suggestion = strings.Repeat("x", MaxSuggestionLen+1) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validComment()
			tt.mutate(&c)
			errs := ValidateComment(c)
			if tt.valid {
				assert.Empty(t, errs)
			} else {
				assert.NotEmpty(t, errs)
			}
		})
	}
}

func TestValidateComment_ReportsAllProblems(t *testing.T) {
	errs := ValidateComment(core.ReviewComment{})
	// Missing path, bad line, bad severity, empty message, short rationale.
	assert.Len(t, errs, 5)
}

func TestValidateReview(t *testing.T) {
	t.Run("nil review", func(t *testing.T) {
		assert.NotEmpty(t, ValidateReview(nil))
	})

	t.Run("summary too short", func(t *testing.T) {
		r := &core.StructuredReview{Summary: "short", Comments: []core.ReviewComment{validComment()}}
		assert.NotEmpty(t, ValidateReview(r))
	})

	t.Run("too many comments", func(t *testing.T) {
		r := &core.StructuredReview{Summary: "a perfectly fine summary"}
		for range MaxCommentsInput + 1 {
			r.Comments = append(r.Comments, validComment())
		}
		assert.NotEmpty(t, ValidateReview(r))
	})

	t.Run("valid review", func(t *testing.T) {
		r := &core.StructuredReview{
			Summary:  "Looks solid overall, two things worth a second pass.",
			Comments: []core.ReviewComment{validComment()},
		}
		assert.Empty(t, ValidateReview(r))
	})
}

func TestDecodeReview_RejectsUnknownFields(t *testing.T) {
	doc := `{"summary":"a perfectly fine summary","comments":[],"confidence":0.9}`
	parsed, errs := DecodeReview(doc)
	assert.Nil(t, parsed)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0], "confidence")
}

func TestDecodeReview_IgnoresExtraNestedFields(t *testing.T) {
	doc := `{"summary":"one injection risk found","comments":[{"filePath":"a.go","line":5,"severity":"critical","message":"SQL injection","rationale":"user input concatenated into query string","confidence":0.9,"code":"db.Query(q)"}]}`
	parsed, errs := DecodeReview(doc)
	require.Empty(t, errs)
	require.NotNil(t, parsed)
	require.Len(t, parsed.Comments, 1)
	assert.Equal(t, "a.go", parsed.Comments[0].FilePath)
	assert.Equal(t, core.SeverityCritical, parsed.Comments[0].Severity)
}

func TestDecodeReview_ReportsEveryUnknownTopLevelField(t *testing.T) {
	doc := `{"summary":"a perfectly fine summary","comments":[],"verdict":"approve","confidence":0.9}`
	parsed, errs := DecodeReview(doc)
	assert.Nil(t, parsed)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "confidence")
	assert.Contains(t, errs[1], "verdict")
}

func TestDecodeReview_RejectsWrongTypes(t *testing.T) {
	doc := `{"summary":"a perfectly fine summary","comments":[{"filePath":"a.go","line":"five","severity":"minor","message":"m","rationale":"long enough rationale"}]}`
	parsed, errs := DecodeReview(doc)
	assert.Nil(t, parsed)
	assert.NotEmpty(t, errs)
}

func TestClassifySeverity(t *testing.T) {
	tests := []struct {
		name      string
		message   string
		rationale string
		want      core.Severity
	}{
		{"security keyword", "Possible SQL injection", "user input reaches the query, a security problem", core.SeverityCritical},
		{"crash keyword", "Server may crash", "nil map write", core.SeverityCritical},
		{"null pointer in rationale", "Check this dereference", "possible null pointer on the error path", core.SeverityCritical},
		{"performance keyword", "Quadratic loop", "performance degrades with large inputs", core.SeverityMajor},
		{"error handling keyword", "Return value dropped", "missing error-handling on Close", core.SeverityMajor},
		{"critical outranks major", "security and performance both apply", "both tiers mentioned", core.SeverityCritical},
		{"no keyword defaults to minor", "Rename this variable", "reads better in context", core.SeverityMinor},
		{"case insensitive", "SECURITY issue", "UPPERCASED", core.SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifySeverity(tt.message, tt.rationale))
		})
	}
}
