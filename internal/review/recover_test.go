package review

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finch-review/finch/internal/core"
)

const validReviewJSON = `{"summary":"one injection risk found","comments":[{"filePath":"a.ts","line":5,"severity":"critical","message":"SQL injection","rationale":"user input concatenated into query string without parameterization"}]}`

func TestExtractValidJSON_DirectParse(t *testing.T) {
	got, ok := ExtractValidJSON(validReviewJSON)
	require.True(t, ok)
	assert.Equal(t, validReviewJSON, got)
}

func TestExtractValidJSON_MarkdownFence(t *testing.T) {
	raw := "```json\n" + validReviewJSON + "\n```"
	got, ok := ExtractValidJSON(raw)
	require.True(t, ok)

	var v map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(got), &v))
	assert.Contains(t, got, "SQL injection")
}

func TestExtractValidJSON_UnquotedKeyAndTrailingComma(t *testing.T) {
	raw := `{"summary":"a perfectly fine summary","comments":[{"filePath":"a.go","line":5,severity:"minor","message":"m","rationale":"long enough rationale",}]}`
	got, ok := ExtractValidJSON(raw)
	require.True(t, ok)

	parsed, errs := DecodeReview(got)
	require.Empty(t, errs)
	assert.Equal(t, core.SeverityMinor, parsed.Comments[0].Severity)
}

func TestExtractValidJSON_RepeatedTokenCorruption(t *testing.T) {
	raw := `{"summary": "a perfectly fine summary", "comments": [] [] [] }`
	got, ok := ExtractValidJSON(raw)
	require.True(t, ok)

	var v map[string]json.RawMessage
	assert.NoError(t, json.Unmarshal([]byte(got), &v))
}

func TestExtractValidJSON_FragmentReconstruction(t *testing.T) {
	raw := `The review follows.
"summary": "Two issues found in the request handler."
{"filePath": "a.go", "line": 10, "severity": "high", "code": "use ctx"}
{"file": "b.go", "line": 2, "message": "shadowed variable"}
{"severity": "low", "message": "orphan fragment without a location"}
trailing garbage`
	got, ok := ExtractValidJSON(raw)
	require.True(t, ok)

	parsed, errs := DecodeReview(got)
	require.Empty(t, errs, "reconstructed document must pass validation")
	assert.Contains(t, parsed.Summary, "Two issues found")
	require.Len(t, parsed.Comments, 2, "fragment without filePath/line is discarded")

	// Legacy shape is adapted: high maps to critical, code to suggestion.
	assert.Equal(t, "a.go", parsed.Comments[0].FilePath)
	assert.Equal(t, core.SeverityCritical, parsed.Comments[0].Severity)
	assert.Equal(t, "use ctx", parsed.Comments[0].Suggestion)
	assert.Equal(t, "b.go", parsed.Comments[1].FilePath)
}

func TestExtractValidJSON_SummaryOnlyGetsPlaceholder(t *testing.T) {
	raw := `"summary": "The change set is small and looks reasonable." and then the model trailed off`
	got, ok := ExtractValidJSON(raw)
	require.True(t, ok)

	parsed, errs := DecodeReview(got)
	require.Empty(t, errs)
	require.Len(t, parsed.Comments, 1)
	assert.Equal(t, "unknown", parsed.Comments[0].FilePath)
}

// Recovery must terminate and either return reparseable JSON or report
// failure, for any input.
func TestExtractValidJSON_NeverPanicsAlwaysTerminates(t *testing.T) {
	inputs := []string{
		"",
		"complete nonsense without any structure at all",
		"{{{{{{",
		"}}}}}}",
		"{\"unterminated\": \"stri",
		validReviewJSON,
		"```json\n" + validReviewJSON + "\n```",
		"` ` ` stray backticks ` ` `",
		"null",
		"[1,2,3]",
		"{\"summary\": 12345}",
	}

	for _, in := range inputs {
		got, ok := ExtractValidJSON(in)
		if ok {
			var v map[string]json.RawMessage
			assert.NoError(t, json.Unmarshal([]byte(got), &v), "input %q produced unparseable output", in)
		} else {
			assert.Empty(t, got)
		}
	}
}

func TestExtractValidJSON_PureGarbageReturnsNotOK(t *testing.T) {
	_, ok := ExtractValidJSON("the model refused to answer and wrote a poem instead")
	assert.False(t, ok)
}
