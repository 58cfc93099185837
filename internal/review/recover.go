package review

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/finch-review/finch/internal/core"
)

// ExtractValidJSON turns a raw model response into a parseable JSON review
// document. LLM output is adversarial from a parsing standpoint: truncation,
// repeated decoding artifacts, stray markdown. A single strict parse would
// throw away most otherwise-salvageable responses, so recovery escalates in
// stages, each only running when the previous one failed:
//
//  1. direct parse of the raw text
//  2. markdown/token cleanup and brace slicing
//  3. structural repair (key quoting, trailing commas, line filtering)
//  4. textual fragment reconstruction
//
// It never panics. ok is false only when every stage fails to produce
// something parseable; callers treat that the same as an API error for
// retry-counting purposes.
func ExtractValidJSON(raw string) (string, bool) {
	// Stage 1: the happy path.
	if isJSONObject(raw) {
		return raw, true
	}

	// Stage 2: strip markdown, collapse decoding artifacts, slice braces.
	cleaned := cleanupResponse(raw)
	sliced := sliceBraces(cleaned)
	if isJSONObject(sliced) {
		return sliced, true
	}

	// Stage 3: structural repair on the sliced text.
	repaired := repairStructure(sliced)
	if isJSONObject(repaired) {
		return repaired, true
	}

	// Stage 4: give up on parsing and rebuild from textual fragments.
	// Works on the unsliced text: a summary can legitimately sit outside
	// the outermost braces of a mangled response.
	return reconstructFromFragments(cleaned)
}

// isJSONObject reports whether s parses as a JSON object.
func isJSONObject(s string) bool {
	var v map[string]json.RawMessage
	return json.Unmarshal([]byte(s), &v) == nil
}

var fenceLineRegex = regexp.MustCompile("(?m)^\\s*```[a-zA-Z]*\\s*$")

// cleanupResponse removes markdown fences and backticks and collapses
// repeated token runs.
func cleanupResponse(raw string) string {
	s := fenceLineRegex.ReplaceAllString(raw, "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.ReplaceAll(s, "`", "")
	return strings.TrimSpace(collapseRepeatedTokens(s))
}

// sliceBraces cuts the text between the first '{' and the last '}', dropping
// any prose the model wrapped around the document.
func sliceBraces(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

var tokenRegex = regexp.MustCompile(`\S+`)

// collapseRepeatedTokens reduces runs of three or more identical
// whitespace-separated tokens to a single occurrence. Some models emit the
// same token dozens of times in a row when decoding goes wrong; two repeats
// are left alone since they can be legitimate text.
func collapseRepeatedTokens(s string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		tokens := tokenRegex.FindAllString(line, -1)
		if !hasTripleRun(tokens) {
			out = append(out, line)
			continue
		}

		var kept []string
		run := 0
		for i, tok := range tokens {
			if i > 0 && tok == tokens[i-1] {
				run++
			} else {
				run = 0
			}
			if run >= 2 {
				continue
			}
			kept = append(kept, tok)
		}
		out = append(out, strings.Join(kept, " "))
	}
	return strings.Join(out, "\n")
}

func hasTripleRun(tokens []string) bool {
	for i := 2; i < len(tokens); i++ {
		if tokens[i] == tokens[i-1] && tokens[i] == tokens[i-2] {
			return true
		}
	}
	return false
}

var (
	unquotedKeyRegex   = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_-]*)\s*:`)
	trailingCommaRegex = regexp.MustCompile(`,\s*([}\]])`)
)

// repairStructure quotes bare object keys, strips trailing commas, and drops
// lines that do not look like JSON fragments.
func repairStructure(s string) string {
	s = unquotedKeyRegex.ReplaceAllString(s, `$1"$2":`)
	s = trailingCommaRegex.ReplaceAllString(s, "$1")

	var kept []string
	for _, line := range strings.Split(s, "\n") {
		if looksLikeJSONLine(line) {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// looksLikeJSONLine keeps lines that start with a structural character,
// a digit, or a comma, or that end with ':' or ','.
func looksLikeJSONLine(line string) bool {
	t := strings.TrimSpace(line)
	if t == "" {
		return false
	}
	switch t[0] {
	case '{', '}', '[', ']', '"', ',', '-':
		return true
	}
	if t[0] >= '0' && t[0] <= '9' {
		return true
	}
	return strings.HasSuffix(t, ":") || strings.HasSuffix(t, ",")
}

var (
	summaryRegex    = regexp.MustCompile(`"?summary"?\s*:\s*"((?:[^"\\]|\\.)*)"`)
	fragmentRegex   = regexp.MustCompile(`\{[^{}]*\}`)
	filePathRegex   = regexp.MustCompile(`"?(?:filePath|file_path|path|file)"?\s*:\s*"([^"]+)"`)
	lineNumRegex    = regexp.MustCompile(`"?(?:line|lineNumber|line_number)"?\s*:\s*"?(\d+)`)
	fragSeverityRe  = regexp.MustCompile(`"?severity"?\s*:\s*"([^"]+)"`)
	fragMessageRe   = regexp.MustCompile(`"?message"?\s*:\s*"((?:[^"\\]|\\.)*)"`)
	fragRationaleRe = regexp.MustCompile(`"?rationale"?\s*:\s*"((?:[^"\\]|\\.)*)"`)
	fragSuggestRe   = regexp.MustCompile(`"?(?:suggestion|code)"?\s*:\s*"((?:[^"\\]|\\.)*)"`)
)

const reconstructedSummary = "Automated review response was malformed; the findings below were recovered from partial output."

// reconstructFromFragments regex-extracts the summary string and each
// innermost {...} object from text that is not valid JSON, then rebuilds a
// minimal review document from whatever survives. Fragments missing a file
// path or line number are discarded. When a summary is present but no
// fragment survives, one placeholder comment is synthesized so the caller
// still receives a minimally valid document. Text with neither a summary nor
// usable fragments is unrecoverable.
func reconstructFromFragments(s string) (string, bool) {
	summary, haveSummary := extractSummary(s)

	var comments []core.ReviewComment
	for _, frag := range fragmentRegex.FindAllString(s, -1) {
		pathMatch := filePathRegex.FindStringSubmatch(frag)
		lineMatch := lineNumRegex.FindStringSubmatch(frag)
		if pathMatch == nil || lineMatch == nil {
			continue
		}
		line, err := strconv.Atoi(lineMatch[1])
		if err != nil {
			continue
		}

		raw := RawModelComment{
			FilePath: pathMatch[1],
			Line:     line,
		}
		if m := fragSeverityRe.FindStringSubmatch(frag); m != nil {
			raw.Severity = m[1]
		}
		if m := fragMessageRe.FindStringSubmatch(frag); m != nil {
			raw.Message = unescapeJSONString(m[1])
		}
		if m := fragRationaleRe.FindStringSubmatch(frag); m != nil {
			raw.Rationale = unescapeJSONString(m[1])
		}
		if m := fragSuggestRe.FindStringSubmatch(frag); m != nil {
			raw.Suggestion = unescapeJSONString(m[1])
		}
		comments = append(comments, RepairComment(raw))
	}

	if !haveSummary && len(comments) == 0 {
		return "", false
	}

	if !haveSummary {
		summary = reconstructedSummary
	}
	if len(comments) == 0 {
		comments = append(comments, placeholderComment())
	}

	doc, err := json.Marshal(&core.StructuredReview{
		Summary:  normalizeSummary(summary),
		Comments: comments,
	})
	if err != nil {
		return "", false
	}
	return string(doc), true
}

func extractSummary(s string) (string, bool) {
	m := summaryRegex.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return unescapeJSONString(m[1]), true
}

// unescapeJSONString decodes JSON escape sequences captured by the fragment
// regexes. The captured text is by construction the interior of a JSON string
// literal, so re-wrapping it in quotes yields a decodable value.
func unescapeJSONString(s string) string {
	var out string
	if err := json.Unmarshal([]byte(`"`+s+`"`), &out); err != nil {
		return s
	}
	return out
}

func placeholderComment() core.ReviewComment {
	return core.ReviewComment{
		FilePath:  "unknown",
		Line:      1,
		Severity:  core.SeverityMinor,
		Message:   "Automated review produced no recoverable findings for this change.",
		Rationale: "The model response could not be fully parsed; a manual review of this pull request is recommended.",
	}
}
