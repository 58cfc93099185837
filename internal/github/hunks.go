package github

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// hunkHeader captures the new-side start line from a unified diff header,
// e.g. "@@ -10,4 +12,6 @@".
var hunkHeader = regexp.MustCompile(`^@@ -\d+(?:,\d+)? \+(\d+)(?:,\d+)? @@`)

// ParseValidLinesFromPatch returns the set of line numbers in the new version
// of a file that GitHub accepts inline review comments on. Only lines present
// on the + side of the diff qualify; anything outside a hunk is not
// commentable.
func ParseValidLinesFromPatch(patch string, logger *slog.Logger) map[int]struct{} {
	valid := make(map[int]struct{})

	// -1 means we are not inside a usable hunk.
	newLine := -1

	for _, raw := range strings.Split(patch, "\n") {
		if strings.HasPrefix(raw, "@@") {
			m := hunkHeader.FindStringSubmatch(raw)
			if m == nil {
				if logger != nil {
					logger.Warn("skipped malformed hunk header", "line", raw)
				}
				newLine = -1
				continue
			}
			start, err := strconv.Atoi(m[1])
			if err != nil {
				if logger != nil {
					logger.Warn("skipped malformed hunk header", "line", raw, "error", err)
				}
				newLine = -1
				continue
			}
			newLine = start
			continue
		}
		if newLine == -1 {
			continue
		}

		switch {
		case strings.HasPrefix(raw, "+"), strings.HasPrefix(raw, " "):
			// Context and added lines both exist in the new file.
			valid[newLine] = struct{}{}
			newLine++
		case strings.HasPrefix(raw, "-"):
			// Removed lines only exist in the old file.
		case raw == `\ No newline at end of file`:
		case raw == "":
			// Trailing blank line after the last hunk.
		}
	}

	return valid
}
