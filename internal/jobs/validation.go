package jobs

import (
	"log/slog"
	"strings"

	"github.com/finch-review/finch/internal/core"
)

// SplitCommentsByDiff partitions review comments into inline (anchored to a
// commentable diff line) and off-diff groups. GitHub rejects inline review
// comments on lines outside the diff, so off-diff findings are folded into
// the review body by the caller instead of being dropped.
func SplitCommentsByDiff(logger *slog.Logger, comments []core.ReviewComment, validLineMaps map[string]map[int]struct{}) (inline, offDiff []core.ReviewComment) {
	if len(validLineMaps) == 0 {
		logger.Warn("valid lines map is empty, treating all comments as off-diff")
		return nil, comments
	}

	for _, c := range comments {
		cleanPath := strings.TrimPrefix(c.FilePath, "./")
		lines, exists := validLineMaps[cleanPath]
		if !exists {
			logger.Warn("moving comment to general findings (file not in PR)",
				"original", c.FilePath,
				"normalized", cleanPath,
			)
			offDiff = append(offDiff, c)
			continue
		}

		if _, lineExists := lines[c.Line]; lineExists {
			inline = append(inline, c)
		} else {
			logger.Warn("moving comment to general findings (off-diff line)",
				"original", c.FilePath,
				"normalized", cleanPath,
				"line", c.Line,
			)
			offDiff = append(offDiff, c)
		}
	}
	return inline, offDiff
}
