package jobs

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/finch-review/finch/internal/core"
)

func TestSplitCommentsByDiff(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	validFiles := map[string]map[int]struct{}{
		"main.go":       {1: {}, 10: {}, 20: {}},
		"pkg/util.go":   {1: {}, 5: {}},
		"cmd/server.go": {1: {}},
	}

	tests := []struct {
		name        string
		comments    []core.ReviewComment
		wantInline  int
		wantOffDiff int
	}{
		{
			name: "all comments land on diff lines",
			comments: []core.ReviewComment{
				{FilePath: "main.go", Line: 1},
				{FilePath: "pkg/util.go", Line: 1},
			},
			wantInline:  2,
			wantOffDiff: 0,
		},
		{
			name: "unknown files go off-diff",
			comments: []core.ReviewComment{
				{FilePath: "main.go", Line: 1},
				{FilePath: "invalid.go", Line: 1},
				{FilePath: "src/old.java", Line: 1},
			},
			wantInline:  1,
			wantOffDiff: 2,
		},
		{
			name: "leading ./ prefix is normalized",
			comments: []core.ReviewComment{
				{FilePath: "./main.go", Line: 1},
			},
			wantInline:  1,
			wantOffDiff: 0,
		},
		{
			name: "known file but off-diff line",
			comments: []core.ReviewComment{
				{FilePath: "main.go", Line: 999},
			},
			wantInline:  0,
			wantOffDiff: 1,
		},
		{
			name: "mix of inline and off-diff",
			comments: []core.ReviewComment{
				{FilePath: "main.go", Line: 1},
				{FilePath: "main.go", Line: 999},
				{FilePath: "pkg/util.go", Line: 5},
				{FilePath: "pkg/util.go", Line: 100},
			},
			wantInline:  2,
			wantOffDiff: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inline, offDiff := SplitCommentsByDiff(logger, tt.comments, validFiles)
			assert.Len(t, inline, tt.wantInline)
			assert.Len(t, offDiff, tt.wantOffDiff)
		})
	}
}

func TestSplitCommentsByDiff_EmptyLineMap(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	comments := []core.ReviewComment{{FilePath: "main.go", Line: 1}}

	inline, offDiff := SplitCommentsByDiff(logger, comments, nil)
	assert.Empty(t, inline, "without diff knowledge nothing can be posted inline")
	assert.Len(t, offDiff, 1)
}
