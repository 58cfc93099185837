package config

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/finch-review/finch/internal/core"
	"github.com/finch-review/finch/mocks"
)

func TestParseRepoConfig(t *testing.T) {
	t.Run("overrides defaults", func(t *testing.T) {
		data := []byte(`
enabled_severities: [critical, major]
threshold_mode: adaptive
ignore_minor_threshold: 0.4
max_comments_per_review: 10
model: gpt-4o
`)
		cfg, err := ParseRepoConfig(data)
		require.NoError(t, err)

		assert.Equal(t, []core.Severity{core.SeverityCritical, core.SeverityMajor}, cfg.EnabledSeverities)
		assert.Equal(t, core.ThresholdAdaptive, cfg.ThresholdMode)
		assert.Equal(t, 0.4, cfg.IgnoreMinorThreshold)
		assert.Equal(t, 10, cfg.MaxCommentsPerReview)
		assert.Equal(t, "gpt-4o", cfg.Model)
		// Untouched fields keep their defaults.
		assert.Equal(t, 0.2, cfg.Temperature)
	})

	t.Run("empty file yields defaults", func(t *testing.T) {
		cfg, err := ParseRepoConfig([]byte(""))
		require.NoError(t, err)
		assert.Equal(t, core.DefaultRepoReviewConfig(), cfg)
	})

	t.Run("malformed yaml is an error", func(t *testing.T) {
		_, err := ParseRepoConfig([]byte("enabled_severities: [unterminated"))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrConfigParsing)
	})
}

func TestParseRepoConfigOver(t *testing.T) {
	baseline := core.DefaultRepoReviewConfig()
	baseline.Model = "claude-sonnet"

	t.Run("baseline model survives a file that does not set one", func(t *testing.T) {
		cfg, err := ParseRepoConfigOver([]byte("max_comments_per_review: 5"), baseline)
		require.NoError(t, err)
		assert.Equal(t, "claude-sonnet", cfg.Model)
		assert.Equal(t, 5, cfg.MaxCommentsPerReview)
	})

	t.Run("file model wins over the baseline", func(t *testing.T) {
		cfg, err := ParseRepoConfigOver([]byte("model: gpt-4o"), core.DefaultRepoReviewConfig())
		require.NoError(t, err)
		assert.Equal(t, "gpt-4o", cfg.Model)
	})
}

func TestRepoConfigResolver_DefaultModel(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	event := &core.GitHubEvent{
		RepoOwner:    "acme",
		RepoName:     "rocket",
		RepoFullName: "acme/rocket",
		HeadSHA:      "abc123",
	}

	t.Run("operator model applies when no file exists", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		ghMock := mocks.NewMockGitHubClient(ctrl)
		ghMock.EXPECT().
			GetFileContent(gomock.Any(), "acme", "rocket", RepoConfigFile, "abc123").
			Return(nil, errors.New("not found"))

		resolver := NewRepoConfigResolver(nil, logger, "claude-sonnet")
		cfg := resolver.Resolve(context.Background(), ghMock, event)

		assert.Equal(t, "claude-sonnet", cfg.Model)
	})

	t.Run("file model still wins over the operator default", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		ghMock := mocks.NewMockGitHubClient(ctrl)
		ghMock.EXPECT().
			GetFileContent(gomock.Any(), "acme", "rocket", RepoConfigFile, "abc123").
			Return([]byte("model: gpt-4o"), nil)

		resolver := NewRepoConfigResolver(nil, logger, "claude-sonnet")
		cfg := resolver.Resolve(context.Background(), ghMock, event)

		assert.Equal(t, "gpt-4o", cfg.Model)
	})
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLogLevel(tt.in), "level %q", tt.in)
	}
}
