package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerFormats(t *testing.T) {
	t.Run("text handler includes level and message", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(Config{Level: "info", Format: "text"}, &buf)

		log.Info("service started", "port", 8080)

		out := buf.String()
		assert.Contains(t, out, "level=INFO")
		assert.Contains(t, out, `msg="service started"`)
		assert.Contains(t, out, "port=8080")
	})

	t.Run("json handler emits parseable records", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(Config{Level: "debug", Format: "json"}, &buf)

		log.Debug("review queued", "repo", "acme/rocket")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "DEBUG", entry["level"])
		assert.Equal(t, "review queued", entry["msg"])
		assert.Equal(t, "acme/rocket", entry["repo"])
	})

	t.Run("unknown format falls back to text", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(Config{Level: "info", Format: "logfmt"}, &buf)

		log.Info("hello")

		assert.Contains(t, buf.String(), "level=INFO")
	})
}

func TestNewLoggerLevels(t *testing.T) {
	t.Run("messages below the configured level are dropped", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(Config{Level: "warn", Format: "text"}, &buf)

		log.Info("too quiet")
		assert.Empty(t, buf.String())

		log.Warn("loud enough")
		assert.Contains(t, buf.String(), "loud enough")
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(Config{Level: "shouting", Format: "text"}, &buf)

		log.Debug("hidden")
		assert.Empty(t, buf.String())

		log.Info("visible")
		assert.Contains(t, buf.String(), "visible")
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.input), "level %q", tt.input)
	}
}
