// Package logger builds the application's slog logger from configuration.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// DefaultLogFile is where file-based logging goes when enabled.
const DefaultLogFile = "finch.log"

// Config holds the logger configuration.
type Config struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// NewLogger initializes a slog logger from the configuration. A non-nil
// writer overrides the configured output, which lets tests capture logs.
// Unknown levels fall back to info and unknown formats to text.
func NewLogger(cfg Config, w io.Writer) *slog.Logger {
	if w == nil {
		w = resolveWriter(cfg.Output)
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func resolveWriter(output string) io.Writer {
	switch output {
	case "stderr":
		return os.Stderr
	case "file":
		f, err := os.OpenFile(DefaultLogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			slog.Warn("failed to open log file, logging to stdout", "file", DefaultLogFile, "error", err)
			return os.Stdout
		}
		return f
	default:
		return os.Stdout
	}
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
