package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	slogmulti "github.com/samber/slog-multi"
)

// SetupLogger builds the application logger: human-readable text on stderr
// plus a JSON line per record appended to logFile, so the interactive app can
// be debugged after the fact without polluting the UI. The returned cleanup
// closes the log file.
//
// When the log file cannot be opened the logger degrades to stderr only.
func SetupLogger(logFile string, level slog.Level) (*slog.Logger, func() error) {
	opts := &slog.HandlerOptions{Level: level}
	stderrOnly := slog.New(slog.NewTextHandler(os.Stderr, opts))
	noop := func() error { return nil }

	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		stderrOnly.Warn("cannot create log directory, logging to stderr only",
			"dir", filepath.Dir(logFile), "error", err)
		return stderrOnly, noop
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		stderrOnly.Warn("cannot open log file, logging to stderr only",
			"file", logFile, "error", err)
		return stderrOnly, noop
	}

	logger := slog.New(slogmulti.Fanout(
		slog.NewTextHandler(os.Stderr, opts),
		slog.NewJSONHandler(file, opts),
	))
	return logger, file.Close
}

// SetupLoggerWithWriters builds the same dual-output logger over arbitrary
// writers, used by tests.
func SetupLoggerWithWriters(stderr, file io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	return slog.New(slogmulti.Fanout(
		slog.NewTextHandler(stderr, opts),
		slog.NewJSONHandler(file, opts),
	))
}
