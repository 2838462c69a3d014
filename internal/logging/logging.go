package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// New returns a JSON logger that writes to stderr and, when logFile is set,
// appends to that file as well. The logger becomes the slog default. Callers
// must defer the returned close func.
func New(level, logFile string) (*slog.Logger, func(), error) {
	out := []io.Writer{os.Stderr}
	closeFn := func() {}

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = append(out, f)
		closeFn = func() { _ = f.Close() }
	}

	logger := newLogger(io.MultiWriter(out...), level)
	slog.SetDefault(logger)
	return logger, closeFn, nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	return slog.New(handler).With("app", "recipecam")
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
