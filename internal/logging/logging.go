package logging

import (
	"log/slog"
	"os"
	"strings"
)

// New creates the root pipeline logger on stderr with the provided level
// string. Components derive children via logger.With("component", ...).
func New(level string) *slog.Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler)
}

func parseLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		// Unknown strings get the production default rather than debug spew.
		return slog.LevelInfo
	}
}
