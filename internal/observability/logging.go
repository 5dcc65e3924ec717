// Package observability provides logging and metrics for the sync core.
package observability

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds a JSON slog logger at the given level. Unknown levels
// fall back to info.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}

// NopLogger discards everything. Handy default for constructors so callers
// are never forced to wire logging.
func NopLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
