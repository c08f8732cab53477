package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Logg is the process-wide logger. Main replaces it with one built from the
// configured level; the default keeps package tests usable without setup.
var Logg = NewLogger("info")

// NewLogger builds a slog logger writing JSON records to stdout, colored by
// level when attached to a terminal.
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

	handler := NewColorHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}
