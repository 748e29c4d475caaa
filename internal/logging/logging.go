// Package logging configures the process-wide slog logger for the commands.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Setup installs a text handler on stderr as the default logger. Debug
// lowers the level and adds source locations.
func Setup(debug bool) *slog.Logger {
	return SetupWriter(os.Stderr, debug)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}
