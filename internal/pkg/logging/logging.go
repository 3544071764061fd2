// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup installs the default logger. level is any slog level name ("debug",
// "info", "warn", "error"); unknown values mean info. format "text" selects
// the text handler, anything else JSON. attrs are attached to every record,
// e.g. "service", "campusride-api".
func Setup(level, format string, attrs ...any) {
	slog.SetDefault(New(os.Stdout, level, format, attrs...))
}

// New builds a logger writing to w.
func New(w io.Writer, level, format string, attrs ...any) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler).With(attrs...)
}
