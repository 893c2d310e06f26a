package types

import (
	"fmt"
	"log/slog"
	"strings"
)

type LogLevel slog.Level

const (
	LevelTrace = slog.Level(slog.LevelDebug - 1)
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

var logLevelMap = map[string]slog.Level{
	"trace": LevelTrace,
	"debug": LevelDebug,
	"info":  LevelInfo,
	"warn":  LevelWarn,
	"error": LevelError,
}

// ParseLevel maps a textual level onto an slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	l, ok := logLevelMap[strings.ToLower(level)]
	if !ok {
		return LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
	return l, nil
}

// ComponentLogger returns the logger a component should use: a child of the
// default logger tagged with the component name when enabled, a discarding one
// otherwise.
func ComponentLogger(name string, enabled bool) *slog.Logger {
	if !enabled {
		return slog.New(slog.DiscardHandler)
	}
	return slog.Default().With("t", name)
}
