package log

import (
	"io"
	"log/slog"
	"strings"
)

// SlogLevelInfoFromString maps a config string to a slog level, falling back
// to Info for anything it does not recognize.
func SlogLevelInfoFromString(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func NewTextLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: SlogLevelInfoFromString(level),
	}))
}
