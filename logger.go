package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Logger wraps slog.Logger with the server's level handling and redaction.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a JSON logger writing to w at the given level name
// (DEBUG, INFO, WARN, ERROR; anything else means INFO).
func NewLogger(w io.Writer, level string) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       parseLevel(level),
		ReplaceAttr: redactAttr,
	})
	return &Logger{slog.New(handler)}
}

// With returns a child logger carrying the given attributes
func (l *Logger) With(args ...any) *Logger {
	return &Logger{l.Logger.With(args...)}
}

// Component returns a child logger tagged with a component name
func (l *Logger) Component(name string) *Logger {
	return l.With("component", name)
}

// Fault logs a recovered panic or per-tick error without stopping the caller.
func (l *Logger) Fault(msg string, cause any, args ...any) {
	args = append(args, "cause", fmt.Sprint(cause))
	l.Warn(msg, args...)
}

func parseLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var sensitiveKeys = []string{"password", "token", "secret", "hash"}

// redactAttr masks attribute values whose key looks like a credential.
func redactAttr(_ []string, a slog.Attr) slog.Attr {
	key := strings.ToLower(a.Key)
	for _, s := range sensitiveKeys {
		if strings.Contains(key, s) {
			return slog.String(a.Key, "[REDACTED]")
		}
	}
	return a
}
