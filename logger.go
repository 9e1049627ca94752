package auth

import (
	"context"
	"log/slog"
)

type slogLogger struct {
	l *slog.Logger
}

// NewSlogLogger adapts a slog.Logger. Args are treated as key/value pairs.
func NewSlogLogger(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return slogLogger{l: l}
}

func (s slogLogger) Debug(msg string, args ...any) {
	s.l.Log(context.Background(), slog.LevelDebug, msg, args...)
}

func (s slogLogger) Info(msg string, args ...any) {
	s.l.Log(context.Background(), slog.LevelInfo, msg, args...)
}

func (s slogLogger) Warn(msg string, args ...any) {
	s.l.Log(context.Background(), slog.LevelWarn, msg, args...)
}

func (s slogLogger) Error(msg string, args ...any) {
	s.l.Log(context.Background(), slog.LevelError, msg, args...)
}
