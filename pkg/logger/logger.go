// Package logger wraps log/slog behind a small interface so call sites
// never depend on the concrete logging backend.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// Logger is the logging contract every component constructor accepts.
// No package ever resolves a logger via a package-level global.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
	Errorf(err error, format string, args ...interface{})
	With(args ...interface{}) Logger
}

type slogLogger struct {
	l *slog.Logger
}

// NewSlogLogger builds a structured JSON logger writing to stderr, level
// controlled by the LOG_LEVEL environment variable (debug/info/warn/error).
func NewSlogLogger() Logger {
	level := slog.LevelInfo
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return &slogLogger{l: slog.New(handler)}
}

func (s *slogLogger) Infof(format string, args ...interface{}) {
	s.l.Info(fmt.Sprintf(format, args...))
}

func (s *slogLogger) Warnf(format string, args ...interface{}) {
	s.l.Warn(fmt.Sprintf(format, args...))
}

func (s *slogLogger) Debugf(format string, args ...interface{}) {
	s.l.Debug(fmt.Sprintf(format, args...))
}

func (s *slogLogger) Errorf(err error, format string, args ...interface{}) {
	s.l.Log(context.Background(), slog.LevelError, fmt.Sprintf(format, args...), slog.Any("error", err))
}

func (s *slogLogger) With(args ...interface{}) Logger {
	return &slogLogger{l: s.l.With(args...)}
}
