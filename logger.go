package timerz

import (
	"context"
	"log/slog"

	"go.uber.org/zap"
)

// Logger receives free-form lines when a counter logs instead of records.
type Logger interface {
	LogMessage(msg string)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(msg string)

// LogMessage calls f(msg).
func (f LoggerFunc) LogMessage(msg string) { f(msg) }

type zapLogger struct {
	l *zap.Logger
}

// ZapLogger writes each line at Info level. A nil logger discards.
func ZapLogger(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return zapLogger{l: l}
}

func (z zapLogger) LogMessage(msg string) {
	z.l.Info(msg)
}

type slogLogger struct {
	l *slog.Logger
}

// SlogLogger writes each line at Info level. A nil logger uses slog.Default.
func SlogLogger(l *slog.Logger) Logger {
	if l == nil {
		l = slog.Default()
	}
	return slogLogger{l: l}
}

func (s slogLogger) LogMessage(msg string) {
	s.l.LogAttrs(context.Background(), slog.LevelInfo, msg)
}
