package utils

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/lmittmann/tint"
)

// Logger provides leveled logging throughout the application.
// Messages are printf-style; records go to slog and, when configured, Fluent Bit.
type Logger struct {
	slog   *slog.Logger
	fluent *fluent.Fluent
	level  slog.Level
}

// LoggerOptions configures NewLoggerWithOptions.
type LoggerOptions struct {
	Writer io.Writer
	Level  string
	Color  bool

	FluentEnabled bool
	FluentHost    string
	FluentPort    int
	TagPrefix     string
}

// NewLogger creates an info-level colour Logger writing to stdout.
func NewLogger() *Logger {
	l, _ := NewLoggerWithOptions(LoggerOptions{Level: "info", Color: true})
	return l
}

// NewLoggerWithOptions builds a Logger. A Fluent Bit connection failure is
// returned together with a usable stdout-only logger.
func NewLoggerWithOptions(opts LoggerOptions) (*Logger, error) {
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}
	level := ParseLevel(opts.Level)

	var handler slog.Handler
	if opts.Color {
		handler = tint.NewHandler(opts.Writer, &tint.Options{
			Level:      level,
			TimeFormat: "2006-01-02 15:04:05",
		})
	} else {
		handler = slog.NewTextHandler(opts.Writer, &slog.HandlerOptions{Level: level})
	}

	l := &Logger{slog: slog.New(handler), level: level}
	if !opts.FluentEnabled {
		return l, nil
	}

	tag := opts.TagPrefix
	if tag == "" {
		tag = "baikuk"
	}
	client, err := fluent.New(fluent.Config{
		FluentHost: opts.FluentHost,
		FluentPort: opts.FluentPort,
		TagPrefix:  tag,
		Async:      true,
	})
	if err != nil {
		return l, fmt.Errorf("logger: fluent client: %w", err)
	}
	l.fluent = client
	return l, nil
}

// ParseLevel maps debug/info/warn/error to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Slog exposes the underlying structured logger.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// Close flushes the Fluent Bit client if one is attached.
func (l *Logger) Close() error {
	if l.fluent == nil {
		return nil
	}
	return l.fluent.Close()
}

func (l *Logger) Info(format string, args ...any) {
	l.log(slog.LevelInfo, format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.log(slog.LevelWarn, format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.log(slog.LevelError, format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.log(slog.LevelDebug, format, args...)
}

func (l *Logger) log(level slog.Level, format string, args ...any) {
	if level < l.level {
		return
	}
	msg := fmt.Sprintf(format, args...)
	l.slog.Log(context.Background(), level, msg)

	if l.fluent != nil {
		_ = l.fluent.Post(strings.ToLower(level.String()), map[string]interface{}{
			"level":     level.String(),
			"message":   msg,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	}
}
