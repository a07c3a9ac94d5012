// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package ctxlog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

type loggerKey struct{}

const (
	// FormatPretty is the colourised console format.
	FormatPretty = "pretty"
	// FormatJSON writes one JSON object per record.
	FormatJSON = "json"

	logLevelEnvSuffix = "_LOG_LEVEL"
)

// ErrUnknownFormat is returned by NewLogger for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown log format")

// LevelVar is shared by every logger this package builds, so the level can change at runtime.
var LevelVar = &slog.LevelVar{}

// DefaultLogger is used when the context carries no logger.
var DefaultLogger = slog.New(NewPrettyHandler(&slog.HandlerOptions{
	Level: LevelVar,
},
	WithAutoColour(),
	WithDestinationWriter(os.Stderr),
))

func init() {
	LevelVar.Set(logLevelFromEnv())
}

// NewLogger builds a logger in the given format writing to w.
func NewLogger(format string, w io.Writer) (*slog.Logger, error) {
	switch strings.ToLower(format) {
	case "", FormatPretty:
		return slog.New(NewPrettyHandler(&slog.HandlerOptions{Level: LevelVar},
			WithAutoColour(),
			WithDestinationWriter(w),
		)), nil
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: LevelVar})), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// New returns a copy of ctx carrying logger. A nil logger means DefaultLogger.
func New(ctx context.Context, logger *slog.Logger) context.Context {
	if logger == nil {
		logger = DefaultLogger
	}

	return context.WithValue(ctx, loggerKey{}, logger)
}

// Logger returns the logger from the context, or the default logger if not found.
func Logger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(loggerKey{}).(*slog.Logger)
	if !ok || logger == nil {
		return DefaultLogger
	}

	return logger
}

// With returns a context whose logger has args attached.
func With(ctx context.Context, args ...any) context.Context {
	return New(ctx, Logger(ctx).With(args...))
}

// Info logs an info message with the given context.
func Info(ctx context.Context, msg string, args ...any) {
	Logger(ctx).Info(msg, args...)
}

// Debug logs a debug message with the given context.
func Debug(ctx context.Context, msg string, args ...any) {
	Logger(ctx).Debug(msg, args...)
}

// Warn logs a warning message with the given context.
func Warn(ctx context.Context, msg string, args ...any) {
	Logger(ctx).Warn(msg, args...)
}

// Error logs an error message with the given context.
func Error(ctx context.Context, msg string, args ...any) {
	Logger(ctx).Error(msg, args...)
}

// ParseLevel converts DEBUG, INFO, WARN or ERROR (any case) to a level.
// The second return value is false for anything else.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO":
		return slog.LevelInfo, true
	case "WARN", "WARNING":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	}

	return slog.LevelWarn, false
}

// levelEnvName returns the level variable for the running executable, e.g. MYRIAD_LOG_LEVEL.
func levelEnvName() string {
	exec, _ := os.Executable()
	exec = filepath.Base(exec)
	exec = strings.TrimSuffix(exec, ".exe")
	exec = strings.ReplaceAll(exec, "-", "_")

	return strings.ToUpper(exec) + logLevelEnvSuffix
}

func logLevelFromEnv() slog.Level {
	level, _ := ParseLevel(os.Getenv(levelEnvName()))
	return level
}
