// Package logger provides context-aware structured logging on top of zap.
package logger

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// DevelopmentEnvironment selects a human-readable console logger at debug level.
	DevelopmentEnvironment = "development"
	// ProductionEnvironment selects a JSON logger at info level.
	ProductionEnvironment = "production"
)

var defaultLogger = zap.NewNop() //nolint: gochecknoglobals

// Setup initializes the default logger for the given environment.
// Unknown environments fall back to development settings.
func Setup(environment string) *zap.Logger {
	var (
		l   *zap.Logger
		err error
	)
	if environment == ProductionEnvironment {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err == nil {
		defaultLogger = l
	}

	return defaultLogger
}

type key struct{}

// Get retrieves a logger from ctx, falling back to the default logger.
func Get(ctx context.Context) *zap.Logger {
	if l, _ := ctx.Value(key{}).(*zap.Logger); l != nil {
		return l
	}

	return defaultLogger
}

// WithLogger returns a copy of ctx carrying l.
func WithLogger(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, key{}, l)
}

// WithFields returns a copy of ctx whose logger includes fields.
func WithFields(ctx context.Context, fields ...zapcore.Field) context.Context {
	return WithLogger(ctx, Get(ctx).With(fields...))
}

// Info logs a message at info level.
func Info(ctx context.Context, msg string, fields ...zapcore.Field) {
	Get(ctx).Info(msg, fields...)
}

// Warn logs a message at warn level.
func Warn(ctx context.Context, msg string, fields ...zapcore.Field) {
	Get(ctx).Warn(msg, fields...)
}

// Error logs a message at error level.
func Error(ctx context.Context, msg string, fields ...zapcore.Field) {
	Get(ctx).Error(msg, fields...)
}

// Sync flushes any buffered entries of the logger in ctx.
func Sync(ctx context.Context) {
	_ = Get(ctx).Sync()
}
