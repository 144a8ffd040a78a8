// Package logging provides the structured logger used across the
// platform. The logging surface (context-first calls with a Fields
// map) is backed by a configured zap logger.
package logging

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the severity level of a log message.
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLevel maps a configured level name to a LogLevel, defaulting to
// info on unknown input.
func ParseLevel(name string) LogLevel {
	switch name {
	case "debug":
		return DebugLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Fields represents structured log fields.
type Fields map[string]interface{}

// StructuredLogger provides structured JSON logging with context.
type StructuredLogger struct {
	sugar *zap.SugaredLogger
}

// NewStructuredLogger creates a logger tagged with the service name
// and version.
func NewStructuredLogger(service, version string, level LogLevel) *StructuredLogger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level.zapLevel())
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	zapLogger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// Never fail startup on a logging misconfiguration.
		zapLogger = zap.NewNop()
	}

	return &StructuredLogger{
		sugar: zapLogger.Sugar().With("service", service, "version", version),
	}
}

// NewNop returns a logger that discards everything; used by tests.
func NewNop() *StructuredLogger {
	return &StructuredLogger{sugar: zap.NewNop().Sugar()}
}

// Sync flushes buffered log entries; call before exit.
func (l *StructuredLogger) Sync() error {
	return l.sugar.Sync()
}

// Debug logs a debug message with structured fields.
func (l *StructuredLogger) Debug(ctx context.Context, message string, fields Fields) {
	l.sugar.Debugw(message, flatten(ctx, fields, nil)...)
}

// Info logs an info message with structured fields.
func (l *StructuredLogger) Info(ctx context.Context, message string, fields Fields) {
	l.sugar.Infow(message, flatten(ctx, fields, nil)...)
}

// Warn logs a warning message with structured fields.
func (l *StructuredLogger) Warn(ctx context.Context, message string, fields Fields) {
	l.sugar.Warnw(message, flatten(ctx, fields, nil)...)
}

// Error logs an error message with structured fields and error details.
func (l *StructuredLogger) Error(ctx context.Context, message string, fields Fields, err error) {
	l.sugar.Errorw(message, flatten(ctx, fields, err)...)
}

// Fatal logs a fatal message and exits the program.
func (l *StructuredLogger) Fatal(ctx context.Context, message string, fields Fields, err error) {
	l.sugar.Fatalw(message, flatten(ctx, fields, err)...)
}

type contextKey string

// RequestIDKey carries the request id through handler contexts.
const RequestIDKey contextKey = "request_id"

func flatten(ctx context.Context, fields Fields, err error) []interface{} {
	kvs := make([]interface{}, 0, 2*len(fields)+4)
	for k, v := range fields {
		kvs = append(kvs, k, v)
	}
	if ctx != nil {
		if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
			kvs = append(kvs, "request_id", requestID)
		}
	}
	if err != nil {
		kvs = append(kvs, "error", err.Error())
	}
	return kvs
}
