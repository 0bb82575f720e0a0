package data

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GORMSlogLogger routes GORM's logging through a slog.Logger.
type GORMSlogLogger struct {
	Logger                    *slog.Logger
	LogLevel                  logger.LogLevel
	SlowThreshold             time.Duration
	IgnoreRecordNotFoundError bool
}

// GORMLogLevel maps a LOG_LEVEL value onto GORM's coarser levels. GORM only
// logs SQL at its Info level, so that is reserved for DEBUG.
func GORMLogLevel(level string) logger.LogLevel {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return logger.Info
	case "WARN", "WARNING", "ERROR":
		return logger.Error
	case "SILENT":
		return logger.Silent
	default:
		return logger.Warn
	}
}

// NewGORMSlogLogger creates a GORM logger writing to l, or to slog's default
// logger when l is nil.
func NewGORMSlogLogger(l *slog.Logger, level logger.LogLevel, slowThreshold time.Duration) *GORMSlogLogger {
	return &GORMSlogLogger{
		Logger:                    l,
		LogLevel:                  level,
		SlowThreshold:             slowThreshold,
		IgnoreRecordNotFoundError: true,
	}
}

func (l *GORMSlogLogger) log() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

// LogMode returns a copy of the logger at the given level.
func (l *GORMSlogLogger) LogMode(level logger.LogLevel) logger.Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

func (l *GORMSlogLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.LogLevel >= logger.Info {
		l.log().InfoContext(ctx, msg, data...)
	}
}

func (l *GORMSlogLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.LogLevel >= logger.Warn {
		l.log().WarnContext(ctx, msg, data...)
	}
}

func (l *GORMSlogLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.LogLevel >= logger.Error {
		l.log().ErrorContext(ctx, msg, data...)
	}
}

// Trace logs a finished query: failures as errors, slow queries as warnings
// and everything else at debug.
func (l *GORMSlogLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	query, rows := fc()
	attrs := []any{
		slog.Duration("elapsed", elapsed),
		slog.String("sql", query),
		slog.Int64("rows", rows),
	}

	switch {
	case err != nil && l.LogLevel >= logger.Error:
		if l.IgnoreRecordNotFoundError && errors.Is(err, gorm.ErrRecordNotFound) {
			return
		}
		l.log().ErrorContext(ctx, "Legacy query failed", append(attrs, slog.Any("error", err))...)
	case l.SlowThreshold != 0 && elapsed > l.SlowThreshold && l.LogLevel >= logger.Warn:
		l.log().WarnContext(ctx, "Slow legacy query", attrs...)
	case l.LogLevel >= logger.Info:
		l.log().DebugContext(ctx, "Legacy query", attrs...)
	}
}
