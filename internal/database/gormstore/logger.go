package gormstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kozaktomas/geoface/internal/logging"
)

const slowQueryThreshold = 500 * time.Millisecond

// gormLogger sends gorm's log output to slog.
type gormLogger struct {
	log   *slog.Logger
	level gormlogger.LogLevel
}

func newGormLogger(l *slog.Logger) *gormLogger {
	return &gormLogger{log: l, level: gormlogger.Warn}
}

func (l *gormLogger) logger() *slog.Logger {
	return logging.OrDefault(l.log)
}

func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	c := *l
	c.level = level
	return &c
}

func (l *gormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		l.logger().InfoContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		l.logger().WarnContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		l.logger().ErrorContext(ctx, "gorm error", "msg", fmt.Sprintf(msg, data...))
	}
}

func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		l.logger().ErrorContext(ctx, "query failed", "sql", sql, "duration", elapsed, "rows", rows, "error", err)
	case elapsed > slowQueryThreshold:
		l.logger().WarnContext(ctx, "slow query", "sql", sql, "duration", elapsed, "rows", rows)
	default:
		l.logger().Log(ctx, logging.LevelTrace, "query", "sql", sql, "duration", elapsed, "rows", rows)
	}
}
