// Package statuslog records bot lifecycle events to the Store, following the
// same component-scoped-logger, swallow-on-write-failure shape as audit.Logger.
package statuslog

import (
	"context"
	"log/slog"
	"time"

	"github.com/btcbuzzbot/bot/internal/domain/entities"
	"github.com/btcbuzzbot/bot/internal/domain/repositories"
)

// Logger writes BotStatus rows through Store.LogBotStatus. Unlike
// audit.Logger.Record its methods return no error: a write failure is logged
// and swallowed, since a missed status row must never abort a publish cycle.
type Logger struct {
	store  repositories.Store
	logger *slog.Logger
}

// NewLogger constructs a status Logger.
func NewLogger(store repositories.Store, logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{store: store, logger: logger.With(slog.String("component", "statuslog"))}
}

// Record logs a bot lifecycle event.
func (l *Logger) Record(ctx context.Context, status entities.BotStatusLevel, message string, nextRun *time.Time) {
	if err := l.store.LogBotStatus(ctx, status, message, nextRun); err != nil {
		l.logger.Error("failed to record bot status", slog.String("status", string(status)), slog.String("error", err.Error()))
	}
}

// Running records the bot entering a normal running state.
func (l *Logger) Running(ctx context.Context, message string, nextRun *time.Time) {
	l.Record(ctx, entities.BotStatusRunning, message, nextRun)
}

// Scheduled records a no-op/skip outcome that still leaves the bot healthy.
func (l *Logger) Scheduled(ctx context.Context, message string, nextRun *time.Time) {
	l.Record(ctx, entities.BotStatusScheduled, message, nextRun)
}

// Error records a cycle failure.
func (l *Logger) Error(ctx context.Context, message string) {
	l.Record(ctx, entities.BotStatusError, message, nil)
}

// Stopped records a graceful shutdown.
func (l *Logger) Stopped(ctx context.Context, message string) {
	l.Record(ctx, entities.BotStatusStopped, message, nil)
}
