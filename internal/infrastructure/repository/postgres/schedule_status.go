package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/btcbuzzbot/bot/internal/domain/entities"
)

// GetScheduleConfig returns the persisted comma-separated "HH:MM" schedule,
// or "" if no schedule row exists.
func (s *Store) GetScheduleConfig(ctx context.Context) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM scheduler_config WHERE key = $1`,
		entities.SchedulerConfigScheduleKey,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", mapPGError(err)
	}
	return value, nil
}

// SetScheduleConfig upserts the operator's schedule override.
func (s *Store) SetScheduleConfig(ctx context.Context, value string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO scheduler_config (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		entities.SchedulerConfigScheduleKey, value,
	)
	if err != nil {
		return mapPGError(err)
	}
	return nil
}

// LogBotStatus appends a lifecycle event row; bot_status is append-only so
// the admin surface can show history, not just the latest state.
func (s *Store) LogBotStatus(ctx context.Context, status entities.BotStatusLevel, message string, nextRun *time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO bot_status (id, timestamp, status, next_scheduled_run, message)
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), time.Now().UTC(), string(status), nextRun, message,
	)
	if err != nil {
		return mapPGError(err)
	}
	return nil
}

// GetLatestBotStatus returns the most recent lifecycle event.
func (s *Store) GetLatestBotStatus(ctx context.Context) (entities.BotStatus, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, timestamp, status, next_scheduled_run, message
		 FROM bot_status ORDER BY timestamp DESC LIMIT 1`,
	)

	var (
		id        uuid.UUID
		timestamp time.Time
		status    string
		nextRun   pgtype.Timestamptz
		message   string
	)
	if err := row.Scan(&id, &timestamp, &status, &nextRun, &message); err != nil {
		return nil, mapPGError(err)
	}

	var nextRunPtr *time.Time
	if nextRun.Valid {
		t := nextRun.Time.UTC()
		nextRunPtr = &t
	}

	return entities.HydrateBotStatusEntity(entities.BotStatusParams{
		ID:               id,
		Timestamp:        timestamp.UTC(),
		Status:           entities.BotStatusLevel(status),
		NextScheduledRun: nextRunPtr,
		Message:          message,
	}), nil
}
