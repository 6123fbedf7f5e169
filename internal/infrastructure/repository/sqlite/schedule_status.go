package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/btcbuzzbot/bot/internal/domain/entities"
)

func (s *Store) GetScheduleConfig(ctx context.Context) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM scheduler_config WHERE key = ?`,
		entities.SchedulerConfigScheduleKey,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", mapSQLiteError(err)
	}
	return value, nil
}

func (s *Store) SetScheduleConfig(ctx context.Context, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scheduler_config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		entities.SchedulerConfigScheduleKey, value,
	)
	if err != nil {
		return mapSQLiteError(err)
	}
	return nil
}

func (s *Store) LogBotStatus(ctx context.Context, status entities.BotStatusLevel, message string, nextRun *time.Time) error {
	var nextRunVal any
	if nextRun != nil {
		nextRunVal = nextRun.UTC().Format(timeLayout)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bot_status (id, timestamp, status, next_scheduled_run, message)
		VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), time.Now().UTC().Format(timeLayout), string(status), nextRunVal, message,
	)
	if err != nil {
		return mapSQLiteError(err)
	}
	return nil
}

func (s *Store) GetLatestBotStatus(ctx context.Context) (entities.BotStatus, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, timestamp, status, next_scheduled_run, message
		 FROM bot_status ORDER BY timestamp DESC LIMIT 1`)

	var (
		idStr, timestampStr, status, message string
		nextRunStr                           sql.NullString
	)
	if err := row.Scan(&idStr, &timestampStr, &status, &nextRunStr, &message); err != nil {
		return nil, mapSQLiteError(err)
	}

	id, _ := uuid.Parse(idStr)
	timestamp, err := time.Parse(timeLayout, timestampStr)
	if err != nil {
		return nil, err
	}
	var nextRunPtr *time.Time
	if nextRunStr.Valid {
		t, err := time.Parse(timeLayout, nextRunStr.String)
		if err != nil {
			return nil, err
		}
		t = t.UTC()
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
