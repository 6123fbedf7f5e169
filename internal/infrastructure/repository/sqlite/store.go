// Package sqlite implements repositories.Store over an embedded SQLite
// database via modernc.org/sqlite, for single-instance deployments that
// don't want to run Postgres. It honours the same contract as the postgres
// package, translated to database/sql and SQLite's dialect.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/btcbuzzbot/bot/internal/domain/entities"
)

// Store is the SQLite-backed implementation of repositories.Store.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS prices (
	id TEXT PRIMARY KEY,
	price REAL NOT NULL,
	timestamp TEXT NOT NULL,
	source TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_prices_timestamp ON prices (timestamp DESC);

CREATE TABLE IF NOT EXISTS posts (
	id TEXT PRIMARY KEY,
	external_post_id TEXT NOT NULL UNIQUE,
	text TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	price REAL NOT NULL,
	price_change_pct REAL NOT NULL,
	content_type TEXT NOT NULL,
	likes INTEGER NOT NULL DEFAULT 0,
	retweets INTEGER NOT NULL DEFAULT 0,
	engagement_last_checked TEXT
);
CREATE INDEX IF NOT EXISTS idx_posts_timestamp ON posts (timestamp DESC);

CREATE TABLE IF NOT EXISTS quotes (
	id TEXT PRIMARY KEY,
	text TEXT NOT NULL,
	category TEXT,
	created_at TEXT NOT NULL,
	used_count INTEGER NOT NULL DEFAULT 0,
	last_used TEXT
);

CREATE TABLE IF NOT EXISTS jokes (
	id TEXT PRIMARY KEY,
	text TEXT NOT NULL,
	category TEXT,
	created_at TEXT NOT NULL,
	used_count INTEGER NOT NULL DEFAULT 0,
	last_used TEXT
);

CREATE TABLE IF NOT EXISTS news_tweets (
	id TEXT PRIMARY KEY,
	external_tweet_id TEXT NOT NULL UNIQUE,
	author_id TEXT,
	text TEXT NOT NULL,
	published_at TEXT NOT NULL,
	fetched_at TEXT NOT NULL,
	metrics TEXT,
	source TEXT NOT NULL,
	processed INTEGER NOT NULL DEFAULT 0,
	sentiment_score REAL,
	sentiment_label TEXT,
	significance_score REAL,
	significance_label TEXT,
	summary TEXT,
	sentiment_source TEXT,
	llm_analysis TEXT
);
CREATE INDEX IF NOT EXISTS idx_news_tweets_fetched_at ON news_tweets (fetched_at DESC);
CREATE INDEX IF NOT EXISTS idx_news_tweets_processed ON news_tweets (processed);

CREATE TABLE IF NOT EXISTS bot_status (
	id TEXT PRIMARY KEY,
	timestamp TEXT NOT NULL,
	status TEXT NOT NULL,
	next_scheduled_run TEXT,
	message TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_bot_status_timestamp ON bot_status (timestamp DESC);

CREATE TABLE IF NOT EXISTS scheduler_config (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS admin_users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

// Open creates (if needed) the SQLite file at path, applies the schema
// idempotently, and returns a ready Store. path may be ":memory:" for tests.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers; avoid SQLITE_BUSY churn.

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	store := &Store{db: db, logger: logger.With(slog.String("component", "sqlite_store"))}
	if err := store.seedDefaultSchedule(ctx); err != nil {
		return nil, fmt.Errorf("sqlite: seed default schedule: %w", err)
	}
	return store, nil
}

// seedDefaultSchedule inserts entities.DefaultSchedule the first time the
// scheduler_config table has no "schedule" row, so a fresh database starts
// with a schedule to run rather than an empty one.
func (s *Store) seedDefaultSchedule(ctx context.Context) error {
	existing, err := s.GetScheduleConfig(ctx)
	if err != nil {
		return err
	}
	if existing != "" {
		return nil
	}
	return s.SetScheduleConfig(ctx, entities.DefaultSchedule)
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
