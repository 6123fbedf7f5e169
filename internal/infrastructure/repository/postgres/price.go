package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/btcbuzzbot/bot/internal/domain/entities"
)

// StoreLatestPrice appends a Price row; Price is append-only.
func (s *Store) StoreLatestPrice(ctx context.Context, priceUSD float64, source string) (uuid.UUID, error) {
	id := uuid.New()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO prices (id, price, timestamp, source) VALUES ($1, $2, $3, $4)`,
		id, priceUSD, now, source,
	)
	if err != nil {
		return uuid.Nil, mapPGError(err)
	}
	return id, nil
}

// GetLatestPrice returns the newest Price row by timestamp, or ErrNotFound
// if none exist.
func (s *Store) GetLatestPrice(ctx context.Context) (entities.Price, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, price, timestamp, source FROM prices ORDER BY timestamp DESC LIMIT 1`,
	)

	var (
		id        uuid.UUID
		price     float64
		timestamp time.Time
		source    string
	)
	if err := row.Scan(&id, &price, &timestamp, &source); err != nil {
		return nil, mapPGError(err)
	}

	return entities.HydratePriceEntity(entities.PriceParams{
		ID: id, PriceUSD: price, Timestamp: timestamp.UTC(), Source: source,
	}), nil
}

// GetPriceAt24hAgo returns the newest Price with timestamp <= now-24h, used
// for long-window change analytics (kept distinct from the Publisher's
// cycle-over-cycle change calculation).
func (s *Store) GetPriceAt24hAgo(ctx context.Context) (*float64, error) {
	cutoff := time.Now().UTC().Add(-24 * time.Hour)

	row := s.pool.QueryRow(ctx,
		`SELECT price FROM prices WHERE timestamp <= $1 ORDER BY timestamp DESC LIMIT 1`,
		cutoff,
	)

	var price float64
	if err := row.Scan(&price); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapPGError(err)
	}
	return &price, nil
}
