package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/btcbuzzbot/bot/internal/domain/entities"
)

const timeLayout = time.RFC3339Nano

func (s *Store) StoreLatestPrice(ctx context.Context, priceUSD float64, source string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO prices (id, price, timestamp, source) VALUES (?, ?, ?, ?)`,
		id.String(), priceUSD, time.Now().UTC().Format(timeLayout), source,
	)
	if err != nil {
		return uuid.Nil, mapSQLiteError(err)
	}
	return id, nil
}

func (s *Store) GetLatestPrice(ctx context.Context) (entities.Price, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, price, timestamp, source FROM prices ORDER BY timestamp DESC LIMIT 1`)

	var idStr, timestampStr, source string
	var price float64
	if err := row.Scan(&idStr, &price, &timestampStr, &source); err != nil {
		return nil, mapSQLiteError(err)
	}

	id, _ := uuid.Parse(idStr)
	ts, err := time.Parse(timeLayout, timestampStr)
	if err != nil {
		return nil, err
	}
	return entities.HydratePriceEntity(entities.PriceParams{ID: id, PriceUSD: price, Timestamp: ts.UTC(), Source: source}), nil
}

func (s *Store) GetPriceAt24hAgo(ctx context.Context) (*float64, error) {
	cutoff := time.Now().UTC().Add(-24 * time.Hour).Format(timeLayout)

	var price float64
	err := s.db.QueryRowContext(ctx,
		`SELECT price FROM prices WHERE timestamp <= ? ORDER BY timestamp DESC LIMIT 1`, cutoff,
	).Scan(&price)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, mapSQLiteError(err)
	}
	return &price, nil
}
