package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/btcbuzzbot/bot/internal/domain/entities"
)

func tableFor(kind entities.ContentKind) string {
	if kind == entities.ContentKindJoke {
		return "jokes"
	}
	return "quotes"
}

// GetRandomContent implements the reuse-window selection and the atomic
// used_count/last_used update as a single UPDATE statement: the
// candidate selection and the mutation happen in one round trip, so no
// concurrent reader can observe a stale used_count between read and write.
func (s *Store) GetRandomContent(ctx context.Context, kind entities.ContentKind, reuseWindow time.Duration) (entities.ContentItem, error) {
	table := tableFor(kind)
	cutoff := time.Now().UTC().Add(-reuseWindow)
	now := time.Now().UTC()

	query := fmt.Sprintf(`
WITH candidate AS (
	SELECT id FROM %[1]s
	WHERE last_used IS NULL OR last_used < $1
	ORDER BY used_count ASC, random()
	LIMIT 1
),
fallback AS (
	SELECT id FROM %[1]s
	WHERE NOT EXISTS (SELECT 1 FROM candidate)
	ORDER BY random()
	LIMIT 1
)
UPDATE %[1]s
SET used_count = used_count + 1, last_used = $2
WHERE id IN (SELECT id FROM candidate UNION SELECT id FROM fallback)
RETURNING id, text, category, created_at, used_count, last_used`, table)

	row := s.pool.QueryRow(ctx, query, cutoff, now)

	var (
		id        uuid.UUID
		text      string
		category  string
		createdAt time.Time
		usedCount int
		lastUsed  pgtype.Timestamptz
	)
	if err := row.Scan(&id, &text, &category, &createdAt, &usedCount, &lastUsed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapPGError(err)
	}

	var lastUsedPtr *time.Time
	if lastUsed.Valid {
		t := lastUsed.Time.UTC()
		lastUsedPtr = &t
	}

	return entities.HydrateContentItemEntity(entities.ContentItemParams{
		ID:        id,
		Kind:      kind,
		Text:      text,
		Category:  category,
		UsedCount: usedCount,
		LastUsed:  lastUsedPtr,
		CreatedAt: createdAt.UTC(),
		UpdatedAt: now,
	}), nil
}

func (s *Store) AddQuote(ctx context.Context, text, category string) (uuid.UUID, error) {
	return s.addContent(ctx, "quotes", text, category)
}

func (s *Store) AddJoke(ctx context.Context, text, category string) (uuid.UUID, error) {
	return s.addContent(ctx, "jokes", text, category)
}

func (s *Store) addContent(ctx context.Context, table, text, category string) (uuid.UUID, error) {
	id := uuid.New()
	query := fmt.Sprintf(`INSERT INTO %s (id, text, category, created_at, used_count) VALUES ($1, $2, $3, $4, 0)`, table)
	_, err := s.pool.Exec(ctx, query, id, text, nullIfEmpty(category), time.Now().UTC())
	if err != nil {
		return uuid.Nil, mapPGError(err)
	}
	return id, nil
}

func (s *Store) DeleteQuote(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.deleteContent(ctx, "quotes", id)
}

func (s *Store) DeleteJoke(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.deleteContent(ctx, "jokes", id)
}

func (s *Store) deleteContent(ctx context.Context, table string, id uuid.UUID) (bool, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table)
	cmd, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return false, mapPGError(err)
	}
	return cmd.RowsAffected() > 0, nil
}

func (s *Store) ListQuotes(ctx context.Context) ([]entities.ContentItem, error) {
	return s.listContent(ctx, entities.ContentKindQuote)
}

func (s *Store) ListJokes(ctx context.Context) ([]entities.ContentItem, error) {
	return s.listContent(ctx, entities.ContentKindJoke)
}

func (s *Store) listContent(ctx context.Context, kind entities.ContentKind) ([]entities.ContentItem, error) {
	table := tableFor(kind)
	query := fmt.Sprintf(`SELECT id, text, category, created_at, used_count, last_used FROM %s ORDER BY created_at DESC`, table)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, mapPGError(err)
	}
	defer rows.Close()

	results := make([]entities.ContentItem, 0)
	for rows.Next() {
		var (
			id        uuid.UUID
			text      string
			category  pgtype.Text
			createdAt time.Time
			usedCount int
			lastUsed  pgtype.Timestamptz
		)
		if err := rows.Scan(&id, &text, &category, &createdAt, &usedCount, &lastUsed); err != nil {
			return nil, mapPGError(err)
		}

		var lastUsedPtr *time.Time
		if lastUsed.Valid {
			t := lastUsed.Time.UTC()
			lastUsedPtr = &t
		}

		results = append(results, entities.HydrateContentItemEntity(entities.ContentItemParams{
			ID:        id,
			Kind:      kind,
			Text:      text,
			Category:  category.String,
			UsedCount: usedCount,
			LastUsed:  lastUsedPtr,
			CreatedAt: createdAt.UTC(),
			UpdatedAt: createdAt.UTC(),
		}))
	}
	if rows.Err() != nil {
		return nil, mapPGError(rows.Err())
	}
	return results, nil
}
