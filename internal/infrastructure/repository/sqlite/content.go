package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/btcbuzzbot/bot/internal/domain/entities"
)

func tableFor(kind entities.ContentKind) string {
	if kind == entities.ContentKindJoke {
		return "jokes"
	}
	return "quotes"
}

// GetRandomContent mirrors the postgres store's selection rule, but SQLite
// has no single-statement UPDATE-with-subquery-RETURNING that works
// portably across modernc.org/sqlite versions, so the read and the
// increment run inside one ordinary (deferred) transaction instead. The
// store's pool holds a single connection, so no other statement from this
// process can interleave between the read and the increment.
func (s *Store) GetRandomContent(ctx context.Context, kind entities.ContentKind, reuseWindow time.Duration) (entities.ContentItem, error) {
	table := tableFor(kind)
	cutoff := time.Now().UTC().Add(-reuseWindow).Format(timeLayout)
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		SELECT id FROM %s
		WHERE last_used IS NULL OR last_used < ?
		ORDER BY used_count ASC, RANDOM()
		LIMIT 1`, table)

	var id string
	err = tx.QueryRowContext(ctx, query, cutoff).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		fallbackQuery := fmt.Sprintf(`SELECT id FROM %s ORDER BY RANDOM() LIMIT 1`, table)
		err = tx.QueryRowContext(ctx, fallbackQuery).Scan(&id)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapSQLiteError(err)
	}

	updateQuery := fmt.Sprintf(`UPDATE %s SET used_count = used_count + 1, last_used = ? WHERE id = ?`, table)
	if _, err := tx.ExecContext(ctx, updateQuery, now.Format(timeLayout), id); err != nil {
		return nil, mapSQLiteError(err)
	}

	selectQuery := fmt.Sprintf(`SELECT id, text, category, created_at, used_count, last_used FROM %s WHERE id = ?`, table)
	row := tx.QueryRowContext(ctx, selectQuery, id)

	var (
		text, createdAtStr string
		category           sql.NullString
		usedCount          int
		lastUsedStr        sql.NullString
	)
	if err := row.Scan(&id, &text, &category, &createdAtStr, &usedCount, &lastUsedStr); err != nil {
		return nil, mapSQLiteError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, mapSQLiteError(err)
	}

	parsedID, _ := uuid.Parse(id)
	createdAt, err := time.Parse(timeLayout, createdAtStr)
	if err != nil {
		return nil, err
	}
	var lastUsedPtr *time.Time
	if lastUsedStr.Valid {
		t, err := time.Parse(timeLayout, lastUsedStr.String)
		if err != nil {
			return nil, err
		}
		t = t.UTC()
		lastUsedPtr = &t
	}

	return entities.HydrateContentItemEntity(entities.ContentItemParams{
		ID:        parsedID,
		Kind:      kind,
		Text:      text,
		Category:  category.String,
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
	query := fmt.Sprintf(`INSERT INTO %s (id, text, category, created_at, used_count) VALUES (?, ?, ?, ?, 0)`, table)
	_, err := s.db.ExecContext(ctx, query, id.String(), text, nullIfEmpty(category), time.Now().UTC().Format(timeLayout))
	if err != nil {
		return uuid.Nil, mapSQLiteError(err)
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
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, table)
	res, err := s.db.ExecContext(ctx, query, id.String())
	if err != nil {
		return false, mapSQLiteError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, mapSQLiteError(err)
	}
	return affected > 0, nil
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

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	results := make([]entities.ContentItem, 0)
	for rows.Next() {
		var (
			idStr, text, createdAtStr string
			category, lastUsedStr     sql.NullString
			usedCount                 int
		)
		if err := rows.Scan(&idStr, &text, &category, &createdAtStr, &usedCount, &lastUsedStr); err != nil {
			return nil, mapSQLiteError(err)
		}

		id, _ := uuid.Parse(idStr)
		createdAt, err := time.Parse(timeLayout, createdAtStr)
		if err != nil {
			return nil, err
		}
		var lastUsedPtr *time.Time
		if lastUsedStr.Valid {
			t, err := time.Parse(timeLayout, lastUsedStr.String)
			if err != nil {
				return nil, err
			}
			t = t.UTC()
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
	if err := rows.Err(); err != nil {
		return nil, mapSQLiteError(err)
	}
	return results, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
