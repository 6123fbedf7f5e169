package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/btcbuzzbot/bot/internal/domain/entities"
)

func (s *Store) LogPost(ctx context.Context, externalID, text string, priceUSD, changePct float64, contentType entities.ContentType) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (id, external_post_id, text, timestamp, price, price_change_pct, content_type, likes, retweets)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, 0)`,
		id.String(), externalID, text, time.Now().UTC().Format(timeLayout), priceUSD, changePct, string(contentType),
	)
	if err != nil {
		return uuid.Nil, mapSQLiteError(err)
	}
	return id, nil
}

func (s *Store) HasPostedWithin(ctx context.Context, window time.Duration) (bool, error) {
	cutoff := time.Now().UTC().Add(-window).Format(timeLayout)

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts WHERE timestamp > ?`, cutoff,
	).Scan(&count)
	if err != nil {
		return false, mapSQLiteError(err)
	}
	return count > 0, nil
}

func (s *Store) GetPosts(ctx context.Context, limit int) ([]entities.Post, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, external_post_id, text, timestamp, price, price_change_pct, content_type,
		       likes, retweets, engagement_last_checked
		FROM posts ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()
	return scanPosts(rows)
}

func (s *Store) GetPostsNeedingEngagementUpdate(ctx context.Context, limit int) ([]entities.Post, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, external_post_id, text, timestamp, price, price_change_pct, content_type,
		       likes, retweets, engagement_last_checked
		FROM posts
		ORDER BY (engagement_last_checked IS NOT NULL), engagement_last_checked ASC, timestamp DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()
	return scanPosts(rows)
}

func (s *Store) UpdatePostEngagement(ctx context.Context, externalID string, likes, retweets int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE posts SET likes = ?, retweets = ?, engagement_last_checked = ? WHERE external_post_id = ?`,
		likes, retweets, time.Now().UTC().Format(timeLayout), externalID,
	)
	if err != nil {
		return mapSQLiteError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return mapSQLiteError(err)
	}
	if affected == 0 {
		return mapSQLiteError(sql.ErrNoRows)
	}
	return nil
}

func scanPosts(rows *sql.Rows) ([]entities.Post, error) {
	results := make([]entities.Post, 0)
	for rows.Next() {
		var (
			idStr, externalPostID, text, timestampStr, contentType string
			priceUSD, priceChangePct                                float64
			likes, retweets                                         int
			engagementLastChecked                                   sql.NullString
		)
		if err := rows.Scan(&idStr, &externalPostID, &text, &timestampStr, &priceUSD, &priceChangePct,
			&contentType, &likes, &retweets, &engagementLastChecked); err != nil {
			return nil, mapSQLiteError(err)
		}

		id, _ := uuid.Parse(idStr)
		ts, err := time.Parse(timeLayout, timestampStr)
		if err != nil {
			return nil, err
		}

		var checkedAt *time.Time
		if engagementLastChecked.Valid {
			t, err := time.Parse(timeLayout, engagementLastChecked.String)
			if err != nil {
				return nil, err
			}
			t = t.UTC()
			checkedAt = &t
		}

		results = append(results, entities.HydratePostEntity(entities.PostParams{
			ID:                    id,
			ExternalPostID:        externalPostID,
			Text:                  text,
			Timestamp:             ts.UTC(),
			PriceUSD:              priceUSD,
			PriceChangePct:        priceChangePct,
			ContentType:           entities.ContentType(contentType),
			Likes:                 likes,
			Retweets:              retweets,
			EngagementLastChecked: checkedAt,
			CreatedAt:             ts.UTC(),
			UpdatedAt:             ts.UTC(),
		}))
	}
	if err := rows.Err(); err != nil {
		return nil, mapSQLiteError(err)
	}
	return results, nil
}
