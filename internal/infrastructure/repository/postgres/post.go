package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/btcbuzzbot/bot/internal/domain/entities"
)

// LogPost records a successful publish; Post rows are created exactly once
// per cycle. The price here must equal the Price row from the same cycle --
// the Publisher is responsible for passing matching values.
func (s *Store) LogPost(ctx context.Context, externalID, text string, priceUSD, changePct float64, contentType entities.ContentType) (uuid.UUID, error) {
	id := uuid.New()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO posts (id, external_post_id, text, timestamp, price, price_change_pct, content_type, likes, retweets)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, 0, 0)`,
		id, externalID, text, now, priceUSD, changePct, string(contentType),
	)
	if err != nil {
		return uuid.Nil, mapPGError(err)
	}
	return id, nil
}

// HasPostedWithin implements the duplicate-guard check.
func (s *Store) HasPostedWithin(ctx context.Context, window time.Duration) (bool, error) {
	cutoff := time.Now().UTC().Add(-window)

	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM posts WHERE timestamp > $1)`,
		cutoff,
	).Scan(&exists)
	if err != nil {
		return false, mapPGError(err)
	}
	return exists, nil
}

// GetPosts returns the most recent posts, newest first, for the admin API.
func (s *Store) GetPosts(ctx context.Context, limit int) ([]entities.Post, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, external_post_id, text, timestamp, price, price_change_pct, content_type,
		        likes, retweets, engagement_last_checked
		 FROM posts ORDER BY timestamp DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, mapPGError(err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// GetPostsNeedingEngagementUpdate returns posts whose engagement metrics have
// never been checked, or were checked longest ago, for the optional
// engagement-refresh job.
func (s *Store) GetPostsNeedingEngagementUpdate(ctx context.Context, limit int) ([]entities.Post, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, external_post_id, text, timestamp, price, price_change_pct, content_type,
		        likes, retweets, engagement_last_checked
		 FROM posts
		 ORDER BY engagement_last_checked ASC NULLS FIRST, timestamp DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, mapPGError(err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// UpdatePostEngagement persists refreshed like/retweet counts.
func (s *Store) UpdatePostEngagement(ctx context.Context, externalID string, likes, retweets int) error {
	cmd, err := s.pool.Exec(ctx,
		`UPDATE posts SET likes = $2, retweets = $3, engagement_last_checked = $4 WHERE external_post_id = $1`,
		externalID, likes, retweets, time.Now().UTC(),
	)
	if err != nil {
		return mapPGError(err)
	}
	if cmd.RowsAffected() == 0 {
		return mapPGError(pgx.ErrNoRows)
	}
	return nil
}

func scanPosts(rows pgx.Rows) ([]entities.Post, error) {
	results := make([]entities.Post, 0)
	for rows.Next() {
		var (
			id                    uuid.UUID
			externalPostID        string
			text                  string
			timestamp             time.Time
			priceUSD              float64
			priceChangePct        float64
			contentType           string
			likes                 int
			retweets              int
			engagementLastChecked pgtype.Timestamptz
		)
		if err := rows.Scan(&id, &externalPostID, &text, &timestamp, &priceUSD, &priceChangePct,
			&contentType, &likes, &retweets, &engagementLastChecked); err != nil {
			return nil, mapPGError(err)
		}

		var checkedAt *time.Time
		if engagementLastChecked.Valid {
			t := engagementLastChecked.Time.UTC()
			checkedAt = &t
		}

		results = append(results, entities.HydratePostEntity(entities.PostParams{
			ID:                    id,
			ExternalPostID:        externalPostID,
			Text:                  text,
			Timestamp:             timestamp.UTC(),
			PriceUSD:              priceUSD,
			PriceChangePct:        priceChangePct,
			ContentType:           entities.ContentType(contentType),
			Likes:                 likes,
			Retweets:              retweets,
			EngagementLastChecked: checkedAt,
			CreatedAt:             timestamp.UTC(),
			UpdatedAt:             timestamp.UTC(),
		}))
	}
	if rows.Err() != nil {
		return nil, mapPGError(rows.Err())
	}
	return results, nil
}
