package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/btcbuzzbot/bot/internal/domain/entities"
	"github.com/btcbuzzbot/bot/internal/domain/repositories"
)

// UpsertNewsItem inserts a freshly fetched tweet, or no-ops if the
// external_tweet_id already exists (news_tweets is keyed on it so a refetch
// of the same search window never duplicates a row).
func (s *Store) UpsertNewsItem(ctx context.Context, item entities.NewsItem) (uuid.UUID, bool, error) {
	id := item.GetID()
	if id == uuid.Nil {
		id = uuid.New()
	}

	var returnedID uuid.UUID
	var inserted bool

	err := s.pool.QueryRow(ctx, `
		INSERT INTO news_tweets (id, external_tweet_id, author_id, text, published_at, fetched_at, metrics, source, processed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false)
		ON CONFLICT (external_tweet_id) DO NOTHING
		RETURNING id`,
		id, item.GetExternalTweetID(), nullIfEmpty(item.GetAuthorID()), item.GetText(),
		item.GetPublishedAt(), item.GetFetchedAt(), rawMessageOrNil(item.GetMetrics()), item.GetSource(),
	).Scan(&returnedID)

	switch {
	case err == nil:
		return returnedID, true, nil
	case errors.Is(err, pgx.ErrNoRows):
		// Conflict triggered DO NOTHING: look the existing row up by its key.
		existingID, lookupErr := s.newsIDByExternalID(ctx, item.GetExternalTweetID())
		if lookupErr != nil {
			return uuid.Nil, false, lookupErr
		}
		return existingID, false, nil
	default:
		return uuid.Nil, false, mapPGError(err)
	}
}

func (s *Store) newsIDByExternalID(ctx context.Context, externalTweetID string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM news_tweets WHERE external_tweet_id = $1`, externalTweetID,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, mapPGError(err)
	}
	return id, nil
}

// GetLastFetchedExternalID returns the numerically largest external_tweet_id
// ever ingested, used as the since_id for the next search, or "" if no news
// has ever been ingested. Twitter snowflake ids are monotonic-ish decimal
// strings, so ordering by fetched_at (insertion order within a fetch batch)
// does not track id order: a search page is newest-first, and ordering by
// fetched_at would pick the oldest id in the most recently inserted batch.
// Comparing as numeric (not lexicographic text) keeps this correct once ids
// exceed int64 digit-count parity.
func (s *Store) GetLastFetchedExternalID(ctx context.Context) (string, error) {
	var externalID string
	err := s.pool.QueryRow(ctx,
		`SELECT external_tweet_id FROM news_tweets ORDER BY external_tweet_id::numeric DESC LIMIT 1`,
	).Scan(&externalID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", mapPGError(err)
	}
	return externalID, nil
}

// GetUnprocessedNews returns items awaiting analysis, oldest first so the
// analyzer works through the backlog in fetch order.
func (s *Store) GetUnprocessedNews(ctx context.Context, limit int) ([]entities.NewsItem, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, external_tweet_id, author_id, text, published_at, fetched_at, metrics, source,
		       processed, sentiment_score, sentiment_label, significance_score, significance_label,
		       summary, sentiment_source, llm_analysis
		FROM news_tweets
		WHERE processed = false
		ORDER BY fetched_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, mapPGError(err)
	}
	defer rows.Close()
	return scanNewsItems(rows)
}

// GetRecentAnalyzedNews returns already-analyzed, scored items published
// within the last `hours`, most significant first (ties broken by recency),
// so the publisher can select the single best candidate by taking the head
// of the list.
func (s *Store) GetRecentAnalyzedNews(ctx context.Context, hours int) ([]entities.NewsItem, error) {
	if hours <= 0 {
		hours = 24
	}
	cutoff := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)

	rows, err := s.pool.Query(ctx, `
		SELECT id, external_tweet_id, author_id, text, published_at, fetched_at, metrics, source,
		       processed, sentiment_score, sentiment_label, significance_score, significance_label,
		       summary, sentiment_source, llm_analysis
		FROM news_tweets
		WHERE processed = true AND significance_score IS NOT NULL AND published_at >= $1
		ORDER BY significance_score DESC, published_at DESC`, cutoff)
	if err != nil {
		return nil, mapPGError(err)
	}
	defer rows.Close()
	return scanNewsItems(rows)
}

// UpdateNewsAnalysis writes the analyzer's verdict and flips processed=true.
// A "failed" or "timeout" status only stamps sentiment_source with the
// status itself; only "analyzed" writes the full verdict.
// Returns false if no row matches the external tweet id.
func (s *Store) UpdateNewsAnalysis(ctx context.Context, externalTweetID string, update repositories.NewsAnalysisUpdate) (bool, error) {
	if update.Status != entities.NewsAnalysisAnalyzed {
		source := string(update.Status)
		cmd, err := s.pool.Exec(ctx, `
			UPDATE news_tweets
			SET processed = true,
			    sentiment_source = $2
			WHERE external_tweet_id = $1`,
			externalTweetID, source,
		)
		if err != nil {
			return false, mapPGError(err)
		}
		return cmd.RowsAffected() > 0, nil
	}

	var sentimentLabel, significanceLabel *string
	if update.SentimentLabel != nil {
		v := string(*update.SentimentLabel)
		sentimentLabel = &v
	}
	if update.SignificanceLabel != nil {
		v := string(*update.SignificanceLabel)
		significanceLabel = &v
	}

	var sentimentScore, significanceScore *float64
	if update.SentimentLabel != nil {
		sentimentScore = entities.SentimentScore(*update.SentimentLabel)
	}
	if update.SignificanceLabel != nil {
		significanceScore = entities.SignificanceScore(*update.SignificanceLabel)
	}

	cmd, err := s.pool.Exec(ctx, `
		UPDATE news_tweets
		SET processed = true,
		    sentiment_score = $2,
		    sentiment_label = $3,
		    significance_score = $4,
		    significance_label = $5,
		    summary = $6,
		    sentiment_source = $7,
		    llm_analysis = $8
		WHERE external_tweet_id = $1`,
		externalTweetID,
		sentimentScore,
		sentimentLabel,
		significanceScore,
		significanceLabel,
		update.Summary,
		update.SentimentSource,
		rawMessageOrNil(update.LLMAnalysis),
	)
	if err != nil {
		return false, mapPGError(err)
	}
	return cmd.RowsAffected() > 0, nil
}

func scanNewsItems(rows pgx.Rows) ([]entities.NewsItem, error) {
	results := make([]entities.NewsItem, 0)
	for rows.Next() {
		var (
			id                uuid.UUID
			externalTweetID   string
			authorID          pgtype.Text
			text              string
			publishedAt       time.Time
			fetchedAt         time.Time
			metrics           []byte
			source            string
			processed         bool
			sentimentScore    pgtype.Float8
			sentimentLabel    pgtype.Text
			significanceScore pgtype.Float8
			significanceLabel pgtype.Text
			summary           pgtype.Text
			sentimentSource   pgtype.Text
			llmAnalysis       []byte
		)
		if err := rows.Scan(&id, &externalTweetID, &authorID, &text, &publishedAt, &fetchedAt, &metrics,
			&source, &processed, &sentimentScore, &sentimentLabel, &significanceScore, &significanceLabel,
			&summary, &sentimentSource, &llmAnalysis); err != nil {
			return nil, mapPGError(err)
		}

		params := entities.NewsItemParams{
			ID:              id,
			ExternalTweetID: externalTweetID,
			AuthorID:        authorID.String,
			Text:            text,
			PublishedAt:     publishedAt.UTC(),
			FetchedAt:       fetchedAt.UTC(),
			Metrics:         metrics,
			Source:          source,
			Processed:       processed,
			LLMAnalysis:     llmAnalysis,
			CreatedAt:       fetchedAt.UTC(),
			UpdatedAt:       fetchedAt.UTC(),
		}
		if sentimentScore.Valid {
			v := sentimentScore.Float64
			params.SentimentScore = &v
		}
		if sentimentLabel.Valid {
			v := entities.SentimentLabel(sentimentLabel.String)
			params.SentimentLabel = &v
		}
		if significanceScore.Valid {
			v := significanceScore.Float64
			params.SignificanceScore = &v
		}
		if significanceLabel.Valid {
			v := entities.SignificanceLabel(significanceLabel.String)
			params.SignificanceLabel = &v
		}
		if summary.Valid {
			v := summary.String
			params.Summary = &v
		}
		if sentimentSource.Valid {
			v := sentimentSource.String
			params.SentimentSource = &v
		}

		results = append(results, entities.HydrateNewsItemEntity(params))
	}
	if rows.Err() != nil {
		return nil, mapPGError(rows.Err())
	}
	return results, nil
}

func rawMessageOrNil(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
