package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/btcbuzzbot/bot/internal/domain/entities"
	"github.com/btcbuzzbot/bot/internal/domain/repositories"
)

func (s *Store) UpsertNewsItem(ctx context.Context, item entities.NewsItem) (uuid.UUID, bool, error) {
	id := item.GetID()
	if id == uuid.Nil {
		id = uuid.New()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO news_tweets (id, external_tweet_id, author_id, text, published_at, fetched_at, metrics, source, processed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		id.String(), item.GetExternalTweetID(), nullIfEmpty(item.GetAuthorID()), item.GetText(),
		item.GetPublishedAt().UTC().Format(timeLayout), item.GetFetchedAt().UTC().Format(timeLayout),
		rawTextOrNil(item.GetMetrics()), item.GetSource(),
	)
	if err != nil {
		return uuid.Nil, false, mapSQLiteError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return uuid.Nil, false, mapSQLiteError(err)
	}
	if affected > 0 {
		return id, true, nil
	}

	existingID, lookupErr := s.newsIDByExternalID(ctx, item.GetExternalTweetID())
	if lookupErr != nil {
		return uuid.Nil, false, lookupErr
	}
	return existingID, false, nil
}

func (s *Store) newsIDByExternalID(ctx context.Context, externalTweetID string) (uuid.UUID, error) {
	var idStr string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM news_tweets WHERE external_tweet_id = ?`, externalTweetID,
	).Scan(&idStr)
	if err != nil {
		return uuid.Nil, mapSQLiteError(err)
	}
	id, _ := uuid.Parse(idStr)
	return id, nil
}

// GetLastFetchedExternalID returns the numerically largest external_tweet_id
// ever ingested, used as the since_id for the next search, or "" if no news
// has ever been ingested. Twitter snowflake ids are monotonic-ish decimal
// strings, so ordering by fetched_at (insertion order within a fetch batch)
// does not track id order: a search page is newest-first, and ordering by
// fetched_at would pick the oldest id in the most recently inserted batch.
// SQLite has no numeric cast for ORDER BY on text, so length-then-lexical
// order is used, which is equivalent to numeric order for non-negative
// all-digit ids.
func (s *Store) GetLastFetchedExternalID(ctx context.Context) (string, error) {
	var externalID string
	err := s.db.QueryRowContext(ctx,
		`SELECT external_tweet_id FROM news_tweets ORDER BY length(external_tweet_id) DESC, external_tweet_id DESC LIMIT 1`,
	).Scan(&externalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", mapSQLiteError(err)
	}
	return externalID, nil
}

func (s *Store) GetUnprocessedNews(ctx context.Context, limit int) ([]entities.NewsItem, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, external_tweet_id, author_id, text, published_at, fetched_at, metrics, source,
		       processed, sentiment_score, sentiment_label, significance_score, significance_label,
		       summary, sentiment_source, llm_analysis
		FROM news_tweets
		WHERE processed = 0
		ORDER BY fetched_at ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()
	return scanNewsItems(rows)
}

func (s *Store) GetRecentAnalyzedNews(ctx context.Context, hours int) ([]entities.NewsItem, error) {
	if hours <= 0 {
		hours = 24
	}
	cutoff := time.Now().UTC().Add(-time.Duration(hours) * time.Hour).Format(timeLayout)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, external_tweet_id, author_id, text, published_at, fetched_at, metrics, source,
		       processed, sentiment_score, sentiment_label, significance_score, significance_label,
		       summary, sentiment_source, llm_analysis
		FROM news_tweets
		WHERE processed = 1 AND significance_score IS NOT NULL AND published_at >= ?
		ORDER BY significance_score DESC, published_at DESC`, cutoff)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()
	return scanNewsItems(rows)
}

// UpdateNewsAnalysis writes the analyzer's verdict and flips processed=1.
// A "failed" or "timeout" status only stamps sentiment_source with the
// status itself; only "analyzed" writes the full verdict.
func (s *Store) UpdateNewsAnalysis(ctx context.Context, externalTweetID string, update repositories.NewsAnalysisUpdate) (bool, error) {
	if update.Status != entities.NewsAnalysisAnalyzed {
		res, err := s.db.ExecContext(ctx, `
			UPDATE news_tweets
			SET processed = 1,
			    sentiment_source = ?
			WHERE external_tweet_id = ?`,
			string(update.Status), externalTweetID,
		)
		if err != nil {
			return false, mapSQLiteError(err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return false, mapSQLiteError(err)
		}
		return affected > 0, nil
	}

	var sentimentScore, significanceScore *float64
	var sentimentLabel, significanceLabel *string
	if update.SentimentLabel != nil {
		sentimentScore = entities.SentimentScore(*update.SentimentLabel)
		v := string(*update.SentimentLabel)
		sentimentLabel = &v
	}
	if update.SignificanceLabel != nil {
		significanceScore = entities.SignificanceScore(*update.SignificanceLabel)
		v := string(*update.SignificanceLabel)
		significanceLabel = &v
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE news_tweets
		SET processed = 1,
		    sentiment_score = ?,
		    sentiment_label = ?,
		    significance_score = ?,
		    significance_label = ?,
		    summary = ?,
		    sentiment_source = ?,
		    llm_analysis = ?
		WHERE external_tweet_id = ?`,
		sentimentScore, sentimentLabel, significanceScore, significanceLabel,
		update.Summary, update.SentimentSource, rawTextOrNil(update.LLMAnalysis), externalTweetID,
	)
	if err != nil {
		return false, mapSQLiteError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, mapSQLiteError(err)
	}
	return affected > 0, nil
}

func scanNewsItems(rows *sql.Rows) ([]entities.NewsItem, error) {
	results := make([]entities.NewsItem, 0)
	for rows.Next() {
		var (
			idStr, externalTweetID, text, publishedAtStr, fetchedAtStr, source string
			authorID, metrics, sentimentLabel, significanceLabel                sql.NullString
			summary, sentimentSource, llmAnalysis                               sql.NullString
			sentimentScore, significanceScore                                   sql.NullFloat64
			processed                                                           int
		)
		if err := rows.Scan(&idStr, &externalTweetID, &authorID, &text, &publishedAtStr, &fetchedAtStr,
			&metrics, &source, &processed, &sentimentScore, &sentimentLabel, &significanceScore,
			&significanceLabel, &summary, &sentimentSource, &llmAnalysis); err != nil {
			return nil, mapSQLiteError(err)
		}

		id, _ := uuid.Parse(idStr)
		publishedAt, err := time.Parse(timeLayout, publishedAtStr)
		if err != nil {
			return nil, err
		}
		fetchedAt, err := time.Parse(timeLayout, fetchedAtStr)
		if err != nil {
			return nil, err
		}

		params := entities.NewsItemParams{
			ID:              id,
			ExternalTweetID: externalTweetID,
			AuthorID:        authorID.String,
			Text:            text,
			PublishedAt:     publishedAt.UTC(),
			FetchedAt:       fetchedAt.UTC(),
			Source:          source,
			Processed:       processed != 0,
			CreatedAt:       fetchedAt.UTC(),
			UpdatedAt:       fetchedAt.UTC(),
		}
		if metrics.Valid {
			params.Metrics = []byte(metrics.String)
		}
		if llmAnalysis.Valid {
			params.LLMAnalysis = []byte(llmAnalysis.String)
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
	if err := rows.Err(); err != nil {
		return nil, mapSQLiteError(err)
	}
	return results, nil
}

func rawTextOrNil(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
