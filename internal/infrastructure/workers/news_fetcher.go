package workers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/btcbuzzbot/bot/internal/domain/entities"
	"github.com/btcbuzzbot/bot/internal/domain/repositories"
	"github.com/btcbuzzbot/bot/internal/infrastructure/external"
	"github.com/btcbuzzbot/bot/internal/infrastructure/messaging"
)

const (
	defaultNewsQuery      = "#Bitcoin -is:retweet"
	defaultNewsMaxResults = 10
	minNewsMaxResults     = 5
	maxNewsMaxResults     = 100
	defaultFetchTimeout   = 20 * time.Second
)

// NewsFetcher polls the social platform for recent Bitcoin-tagged posts and
// stores them as unprocessed NewsItems. Each RunCycle call, fired by the
// scheduler, makes one search attempt; a failed search is logged and the
// cycle ends without a retry. Counts are logged per cycle.
type NewsFetcher struct {
	store        repositories.Store
	socialClient external.SocialClient
	broadcaster  messaging.EventBroadcaster
	logger       *slog.Logger
	query        string
	maxResults   int
	fetchTimeout time.Duration
}

// NewsFetcherConfig configures a NewsFetcher.
type NewsFetcherConfig struct {
	Store        repositories.Store
	SocialClient external.SocialClient
	Broadcaster  messaging.EventBroadcaster
	Logger       *slog.Logger
	Query        string
	MaxResults   int
	FetchTimeout time.Duration
}

// NewNewsFetcher constructs a NewsFetcher.
func NewNewsFetcher(cfg NewsFetcherConfig) *NewsFetcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	query := cfg.Query
	if query == "" {
		query = defaultNewsQuery
	}
	maxResults := cfg.MaxResults
	if maxResults < minNewsMaxResults {
		maxResults = defaultNewsMaxResults
	}
	if maxResults > maxNewsMaxResults {
		maxResults = maxNewsMaxResults
	}
	fetchTimeout := cfg.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}
	return &NewsFetcher{
		store:        cfg.Store,
		socialClient: cfg.SocialClient,
		broadcaster:  cfg.Broadcaster,
		logger:       logger.With(slog.String("component", "news_fetcher")),
		query:        query,
		maxResults:   maxResults,
		fetchTimeout: fetchTimeout,
	}
}

// RunCycle performs one fetch-and-store pass
func (f *NewsFetcher) RunCycle(ctx context.Context) error {
	cycleCtx, cancel := context.WithTimeout(ctx, f.fetchTimeout)
	defer cancel()

	sinceID, err := f.store.GetLastFetchedExternalID(cycleCtx)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		f.logger.Warn("could not read last fetched id, fetching without a floor", slog.String("error", err.Error()))
		sinceID = ""
	}

	results, err := f.socialClient.SearchRecent(cycleCtx, f.query, sinceID, f.maxResults)
	if err != nil {
		switch {
		case errors.Is(err, external.ErrSocialRateLimited):
			f.logger.Warn("news search rate limited, ending cycle")
			return nil
		default:
			f.logger.Warn("news search failed, retrying next cycle", slog.String("error", err.Error()))
			return nil
		}
	}

	fetched, stored := len(results), 0
	for _, result := range results {
		item := entities.HydrateNewsItemEntity(entities.NewsItemParams{
			ExternalTweetID: result.ExternalTweetID,
			AuthorID:        result.AuthorID,
			Text:            result.Text,
			PublishedAt:     result.PublishedAt,
			FetchedAt:       time.Now().UTC(),
			Metrics:         result.Metrics,
			Source:          "twitter_search",
			Processed:       false,
		})

		_, inserted, err := f.store.UpsertNewsItem(cycleCtx, item)
		if err != nil {
			f.logger.Warn("failed to store news item", slog.String("external_id", result.ExternalTweetID), slog.String("error", err.Error()))
			continue
		}
		if inserted {
			stored++
		}
	}

	f.logger.Info("news fetch cycle complete", slog.Int("fetched", fetched), slog.Int("stored", stored))

	if f.broadcaster != nil {
		_ = f.broadcaster.PublishNewsFetched(ctx, messaging.NewsFetchedEvent{FetchedCount: fetched, NewCount: stored})
	}
	return nil
}
