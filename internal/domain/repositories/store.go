package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/btcbuzzbot/bot/internal/domain/entities"
)

// NewsAnalysisUpdate carries the fields UpdateNewsAnalysis writes when a
// NewsItem transitions to processed=true.
type NewsAnalysisUpdate struct {
	Status            entities.NewsAnalysisStatus
	SentimentLabel    *entities.SentimentLabel
	SignificanceLabel *entities.SignificanceLabel
	Summary           *string
	SentimentSource   *string
	LLMAnalysis       []byte
}

// Store is the typed persistence contract every component depends on. Two
// backends satisfy it: PostgresStore and SQLiteStore.
type Store interface {
	// Price.
	StoreLatestPrice(ctx context.Context, priceUSD float64, source string) (uuid.UUID, error)
	GetLatestPrice(ctx context.Context) (entities.Price, error)
	GetPriceAt24hAgo(ctx context.Context) (*float64, error)

	// Post.
	LogPost(ctx context.Context, externalID, text string, priceUSD, changePct float64, contentType entities.ContentType) (uuid.UUID, error)
	HasPostedWithin(ctx context.Context, window time.Duration) (bool, error)
	GetPosts(ctx context.Context, limit int) ([]entities.Post, error)
	GetPostsNeedingEngagementUpdate(ctx context.Context, limit int) ([]entities.Post, error)
	UpdatePostEngagement(ctx context.Context, externalID string, likes, retweets int) error

	// Quotes and jokes.
	GetRandomContent(ctx context.Context, kind entities.ContentKind, reuseWindow time.Duration) (entities.ContentItem, error)
	AddQuote(ctx context.Context, text, category string) (uuid.UUID, error)
	AddJoke(ctx context.Context, text, category string) (uuid.UUID, error)
	DeleteQuote(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteJoke(ctx context.Context, id uuid.UUID) (bool, error)
	ListQuotes(ctx context.Context) ([]entities.ContentItem, error)
	ListJokes(ctx context.Context) ([]entities.ContentItem, error)

	// News.
	UpsertNewsItem(ctx context.Context, item entities.NewsItem) (id uuid.UUID, inserted bool, err error)
	GetLastFetchedExternalID(ctx context.Context) (string, error)
	GetUnprocessedNews(ctx context.Context, limit int) ([]entities.NewsItem, error)
	GetRecentAnalyzedNews(ctx context.Context, hours int) ([]entities.NewsItem, error)
	UpdateNewsAnalysis(ctx context.Context, externalTweetID string, update NewsAnalysisUpdate) (bool, error)

	// Scheduler config.
	GetScheduleConfig(ctx context.Context) (string, error)
	SetScheduleConfig(ctx context.Context, value string) error

	// Bot status.
	LogBotStatus(ctx context.Context, status entities.BotStatusLevel, message string, nextRun *time.Time) error
	GetLatestBotStatus(ctx context.Context) (entities.BotStatus, error)

	// Lifecycle.
	Close() error
}

// AdminUserRepository persists the single admin account.
type AdminUserRepository interface {
	GetByEmail(ctx context.Context, email string) (entities.AdminUser, error)
	Create(ctx context.Context, user *entities.AdminUserEntity) error
	Count(ctx context.Context) (int, error)
}
