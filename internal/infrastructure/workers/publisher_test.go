package workers

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/btcbuzzbot/bot/internal/domain/entities"
	"github.com/btcbuzzbot/bot/internal/domain/repositories"
	"github.com/btcbuzzbot/bot/internal/infrastructure/external"
	"github.com/google/uuid"
)

// fakePublishStore implements only the Store methods Publisher.RunCycle
// touches; embedding a nil repositories.Store satisfies the rest.
type fakePublishStore struct {
	repositories.Store
	latestPrice entities.Price
	hasPosted   bool
	news        []entities.NewsItem

	storedPrice *float64
	loggedPosts []string
	statuses    []string
}

func (f *fakePublishStore) GetLatestPrice(context.Context) (entities.Price, error) {
	if f.latestPrice == nil {
		return nil, repositories.ErrNotFound
	}
	return f.latestPrice, nil
}

func (f *fakePublishStore) StoreLatestPrice(_ context.Context, priceUSD float64, _ string) (uuid.UUID, error) {
	f.storedPrice = &priceUSD
	return uuid.New(), nil
}

func (f *fakePublishStore) HasPostedWithin(context.Context, time.Duration) (bool, error) {
	return f.hasPosted, nil
}

func (f *fakePublishStore) LogPost(_ context.Context, externalID, text string, _, _ float64, _ entities.ContentType) (uuid.UUID, error) {
	f.loggedPosts = append(f.loggedPosts, externalID+"|"+text)
	return uuid.New(), nil
}

func (f *fakePublishStore) GetRecentAnalyzedNews(context.Context, int) ([]entities.NewsItem, error) {
	return f.news, nil
}

func (f *fakePublishStore) LogBotStatus(_ context.Context, status entities.BotStatusLevel, message string, _ *time.Time) error {
	f.statuses = append(f.statuses, string(status)+": "+message)
	return nil
}

type fakePriceClient struct {
	quote external.PriceQuote
	err   error
}

func (f *fakePriceClient) GetBTCPrice(context.Context) (external.PriceQuote, error) {
	return f.quote, f.err
}

type fakeSocialClient struct {
	externalID string
	err        error
	posted     []string
}

func (f *fakeSocialClient) PostMessage(_ context.Context, text string) (string, error) {
	f.posted = append(f.posted, text)
	return f.externalID, f.err
}

// Scenario 1 / happy path: price fetched, no duplicate, no usable news or
// content, posts a bare price fallback, logs it, and reports running status.
func TestPublisher_RunCycle_PriceFallbackHappyPath(t *testing.T) {
	store := &fakePublishStore{}
	social := &fakeSocialClient{externalID: "tw-1"}
	pub := NewPublisher(PublisherConfig{
		Store:        store,
		PriceClient:  &fakePriceClient{quote: external.PriceQuote{USD: 50000}},
		SocialClient: social,
	})

	if err := pub.RunCycle(context.Background(), "08:00"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(social.posted) != 1 {
		t.Fatalf("expected exactly one post, got %d", len(social.posted))
	}
	if len(store.loggedPosts) != 1 {
		t.Fatalf("expected the post to be logged, got %v", store.loggedPosts)
	}
	if store.storedPrice == nil || *store.storedPrice != 50000 {
		t.Fatalf("expected the fetched price to be persisted, got %v", store.storedPrice)
	}
}

// A second cycle within the duplicate guard window must not post or log
// anything, even though the price is still fetched and stored.
func TestPublisher_RunCycle_DuplicateGuardSkips(t *testing.T) {
	store := &fakePublishStore{hasPosted: true}
	social := &fakeSocialClient{externalID: "tw-2"}
	pub := NewPublisher(PublisherConfig{
		Store:        store,
		PriceClient:  &fakePriceClient{quote: external.PriceQuote{USD: 51000}},
		SocialClient: social,
	})

	if err := pub.RunCycle(context.Background(), "12:00"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(social.posted) != 0 {
		t.Fatalf("expected no post within the duplicate guard window, got %v", social.posted)
	}
	if len(store.loggedPosts) != 0 {
		t.Fatalf("expected no logged post, got %v", store.loggedPosts)
	}
	found := false
	for _, s := range store.statuses {
		if s == "Scheduled: Skipped: recent post within duplicate guard window" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a skipped-duplicate status entry, got %v", store.statuses)
	}
}

// Scenario 6: a failing secondary webhook channel must never fail the cycle
// or block the primary post from being logged.
func TestPublisher_RunCycle_SecondaryChannelFailureIsTolerated(t *testing.T) {
	store := &fakePublishStore{}
	social := &fakeSocialClient{externalID: "tw-3"}
	failingCalled := false
	pub := NewPublisher(PublisherConfig{
		Store:        store,
		PriceClient:  &fakePriceClient{quote: external.PriceQuote{USD: 49000}},
		SocialClient: social,
		Webhooks: []WebhookChannel{
			{Name: "discord", Send: func(context.Context, string) bool { failingCalled = true; return false }},
			{Name: "telegram", Send: func(context.Context, string) bool { return true }},
		},
	})

	if err := pub.RunCycle(context.Background(), "16:00"); err != nil {
		t.Fatalf("unexpected error from a failing secondary channel: %v", err)
	}
	if !failingCalled {
		t.Fatal("expected the failing webhook to have been invoked")
	}
	if len(store.loggedPosts) != 1 {
		t.Fatalf("expected the primary post to still be logged, got %v", store.loggedPosts)
	}
}

// A platform-reported duplicate-content error must be treated as a skip,
// not a cycle failure.
func TestPublisher_RunCycle_PlatformDuplicateIsNotAnError(t *testing.T) {
	store := &fakePublishStore{}
	social := &fakeSocialClient{err: external.ErrSocialDuplicate}
	pub := NewPublisher(PublisherConfig{
		Store:        store,
		PriceClient:  &fakePriceClient{quote: external.PriceQuote{USD: 49500}},
		SocialClient: social,
	})

	if err := pub.RunCycle(context.Background(), "20:00"); err != nil {
		t.Fatalf("expected no error on platform-reported duplicate, got %v", err)
	}
	if len(store.loggedPosts) != 0 {
		t.Fatalf("expected no logged post when the platform rejected as duplicate, got %v", store.loggedPosts)
	}
}

// Usable high-significance news is composed and posted ahead of any
// quote/joke or bare price fallback.
func TestPublisher_RunCycle_PrefersUsableNews(t *testing.T) {
	summary := "Major retailer integrates Bitcoin payments."
	sigHigh := entities.SignificanceHigh
	sentPositive := entities.SentimentPositive
	sigScore := 1.0
	news := entities.HydrateNewsItemEntity(entities.NewsItemParams{
		ExternalTweetID:   "n1",
		Text:              "raw tweet text",
		PublishedAt:       time.Now().UTC(),
		Summary:           &summary,
		SignificanceLabel: &sigHigh,
		SentimentLabel:    &sentPositive,
		SignificanceScore: &sigScore,
	})
	store := &fakePublishStore{news: []entities.NewsItem{news}}
	social := &fakeSocialClient{externalID: "tw-4"}
	pub := NewPublisher(PublisherConfig{
		Store:        store,
		PriceClient:  &fakePriceClient{quote: external.PriceQuote{USD: 50000}},
		SocialClient: social,
	})

	if err := pub.RunCycle(context.Background(), "08:00"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(social.posted) != 1 {
		t.Fatalf("expected one post, got %d", len(social.posted))
	}
	if !contains(social.posted[0], summary) {
		t.Fatalf("expected the news summary in the posted text, got %q", social.posted[0])
	}
}

func contains(haystack, needle string) bool {
	return strings.Contains(haystack, needle)
}
