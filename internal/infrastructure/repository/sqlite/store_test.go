package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/btcbuzzbot/bot/internal/domain/entities"
	"github.com/btcbuzzbot/bot/internal/domain/repositories"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), ":memory:", nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// Starting against an empty database creates every table the Store needs,
// seeds the default schedule row, GetLatestPrice reports ErrNotFound, and
// the list reads return empty results rather than an error.
func TestStore_SchemaCreatedOnEmptyDatabase(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.GetLatestPrice(ctx); err != repositories.ErrNotFound {
		t.Fatalf("expected ErrNotFound on an empty prices table, got %v", err)
	}
	if items, err := store.GetUnprocessedNews(ctx, 10); err != nil || len(items) != 0 {
		t.Fatalf("expected no unprocessed news, got %v, %v", items, err)
	}
	if schedule, err := store.GetScheduleConfig(ctx); err != nil || schedule != entities.DefaultSchedule {
		t.Fatalf("expected the seeded default schedule on a fresh database, got %q, %v", schedule, err)
	}
	if quotes, err := store.ListQuotes(ctx); err != nil || len(quotes) != 0 {
		t.Fatalf("expected no quotes, got %v, %v", quotes, err)
	}
}

// Reopening an existing database must not clobber a schedule the admin
// surface already changed away from the default.
func TestStore_ReopenDoesNotOverwriteExistingSchedule(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/bot.db"
	ctx := context.Background()

	first, err := Open(ctx, path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := first.SetScheduleConfig(ctx, "09:30,21:00"); err != nil {
		t.Fatalf("set schedule: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := Open(ctx, path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	schedule, err := second.GetScheduleConfig(ctx)
	if err != nil {
		t.Fatalf("get schedule: %v", err)
	}
	if schedule != "09:30,21:00" {
		t.Fatalf("expected the previously configured schedule to survive reopen, got %q", schedule)
	}
}

// Reopening the same file must not wipe existing rows (idempotent schema).
func TestStore_ReopenIsNonDestructive(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/bot.db"
	ctx := context.Background()

	first, err := Open(ctx, path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := first.AddQuote(ctx, "HODL to the moon!", "motivation"); err != nil {
		t.Fatalf("add quote: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := Open(ctx, path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	quotes, err := second.ListQuotes(ctx)
	if err != nil {
		t.Fatalf("list quotes: %v", err)
	}
	if len(quotes) != 1 || quotes[0].GetText() != "HODL to the moon!" {
		t.Fatalf("expected the quote to survive reopen, got %v", quotes)
	}
}

func sampleNewsItem(externalID string) entities.NewsItem {
	return entities.HydrateNewsItemEntity(entities.NewsItemParams{
		ExternalTweetID: externalID,
		Text:            "Bitcoin news item " + externalID,
		PublishedAt:     time.Now().UTC(),
		FetchedAt:       time.Now().UTC(),
		Source:          "twitter",
	})
}

// Upserting the same external tweet ID twice leaves exactly one row and
// reports inserted=false on the second call.
func TestStore_UpsertNewsItemIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	item := sampleNewsItem("tweet-1")
	id1, inserted1, err := store.UpsertNewsItem(ctx, item)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if !inserted1 {
		t.Fatal("expected the first upsert to report inserted=true")
	}

	id2, inserted2, err := store.UpsertNewsItem(ctx, item)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if inserted2 {
		t.Fatal("expected the second upsert to report inserted=false")
	}
	if id1 != id2 {
		t.Fatalf("expected the same id across both upserts, got %v and %v", id1, id2)
	}

	unprocessed, err := store.GetUnprocessedNews(ctx, 100)
	if err != nil {
		t.Fatalf("get unprocessed: %v", err)
	}
	if len(unprocessed) != 1 {
		t.Fatalf("expected exactly one row after the duplicate upsert, got %d", len(unprocessed))
	}
}

// Once UpdateNewsAnalysis marks an item processed, it never reappears
// among the unprocessed batch, even across further fetch attempts.
func TestStore_AnalysisMonotonicity(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	item := sampleNewsItem("tweet-2")
	if _, _, err := store.UpsertNewsItem(ctx, item); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	sentiment := entities.SentimentPositive
	significance := entities.SignificanceHigh
	summary := "Bitcoin news summary."
	source := entities.SentimentSourceGroq
	updated, err := store.UpdateNewsAnalysis(ctx, "tweet-2", repositories.NewsAnalysisUpdate{
		Status:            entities.NewsAnalysisAnalyzed,
		SentimentLabel:    &sentiment,
		SignificanceLabel: &significance,
		Summary:           &summary,
		SentimentSource:   &source,
	})
	if err != nil {
		t.Fatalf("update analysis: %v", err)
	}
	if !updated {
		t.Fatal("expected UpdateNewsAnalysis to report a row updated")
	}

	unprocessed, err := store.GetUnprocessedNews(ctx, 100)
	if err != nil {
		t.Fatalf("get unprocessed: %v", err)
	}
	if len(unprocessed) != 0 {
		t.Fatalf("expected the analyzed item to drop out of the unprocessed batch, got %d", len(unprocessed))
	}

	recent, err := store.GetRecentAnalyzedNews(ctx, 24)
	if err != nil {
		t.Fatalf("get recent analyzed: %v", err)
	}
	if len(recent) != 1 || recent[0].GetExternalTweetID() != "tweet-2" {
		t.Fatalf("expected the analyzed item in the recent set, got %v", recent)
	}

	// A second analysis attempt against the same (now processed) item still
	// matches the row; processed state never regresses to unprocessed.
	again, err := store.UpdateNewsAnalysis(ctx, "tweet-2", repositories.NewsAnalysisUpdate{Status: entities.NewsAnalysisAnalyzed})
	if err != nil {
		t.Fatalf("second update analysis: %v", err)
	}
	if !again {
		t.Fatal("expected the update to still match the existing row")
	}
	unprocessedAfter, err := store.GetUnprocessedNews(ctx, 100)
	if err != nil {
		t.Fatalf("get unprocessed after second update: %v", err)
	}
	if len(unprocessedAfter) != 0 {
		t.Fatalf("processed item must not reappear as unprocessed, got %d", len(unprocessedAfter))
	}
}

// Content selection prefers rows never used (or used longest ago)
// within the reuse window over a recently-used row.
func TestStore_GetRandomContentPrefersLeastRecentlyUsed(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	usedID, err := store.AddQuote(ctx, "Recently used quote", "")
	if err != nil {
		t.Fatalf("add quote: %v", err)
	}
	if _, err := store.AddQuote(ctx, "Fresh quote", ""); err != nil {
		t.Fatalf("add quote: %v", err)
	}

	// Mark the first quote as just used, inside the reuse window.
	if _, err := store.db.ExecContext(ctx,
		`UPDATE quotes SET used_count = 1, last_used = ? WHERE id = ?`,
		time.Now().UTC().Format(timeLayout), usedID.String(),
	); err != nil {
		t.Fatalf("mark used: %v", err)
	}

	picked, err := store.GetRandomContent(ctx, entities.ContentKindQuote, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("get random content: %v", err)
	}
	if picked == nil {
		t.Fatal("expected a picked quote")
	}
	if picked.GetText() != "Fresh quote" {
		t.Fatalf("expected the unused quote to be preferred, got %q", picked.GetText())
	}
}

func TestStore_GetRandomContentReturnsNilWhenTableEmpty(t *testing.T) {
	store := openTestStore(t)
	picked, err := store.GetRandomContent(context.Background(), entities.ContentKindJoke, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if picked != nil {
		t.Fatalf("expected nil when no jokes exist, got %+v", picked)
	}
}
