package workers

import (
	"context"
	"testing"
	"time"

	"github.com/btcbuzzbot/bot/internal/domain/entities"
	"github.com/btcbuzzbot/bot/internal/domain/repositories"
	"github.com/btcbuzzbot/bot/internal/infrastructure/sentiment"
)

// fakeAnalysisStore implements only the two Store methods the analyzer
// touches; embedding a nil repositories.Store satisfies the rest.
type fakeAnalysisStore struct {
	repositories.Store
	items   []entities.NewsItem
	updates map[string]repositories.NewsAnalysisUpdate
}

func (f *fakeAnalysisStore) GetUnprocessedNews(context.Context, int) ([]entities.NewsItem, error) {
	return f.items, nil
}

func (f *fakeAnalysisStore) UpdateNewsAnalysis(_ context.Context, externalTweetID string, update repositories.NewsAnalysisUpdate) (bool, error) {
	if f.updates == nil {
		f.updates = map[string]repositories.NewsAnalysisUpdate{}
	}
	f.updates[externalTweetID] = update
	return true, nil
}

// stubLLMClient returns a fixed response (or error) regardless of prompt.
type stubLLMClient struct {
	response string
	err      error
}

func (s *stubLLMClient) Complete(context.Context, string) (string, error) {
	return s.response, s.err
}

func newsItem(externalID, text string) entities.NewsItem {
	return entities.HydrateNewsItemEntity(entities.NewsItemParams{
		ExternalTweetID: externalID,
		Text:            text,
		PublishedAt:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
}

// When the LLM returns unparsable JSON, the analyzer falls back to the
// lexicon analyzer for sentiment and records the json-decode-error source.
func TestNewsAnalyzer_FallsBackOnMalformedJSON(t *testing.T) {
	store := &fakeAnalysisStore{items: []entities.NewsItem{newsItem("t1", "Bitcoin just hit a new all-time high, everyone is thrilled!")}}
	analyzer := NewNewsAnalyzer(NewsAnalyzerConfig{
		Store:     store,
		LLMClient: &stubLLMClient{response: "not json at all"},
		Vader:     sentiment.NewVaderAnalyzer(),
	})

	if err := analyzer.RunCycle(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	update, ok := store.updates["t1"]
	if !ok {
		t.Fatal("expected an analysis update for t1")
	}
	if update.Status != entities.NewsAnalysisAnalyzed {
		t.Fatalf("expected analyzed status, got %v", update.Status)
	}
	if update.SentimentSource == nil || *update.SentimentSource != entities.SentimentSourceVaderJSONError {
		t.Fatalf("expected json error source, got %v", update.SentimentSource)
	}
	if update.SentimentLabel == nil {
		t.Fatal("expected a lexicon-derived sentiment label")
	}
	if update.SignificanceLabel != nil {
		t.Fatalf("expected no significance verdict without a parsed LLM response, got %v", update.SignificanceLabel)
	}
	if update.Summary != nil {
		t.Fatalf("expected a nil summary when the LLM response could not be parsed, got %v", *update.Summary)
	}
}

// When the response contains a brace-delimited candidate that itself fails
// to decode (unbalanced/corrupt JSON), the analyzer tags the decode-error
// source distinctly from a response with no JSON object at all.
func TestNewsAnalyzer_FallsBackOnUndecodableJSON(t *testing.T) {
	store := &fakeAnalysisStore{items: []entities.NewsItem{newsItem("t5", "Bitcoin miners report record hash rate.")}}
	analyzer := NewNewsAnalyzer(NewsAnalyzerConfig{
		Store:     store,
		LLMClient: &stubLLMClient{response: `{"significance": "High", "sentiment": }`},
		Vader:     sentiment.NewVaderAnalyzer(),
	})

	if err := analyzer.RunCycle(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	update := store.updates["t5"]
	if update.SentimentSource == nil || *update.SentimentSource != entities.SentimentSourceVaderJSONDecodeError {
		t.Fatalf("expected json decode error source, got %v", update.SentimentSource)
	}
}

// When the LLM call itself fails (timeout, transport error), the analyzer
// still produces a verdict via the lexicon fallback and tags the source.
func TestNewsAnalyzer_FallsBackOnLLMError(t *testing.T) {
	store := &fakeAnalysisStore{items: []entities.NewsItem{newsItem("t2", "Bitcoin crashes hard, investors panic sell.")}}
	analyzer := NewNewsAnalyzer(NewsAnalyzerConfig{
		Store:     store,
		LLMClient: &stubLLMClient{err: context.DeadlineExceeded},
		Vader:     sentiment.NewVaderAnalyzer(),
	})

	if err := analyzer.RunCycle(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	update := store.updates["t2"]
	if update.SentimentSource == nil || *update.SentimentSource != entities.SentimentSourceVaderAPIError {
		t.Fatalf("expected api error source, got %v", update.SentimentSource)
	}
	if update.SentimentLabel == nil {
		t.Fatal("expected a lexicon-derived sentiment label")
	}
}

// With no LLM client configured at all, every item is scored by the
// lexicon analyzer and tagged accordingly.
func TestNewsAnalyzer_NoLLMClientConfigured(t *testing.T) {
	store := &fakeAnalysisStore{items: []entities.NewsItem{newsItem("t3", "Regulators approve a new Bitcoin ETF.")}}
	analyzer := NewNewsAnalyzer(NewsAnalyzerConfig{Store: store, Vader: sentiment.NewVaderAnalyzer()})

	if err := analyzer.RunCycle(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	update := store.updates["t3"]
	if update.SentimentSource == nil || *update.SentimentSource != entities.SentimentSourceVaderNoClient {
		t.Fatalf("expected no-client source, got %v", update.SentimentSource)
	}
}

// A well-formed verdict is honored as-is, with the groq source tagged.
func TestNewsAnalyzer_HonorsWellFormedVerdict(t *testing.T) {
	store := &fakeAnalysisStore{items: []entities.NewsItem{newsItem("t4", "Major exchange lists a new Bitcoin ETF option.")}}
	analyzer := NewNewsAnalyzer(NewsAnalyzerConfig{
		Store:     store,
		LLMClient: &stubLLMClient{response: `{"significance":"High","sentiment":"Positive","summary":"A major exchange listing."}`},
		Vader:     sentiment.NewVaderAnalyzer(),
	})

	if err := analyzer.RunCycle(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	update := store.updates["t4"]
	if update.SentimentSource == nil || *update.SentimentSource != entities.SentimentSourceGroq {
		t.Fatalf("expected groq source, got %v", update.SentimentSource)
	}
	if update.SentimentLabel == nil || *update.SentimentLabel != entities.SentimentPositive {
		t.Fatalf("expected positive sentiment, got %v", update.SentimentLabel)
	}
	if update.SignificanceLabel == nil || *update.SignificanceLabel != entities.SignificanceHigh {
		t.Fatalf("expected high significance, got %v", update.SignificanceLabel)
	}
	if update.Summary == nil || *update.Summary != "A major exchange listing." {
		t.Fatalf("expected LLM summary to be used, got %v", update.Summary)
	}
}

// slowLLMClient blocks past its caller's deadline, so RunCycle's cycle
// timeout elapses mid-call.
type slowLLMClient struct {
	delay time.Duration
}

func (s *slowLLMClient) Complete(ctx context.Context, _ string) (string, error) {
	select {
	case <-time.After(s.delay):
		return `{"significance":"High","sentiment":"Positive","summary":"slow"}`, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// When the cycle deadline elapses before an item's analysis completes, the
// item is recorded as analysis_timeout with sentiment_source set to that
// literal status, not the fallback source an abandoned analysis would
// otherwise have produced.
func TestNewsAnalyzer_RecordsTimeoutWhenCycleDeadlineElapses(t *testing.T) {
	store := &fakeAnalysisStore{items: []entities.NewsItem{newsItem("t6", "Bitcoin breaks another record high today.")}}
	analyzer := NewNewsAnalyzer(NewsAnalyzerConfig{
		Store:         store,
		LLMClient:     &slowLLMClient{delay: 50 * time.Millisecond},
		Vader:         sentiment.NewVaderAnalyzer(),
		CycleDeadline: 5 * time.Millisecond,
	})

	if err := analyzer.RunCycle(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	update, ok := store.updates["t6"]
	if !ok {
		t.Fatal("expected an analysis update for t6")
	}
	if update.Status != entities.NewsAnalysisTimeout {
		t.Fatalf("expected timeout status, got %v", update.Status)
	}
	if update.SentimentSource == nil || *update.SentimentSource != string(entities.NewsAnalysisTimeout) {
		t.Fatalf("expected sentiment_source to be the literal timeout status, got %v", update.SentimentSource)
	}
	if update.SentimentLabel != nil {
		t.Fatalf("expected no sentiment label on a timed-out item, got %v", update.SentimentLabel)
	}
	if update.Summary != nil {
		t.Fatalf("expected no summary on a timed-out item, got %v", update.Summary)
	}
}

func TestNewsAnalyzer_EmptyBatchIsNoOp(t *testing.T) {
	store := &fakeAnalysisStore{}
	analyzer := NewNewsAnalyzer(NewsAnalyzerConfig{Store: store})

	if err := analyzer.RunCycle(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.updates) != 0 {
		t.Fatalf("expected no updates for an empty batch, got %v", store.updates)
	}
}
