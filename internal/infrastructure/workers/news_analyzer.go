package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/btcbuzzbot/bot/internal/domain/entities"
	"github.com/btcbuzzbot/bot/internal/domain/repositories"
	"github.com/btcbuzzbot/bot/internal/infrastructure/external"
	"github.com/btcbuzzbot/bot/internal/infrastructure/sentiment"
)

const (
	defaultAnalysisBatchSize  = 30
	defaultAnalysisTimeout    = 300 * time.Second
	analysisFanOutLimit       = 8
	perItemLLMTimeout         = 6 * time.Second
)

// llmVerdict is the JSON shape the analysis prompt asks Complete to return.
type llmVerdict struct {
	Significance *string `json:"significance"`
	Sentiment    *string `json:"sentiment"`
	Summary      *string `json:"summary"`
}

// NewsAnalyzer scores unprocessed NewsItems for significance and sentiment,
// falling back to a lexicon analyzer when the LLM is unavailable or silent
// on sentiment, via a bounded concurrent fan-out per cycle.
type NewsAnalyzer struct {
	store         repositories.Store
	llmClient     external.LLMClient
	vader         *sentiment.VaderAnalyzer
	logger        *slog.Logger
	batchSize     int
	cycleDeadline time.Duration
	fanOutLimit   int
}

// NewsAnalyzerConfig configures a NewsAnalyzer. LLMClient may be nil, in
// which case every item is scored via the lexicon fallback.
type NewsAnalyzerConfig struct {
	Store         repositories.Store
	LLMClient     external.LLMClient
	Vader         *sentiment.VaderAnalyzer
	Logger        *slog.Logger
	BatchSize     int
	CycleDeadline time.Duration
}

// NewNewsAnalyzer constructs a NewsAnalyzer.
func NewNewsAnalyzer(cfg NewsAnalyzerConfig) *NewsAnalyzer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	vader := cfg.Vader
	if vader == nil {
		vader = sentiment.NewVaderAnalyzer()
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultAnalysisBatchSize
	}
	cycleDeadline := cfg.CycleDeadline
	if cycleDeadline <= 0 {
		cycleDeadline = defaultAnalysisTimeout
	}
	return &NewsAnalyzer{
		store:         cfg.Store,
		llmClient:     cfg.LLMClient,
		vader:         vader,
		logger:        logger.With(slog.String("component", "news_analyzer")),
		batchSize:     batchSize,
		cycleDeadline: cycleDeadline,
		fanOutLimit:   analysisFanOutLimit,
	}
}

// RunCycle pulls a batch of unprocessed items and analyzes them concurrently
// under one cycle deadline.
func (a *NewsAnalyzer) RunCycle(ctx context.Context) error {
	cycleCtx, cancel := context.WithTimeout(ctx, a.cycleDeadline)
	defer cancel()

	items, err := a.store.GetUnprocessedNews(cycleCtx, a.batchSize)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	sem := make(chan struct{}, a.fanOutLimit)
	var wg sync.WaitGroup
	for _, item := range items {
		item := item
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			a.analyzeOne(cycleCtx, item)
		}()
	}
	wg.Wait()

	a.logger.Info("news analysis cycle complete", slog.Int("items", len(items)))
	return nil
}

// analyzeOne scores a single item and writes the result, isolating any
// per-item failure from the rest of the cycle. A cycle deadline that has
// already elapsed — before or after the LLM call — is recorded as
// "analysis_timeout" with sentiment_source set to the literal status
// string, not whatever fallback source the (abandoned) analysis produced.
func (a *NewsAnalyzer) analyzeOne(ctx context.Context, item entities.NewsItem) {
	logger := a.logger.With(slog.String("external_id", item.GetExternalTweetID()))

	if ctx.Err() != nil {
		a.finish(ctx, item, timeoutUpdate(), logger)
		return
	}

	verdict, rawResponse, source := a.callLLM(ctx, item, logger)

	if ctx.Err() != nil {
		a.finish(ctx, item, timeoutUpdate(), logger)
		return
	}

	sentimentLabel := a.resolveSentiment(verdict, item.GetText(), &source)
	significanceLabel := resolveSignificance(verdict)

	var summary *string
	if verdict != nil && verdict.Summary != nil && strings.TrimSpace(*verdict.Summary) != "" {
		trimmed := strings.TrimSpace(*verdict.Summary)
		summary = &trimmed
	}

	update := repositories.NewsAnalysisUpdate{
		Status:            entities.NewsAnalysisAnalyzed,
		SentimentLabel:    sentimentLabel,
		SignificanceLabel: significanceLabel,
		Summary:           summary,
		SentimentSource:   &source,
		LLMAnalysis:       rawResponse,
	}
	a.finish(ctx, item, update, logger)
}

// timeoutUpdate is the status-only row an item gets when the cycle deadline
// elapses before (or during) its analysis: recorded as analysis_timeout with
// sentiment_source set to that status rather than whatever fallback source
// the abandoned analysis had reached.
func timeoutUpdate() repositories.NewsAnalysisUpdate {
	source := string(entities.NewsAnalysisTimeout)
	return repositories.NewsAnalysisUpdate{
		Status:          entities.NewsAnalysisTimeout,
		SentimentSource: &source,
	}
}

func (a *NewsAnalyzer) finish(ctx context.Context, item entities.NewsItem, update repositories.NewsAnalysisUpdate, logger *slog.Logger) {
	if _, err := a.store.UpdateNewsAnalysis(context.WithoutCancel(ctx), item.GetExternalTweetID(), update); err != nil {
		logger.Error("failed to persist news analysis", slog.String("error", err.Error()))
	}
}

// callLLM asks the LLM for a significance/sentiment/summary verdict. It
// returns a nil verdict (triggering the lexicon fallback) whenever the LLM
// is unconfigured, times out, or returns unparsable JSON.
func (a *NewsAnalyzer) callLLM(ctx context.Context, item entities.NewsItem, logger *slog.Logger) (*llmVerdict, []byte, string) {
	if a.llmClient == nil {
		return nil, nil, entities.SentimentSourceVaderNoClient
	}

	callCtx, cancel := context.WithTimeout(ctx, perItemLLMTimeout)
	defer cancel()

	response, err := a.llmClient.Complete(callCtx, buildAnalysisPrompt(item.GetText()))
	if err != nil {
		logger.Warn("llm call failed, falling back to lexicon sentiment", slog.String("error", err.Error()))
		return nil, nil, entities.SentimentSourceVaderAPIError
	}

	verdict, found, decoded := parseVerdict(response)
	if !found {
		return nil, []byte(response), entities.SentimentSourceVaderJSONError
	}
	if !decoded {
		return nil, []byte(response), entities.SentimentSourceVaderJSONDecodeError
	}
	if verdict.Sentiment == nil || strings.TrimSpace(*verdict.Sentiment) == "" {
		return verdict, []byte(response), entities.SentimentSourceVaderNoSentiment
	}
	return verdict, []byte(response), entities.SentimentSourceGroq
}

// resolveSentiment honors the LLM's verdict when present and well-formed,
// otherwise scores the raw text with the lexicon analyzer and marks the
// source accordingly.
func (a *NewsAnalyzer) resolveSentiment(verdict *llmVerdict, text string, source *string) *entities.SentimentLabel {
	if verdict != nil && verdict.Sentiment != nil {
		if label, ok := parseSentimentLabel(*verdict.Sentiment); ok {
			return &label
		}
		*source = entities.SentimentSourceVaderSentimentMissing
	}
	label := a.vader.Analyze(text)
	return &label
}

func resolveSignificance(verdict *llmVerdict) *entities.SignificanceLabel {
	if verdict == nil || verdict.Significance == nil {
		return nil
	}
	if label, ok := parseSignificanceLabel(*verdict.Significance); ok {
		return &label
	}
	return nil
}

func parseSentimentLabel(raw string) (entities.SentimentLabel, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "positive":
		return entities.SentimentPositive, true
	case "negative":
		return entities.SentimentNegative, true
	case "neutral":
		return entities.SentimentNeutral, true
	default:
		return "", false
	}
}

func parseSignificanceLabel(raw string) (entities.SignificanceLabel, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high":
		return entities.SignificanceHigh, true
	case "medium":
		return entities.SignificanceMedium, true
	case "low":
		return entities.SignificanceLow, true
	default:
		return "", false
	}
}

// buildAnalysisPrompt asks for strict JSON with guidance on each label.
func buildAnalysisPrompt(text string) string {
	var b strings.Builder
	b.WriteString("You are scoring a tweet about Bitcoin for a news bot. ")
	b.WriteString("Reply with ONLY a JSON object: {\"significance\": \"High\"|\"Medium\"|\"Low\", ")
	b.WriteString("\"sentiment\": \"Positive\"|\"Negative\"|\"Neutral\", \"summary\": \"<one sentence>\"}. ")
	b.WriteString("High significance means a major price move, regulatory action, or exchange/protocol event; ")
	b.WriteString("Medium means notable but routine market commentary; Low means generic chatter or memes.\n\n")
	b.WriteString("Tweet: ")
	b.WriteString(text)
	return b.String()
}

// parseVerdict extracts the JSON object between the first '{' and last '}'
// in the response, accepting a partially-populated object. The first bool
// reports whether a candidate object was located at all; the second
// reports whether that candidate decoded successfully.
func parseVerdict(response string) (verdict *llmVerdict, found bool, decoded bool) {
	start := strings.IndexByte(response, '{')
	end := strings.LastIndexByte(response, '}')
	if start < 0 || end < start {
		return nil, false, false
	}

	var v llmVerdict
	if err := json.Unmarshal([]byte(response[start:end+1]), &v); err != nil {
		return nil, true, false
	}
	return &v, true, true
}
