// Package workers holds the long-running goroutines the Scheduler drives:
// the publish cycle, news ingestion, and news analysis.
package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/btcbuzzbot/bot/internal/domain/entities"
	"github.com/btcbuzzbot/bot/internal/domain/repositories"
	"github.com/btcbuzzbot/bot/internal/domain/services"
	"github.com/btcbuzzbot/bot/internal/infrastructure/external"
	"github.com/btcbuzzbot/bot/internal/infrastructure/messaging"
)

const (
	defaultDuplicateGuardWindow = 5 * time.Minute
	defaultNewsHoursLimit       = 12
	newsSignificanceUseHigh     = 0.8
	newsSignificanceUseMedium   = 0.4
)

// WebhookChannel is a best-effort secondary broadcast target (Discord,
// Telegram, ...). A failed send must never fail the publish cycle.
type WebhookChannel struct {
	Name string
	Send func(ctx context.Context, text string) bool
}

// Publisher orchestrates one publish cycle end to end: price fetch, content
// selection (news -> quote/joke -> bare price), composition, the duplicate
// guard, posting, and status logging.
type Publisher struct {
	store           repositories.Store
	priceClient     external.PriceClient
	socialClient    external.SocialClient
	contentPicker   *services.ContentPicker
	webhooks        []WebhookChannel
	broadcaster     messaging.EventBroadcaster
	logger          *slog.Logger
	duplicateWindow time.Duration
	newsHoursLimit  int
}

// PublisherConfig configures a Publisher.
type PublisherConfig struct {
	Store           repositories.Store
	PriceClient     external.PriceClient
	SocialClient    external.SocialClient
	ContentPicker   *services.ContentPicker
	Webhooks        []WebhookChannel
	Broadcaster     messaging.EventBroadcaster
	Logger          *slog.Logger
	DuplicateWindow time.Duration
	NewsHoursLimit  int
}

// NewPublisher constructs a Publisher.
func NewPublisher(cfg PublisherConfig) *Publisher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	duplicateWindow := cfg.DuplicateWindow
	if duplicateWindow <= 0 {
		duplicateWindow = defaultDuplicateGuardWindow
	}
	newsHoursLimit := cfg.NewsHoursLimit
	if newsHoursLimit <= 0 {
		newsHoursLimit = defaultNewsHoursLimit
	}
	return &Publisher{
		store:           cfg.Store,
		priceClient:     cfg.PriceClient,
		socialClient:    cfg.SocialClient,
		contentPicker:   cfg.ContentPicker,
		webhooks:        cfg.Webhooks,
		broadcaster:     cfg.Broadcaster,
		logger:          logger.With(slog.String("component", "publisher")),
		duplicateWindow: duplicateWindow,
		newsHoursLimit:  newsHoursLimit,
	}
}

// selection is the outcome of step 3 of RunCycle: what to post and why.
type selection struct {
	contentType       entities.ContentType
	text              string
	significanceLabel *entities.SignificanceLabel
	sentimentLabel    *entities.SentimentLabel
}

// RunCycle executes one publish cycle triggered by the scheduled time label
// (e.g. "08:00").
func (p *Publisher) RunCycle(ctx context.Context, scheduledTimeLabel string) error {
	logger := p.logger.With(slog.String("scheduled_time", scheduledTimeLabel))

	quote, err := p.priceClient.GetBTCPrice(ctx)
	if err != nil {
		p.logStatus(ctx, entities.BotStatusError, fmt.Sprintf("price fetch failed: %v", err), nil)
		return fmt.Errorf("publisher: fetch price: %w", err)
	}

	changePct := 0.0
	prevPrice, err := p.store.GetLatestPrice(ctx)
	switch {
	case err == nil:
		if prev := prevPrice.GetPriceUSD(); prev != 0 {
			changePct = 100 * (quote.USD - prev) / prev
		}
	case errors.Is(err, repositories.ErrNotFound):
		// First ever cycle: no previous price to diff against.
	default:
		logger.Warn("could not read previous price, defaulting change to 0", slog.String("error", err.Error()))
	}

	if _, err := p.store.StoreLatestPrice(ctx, quote.USD, "coingecko"); err != nil {
		p.logStatus(ctx, entities.BotStatusError, fmt.Sprintf("price persist failed: %v", err), nil)
		return fmt.Errorf("publisher: store price: %w", err)
	}
	if p.broadcaster != nil {
		_ = p.broadcaster.PublishPriceFetched(ctx, messaging.PriceFetchedEvent{PriceUSD: quote.USD, ChangePct: changePct, Source: "coingecko"})
	}

	sel, err := p.selectContent(ctx, quote.USD, changePct)
	if err != nil {
		logger.Warn("content selection encountered an error, falling back to bare price", slog.String("error", err.Error()))
	}

	hasPosted, err := p.store.HasPostedWithin(ctx, p.duplicateWindow)
	if err != nil {
		p.logStatus(ctx, entities.BotStatusError, fmt.Sprintf("duplicate guard check failed: %v", err), nil)
		return fmt.Errorf("publisher: duplicate guard: %w", err)
	}
	if hasPosted {
		p.logStatus(ctx, entities.BotStatusScheduled, "Skipped: recent post within duplicate guard window", nil)
		return nil
	}

	externalID, err := p.socialClient.PostMessage(ctx, sel.text)
	if err != nil {
		if errors.Is(err, external.ErrSocialDuplicate) {
			p.logStatus(ctx, entities.BotStatusRunning, "Skipped: platform reported duplicate content", nil)
			return nil
		}
		p.logStatus(ctx, entities.BotStatusError, fmt.Sprintf("post failed: %v", err), nil)
		return fmt.Errorf("publisher: post message: %w", err)
	}

	if _, err := p.store.LogPost(ctx, externalID, sel.text, quote.USD, changePct, sel.contentType); err != nil {
		logger.Error("post succeeded but logging failed", slog.String("error", err.Error()))
	}
	if p.broadcaster != nil {
		_ = p.broadcaster.PublishPostPublished(ctx, messaging.PostPublishedEvent{
			ExternalPostID: externalID,
			ContentType:    string(sel.contentType),
			PriceUSD:       quote.USD,
			ChangePct:      changePct,
		})
	}

	p.fanOutWebhooks(ctx, sel.text, logger)

	p.logStatus(ctx, entities.BotStatusRunning,
		fmt.Sprintf("Posted %s content: %s", sel.contentType, externalID), nil)
	return nil
}

// selectContent picks news first, then quote/joke, then a
// bare price line.
func (p *Publisher) selectContent(ctx context.Context, priceUSD, changePct float64) (selection, error) {
	news, err := p.store.GetRecentAnalyzedNews(ctx, p.newsHoursLimit)
	if err != nil {
		news = nil
	}

	for _, item := range news {
		summary := item.GetSummary()
		if summary == nil || *summary == "" {
			continue
		}
		if !isUsableNews(item) {
			continue
		}
		text := services.Compose(services.CompositionInput{
			PriceUSD:          priceUSD,
			ChangePct:         changePct,
			ContentType:       entities.ContentTypeNews,
			SignificanceLabel: item.GetSignificanceLabel(),
			SentimentLabel:    item.GetSentimentLabel(),
			Text:              *summary,
		})
		return selection{
			contentType:       entities.ContentTypeNews,
			text:              text,
			significanceLabel: item.GetSignificanceLabel(),
			sentimentLabel:    item.GetSentimentLabel(),
		}, nil
	}

	if p.contentPicker != nil {
		picked, pickErr := p.contentPicker.Pick(ctx)
		if pickErr == nil && picked != nil {
			contentType := entities.ContentTypeQuote
			if picked.Kind == entities.ContentKindJoke {
				contentType = entities.ContentTypeJoke
			}
			text := services.Compose(services.CompositionInput{
				PriceUSD:    priceUSD,
				ChangePct:   changePct,
				ContentType: contentType,
				Text:        picked.Text,
			})
			return selection{contentType: contentType, text: text}, nil
		}
	}

	text := services.Compose(services.CompositionInput{
		PriceUSD:    priceUSD,
		ChangePct:   changePct,
		ContentType: entities.ContentTypePriceFallback,
	})
	return selection{contentType: entities.ContentTypePriceFallback, text: text}, nil
}

// isUsableNews applies the usability rule and its lexicon-fallback
// refinement.
func isUsableNews(item entities.NewsItem) bool {
	sigScore := item.GetSignificanceScore()
	if sigScore == nil {
		return false
	}

	vaderFallback := false
	if source := item.GetSentimentSource(); source != nil && containsVaderFallback(*source) {
		vaderFallback = true
	}
	if vaderFallback {
		return *sigScore >= newsSignificanceUseHigh
	}

	if *sigScore >= newsSignificanceUseHigh {
		return true
	}
	if *sigScore >= newsSignificanceUseMedium {
		label := item.GetSentimentLabel()
		return label != nil && (*label == entities.SentimentPositive || *label == entities.SentimentNeutral)
	}
	return false
}

func containsVaderFallback(sentimentSource string) bool {
	return strings.Contains(sentimentSource, "vader_fallback")
}

// fanOutWebhooks posts the same text to every enabled secondary channel,
// best-effort — failures are logged and never propagate.
func (p *Publisher) fanOutWebhooks(ctx context.Context, text string, logger *slog.Logger) {
	for _, channel := range p.webhooks {
		webhookCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		ok := channel.Send(webhookCtx, text)
		cancel()
		if !ok {
			logger.Warn("secondary channel post failed", slog.String("channel", channel.Name))
		}
	}
}

func (p *Publisher) logStatus(ctx context.Context, status entities.BotStatusLevel, message string, nextRun *time.Time) {
	if err := p.store.LogBotStatus(ctx, status, message, nextRun); err != nil {
		p.logger.Error("failed to log bot status", slog.String("error", err.Error()))
	}
}
