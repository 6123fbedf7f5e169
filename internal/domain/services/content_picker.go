package services

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/btcbuzzbot/bot/internal/domain/entities"
	"github.com/btcbuzzbot/bot/internal/domain/repositories"
)

const defaultContentReuseWindow = 7 * 24 * time.Hour

// PickedContent is the text/kind pair the Publisher composes a fallback
// tweet from.
type PickedContent struct {
	Text string
	Kind entities.ContentKind
}

// ContentPicker chooses between quotes and jokes, deferring the
// least-recently/least-used selection within a kind to Store.GetRandomContent.
type ContentPicker struct {
	store       repositories.Store
	logger      *slog.Logger
	reuseWindow time.Duration
	rand        func() float64
}

// ContentPickerConfig configures a ContentPicker instance.
type ContentPickerConfig struct {
	Store       repositories.Store
	Logger      *slog.Logger
	ReuseWindow time.Duration
	Rand        func() float64
}

// NewContentPicker constructs a ContentPicker.
func NewContentPicker(cfg ContentPickerConfig) *ContentPicker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reuseWindow := cfg.ReuseWindow
	if reuseWindow <= 0 {
		reuseWindow = defaultContentReuseWindow
	}
	randFn := cfg.Rand
	if randFn == nil {
		randFn = rand.Float64
	}
	return &ContentPicker{
		store:       cfg.Store,
		logger:      logger.With(slog.String("component", "content_picker")),
		reuseWindow: reuseWindow,
		rand:        randFn,
	}
}

// Pick returns a quote or joke (a fair coin flip decides which kind is tried
// first; the other kind is tried if the first yields nothing) or nil if
// neither kind has an eligible row.
func (p *ContentPicker) Pick(ctx context.Context) (*PickedContent, error) {
	kinds := []entities.ContentKind{entities.ContentKindQuote, entities.ContentKindJoke}
	if p.rand() < 0.5 {
		kinds[0], kinds[1] = kinds[1], kinds[0]
	}

	for _, kind := range kinds {
		item, err := p.store.GetRandomContent(ctx, kind, p.reuseWindow)
		if err != nil {
			p.logger.Warn("content lookup failed", "kind", kind, "error", err)
			continue
		}
		if item != nil {
			return &PickedContent{Text: item.GetText(), Kind: kind}, nil
		}
	}
	return nil, nil
}
