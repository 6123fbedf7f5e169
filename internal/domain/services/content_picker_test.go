package services

import (
	"context"
	"testing"
	"time"

	"github.com/btcbuzzbot/bot/internal/domain/entities"
	"github.com/btcbuzzbot/bot/internal/domain/repositories"
)

// fakeContentStore implements only GetRandomContent; embedding a nil
// repositories.Store satisfies the rest of the interface for methods this
// test never calls.
type fakeContentStore struct {
	repositories.Store
	byKind map[entities.ContentKind]entities.ContentItem
}

func (f *fakeContentStore) GetRandomContent(_ context.Context, kind entities.ContentKind, _ time.Duration) (entities.ContentItem, error) {
	item, ok := f.byKind[kind]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return item, nil
}

func mustContentItem(t *testing.T, kind entities.ContentKind, text string) entities.ContentItem {
	t.Helper()
	return entities.HydrateContentItemEntity(entities.ContentItemParams{Kind: kind, Text: text})
}

func TestContentPicker_PicksAvailableKind(t *testing.T) {
	store := &fakeContentStore{byKind: map[entities.ContentKind]entities.ContentItem{
		entities.ContentKindQuote: mustContentItem(t, entities.ContentKindQuote, "HODL to the moon!"),
	}}
	picker := NewContentPicker(ContentPickerConfig{Store: store, Rand: func() float64 { return 0.9 }})

	picked, err := picker.Pick(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if picked == nil {
		t.Fatal("expected a picked item, got nil")
	}
	if picked.Kind != entities.ContentKindQuote || picked.Text != "HODL to the moon!" {
		t.Fatalf("unexpected pick: %+v", picked)
	}
}

func TestContentPicker_BothEmptyReturnsNil(t *testing.T) {
	store := &fakeContentStore{byKind: map[entities.ContentKind]entities.ContentItem{}}
	picker := NewContentPicker(ContentPickerConfig{Store: store})

	picked, err := picker.Pick(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if picked != nil {
		t.Fatalf("expected nil pick when both kinds are empty, got %+v", picked)
	}
}
