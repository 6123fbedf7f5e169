package services

import (
	"strings"
	"testing"

	"github.com/btcbuzzbot/bot/internal/domain/entities"
)

func sig(label entities.SignificanceLabel) *entities.SignificanceLabel { return &label }
func sent(label entities.SentimentLabel) *entities.SentimentLabel      { return &label }

func TestCompose_NewsHighPositive(t *testing.T) {
	text := Compose(CompositionInput{
		PriceUSD:          50000,
		ChangePct:         2.04,
		ContentType:       entities.ContentTypeNews,
		SignificanceLabel: sig(entities.SignificanceHigh),
		SentimentLabel:    sent(entities.SentimentPositive),
		Text:              "Major retailer integrates Bitcoin.",
	})

	if !strings.HasPrefix(text, "BTC: $50,000.00 | +2.04% 🚀") {
		t.Fatalf("unexpected price/emoji line: %q", text)
	}
	if !strings.Contains(text, "Major retailer integrates Bitcoin.") {
		t.Fatalf("expected summary sentence in text, got %q", text)
	}
	if !strings.Contains(text, "#CryptoNews") {
		t.Fatalf("expected #CryptoNews hashtag, got %q", text)
	}
}

func TestCompose_QuoteFallback(t *testing.T) {
	text := Compose(CompositionInput{
		PriceUSD:    48000,
		ChangePct:   -2.04,
		ContentType: entities.ContentTypeQuote,
		Text:        "HODL to the moon!",
	})

	want := "BTC: $48,000.00 | -2.04% 📉\nHODL to the moon!\n#Bitcoin #Crypto"
	if text != want {
		t.Fatalf("got %q, want %q", text, want)
	}
}

// Every composed message stays within MaxPostLength; the price line and
// hashtag are preserved exactly; only the variable portion is truncated.
func TestCompose_TruncatesOnlyVariablePortion(t *testing.T) {
	longText := strings.Repeat("Bitcoin adoption continues accelerating worldwide. ", 20)
	text := Compose(CompositionInput{
		PriceUSD:          50000,
		ChangePct:         1.5,
		ContentType:       entities.ContentTypeNews,
		SignificanceLabel: sig(entities.SignificanceHigh),
		SentimentLabel:    sent(entities.SentimentPositive),
		Text:              longText,
	})

	if len(text) > MaxPostLength {
		t.Fatalf("composed text exceeds %d chars: %d", MaxPostLength, len(text))
	}
	lines := strings.Split(text, "\n")
	if lines[0] != "BTC: $50,000.00 | +1.50% 🚀" {
		t.Fatalf("price line was altered by truncation: %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "… #CryptoNews") {
		t.Fatalf("expected the summary to be truncated with an ellipsis and the hashtag kept, got %q", lines[1])
	}
}

// sign(change_pct) determines the price-line emoji regardless of content type.
func TestPriceEmoji_SignRule(t *testing.T) {
	cases := []struct {
		changePct float64
		want      string
	}{
		{0, "📈"},
		{0.01, "📈"},
		{-0.01, "📉"},
		{-5, "📉"},
	}
	for _, tc := range cases {
		if got := PriceEmoji(tc.changePct); got != tc.want {
			t.Errorf("PriceEmoji(%v) = %q, want %q", tc.changePct, got, tc.want)
		}
	}
}

func TestCompose_PriceFallback(t *testing.T) {
	text := Compose(CompositionInput{PriceUSD: 50000, ChangePct: 0, ContentType: entities.ContentTypePriceFallback})
	want := "BTC: $50,000.00 | +0.00% 📈\n#Bitcoin #Price"
	if text != want {
		t.Fatalf("got %q, want %q", text, want)
	}
}
