// Package sentiment provides the lexicon-based sentiment fallback used when
// the LLM is unavailable or returns no sentiment
package sentiment

import (
	govader "github.com/jonreiter/govader"

	"github.com/btcbuzzbot/bot/internal/domain/entities"
)

// VaderAnalyzer wraps the govader VADER port, a direct Go equivalent of the
// original bot's vaderSentiment dependency (original_source/src/news_analyzer.py).
type VaderAnalyzer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewVaderAnalyzer constructs a VaderAnalyzer.
func NewVaderAnalyzer() *VaderAnalyzer {
	return &VaderAnalyzer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Analyze returns the sentiment label for the given text using the standard
// VADER compound-score thresholds: >= 0.05 Positive, <= -0.05 Negative, else
// Neutral.
func (v *VaderAnalyzer) Analyze(text string) entities.SentimentLabel {
	scores := v.analyzer.PolarityScores(text)
	switch {
	case scores.Compound >= 0.05:
		return entities.SentimentPositive
	case scores.Compound <= -0.05:
		return entities.SentimentNegative
	default:
		return entities.SentimentNeutral
	}
}
