package entities

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SentimentLabel is the LLM's (or lexicon fallback's) sentiment verdict.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "Positive"
	SentimentNegative SentimentLabel = "Negative"
	SentimentNeutral  SentimentLabel = "Neutral"
)

// SignificanceLabel is the LLM's verdict on how newsworthy an item is.
type SignificanceLabel string

const (
	SignificanceLow    SignificanceLabel = "Low"
	SignificanceMedium SignificanceLabel = "Medium"
	SignificanceHigh   SignificanceLabel = "High"
)

// Sentiment source reasons, per the analyzer's fallback taxonomy.
const (
	SentimentSourceGroq                  = "groq"
	SentimentSourceVaderNoSentiment      = "vader_fallback_groq_no_sentiment"
	SentimentSourceVaderJSONError        = "vader_fallback_groq_json_error"
	SentimentSourceVaderJSONDecodeError  = "vader_fallback_groq_json_decode_error"
	SentimentSourceVaderAPIError         = "vader_fallback_groq_api_error"
	SentimentSourceVaderNoClient         = "vader_fallback_no_groq_client"
	SentimentSourceVaderSentimentMissing = "vader_fallback_groq_sentiment_missing"
	SentimentSourceUnavailable           = "unavailable"
)

// NewsAnalysisStatus is the outcome UpdateNewsAnalysis records against a NewsItem.
type NewsAnalysisStatus string

const (
	NewsAnalysisAnalyzed NewsAnalysisStatus = "analyzed"
	NewsAnalysisFailed   NewsAnalysisStatus = "failed"
	NewsAnalysisTimeout  NewsAnalysisStatus = "timeout"
)

// SentimentScore maps a sentiment label to its numeric score.
func SentimentScore(label SentimentLabel) *float64 {
	var v float64
	switch label {
	case SentimentPositive:
		v = 0.7
	case SentimentNeutral:
		v = 0.0
	case SentimentNegative:
		v = -0.7
	default:
		return nil
	}
	return &v
}

// SignificanceScore maps a significance label to its numeric score.
func SignificanceScore(label SignificanceLabel) *float64 {
	var v float64
	switch label {
	case SignificanceHigh:
		v = 1.0
	case SignificanceMedium:
		v = 0.5
	case SignificanceLow:
		v = 0.1
	default:
		return nil
	}
	return &v
}

var (
	errNewsExternalIDMissing = errors.New("news item external tweet id is required")
	errNewsTextMissing       = errors.New("news item text is required")
	errNewsPublishedAtZero   = errors.New("news item published_at is required")
)

// NewsItem is one ingested tweet and, once analyzed, its LLM verdict.
type NewsItem interface {
	Entity
	Identifiable
	Timestamped

	GetExternalTweetID() string
	GetAuthorID() string
	GetText() string
	GetPublishedAt() time.Time
	GetFetchedAt() time.Time
	GetMetrics() json.RawMessage
	GetSource() string
	IsProcessed() bool
	GetSentimentScore() *float64
	GetSentimentLabel() *SentimentLabel
	GetSignificanceScore() *float64
	GetSignificanceLabel() *SignificanceLabel
	GetSummary() *string
	GetSentimentSource() *string
	GetLLMAnalysis() json.RawMessage
}

// NewsItemEntity is the default implementation of the NewsItem interface.
type NewsItemEntity struct {
	id                uuid.UUID
	externalTweetID   string
	authorID          string
	text              string
	publishedAt       time.Time
	fetchedAt         time.Time
	metrics           json.RawMessage
	source            string
	processed         bool
	sentimentScore    *float64
	sentimentLabel    *SentimentLabel
	significanceScore *float64
	significanceLabel *SignificanceLabel
	summary           *string
	sentimentSource   *string
	llmAnalysis       json.RawMessage
	createdAt         time.Time
	updatedAt         time.Time
}

// NewsItemParams captures the fields required to construct a NewsItemEntity.
type NewsItemParams struct {
	ID                uuid.UUID
	ExternalTweetID   string
	AuthorID          string
	Text              string
	PublishedAt       time.Time
	FetchedAt         time.Time
	Metrics           json.RawMessage
	Source            string
	Processed         bool
	SentimentScore    *float64
	SentimentLabel    *SentimentLabel
	SignificanceScore *float64
	SignificanceLabel *SignificanceLabel
	Summary           *string
	SentimentSource   *string
	LLMAnalysis       json.RawMessage
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewNewsItemEntity validates the supplied parameters and returns a new NewsItemEntity.
func NewNewsItemEntity(params NewsItemParams) (*NewsItemEntity, error) {
	if params.ID == uuid.Nil {
		params.ID = uuid.New()
	}
	if params.FetchedAt.IsZero() {
		params.FetchedAt = time.Now().UTC()
	}
	if params.CreatedAt.IsZero() {
		params.CreatedAt = params.FetchedAt
	}
	if params.UpdatedAt.IsZero() {
		params.UpdatedAt = params.CreatedAt
	}

	entity := hydrateNewsItem(params)

	if err := entity.Validate(); err != nil {
		return nil, err
	}
	return entity, nil
}

// HydrateNewsItemEntity creates a NewsItemEntity without re-validating invariants.
func HydrateNewsItemEntity(params NewsItemParams) *NewsItemEntity {
	return hydrateNewsItem(params)
}

func hydrateNewsItem(params NewsItemParams) *NewsItemEntity {
	return &NewsItemEntity{
		id:                params.ID,
		externalTweetID:   strings.TrimSpace(params.ExternalTweetID),
		authorID:          params.AuthorID,
		text:              params.Text,
		publishedAt:       params.PublishedAt,
		fetchedAt:         params.FetchedAt,
		metrics:           params.Metrics,
		source:            params.Source,
		processed:         params.Processed,
		sentimentScore:    params.SentimentScore,
		sentimentLabel:    params.SentimentLabel,
		significanceScore: params.SignificanceScore,
		significanceLabel: params.SignificanceLabel,
		summary:           params.Summary,
		sentimentSource:   params.SentimentSource,
		llmAnalysis:       params.LLMAnalysis,
		createdAt:         params.CreatedAt,
		updatedAt:         params.UpdatedAt,
	}
}

// Validate ensures the entity adheres to domain invariants.
func (n *NewsItemEntity) Validate() error {
	var validationErr error

	if strings.TrimSpace(n.externalTweetID) == "" {
		validationErr = errors.Join(validationErr, errNewsExternalIDMissing)
	}
	if strings.TrimSpace(n.text) == "" {
		validationErr = errors.Join(validationErr, errNewsTextMissing)
	}
	if n.publishedAt.IsZero() {
		validationErr = errors.Join(validationErr, errNewsPublishedAtZero)
	}

	return validationErr
}

func (n *NewsItemEntity) GetID() uuid.UUID                          { return n.id }
func (n *NewsItemEntity) GetExternalTweetID() string                { return n.externalTweetID }
func (n *NewsItemEntity) GetAuthorID() string                       { return n.authorID }
func (n *NewsItemEntity) GetText() string                           { return n.text }
func (n *NewsItemEntity) GetPublishedAt() time.Time                 { return n.publishedAt }
func (n *NewsItemEntity) GetFetchedAt() time.Time                   { return n.fetchedAt }
func (n *NewsItemEntity) GetMetrics() json.RawMessage               { return n.metrics }
func (n *NewsItemEntity) GetSource() string                         { return n.source }
func (n *NewsItemEntity) IsProcessed() bool                         { return n.processed }
func (n *NewsItemEntity) GetSentimentScore() *float64               { return n.sentimentScore }
func (n *NewsItemEntity) GetSentimentLabel() *SentimentLabel        { return n.sentimentLabel }
func (n *NewsItemEntity) GetSignificanceScore() *float64            { return n.significanceScore }
func (n *NewsItemEntity) GetSignificanceLabel() *SignificanceLabel  { return n.significanceLabel }
func (n *NewsItemEntity) GetSummary() *string                       { return n.summary }
func (n *NewsItemEntity) GetSentimentSource() *string               { return n.sentimentSource }
func (n *NewsItemEntity) GetLLMAnalysis() json.RawMessage           { return n.llmAnalysis }
func (n *NewsItemEntity) GetCreatedAt() time.Time                   { return n.createdAt }
func (n *NewsItemEntity) GetUpdatedAt() time.Time                   { return n.updatedAt }
