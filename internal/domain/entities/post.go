package entities

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ContentType enumerates the kind of content a Post was composed from.
type ContentType string

const (
	ContentTypeNews          ContentType = "news"
	ContentTypeQuote         ContentType = "quote"
	ContentTypeJoke          ContentType = "joke"
	ContentTypePriceFallback ContentType = "price_fallback"
	ContentTypeManual        ContentType = "manual"
)

// IsValidContentType reports whether the supplied value is a known ContentType.
func IsValidContentType(value ContentType) bool {
	switch value {
	case ContentTypeNews, ContentTypeQuote, ContentTypeJoke, ContentTypePriceFallback, ContentTypeManual:
		return true
	default:
		return false
	}
}

var (
	errPostExternalIDMissing = errors.New("post external id is required")
	errPostTextMissing       = errors.New("post text is required")
	errPostContentTypeInvalid = errors.New("post content type is invalid")
)

// Post is a single published message and the price context it was posted with.
type Post interface {
	Entity
	Identifiable
	Timestamped

	GetExternalPostID() string
	GetText() string
	GetTimestamp() time.Time
	GetPriceUSD() float64
	GetPriceChangePct() float64
	GetContentType() ContentType
	GetLikes() int
	GetRetweets() int
	GetEngagementLastChecked() *time.Time
	SetEngagement(likes, retweets int, checkedAt time.Time)
}

// PostEntity is the default implementation of the Post interface.
type PostEntity struct {
	id                    uuid.UUID
	externalPostID        string
	text                  string
	timestamp             time.Time
	priceUSD              float64
	priceChangePct        float64
	contentType           ContentType
	likes                 int
	retweets              int
	engagementLastChecked *time.Time
	createdAt             time.Time
	updatedAt             time.Time
}

// PostParams captures the fields required to construct a PostEntity.
type PostParams struct {
	ID                    uuid.UUID
	ExternalPostID        string
	Text                  string
	Timestamp             time.Time
	PriceUSD              float64
	PriceChangePct        float64
	ContentType           ContentType
	Likes                 int
	Retweets              int
	EngagementLastChecked *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// NewPostEntity validates the supplied parameters and returns a new PostEntity.
func NewPostEntity(params PostParams) (*PostEntity, error) {
	if params.ID == uuid.Nil {
		params.ID = uuid.New()
	}
	if params.Timestamp.IsZero() {
		params.Timestamp = time.Now().UTC()
	}
	if params.CreatedAt.IsZero() {
		params.CreatedAt = params.Timestamp
	}
	if params.UpdatedAt.IsZero() {
		params.UpdatedAt = params.CreatedAt
	}

	entity := &PostEntity{
		id:                    params.ID,
		externalPostID:        strings.TrimSpace(params.ExternalPostID),
		text:                  params.Text,
		timestamp:             params.Timestamp.UTC(),
		priceUSD:              params.PriceUSD,
		priceChangePct:        params.PriceChangePct,
		contentType:           params.ContentType,
		likes:                 params.Likes,
		retweets:              params.Retweets,
		engagementLastChecked: params.EngagementLastChecked,
		createdAt:             params.CreatedAt,
		updatedAt:             params.UpdatedAt,
	}

	if err := entity.Validate(); err != nil {
		return nil, err
	}
	return entity, nil
}

// HydratePostEntity creates a PostEntity without re-validating invariants.
func HydratePostEntity(params PostParams) *PostEntity {
	return &PostEntity{
		id:                    params.ID,
		externalPostID:        params.ExternalPostID,
		text:                  params.Text,
		timestamp:             params.Timestamp,
		priceUSD:              params.PriceUSD,
		priceChangePct:        params.PriceChangePct,
		contentType:           params.ContentType,
		likes:                 params.Likes,
		retweets:              params.Retweets,
		engagementLastChecked: params.EngagementLastChecked,
		createdAt:             params.CreatedAt,
		updatedAt:             params.UpdatedAt,
	}
}

// Validate ensures the entity adheres to domain invariants.
func (p *PostEntity) Validate() error {
	var validationErr error

	if strings.TrimSpace(p.externalPostID) == "" {
		validationErr = errors.Join(validationErr, errPostExternalIDMissing)
	}
	if strings.TrimSpace(p.text) == "" {
		validationErr = errors.Join(validationErr, errPostTextMissing)
	}
	if !IsValidContentType(p.contentType) {
		validationErr = errors.Join(validationErr, errPostContentTypeInvalid)
	}

	return validationErr
}

func (p *PostEntity) GetID() uuid.UUID                        { return p.id }
func (p *PostEntity) GetExternalPostID() string                { return p.externalPostID }
func (p *PostEntity) GetText() string                          { return p.text }
func (p *PostEntity) GetTimestamp() time.Time                  { return p.timestamp }
func (p *PostEntity) GetPriceUSD() float64                     { return p.priceUSD }
func (p *PostEntity) GetPriceChangePct() float64               { return p.priceChangePct }
func (p *PostEntity) GetContentType() ContentType              { return p.contentType }
func (p *PostEntity) GetLikes() int                            { return p.likes }
func (p *PostEntity) GetRetweets() int                         { return p.retweets }
func (p *PostEntity) GetEngagementLastChecked() *time.Time     { return p.engagementLastChecked }
func (p *PostEntity) GetCreatedAt() time.Time                  { return p.createdAt }
func (p *PostEntity) GetUpdatedAt() time.Time                  { return p.updatedAt }

// SetEngagement records refreshed engagement counters.
func (p *PostEntity) SetEngagement(likes, retweets int, checkedAt time.Time) {
	p.likes = likes
	p.retweets = retweets
	if checkedAt.IsZero() {
		checkedAt = time.Now().UTC()
	}
	checkedAt = checkedAt.UTC()
	p.engagementLastChecked = &checkedAt
	p.updatedAt = time.Now().UTC()
}
