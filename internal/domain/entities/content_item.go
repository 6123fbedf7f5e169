package entities

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ContentKind distinguishes quotes from jokes; both share the same shape and
// the same ContentPicker selection rules.
type ContentKind string

const (
	ContentKindQuote ContentKind = "quote"
	ContentKindJoke  ContentKind = "joke"
)

var (
	errContentTextMissing = errors.New("content text is required")
	errContentKindInvalid = errors.New("content kind is invalid")
)

// ContentItem is a curated quote or joke the ContentPicker may select for a
// publish cycle when no news item qualifies.
type ContentItem interface {
	Entity
	Identifiable
	Timestamped

	GetKind() ContentKind
	GetText() string
	GetCategory() string
	GetUsedCount() int
	GetLastUsed() *time.Time
	MarkUsed(at time.Time)
}

// ContentItemEntity is the default implementation of the ContentItem interface.
type ContentItemEntity struct {
	id        uuid.UUID
	kind      ContentKind
	text      string
	category  string
	usedCount int
	lastUsed  *time.Time
	createdAt time.Time
	updatedAt time.Time
}

// ContentItemParams captures the fields required to construct a ContentItemEntity.
type ContentItemParams struct {
	ID        uuid.UUID
	Kind      ContentKind
	Text      string
	Category  string
	UsedCount int
	LastUsed  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func newContentItem(params ContentItemParams, validate bool) (*ContentItemEntity, error) {
	if params.ID == uuid.Nil {
		params.ID = uuid.New()
	}
	if params.CreatedAt.IsZero() {
		params.CreatedAt = time.Now().UTC()
	}
	if params.UpdatedAt.IsZero() {
		params.UpdatedAt = params.CreatedAt
	}

	entity := &ContentItemEntity{
		id:        params.ID,
		kind:      params.Kind,
		text:      params.Text,
		category:  strings.TrimSpace(params.Category),
		usedCount: params.UsedCount,
		lastUsed:  params.LastUsed,
		createdAt: params.CreatedAt,
		updatedAt: params.UpdatedAt,
	}

	if !validate {
		return entity, nil
	}
	if err := entity.Validate(); err != nil {
		return nil, err
	}
	return entity, nil
}

// NewQuoteEntity validates and constructs a quote ContentItemEntity.
func NewQuoteEntity(params ContentItemParams) (*ContentItemEntity, error) {
	params.Kind = ContentKindQuote
	return newContentItem(params, true)
}

// NewJokeEntity validates and constructs a joke ContentItemEntity.
func NewJokeEntity(params ContentItemParams) (*ContentItemEntity, error) {
	params.Kind = ContentKindJoke
	return newContentItem(params, true)
}

// HydrateContentItemEntity creates a ContentItemEntity without re-validating invariants.
func HydrateContentItemEntity(params ContentItemParams) *ContentItemEntity {
	entity, _ := newContentItem(params, false)
	return entity
}

// Validate ensures the entity adheres to domain invariants.
func (c *ContentItemEntity) Validate() error {
	var validationErr error

	if strings.TrimSpace(c.text) == "" {
		validationErr = errors.Join(validationErr, errContentTextMissing)
	}
	if c.kind != ContentKindQuote && c.kind != ContentKindJoke {
		validationErr = errors.Join(validationErr, errContentKindInvalid)
	}

	return validationErr
}

func (c *ContentItemEntity) GetID() uuid.UUID          { return c.id }
func (c *ContentItemEntity) GetKind() ContentKind      { return c.kind }
func (c *ContentItemEntity) GetText() string           { return c.text }
func (c *ContentItemEntity) GetCategory() string       { return c.category }
func (c *ContentItemEntity) GetUsedCount() int         { return c.usedCount }
func (c *ContentItemEntity) GetLastUsed() *time.Time   { return c.lastUsed }
func (c *ContentItemEntity) GetCreatedAt() time.Time   { return c.createdAt }
func (c *ContentItemEntity) GetUpdatedAt() time.Time   { return c.updatedAt }

// MarkUsed increments the use counter and stamps last_used, mirroring the
// atomic read-and-increment the Store performs on GetRandomContent.
func (c *ContentItemEntity) MarkUsed(at time.Time) {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	at = at.UTC()
	c.usedCount++
	c.lastUsed = &at
	c.updatedAt = at
}
