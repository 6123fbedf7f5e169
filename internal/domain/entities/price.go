package entities

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	errPriceValueInvalid  = errors.New("price value must be positive")
	errPriceSourceMissing = errors.New("price source is required")
)

// Price is a single append-only BTC/USD quote captured by the PriceClient.
type Price interface {
	Entity
	Identifiable

	GetPriceUSD() float64
	GetTimestamp() time.Time
	GetSource() string
}

// PriceEntity is the default implementation of the Price interface.
type PriceEntity struct {
	id        uuid.UUID
	priceUSD  float64
	timestamp time.Time
	source    string
}

// PriceParams captures the fields required to construct a PriceEntity.
type PriceParams struct {
	ID        uuid.UUID
	PriceUSD  float64
	Timestamp time.Time
	Source    string
}

// NewPriceEntity validates the supplied parameters and returns a new PriceEntity.
func NewPriceEntity(params PriceParams) (*PriceEntity, error) {
	if params.ID == uuid.Nil {
		params.ID = uuid.New()
	}
	if params.Timestamp.IsZero() {
		params.Timestamp = time.Now().UTC()
	}

	entity := &PriceEntity{
		id:        params.ID,
		priceUSD:  params.PriceUSD,
		timestamp: params.Timestamp.UTC(),
		source:    strings.TrimSpace(params.Source),
	}

	if err := entity.Validate(); err != nil {
		return nil, err
	}
	return entity, nil
}

// HydratePriceEntity creates a PriceEntity without re-validating invariants.
func HydratePriceEntity(params PriceParams) *PriceEntity {
	return &PriceEntity{
		id:        params.ID,
		priceUSD:  params.PriceUSD,
		timestamp: params.Timestamp,
		source:    params.Source,
	}
}

// Validate ensures the entity adheres to domain invariants.
func (p *PriceEntity) Validate() error {
	var validationErr error

	if p.priceUSD <= 0 {
		validationErr = errors.Join(validationErr, errPriceValueInvalid)
	}
	if strings.TrimSpace(p.source) == "" {
		validationErr = errors.Join(validationErr, errPriceSourceMissing)
	}

	return validationErr
}

func (p *PriceEntity) GetID() uuid.UUID          { return p.id }
func (p *PriceEntity) GetPriceUSD() float64      { return p.priceUSD }
func (p *PriceEntity) GetTimestamp() time.Time   { return p.timestamp }
func (p *PriceEntity) GetSource() string         { return p.source }

// ChangePercent computes the percentage change relative to a previous price.
// It returns 0 when previous is zero, matching the publish-cycle contract for
// a missing prior price.
func ChangePercent(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return 100 * (current - previous) / previous
}
