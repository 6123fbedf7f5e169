package entities

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BotStatusLevel is the lifecycle state reported by StatusLogger.
type BotStatusLevel string

const (
	BotStatusRunning   BotStatusLevel = "Running"
	BotStatusScheduled BotStatusLevel = "Scheduled"
	BotStatusError     BotStatusLevel = "Error"
	BotStatusStopped   BotStatusLevel = "Stopped"
)

var errBotStatusLevelMissing = errors.New("bot status level is required")

// BotStatus is one append-only lifecycle event; the admin surface reads the
// newest row as "current status".
type BotStatus interface {
	Entity
	Identifiable

	GetTimestamp() time.Time
	GetStatus() BotStatusLevel
	GetNextScheduledRun() *time.Time
	GetMessage() string
}

// BotStatusEntity is the default implementation of the BotStatus interface.
type BotStatusEntity struct {
	id               uuid.UUID
	timestamp        time.Time
	status           BotStatusLevel
	nextScheduledRun *time.Time
	message          string
}

// BotStatusParams captures the fields required to construct a BotStatusEntity.
type BotStatusParams struct {
	ID               uuid.UUID
	Timestamp        time.Time
	Status           BotStatusLevel
	NextScheduledRun *time.Time
	Message          string
}

// NewBotStatusEntity validates the supplied parameters and returns a new BotStatusEntity.
func NewBotStatusEntity(params BotStatusParams) (*BotStatusEntity, error) {
	if params.ID == uuid.Nil {
		params.ID = uuid.New()
	}
	if params.Timestamp.IsZero() {
		params.Timestamp = time.Now().UTC()
	}

	entity := &BotStatusEntity{
		id:               params.ID,
		timestamp:        params.Timestamp.UTC(),
		status:           params.Status,
		nextScheduledRun: params.NextScheduledRun,
		message:          params.Message,
	}

	if err := entity.Validate(); err != nil {
		return nil, err
	}
	return entity, nil
}

// HydrateBotStatusEntity creates a BotStatusEntity without re-validating invariants.
func HydrateBotStatusEntity(params BotStatusParams) *BotStatusEntity {
	return &BotStatusEntity{
		id:               params.ID,
		timestamp:        params.Timestamp,
		status:           params.Status,
		nextScheduledRun: params.NextScheduledRun,
		message:          params.Message,
	}
}

// Validate ensures the entity adheres to domain invariants.
func (b *BotStatusEntity) Validate() error {
	if strings.TrimSpace(string(b.status)) == "" {
		return errBotStatusLevelMissing
	}
	return nil
}

func (b *BotStatusEntity) GetID() uuid.UUID                   { return b.id }
func (b *BotStatusEntity) GetTimestamp() time.Time             { return b.timestamp }
func (b *BotStatusEntity) GetStatus() BotStatusLevel           { return b.status }
func (b *BotStatusEntity) GetNextScheduledRun() *time.Time     { return b.nextScheduledRun }
func (b *BotStatusEntity) GetMessage() string                  { return b.message }
