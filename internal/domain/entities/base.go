package entities

import (
	"time"

	"github.com/google/uuid"
)

// Entity defines the base contract for all domain entities.
type Entity interface {
	Validate() error
}

// Identifiable is implemented by entities that expose an ID.
type Identifiable interface {
	GetID() uuid.UUID
}

// Timestamped is implemented by entities that track creation and update times.
type Timestamped interface {
	GetCreatedAt() time.Time
	GetUpdatedAt() time.Time
}
