package entities

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	errAdminEmailRequired        = errors.New("admin email is required")
	errAdminEmailInvalid         = errors.New("admin email is invalid")
	errAdminPasswordHashRequired = errors.New("admin password hash is required")
)

// AdminUser is the single administrative account permitted by this system;
// there is no multi-user account management beyond it.
type AdminUser interface {
	Entity
	Identifiable
	Timestamped

	GetEmail() string
	GetPasswordHash() string
}

// AdminUserEntity is the default implementation of the AdminUser interface.
type AdminUserEntity struct {
	id           uuid.UUID
	email        string
	passwordHash string
	createdAt    time.Time
	updatedAt    time.Time
}

// AdminUserParams captures the fields required to construct an AdminUserEntity.
type AdminUserParams struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewAdminUserEntity validates the supplied parameters and returns a new AdminUserEntity.
func NewAdminUserEntity(params AdminUserParams) (*AdminUserEntity, error) {
	if params.ID == uuid.Nil {
		params.ID = uuid.New()
	}
	if params.CreatedAt.IsZero() {
		params.CreatedAt = time.Now().UTC()
	}
	if params.UpdatedAt.IsZero() {
		params.UpdatedAt = params.CreatedAt
	}

	entity := &AdminUserEntity{
		id:           params.ID,
		email:        strings.ToLower(strings.TrimSpace(params.Email)),
		passwordHash: params.PasswordHash,
		createdAt:    params.CreatedAt,
		updatedAt:    params.UpdatedAt,
	}

	if err := entity.Validate(); err != nil {
		return nil, err
	}
	return entity, nil
}

// HydrateAdminUserEntity creates an AdminUserEntity without re-validating invariants.
func HydrateAdminUserEntity(params AdminUserParams) *AdminUserEntity {
	return &AdminUserEntity{
		id:           params.ID,
		email:        params.Email,
		passwordHash: params.PasswordHash,
		createdAt:    params.CreatedAt,
		updatedAt:    params.UpdatedAt,
	}
}

// Validate ensures the entity adheres to domain invariants.
func (a *AdminUserEntity) Validate() error {
	var validationErr error

	if strings.TrimSpace(a.email) == "" {
		validationErr = errors.Join(validationErr, errAdminEmailRequired)
	} else if _, err := mail.ParseAddress(a.email); err != nil {
		validationErr = errors.Join(validationErr, errAdminEmailInvalid)
	}
	if strings.TrimSpace(a.passwordHash) == "" {
		validationErr = errors.Join(validationErr, errAdminPasswordHashRequired)
	}

	return validationErr
}

func (a *AdminUserEntity) GetID() uuid.UUID          { return a.id }
func (a *AdminUserEntity) GetEmail() string          { return a.email }
func (a *AdminUserEntity) GetPasswordHash() string   { return a.passwordHash }
func (a *AdminUserEntity) GetCreatedAt() time.Time   { return a.createdAt }
func (a *AdminUserEntity) GetUpdatedAt() time.Time   { return a.updatedAt }
