package sqlite

import (
	"context"

	"github.com/btcbuzzbot/bot/internal/domain/entities"
)

// AdminUserRepo persists the single admin account against the same
// database handle as Store.
type AdminUserRepo struct {
	store *Store
}

// NewAdminUserRepo constructs an AdminUserRepo sharing the Store's handle.
func NewAdminUserRepo(store *Store) *AdminUserRepo {
	return &AdminUserRepo{store: store}
}

func (r *AdminUserRepo) GetByEmail(ctx context.Context, email string) (entities.AdminUser, error) {
	row := r.store.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at, updated_at FROM admin_users WHERE email = ?`, email)

	var idStr, emailVal, passwordHash, createdAtStr, updatedAtStr string
	if err := row.Scan(&idStr, &emailVal, &passwordHash, &createdAtStr, &updatedAtStr); err != nil {
		return nil, mapSQLiteError(err)
	}

	params := entities.AdminUserParams{Email: emailVal, PasswordHash: passwordHash}
	if id, err := parseUUID(idStr); err == nil {
		params.ID = id
	}
	if createdAt, err := parseTime(createdAtStr); err == nil {
		params.CreatedAt = createdAt
	}
	if updatedAt, err := parseTime(updatedAtStr); err == nil {
		params.UpdatedAt = updatedAt
	}

	return entities.HydrateAdminUserEntity(params), nil
}

func (r *AdminUserRepo) Create(ctx context.Context, user *entities.AdminUserEntity) error {
	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO admin_users (id, email, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		user.GetID().String(), user.GetEmail(), user.GetPasswordHash(),
		user.GetCreatedAt().UTC().Format(timeLayout), user.GetUpdatedAt().UTC().Format(timeLayout),
	)
	if err != nil {
		return mapSQLiteError(err)
	}
	return nil
}

func (r *AdminUserRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admin_users`).Scan(&count); err != nil {
		return 0, mapSQLiteError(err)
	}
	return count, nil
}
