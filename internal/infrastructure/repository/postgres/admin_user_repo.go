package postgres

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/btcbuzzbot/bot/internal/domain/entities"
)

// AdminUserRepo persists the single admin account, grounded in the same
// pool-backed shape as Store itself.
type AdminUserRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewAdminUserRepo constructs an AdminUserRepo backed by the supplied pool.
func NewAdminUserRepo(pool *pgxpool.Pool, logger *slog.Logger) *AdminUserRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminUserRepo{pool: pool, logger: logger.With(slog.String("component", "admin_user_repo"))}
}

func (r *AdminUserRepo) GetByEmail(ctx context.Context, email string) (entities.AdminUser, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at, updated_at FROM admin_users WHERE email = $1`,
		email,
	)

	var params entities.AdminUserParams
	if err := row.Scan(&params.ID, &params.Email, &params.PasswordHash, &params.CreatedAt, &params.UpdatedAt); err != nil {
		return nil, mapPGError(err)
	}
	params.CreatedAt = params.CreatedAt.UTC()
	params.UpdatedAt = params.UpdatedAt.UTC()

	return entities.HydrateAdminUserEntity(params), nil
}

func (r *AdminUserRepo) Create(ctx context.Context, user *entities.AdminUserEntity) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO admin_users (id, email, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		user.GetID(), user.GetEmail(), user.GetPasswordHash(), user.GetCreatedAt(), user.GetUpdatedAt(),
	)
	if err != nil {
		return mapPGError(err)
	}
	return nil
}

func (r *AdminUserRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM admin_users`).Scan(&count); err != nil {
		return 0, mapPGError(err)
	}
	return count, nil
}
