// Package postgres implements repositories.Store over PostgreSQL using pgx:
// a pool-backed struct, raw SQL with mapPGError translation at every call
// site, and row-scan-then-hydrate helpers.
package postgres

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the PostgreSQL-backed implementation of repositories.Store.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore constructs a Store backed by the supplied pool.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger.With(slog.String("component", "postgres_store"))}
}

// Close does not release the underlying connection pool. The pool is owned
// by the composition root's PoolManager, which is responsible for closing
// it; Close here is a no-op kept to satisfy the Store interface uniformly
// across backends.
func (s *Store) Close() error {
	return nil
}
