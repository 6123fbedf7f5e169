package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/btcbuzzbot/bot/internal/domain/repositories"
)

// mapPGError translates pgx/pgconn errors into the repository package's
// sentinel errors, shared by every table-specific repository file in this
// package.
func mapPGError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return repositories.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return repositories.ErrDuplicate
		case "23503":
			return fmt.Errorf("store: foreign key violation: %w", err)
		default:
			return fmt.Errorf("store: db error (%s): %w", pgErr.Code, err)
		}
	}

	return err
}

func nullIfEmpty(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
