package sqlite

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/btcbuzzbot/bot/internal/domain/repositories"
)

// mapSQLiteError translates database/sql and SQLite driver errors into the
// repository package's sentinel errors. modernc.org/sqlite doesn't expose a
// typed constraint-violation error the way pgconn does, so duplicate
// detection falls back to matching SQLite's stable error text.
func mapSQLiteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repositories.ErrNotFound
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return repositories.ErrDuplicate
	}
	if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
		return errors.Join(repositories.ErrNotFound, err)
	}
	return err
}
