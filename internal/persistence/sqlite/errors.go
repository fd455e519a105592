package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/example/meetings-dashboard/internal/persistence"
)

// mapError translates driver errors into persistence sentinels so callers can
// branch with errors.Is without knowing about SQLite.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		// Extended codes carry the primary code in their low byte.
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_CONSTRAINT:
			return fmt.Errorf("%w: %v", classifyConstraint(sqliteErr.Error()), err)
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("sqlite: database locked: %w", err)
		}
	}

	return err
}

func classifyConstraint(message string) error {
	switch {
	case strings.Contains(message, "UNIQUE constraint failed"),
		strings.Contains(message, "PRIMARY KEY"):
		return persistence.ErrAlreadyExists
	case strings.Contains(message, "FOREIGN KEY constraint failed"):
		return persistence.ErrForeignKeyViolation
	default:
		return persistence.ErrConstraintViolation
	}
}
