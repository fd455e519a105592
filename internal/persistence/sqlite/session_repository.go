package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/example/meetings-dashboard/internal/persistence"
)

// SessionRepository implements persistence.SessionRepository using SQLite
type SessionRepository struct {
	pool *ConnectionPool
}

// NewSessionRepository creates a new SQLite session repository
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `id, user_id, token, expires_at, revoked_at, created_at, updated_at`

// CreateSession stores a new session token for a user
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	session.Token = strings.TrimSpace(session.Token)
	if session.ID == "" || session.UserID == "" || session.Token == "" {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}

	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		session.ID,
		session.UserID,
		session.Token,
		formatTime(session.ExpiresAt),
		nullTime(session.RevokedAt),
		formatTime(session.CreatedAt),
		formatTime(session.UpdatedAt),
	)
	if err != nil {
		return persistence.Session{}, mapError(err)
	}
	return r.GetSession(ctx, session.Token)
}

// GetSession retrieves a session by its token value
func (r *SessionRepository) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}
	row := r.pool.DB().QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE token = ?`, token)
	return scanSession(row)
}

// UpdateSession rotates the token and expiry of an existing session.
// The owning user and creation time are immutable.
func (r *SessionRepository) UpdateSession(ctx context.Context, session persistence.Session) (persistence.Session, error) {
	session.Token = strings.TrimSpace(session.Token)
	if session.ID == "" || session.Token == "" {
		return persistence.Session{}, persistence.ErrConstraintViolation
	}

	result, err := r.pool.DB().ExecContext(ctx, `
		UPDATE sessions
		SET token = ?, expires_at = ?, revoked_at = ?, updated_at = ?
		WHERE id = ?
	`,
		session.Token,
		formatTime(session.ExpiresAt),
		nullTime(session.RevokedAt),
		formatTime(session.UpdatedAt),
		session.ID,
	)
	if err != nil {
		return persistence.Session{}, mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.Session{}, err
	}
	if affected == 0 {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return r.GetSession(ctx, session.Token)
}

// RevokeSession marks a session as revoked based on its token value
func (r *SessionRepository) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}

	var revoked persistence.Session
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		current, err := scanSession(tx.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE token = ?`, token))
		if err != nil {
			return err
		}
		if current.RevokedAt != nil {
			// Already revoked; keep the original timestamp.
			revoked = current
			return nil
		}

		at := revokedAt.UTC()
		if _, err := tx.ExecContext(ctx, `
			UPDATE sessions SET revoked_at = ?, updated_at = ? WHERE id = ?
		`, formatTime(at), formatTime(at), current.ID); err != nil {
			return mapError(err)
		}
		current.RevokedAt = &at
		current.UpdatedAt = at
		revoked = current
		return nil
	})
	if err != nil {
		return persistence.Session{}, err
	}
	return revoked, nil
}

// DeleteExpiredSessions removes sessions that expired on or before reference
func (r *SessionRepository) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	_, err := r.pool.DB().ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, formatTime(reference))
	return mapError(err)
}

func scanSession(row rowScanner) (persistence.Session, error) {
	var (
		session                         persistence.Session
		expiresAt, createdAt, updatedAt string
		revokedAt                       sql.NullString
	)
	err := row.Scan(&session.ID, &session.UserID, &session.Token, &expiresAt, &revokedAt, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Session{}, persistence.ErrNotFound
		}
		return persistence.Session{}, mapError(err)
	}

	if session.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return persistence.Session{}, err
	}
	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Session{}, err
	}
	if session.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Session{}, err
	}
	if session.RevokedAt, err = parseNullTime(revokedAt); err != nil {
		return persistence.Session{}, err
	}
	return session, nil
}
