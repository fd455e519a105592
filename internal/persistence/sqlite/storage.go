package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// storageTimeLayout is fixed width so that TEXT columns sort chronologically.
const storageTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Storage bundles the SQLite-backed repositories over one connection pool.
type Storage struct {
	*UserRepository
	*SessionRepository
	*MeetingRepository

	pool   *ConnectionPool
	logger *slog.Logger
}

// Open connects to the database at dsn using DefaultConfig.
func Open(dsn string) (*Storage, error) {
	return OpenWithConfig(DefaultConfig(dsn), nil)
}

// OpenWithConfig connects using an explicit configuration and logger.
func OpenWithConfig(config Config, logger *slog.Logger) (*Storage, error) {
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Storage{
		UserRepository:    NewUserRepository(pool),
		SessionRepository: NewSessionRepository(pool),
		MeetingRepository: NewMeetingRepository(pool),
		pool:              pool,
		logger:            logger,
	}, nil
}

// Migrate applies pending schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	migrator, err := NewMigrator(s.pool, s.logger)
	if err != nil {
		return err
	}
	return migrator.Run(ctx)
}

// Ping reports whether the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the underlying connection pool.
func (s *Storage) Close() error {
	if s == nil {
		return nil
	}
	return s.pool.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(storageTimeLayout)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", value, err)
	}
	return t.UTC(), nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(value sql.NullString) (*time.Time, error) {
	if !value.Valid {
		return nil, nil
	}
	t, err := parseTime(value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}
