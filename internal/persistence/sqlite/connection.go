package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Config holds SQLite-specific connection settings
type Config struct {
	// DSN is the database file path or a "file:" URI
	DSN string

	// BusyTimeout sets how long to wait for database locks
	BusyTimeout time.Duration

	// JournalMode sets the SQLite journal mode (WAL, DELETE, ...)
	JournalMode string

	// Synchronous sets the synchronous mode (FULL, NORMAL, OFF)
	Synchronous string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns settings suited to a single dashboard process.
func DefaultConfig(dsn string) Config {
	return Config{
		DSN:         dsn,
		BusyTimeout: 5 * time.Second,
		JournalMode: "WAL",
		Synchronous: "NORMAL",
		// One writer keeps SQLite from returning SQLITE_BUSY under concurrent requests.
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}
}

// ConnectionPool wraps the database handle with transaction helpers
type ConnectionPool struct {
	db     *sql.DB
	config Config
}

// NewConnectionPool opens the database described by config and applies its PRAGMAs.
func NewConnectionPool(config Config) (*ConnectionPool, error) {
	if strings.TrimSpace(config.DSN) == "" {
		return nil, fmt.Errorf("sqlite: dsn is required")
	}
	if err := ensureDatabaseDir(config.DSN); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsnWithPragmas(config))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}

	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping database: %w", err)
	}
	return &ConnectionPool{db: db, config: config}, nil
}

// dsnWithPragmas appends _pragma parameters so that the driver applies them
// to every connection the pool opens, not only the first one.
func dsnWithPragmas(config Config) string {
	pragmas := []string{"foreign_keys(1)"}
	if config.BusyTimeout > 0 {
		pragmas = append(pragmas, fmt.Sprintf("busy_timeout(%d)", config.BusyTimeout.Milliseconds()))
	}
	if config.JournalMode != "" && !isMemoryDSN(config.DSN) {
		pragmas = append(pragmas, fmt.Sprintf("journal_mode(%s)", config.JournalMode))
	}
	if config.Synchronous != "" {
		pragmas = append(pragmas, fmt.Sprintf("synchronous(%s)", config.Synchronous))
	}

	dsn := config.DSN
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	for _, pragma := range pragmas {
		dsn += sep + "_pragma=" + pragma
		sep = "&"
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	return dsn
}

// DB returns the underlying database connection
func (cp *ConnectionPool) DB() *sql.DB {
	return cp.db
}

// Close closes the connection pool
func (cp *ConnectionPool) Close() error {
	if cp == nil || cp.db == nil {
		return nil
	}
	return cp.db.Close()
}

// Ping tests the database connection
func (cp *ConnectionPool) Ping(ctx context.Context) error {
	return cp.db.PingContext(ctx)
}

// TransactionFunc represents a function that executes within a transaction
type TransactionFunc func(tx *sql.Tx) error

// WithTransaction executes fn within a transaction, rolling back when fn
// returns an error or panics and committing otherwise.
func (cp *ConnectionPool) WithTransaction(ctx context.Context, fn TransactionFunc) error {
	tx, err := cp.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed (rollback error: %v): %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit transaction: %w", err)
	}
	return nil
}

func ensureDatabaseDir(dsn string) error {
	if isMemoryDSN(dsn) {
		return nil
	}
	path := strings.TrimPrefix(dsn, "file:")
	if idx := strings.IndexByte(path, '?'); idx >= 0 {
		path = path[:idx]
	}
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("sqlite: create database directory %s: %w", dir, err)
	}
	return nil
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}
