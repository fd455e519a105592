package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

var migrationNamePattern = regexp.MustCompile(`^(\d{3,})_([a-z0-9_]+)\.sql$`)

// Migration is one versioned schema change loaded from the embedded migrations directory.
type Migration struct {
	Version     string
	Description string
	SQL         string
	Checksum    string
}

// AppliedMigration is a row of the schema_migrations table.
type AppliedMigration struct {
	Version       string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}

// LoadMigrations returns the embedded migrations ordered by version.
func LoadMigrations() ([]Migration, error) {
	return scanMigrations(migrationFiles, "migrations")
}

func scanMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	migrations := make([]Migration, 0, len(entries))
	seen := make(map[string]string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := migrationNamePattern.FindStringSubmatch(entry.Name())
		if match == nil {
			return nil, fmt.Errorf("migration %s: file name must match {version}_{description}.sql", entry.Name())
		}
		if other, ok := seen[match[1]]; ok {
			return nil, fmt.Errorf("migration version %s declared by both %s and %s", match[1], other, entry.Name())
		}
		seen[match[1]] = entry.Name()

		content, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		sum := sha256.Sum256(content)
		migrations = append(migrations, Migration{
			Version:     match[1],
			Description: strings.ReplaceAll(match[2], "_", " "),
			SQL:         string(content),
			Checksum:    hex.EncodeToString(sum[:]),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// Migrator applies pending migrations sequentially, each inside its own transaction.
type Migrator struct {
	pool       *ConnectionPool
	migrations []Migration
	logger     *slog.Logger
	now        func() time.Time
}

// NewMigrator constructs a Migrator for the embedded migration set.
func NewMigrator(pool *ConnectionPool, logger *slog.Logger) (*Migrator, error) {
	migrations, err := LoadMigrations()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Migrator{pool: pool, migrations: migrations, logger: logger, now: time.Now}, nil
}

// Run creates the version table when needed and applies every pending migration.
func (m *Migrator) Run(ctx context.Context) error {
	if err := m.initVersionTable(ctx); err != nil {
		return err
	}

	applied, err := m.Applied(ctx)
	if err != nil {
		return err
	}
	done := make(map[string]AppliedMigration, len(applied))
	for _, a := range applied {
		done[a.Version] = a
	}

	pending := 0
	for _, migration := range m.migrations {
		if prior, ok := done[migration.Version]; ok {
			if prior.Checksum != "" && prior.Checksum != migration.Checksum {
				m.logger.WarnContext(ctx, "applied migration differs from embedded copy",
					"version", migration.Version, "description", migration.Description)
			}
			continue
		}
		pending++
		if err := m.apply(ctx, migration); err != nil {
			return err
		}
	}

	if pending == 0 {
		m.logger.DebugContext(ctx, "schema up to date", "version", m.latestVersion())
	}
	return nil
}

// Applied lists migrations recorded in schema_migrations ordered by version.
func (m *Migrator) Applied(ctx context.Context) ([]AppliedMigration, error) {
	rows, err := m.pool.DB().QueryContext(ctx, `
		SELECT version, applied_at, COALESCE(execution_time_ms, 0), COALESCE(checksum, '')
		FROM schema_migrations
		ORDER BY version ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var (
			a         AppliedMigration
			appliedAt string
			execMS    int64
		)
		if err := rows.Scan(&a.Version, &appliedAt, &execMS, &a.Checksum); err != nil {
			return nil, fmt.Errorf("scan applied migration: %w", err)
		}
		a.AppliedAt, _ = time.Parse(time.RFC3339Nano, appliedAt)
		a.ExecutionTime = time.Duration(execMS) * time.Millisecond
		applied = append(applied, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied migrations: %w", err)
	}
	return applied, nil
}

func (m *Migrator) initVersionTable(ctx context.Context) error {
	_, err := m.pool.DB().ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL,
			checksum TEXT,
			execution_time_ms INTEGER
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}
	return nil
}

func (m *Migrator) apply(ctx context.Context, migration Migration) error {
	logger := m.logger.With("version", migration.Version, "description", migration.Description)
	start := m.now()

	err := m.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		for i, stmt := range splitStatements(migration.SQL) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migration %s statement %d: %w", migration.Version, i+1, err)
			}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO schema_migrations (version, applied_at, checksum, execution_time_ms)
			VALUES (?, ?, ?, ?)
		`, migration.Version, formatTime(m.now()), migration.Checksum, m.now().Sub(start).Milliseconds())
		return err
	})
	if err != nil {
		logger.ErrorContext(ctx, "migration failed", "error", err)
		return err
	}

	logger.InfoContext(ctx, "migration applied", "duration", m.now().Sub(start))
	return nil
}

func (m *Migrator) latestVersion() string {
	if len(m.migrations) == 0 {
		return ""
	}
	return m.migrations[len(m.migrations)-1].Version
}

// splitStatements splits a migration body on semicolons, dropping comment-only chunks.
func splitStatements(body string) []string {
	var statements []string
	for _, chunk := range strings.Split(body, ";") {
		var lines []string
		for _, line := range strings.Split(chunk, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "--") {
				continue
			}
			lines = append(lines, line)
		}
		if stmt := strings.TrimSpace(strings.Join(lines, "\n")); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}
