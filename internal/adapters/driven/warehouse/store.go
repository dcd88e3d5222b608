package warehouse

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // SQLite driver

	"github.com/custodia-labs/stratus-sync/internal/adapters/driven/warehouse/migrations"
	"github.com/custodia-labs/stratus-sync/internal/core/ports/driven"
)

// Config describes the warehouse connection.
type Config struct {
	// Driver selects the dialect: "postgres" or "sqlite".
	Driver string
	// DSN is the driver-specific connection string (or file path for
	// SQLite).
	DSN string
	// MaxConns bounds the connection pool; the pool size bounds
	// effective cross-domain concurrency.
	MaxConns int
	// ChunkSize caps rows per upsert statement. Defaults to 500,
	// shrinking further when a table is wide enough to approach the
	// driver's bind-parameter limit.
	ChunkSize int
}

// Store is the shared warehouse handle. Concurrent domains draw
// independent connections from its bounded pool.
type Store struct {
	db        *sql.DB
	dialect   dialect
	chunkSize int
}

// Open connects to the warehouse, applies pending migrations, and
// returns the store.
func Open(cfg Config) (*Store, error) {
	var (
		db  *sql.DB
		d   dialect
		err error
	)

	switch cfg.Driver {
	case "postgres", "pgx":
		db, err = sql.Open("pgx", cfg.DSN)
		d = postgresDialect{}
	case "sqlite", "":
		dsn := cfg.DSN
		if !strings.Contains(dsn, "?") && !strings.HasPrefix(dsn, ":memory:") {
			// WAL mode for concurrent domain runs against one file
			dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		}
		db, err = sql.Open("sqlite", dsn)
		d = sqliteDialect{}
	default:
		return nil, fmt.Errorf("unsupported warehouse driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("opening warehouse: %w", err)
	}

	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 4
	}
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxConns)

	if d.name() == "sqlite" {
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling foreign keys: %w", err)
		}
	}

	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}

	s := &Store{db: db, dialect: d, chunkSize: cfg.ChunkSize}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Upserter returns the set-based upsert engine backed by this store.
func (s *Store) Upserter() driven.Upserter {
	return &UpsertEngine{store: s}
}

// SyncStateStore returns the sync-state tracker backed by this store.
func (s *Store) SyncStateStore() driven.SyncStateStore {
	return &syncStateStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_sync_state.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version) VALUES ("+s.dialect.placeholder(1)+")",
			version,
		); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}
