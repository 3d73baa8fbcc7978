package sqlite

import (
	"database/sql"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/takelwerk/dipwatch/internal/config"
	"github.com/takelwerk/dipwatch/internal/storage"
)

// Store implements the storage.Store interface using SQLite
type Store struct {
	db          *sql.DB
	recordStore *recordStore
}

// Open creates a new SQLite-backed storage instance and runs migrations
func Open(cfg config.SQLiteConfig) (*Store, error) {
	if cfg.Path != ":memory:" {
		if err := storage.EnsureDir(filepath.Dir(cfg.Path)); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite limitation
	db.SetMaxIdleConns(1)

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{
		db:          db,
		recordStore: &recordStore{db: db},
	}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Records returns the RecordStore implementation
func (s *Store) Records() storage.RecordStore {
	return s.recordStore
}

// runMigrations applies all database migrations
func runMigrations(db *sql.DB) error {
	// Create migrations table
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			version INTEGER NOT NULL UNIQUE,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	// Apply migrations in order
	migrations := getMigrations()
	for version := 1; version <= len(migrations); version++ {
		if version <= currentVersion {
			continue
		}
		migration := migrations[version]

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(migration); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO migrations (version) VALUES (?)", version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", version, err)
		}
	}

	return nil
}

// getMigrations returns all database migrations
func getMigrations() map[int]string {
	return map[int]string{
		1: migration001SessionRecords,
	}
}

const migration001SessionRecords = `
CREATE TABLE IF NOT EXISTS session_records (
	id TEXT PRIMARY KEY,
	area TEXT NOT NULL,
	duration TEXT NOT NULL,
	duration_seconds INTEGER NOT NULL,
	time_in DATETIME NOT NULL,
	shift TEXT NOT NULL,
	remark TEXT NOT NULL,
	zone_number INTEGER NOT NULL,
	log_date TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE INDEX idx_session_records_log_date ON session_records(log_date);
CREATE INDEX idx_session_records_created_at ON session_records(created_at);
`
