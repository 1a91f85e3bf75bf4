package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

// Store persists generated episodes and pipeline run records.
type Store struct {
	conn *sql.DB
}

func New(dbPath string) (*Store, error) {
	slog.Info("Initializing storage", "path", dbPath)

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_journal_mode=WAL", dbPath)
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(conn); err != nil {
		conn.Close()
		return nil, err
	}

	slog.Info("Storage initialized successfully")
	return &Store{conn: conn}, nil
}

func runMigrations(conn *sql.DB) error {
	slog.Debug("Running database migrations")

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	migrationsDir := filepath.Join("db", "migrations")
	if _, err := os.Stat(migrationsDir); err != nil {
		if os.IsNotExist(err) {
			slog.Debug("Migrations directory not found, applying embedded schema", "path", migrationsDir)
			return applySchema(conn)
		}
		return fmt.Errorf("failed to access migrations directory: %w", err)
	}

	if err := goose.Up(conn, migrationsDir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Debug("Migrations completed successfully")
	return nil
}

// applySchema creates the tables directly when the binary runs outside the
// repository and the migrations directory is not present.
func applySchema(conn *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS episodes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		audio_path TEXT NOT NULL,
		script_path TEXT NOT NULL,
		audio_hash TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		duration_minutes REAL NOT NULL,
		newsletter_count INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME NOT NULL,
		ended_at DATETIME NOT NULL,
		success INTEGER NOT NULL,
		newsletters_found INTEGER NOT NULL,
		errors TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_episodes_created_at ON episodes(created_at);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`
	if _, err := conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
