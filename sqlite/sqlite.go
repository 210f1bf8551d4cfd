// Package sqlite persists viewer preferences and read history.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB is a SQLite-backed key-value and read-history store.
type DB struct {
	db   *sql.DB
	path string
}

// NewDB creates a DB for path. Use ":memory:" for an in-memory database.
func NewDB(path string) *DB {
	return &DB{path: path}
}

// Open opens the connection and creates the schema if needed.
func (db *DB) Open() error {
	conn, err := sql.Open("sqlite3", db.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports one writer at a time.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// WAL is not supported for in-memory databases.
	if db.path != ":memory:" {
		if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
			conn.Close()
			return fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	db.db = conn

	if err := db.createSchema(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close closes the connection.
func (db *DB) Close() error {
	if db.db != nil {
		return db.db.Close()
	}
	return nil
}

func (db *DB) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS read_history (
			root TEXT NOT NULL,
			path TEXT NOT NULL,
			read_at INTEGER NOT NULL,
			PRIMARY KEY (root, path)
		);
	`

	_, err := db.db.Exec(schema)
	return err
}

// GetSetting returns the stored value of key and whether it exists.
func (db *DB) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := db.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, true, nil
}

// PutSetting stores value under key, replacing any previous value.
func (db *DB) PutSetting(ctx context.Context, key string, value string) error {
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to put setting %s: %w", key, err)
	}
	return nil
}

// LoadReadHistory returns path to last-opened epoch milliseconds for root.
func (db *DB) LoadReadHistory(ctx context.Context, root string) (map[string]int64, error) {
	rows, err := db.db.QueryContext(ctx, `SELECT path, read_at FROM read_history WHERE root = ?`, root)
	if err != nil {
		return nil, fmt.Errorf("failed to query read history: %w", err)
	}
	defer rows.Close()

	history := make(map[string]int64)
	for rows.Next() {
		var path string
		var readAt int64
		if err := rows.Scan(&path, &readAt); err != nil {
			return nil, fmt.Errorf("failed to scan read history: %w", err)
		}
		history[path] = readAt
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate read history: %w", err)
	}
	return history, nil
}

// MarkRead records that path under root was opened at readAt.
func (db *DB) MarkRead(ctx context.Context, root string, path string, readAt int64) error {
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO read_history (root, path, read_at) VALUES (?, ?, ?)
		ON CONFLICT(root, path) DO UPDATE SET read_at = excluded.read_at
	`, root, path, readAt)
	if err != nil {
		return fmt.Errorf("failed to mark %s read: %w", path, err)
	}
	return nil
}
