package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteCache persists entries so a warm cache survives between runs.
type SQLiteCache struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteCache opens (creating if needed) the cache database at dbPath.
// Use ":memory:" for a throwaway database.
func NewSQLiteCache(dbPath string) (*SQLiteCache, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and
	// serialises writers.
	db.SetMaxOpenConns(1)

	c := &SQLiteCache{db: db}
	if err := c.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return c, nil
}

func (c *SQLiteCache) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		key TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		stored_at INTEGER NOT NULL
	);
	`
	_, err := c.db.Exec(schema)
	return err
}

// Get returns the bytes stored under key.
func (c *SQLiteCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var data []byte
	err := c.db.QueryRowContext(ctx, "SELECT data FROM entries WHERE key = ?", key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query entry: %w", err)
	}
	return data, true, nil
}

// Put stores data under key, replacing any previous entry.
func (c *SQLiteCache) Put(ctx context.Context, key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO entries (key, data, stored_at) VALUES (?, ?, ?)",
		key, data, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

// Clear removes every entry.
func (c *SQLiteCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.ExecContext(ctx, "DELETE FROM entries"); err != nil {
		return fmt.Errorf("delete entries: %w", err)
	}
	return nil
}

// Len reports the number of stored entries.
func (c *SQLiteCache) Len(ctx context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var n int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// Close closes the database connection.
func (c *SQLiteCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db.Close()
}
