// Package cache stores compressed image bytes keyed by a digest of the
// source content and the settings used to compress it.
package cache

import (
	"context"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Cache maps content keys to processed bytes.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, data []byte) error
	Clear(ctx context.Context) error
	Len(ctx context.Context) (int, error)
	Close() error
}

// Key digests data together with a variant string describing the
// transform settings, so a settings change misses the cache.
func Key(data []byte, variant string) string {
	d := xxhash.New()
	_, _ = d.Write(data)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(variant)
	return fmt.Sprintf("%016x", d.Sum64())
}

// Open returns the backend for path. An empty path or ":memory:" yields
// a MemoryCache; anything else is a SQLite database file.
func Open(path string) (Cache, error) {
	if path == "" || path == ":memory:" {
		return NewMemoryCache(), nil
	}
	return NewSQLiteCache(path)
}
