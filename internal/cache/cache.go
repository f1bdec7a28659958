// Package cache is a best-effort on-disk TTL cache for catalog API
// responses. A miss is always safe; corrupt or stale entries read as
// misses. It never caches file downloads, only metadata JSON.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
)

// DefaultTTL is how long a cached response stays fresh.
const DefaultTTL = 5 * time.Minute

type entry struct {
	StoredAt time.Time       `json:"stored_at"`
	Body     json.RawMessage `json:"body"`
}

// Cache stores one file per (kind, slug) pair under dir.
type Cache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// New returns a cache rooted at dir with the default TTL.
func New(dir string) *Cache {
	return &Cache{dir: dir, ttl: DefaultTTL, now: time.Now}
}

// SetTTL overrides the freshness window (tests use small values).
func (c *Cache) SetTTL(ttl time.Duration) {
	if ttl > 0 {
		c.ttl = ttl
	}
}

// SetClock overrides the time source for tests.
func (c *Cache) SetClock(now func() time.Time) {
	if now != nil {
		c.now = now
	}
}

// Get returns the cached body for key if present and fresh.
func (c *Cache) Get(kind, slug string) (json.RawMessage, bool) {
	data, err := os.ReadFile(c.path(kind, slug))
	if err != nil {
		return nil, false
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, false
	}
	if c.now().Sub(e.StoredAt) > c.ttl {
		return nil, false
	}
	return e.Body, true
}

// Put stores a response body. Failures are returned but callers treat
// the cache as best-effort and may ignore them.
func (c *Cache) Put(kind, slug string, body json.RawMessage) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	data, err := json.Marshal(entry{StoredAt: c.now(), Body: body})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	return os.WriteFile(c.path(kind, slug), data, 0o644)
}

// Clear removes all cached entries.
func (c *Cache) Clear() error {
	entries, err := os.ReadDir(c.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".json" {
			if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

// path keys entries by a short stable digest so arbitrary slugs map to
// flat, filesystem-safe names.
func (c *Cache) path(kind, slug string) string {
	sum := xxhash.Sum64String(kind + ":" + slug)
	return filepath.Join(c.dir, fmt.Sprintf("%s-%016x.json", kind, sum))
}
