package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetMissOnEmptyCache(t *testing.T) {
	c := New(t.TempDir())
	if _, ok := c.Get("project", "sodium"); ok {
		t.Fatal("empty cache must miss")
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	c := New(t.TempDir())
	body := json.RawMessage(`{"slug":"sodium"}`)
	if err := c.Put("project", "sodium", body); err != nil {
		t.Fatal(err)
	}
	got, ok := c.Get("project", "sodium")
	if !ok {
		t.Fatal("expected hit")
	}
	if string(got) != string(body) {
		t.Fatalf("body changed: %s", got)
	}
	// Different kind with the same slug is a separate entry.
	if _, ok := c.Get("versions", "sodium"); ok {
		t.Fatal("kind must partition the cache")
	}
}

func TestExpiryReadsAsMiss(t *testing.T) {
	c := New(t.TempDir())
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	c.SetClock(func() time.Time { return now })

	if err := c.Put("project", "sodium", json.RawMessage(`{}`)); err != nil {
		t.Fatal(err)
	}
	now = now.Add(DefaultTTL + time.Second)
	if _, ok := c.Get("project", "sodium"); ok {
		t.Fatal("stale entry must miss")
	}
}

func TestCorruptEntryReadsAsMiss(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)
	if err := c.Put("project", "sodium", json.RawMessage(`{}`)); err != nil {
		t.Fatal(err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("want 1 cache file, got %d", len(entries))
	}
	path := filepath.Join(dir, entries[0].Name())
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("project", "sodium"); ok {
		t.Fatal("corrupt entry must read as miss")
	}
}

func TestClear(t *testing.T) {
	c := New(t.TempDir())
	_ = c.Put("project", "a", json.RawMessage(`{}`))
	_ = c.Put("versions", "a", json.RawMessage(`[]`))
	if err := c.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("project", "a"); ok {
		t.Fatal("clear did not remove entries")
	}
	// Clearing a never-created cache dir is fine.
	if err := New(filepath.Join(t.TempDir(), "missing")).Clear(); err != nil {
		t.Fatal(err)
	}
}
