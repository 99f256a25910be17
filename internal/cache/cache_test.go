package cache

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(filepath.Join(t.TempDir(), "memory.db"))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestGetMiss(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "こんにちは", "test-model")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if ok {
		t.Error("expected a miss on empty cache")
	}
}

func TestSaveAndGet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if err := c.Save(ctx, "こんにちは", "test-model", "Hello"); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	got, ok, err := c.Get(ctx, "こんにちは", "test-model")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if !ok || got != "Hello" {
		t.Errorf("Get() = %q, %v", got, ok)
	}

	// A different model must not share entries.
	if _, ok, _ := c.Get(ctx, "こんにちは", "other-model"); ok {
		t.Error("cache hit across models")
	}
}

func TestGetNormalizesSource(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	// ガ composed vs カ + combining voicing mark.
	if err := c.Save(ctx, "ガ", "test-model", "ga"); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	got, ok, err := c.Get(ctx, "\u30ab\u3099", "test-model")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if !ok || got != "ga" {
		t.Errorf("NFC-equivalent source should hit: %q, %v", got, ok)
	}
}

func TestSaveReplacesEntry(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	c.Save(ctx, "古い", "test-model", "old")
	c.Save(ctx, "古い", "test-model", "new")

	got, ok, _ := c.Get(ctx, "古い", "test-model")
	if !ok || got != "new" {
		t.Errorf("expected replacement to win, got %q", got)
	}

	stats, err := c.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats() failed: %v", err)
	}
	if stats.TotalEntries != 1 {
		t.Errorf("expected a single row after replace, got %d", stats.TotalEntries)
	}
}

func TestStatsAndClear(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	c.Save(ctx, "一", "test-model", "one")
	c.Save(ctx, "二", "test-model", "two")
	c.Get(ctx, "一", "test-model")

	stats, err := c.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats() failed: %v", err)
	}
	if stats.TotalEntries != 2 {
		t.Errorf("TotalEntries = %d, want 2", stats.TotalEntries)
	}
	if stats.TotalUsage != 3 {
		t.Errorf("TotalUsage = %d, want 3", stats.TotalUsage)
	}

	n, err := c.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Clear() removed %d rows, want 2", n)
	}
	if _, ok, _ := c.Get(ctx, "一", "test-model"); ok {
		t.Error("cache should be empty after Clear")
	}
}

func TestList(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	c.Save(ctx, "一", "test-model", "one")
	c.Save(ctx, "二", "test-model", "two")

	entries, err := c.List(ctx)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("List() returned %d entries, want 2", len(entries))
	}
	for _, e := range entries {
		if e.ID == "" || e.Model != "test-model" {
			t.Errorf("malformed entry: %+v", e)
		}
	}
}
