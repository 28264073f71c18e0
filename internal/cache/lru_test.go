package cache

import (
	"context"
	"testing"
	"time"
)

func TestLRUCacheEvictsOldest(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache[int](2, time.Minute)
	c.Set(ctx, "a", 1)
	c.Set(ctx, "b", 2)
	if _, ok := c.Get(ctx, "a"); !ok {
		t.Fatalf("expected a")
	}
	c.Set(ctx, "c", 3) // evicts b, the least recently used

	if _, ok := c.Get(ctx, "b"); ok {
		t.Fatalf("expected b evicted")
	}
	if v, ok := c.Get(ctx, "a"); !ok || v != 1 {
		t.Fatalf("expected a=1, got %v %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Hour)
	c.now = func() time.Time { return now }

	c.Set(ctx, "table", "v1")
	c.Set(ctx, "other", "v2")
	now = now.Add(30 * time.Minute)
	if _, ok := c.Get(ctx, "table"); !ok {
		t.Fatalf("expected fresh entry")
	}

	now = now.Add(31 * time.Minute)
	if _, ok := c.Get(ctx, "table"); ok {
		t.Fatalf("expected expired entry")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("expected 1 cleaned, got %d", n)
	}
	if c.Size() != 0 {
		t.Fatalf("expected empty cache, got %d", c.Size())
	}
}

func TestLRUCacheDelete(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache[int](5, time.Minute)
	c.Set(ctx, "a", 1)
	c.Delete(ctx, "a")
	c.Delete(ctx, "missing")
	if _, ok := c.Get(ctx, "a"); ok {
		t.Fatalf("expected a deleted")
	}
}

func TestManagerCleanAll(t *testing.T) {
	now := time.Now()
	c := NewLRUCache[int](5, time.Second)
	c.now = func() time.Time { return now }
	c.Set(context.Background(), "a", 1)
	now = now.Add(2 * time.Second)

	m := NewManager(nil)
	m.Register(c)
	if n := m.CleanAll(); n != 1 {
		t.Fatalf("expected 1 cleaned, got %d", n)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Run(ctx, time.Millisecond); err != nil {
		t.Fatalf("expected nil on cancel, got %v", err)
	}
}
