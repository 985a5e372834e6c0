package prompt

import (
	"testing"
	"time"
)

func TestCache_GetSetWithinTTL(t *testing.T) {
	c := NewCache(time.Minute)
	c.Set("k", "v")

	got, ok := c.Get("k")
	if !ok || got != "v" {
		t.Fatalf("Get = (%q, %v), want (v, true)", got, ok)
	}
}

func TestCache_LazyEvictionOnExpiry(t *testing.T) {
	c := NewCache(time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }
	c.Set("k", "v")

	// Advance past the TTL.
	c.now = func() time.Time { return now.Add(2 * time.Minute) }

	if _, ok := c.Get("k"); ok {
		t.Fatal("expired entry should not be returned")
	}
	// The expired entry was evicted by the read.
	if stats := c.Stats(); stats.Total != 0 {
		t.Errorf("expired entry should be evicted on read, total = %d", stats.Total)
	}
}

func TestCache_SetResetsTimestamp(t *testing.T) {
	c := NewCache(time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }
	c.Set("k", "old")

	c.now = func() time.Time { return now.Add(50 * time.Second) }
	c.Set("k", "new")

	// 70s after the first Set but only 20s after the second.
	c.now = func() time.Time { return now.Add(70 * time.Second) }
	got, ok := c.Get("k")
	if !ok || got != "new" {
		t.Fatalf("Get after overwrite = (%q, %v), want (new, true)", got, ok)
	}
}

func TestCache_StatsNonDestructive(t *testing.T) {
	c := NewCache(time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }
	c.Set("fresh", "a")

	c.now = func() time.Time { return now.Add(-2 * time.Minute) }
	c.Set("stale", "b")
	c.now = func() time.Time { return now }

	stats := c.Stats()
	if stats.Total != 2 || stats.Valid != 1 || stats.Expired != 1 {
		t.Errorf("stats = %+v, want total=2 valid=1 expired=1", stats)
	}
	// Stats must not evict.
	if again := c.Stats(); again.Total != 2 {
		t.Errorf("stats should be non-destructive, total = %d", again.Total)
	}
}

func TestCache_Clear(t *testing.T) {
	c := NewCache(time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Clear()
	if stats := c.Stats(); stats.Total != 0 {
		t.Errorf("cache should be empty after Clear, total = %d", stats.Total)
	}
}
