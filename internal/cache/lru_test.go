package cache

import (
	"testing"
	"time"
)

func fakeClock(c *LRUCache[string], start time.Time) func(time.Duration) {
	now := start
	c.now = func() time.Time { return now }
	return func(d time.Duration) { now = now.Add(d) }
}

func TestLRUCache_GetSet(t *testing.T) {
	c := NewLRUCache[string](2, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("Get on empty cache returned ok")
	}

	c.Set("a", "1")
	c.Set("b", "2")
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Errorf("Get(a) = %q, %v; want 1, true", v, ok)
	}

	// a was used last, so b is evicted
	c.Set("c", "3")
	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}

	hits, misses := c.Stats()
	if hits != 1 || misses != 2 {
		t.Errorf("Stats() = %d hits, %d misses; want 1, 2", hits, misses)
	}
}

func TestLRUCache_TTL(t *testing.T) {
	c := NewLRUCache[string](10, time.Minute)
	advance := fakeClock(c, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	c.Set("a", "1")
	advance(30 * time.Second)
	c.Set("b", "2")

	advance(31 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Error("a should have expired")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("b should still be live")
	}

	advance(time.Minute)
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired() = %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0", c.Size())
	}
}

func TestLRUCache_DeletePrefix(t *testing.T) {
	c := NewLRUCache[string](10, time.Minute)
	c.Set("sess-1|dashboard|month", "x")
	c.Set("sess-1|categories|", "y")
	c.Set("sess-2|dashboard|month", "z")

	if n := c.DeletePrefix("sess-1|"); n != 2 {
		t.Errorf("DeletePrefix() = %d, want 2", n)
	}
	if _, ok := c.Get("sess-2|dashboard|month"); !ok {
		t.Error("other session's entry should survive")
	}

	c.Delete("sess-2|dashboard|month")
	if c.Size() != 0 {
		t.Errorf("Size() = %d, want 0", c.Size())
	}
}

func TestManager_CleanAllAndStop(t *testing.T) {
	m := NewManager(nil)
	c := NewLRUCache[string](10, time.Minute)
	advance := fakeClock(c, time.Now())
	c.Set("a", "1")
	advance(2 * time.Minute)

	swept := 0
	m.Register("lru", c)
	m.Register("sessions", CleanerFunc(func() int { swept++; return 3 }))

	got := m.CleanAll()
	if got["lru"] != 1 || got["sessions"] != 3 {
		t.Errorf("CleanAll() = %v", got)
	}
	if swept != 1 {
		t.Errorf("session sweep ran %d times, want 1", swept)
	}

	ticking := NewManager(nil)
	ticking.Register("lru", NewLRUCache[string](1, time.Minute))
	ticking.StartCleanup(10 * time.Millisecond)
	ticking.Stop()
	ticking.Stop()

	idle := NewManager(nil)
	idle.Stop()
}
