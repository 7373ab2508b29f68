package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func TestLRUCache_Expiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 9, 20, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](10, 15*time.Second).WithClock(clock.now)

	c.Set("a", "x")
	if v, ok := c.Get("a"); !ok || v != "x" {
		t.Fatalf("Get(a) = %q, %v", v, ok)
	}

	clock.advance(16 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatal("entry should have expired")
	}
	if c.Size() != 0 {
		t.Fatalf("expired entry not dropped on read, size = %d", c.Size())
	}
}

func TestLRUCache_EvictsOldest(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry should be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("recently used entry should survive")
	}
}

func TestLRUCache_Update(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 9, 20, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](10, 10*time.Second).WithClock(clock.now)

	tests := []struct {
		name     string
		fn       func(cur int, ok bool) (int, Op)
		wantVal  int
		wantLive bool
	}{
		{"insert when missing", func(cur int, ok bool) (int, Op) { return 1, Store }, 1, true},
		{"increment existing", func(cur int, ok bool) (int, Op) { return cur + 1, Store }, 2, true},
		{"keep leaves value", func(cur int, ok bool) (int, Op) { return 99, Keep }, 2, true},
		{"remove", func(cur int, ok bool) (int, Op) { return 0, Remove }, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.Update("k", tt.fn)
			v, ok := c.Get("k")
			if ok != tt.wantLive || v != tt.wantVal {
				t.Fatalf("Get(k) = %d, %v; want %d, %v", v, ok, tt.wantVal, tt.wantLive)
			}
		})
	}
}

func TestManager_Sweep(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 9, 20, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](10, time.Second).WithClock(clock.now)
	c.Set("a", 1)
	c.Set("b", 2)

	m := NewManager()
	m.Register(c)
	defer m.Stop()

	clock.advance(2 * time.Second)
	c.Set("c", 3)

	if n := m.Sweep(); n != 2 {
		t.Fatalf("Sweep() = %d, want 2", n)
	}
	if snap := c.Snapshot(); len(snap) != 1 || snap["c"] != 3 {
		t.Fatalf("Snapshot() = %v", snap)
	}
}

func TestManager_StopWithoutStart(t *testing.T) {
	m := NewManager()
	m.Stop()
	m.Stop()
}

func TestLRUCache_KeepDoesNotExtend(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 9, 20, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](10, 10*time.Second).WithClock(clock.now)
	c.Set("k", 1)

	clock.advance(8 * time.Second)
	c.Update("k", func(cur int, ok bool) (int, Op) { return cur, Keep })
	clock.advance(3 * time.Second)

	if _, ok := c.Get("k"); ok {
		t.Fatal("Keep must not refresh the TTL")
	}
}

func TestLRUCache_OnEvictOnlyForLiveEntries(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 9, 20, 0, 0, 0, time.UTC)}
	var evicted []string
	c := NewLRUCache[int](2, 15*time.Second).WithClock(clock.now).
		OnEvict(func(key string, _ int) { evicted = append(evicted, key) })

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)
	if len(evicted) != 1 || evicted[0] != "a" {
		t.Fatalf("evicted = %v, want [a]", evicted)
	}

	clock.advance(16 * time.Second)
	c.Set("d", 4)
	if len(evicted) != 1 {
		t.Fatalf("expired entry reported as evicted: %v", evicted)
	}
}
