package editlock

import (
	"testing"
	"time"

	"kegelkladde/internal/cache"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestLocker(t *testing.T) (*Locker, *clock, *cache.Manager) {
	t.Helper()
	c := &clock{t: time.Date(2026, 2, 20, 19, 30, 0, 0, time.UTC)}
	m := cache.NewManager()
	t.Cleanup(m.Stop)
	return NewWithClock(DefaultTTL, m, c.now), c, m
}

func TestTryLock(t *testing.T) {
	l, c, _ := newTestLocker(t)
	key := Key(3, 7)
	if key != "3_7" {
		t.Fatalf("Key(3, 7) = %q", key)
	}

	lock, ok := l.TryLock(key, "tab-a")
	if !ok || lock.Holder != "tab-a" {
		t.Fatalf("first TryLock = %+v, %v", lock, ok)
	}

	cur, ok := l.TryLock(key, "tab-b")
	if ok || cur.Holder != "tab-a" {
		t.Fatalf("second holder should see tab-a, got %+v, %v", cur, ok)
	}

	c.t = c.t.Add(5 * time.Second)
	again, ok := l.TryLock(key, "tab-a")
	if !ok || !again.AcquiredAt.Equal(lock.AcquiredAt) || !again.ExpiresAt.After(lock.ExpiresAt) {
		t.Fatalf("re-lock by holder should renew, got %+v", again)
	}

	c.t = c.t.Add(DefaultTTL + time.Second)
	if _, ok := l.TryLock(key, "tab-b"); !ok {
		t.Fatal("expired lock should be free")
	}
}

func TestRenewAndRelease(t *testing.T) {
	l, c, _ := newTestLocker(t)
	key := Key(1, 2)
	l.TryLock(key, "tab-a")

	tests := []struct {
		name   string
		holder string
		want   bool
	}{
		{"holder renews", "tab-a", true},
		{"stranger cannot renew", "tab-b", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := l.Renew(key, tt.holder); got != tt.want {
				t.Fatalf("Renew(%s) = %v, want %v", tt.holder, got, tt.want)
			}
		})
	}

	c.t = c.t.Add(10 * time.Second)
	l.Renew(key, "tab-a")
	c.t = c.t.Add(10 * time.Second)
	if got := l.ListActive(""); len(got) != 1 {
		t.Fatalf("renewed lock should still be live, got %+v", got)
	}

	l.Release(key, "tab-b")
	if got := l.ListActive(""); len(got) != 1 {
		t.Fatal("release by a stranger must be ignored")
	}
	l.Release(key, "tab-a")
	if got := l.ListActive(""); len(got) != 0 {
		t.Fatalf("lock should be released, got %+v", got)
	}
	if l.Renew(key, "tab-a") {
		t.Fatal("cannot renew a released lock")
	}
}

func TestListActiveByGameday(t *testing.T) {
	l, c, m := newTestLocker(t)
	l.TryLock(Key(1, 2), "a")
	l.TryLock(Key(1, 1), "b")
	l.TryLock(Key(11, 1), "c")
	l.TryLock(Key(2, 1), "d")

	got := l.ListActive(GamedayPrefix(1))
	if len(got) != 2 || got[0].Key != "1_1" || got[1].Key != "1_2" {
		t.Fatalf("ListActive(1_) = %+v", got)
	}

	c.t = c.t.Add(DefaultTTL + time.Second)
	if n := m.Sweep(); n != 4 {
		t.Fatalf("Sweep() = %d, want 4", n)
	}
	if got := l.ListActive(""); len(got) != 0 {
		t.Fatalf("all locks should have expired, got %+v", got)
	}
}

func TestFullTableCountsEvictions(t *testing.T) {
	c := &clock{t: time.Date(2026, 2, 20, 19, 30, 0, 0, time.UTC)}
	l := newLocker(DefaultTTL, nil, 2)
	l.now = c.now
	l.store.(*cache.LRUCache[Lock]).WithClock(c.now)

	l.TryLock(Key(1, 1), "tab-a")
	l.TryLock(Key(1, 2), "tab-b")
	if _, ok := l.TryLock(Key(1, 3), "tab-c"); !ok {
		t.Fatal("new key should be acquired on a full table")
	}
	if l.Evictions() != 1 {
		t.Fatalf("evictions = %d, want 1", l.Evictions())
	}
	// Re-acquiring the dropped key pushes out the next oldest live lock.
	if _, ok := l.TryLock(Key(1, 1), "tab-x"); !ok {
		t.Fatal("evicted key should be free again")
	}
	if l.Evictions() != 2 {
		t.Fatalf("evictions = %d, want 2", l.Evictions())
	}

	c.t = c.t.Add(DefaultTTL + time.Second)
	l.TryLock(Key(2, 1), "tab-a")
	l.TryLock(Key(2, 2), "tab-a")
	if l.Evictions() != 2 {
		t.Fatalf("expired locks counted as evictions: %d", l.Evictions())
	}
}
