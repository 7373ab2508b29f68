// Package editlock provides short-lived advisory locks for the cell a user is
// editing. Locks are a courtesy shown in the UI; settlement and ranking never
// consult them, and a holder that disappears simply lets its lock expire.
package editlock

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"kegelkladde/internal/cache"
)

// DefaultTTL is how long a lock survives without renewal.
const DefaultTTL = 15 * time.Second

// MaxLocks bounds the lock table. When it is full, acquiring a new key
// evicts the least recently touched lock, even a live one; each such
// eviction is logged and counted in Evictions.
const MaxLocks = 4096

// Lock is one held advisory lock.
type Lock struct {
	Key        string    `json:"key"`
	Holder     string    `json:"holder"`
	AcquiredAt time.Time `json:"acquired_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type Locker struct {
	store     cache.Cache[Lock]
	ttl       time.Duration
	now       func() time.Time
	evictions atomic.Int64
}

// New returns a Locker whose locks live for ttl. The returned cache is
// registered with manager so expired locks are swept in the background.
func New(ttl time.Duration, manager *cache.Manager) *Locker {
	return newLocker(ttl, manager, MaxLocks)
}

func newLocker(ttl time.Duration, manager *cache.Manager, capacity int) *Locker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	l := &Locker{ttl: ttl, now: time.Now}
	store := cache.NewLRUCache[Lock](capacity, ttl).OnEvict(func(key string, lock Lock) {
		l.evictions.Add(1)
		slog.Warn("Edit lock table full, dropped a live lock",
			"key", key, "holder", lock.Holder, "capacity", capacity)
	})
	if manager != nil {
		manager.Register(store)
	}
	l.store = store
	return l
}

// Evictions counts live locks dropped because the table was full.
func (l *Locker) Evictions() int64 {
	return l.evictions.Load()
}

// NewWithClock is New with an explicit time source. The cache shares the clock.
func NewWithClock(ttl time.Duration, manager *cache.Manager, now func() time.Time) *Locker {
	l := New(ttl, manager)
	l.now = now
	if lru, ok := l.store.(*cache.LRUCache[Lock]); ok {
		lru.WithClock(now)
	}
	return l
}

// Key builds the lock key for one member row of one gameday.
func Key(gamedayID, memberID int64) string {
	return fmt.Sprintf("%d_%d", gamedayID, memberID)
}

// GamedayPrefix matches every key of one gameday.
func GamedayPrefix(gamedayID int64) string {
	return fmt.Sprintf("%d_", gamedayID)
}

// TryLock acquires key for holder. It succeeds when the key is free, expired
// or already held by the same holder (which renews it). On failure the
// current lock is returned.
func (l *Locker) TryLock(key, holder string) (Lock, bool) {
	var result Lock
	acquired := false
	l.store.Update(key, func(cur Lock, ok bool) (Lock, cache.Op) {
		if ok && cur.Holder != holder {
			result = cur
			return cur, cache.Keep
		}
		now := l.now()
		next := Lock{Key: key, Holder: holder, AcquiredAt: now, ExpiresAt: now.Add(l.ttl)}
		if ok {
			next.AcquiredAt = cur.AcquiredAt
		}
		result = next
		acquired = true
		return next, cache.Store
	})
	return result, acquired
}

// Renew extends a lock held by holder. It reports false when holder does not
// hold key.
func (l *Locker) Renew(key, holder string) bool {
	renewed := false
	l.store.Update(key, func(cur Lock, ok bool) (Lock, cache.Op) {
		if !ok || cur.Holder != holder {
			return cur, cache.Keep
		}
		cur.ExpiresAt = l.now().Add(l.ttl)
		renewed = true
		return cur, cache.Store
	})
	return renewed
}

// Release drops key if holder holds it. Releasing someone else's lock is a no-op.
func (l *Locker) Release(key, holder string) {
	l.store.Update(key, func(cur Lock, ok bool) (Lock, cache.Op) {
		if ok && cur.Holder == holder {
			return cur, cache.Remove
		}
		return cur, cache.Keep
	})
}

// ListActive returns live locks whose key starts with prefix, ordered by key.
func (l *Locker) ListActive(prefix string) []Lock {
	snap := l.store.Snapshot()
	out := make([]Lock, 0, len(snap))
	for key, lock := range snap {
		if strings.HasPrefix(key, prefix) {
			out = append(out, lock)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
