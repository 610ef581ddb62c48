// Package store implements spec.md component B, the cache store: a
// process-wide keyed table mapping (function_id, fingerprint) to entries,
// with get/set/expire/clear and the data the sweeper (component G) scans.
//
// Grounded on the teacher's sharding idea (pkg/sharded, reused here for
// string keys) and internal/time.go's "store nanoseconds as int64"
// performance idiom, wrapped in per-shard sync.RWMutex the way
// pkg/safe.SafeInMemoryCache wrapped the teacher's eviction caches — but
// built from scratch rather than reusing base.InMemoryCache, since this
// store has no eviction-algorithm polymorphism to abstract over (spec's
// Non-goals exclude size-bounded eviction entirely).
package store

import (
	"sync"

	"github.com/go-memoize/memoize/internal"
	"github.com/go-memoize/memoize/pkg/base"
	"github.com/go-memoize/memoize/pkg/sharded"
)

const defaultShards = 16

// Store is the process-wide cache store for one result type V. The
// memoizer holds one Store[V] per distinct wrapped-callable result type
// (Go's generics are monomorphized per type, unlike the dynamically typed
// source, so there is one store per V rather than one global store keyed
// by interface{} — function_id namespacing still prevents collisions
// between differently-shaped callables sharing a result type).
type Store[V any] struct {
	shards     []*shard[V]
	onExpire   base.ExpiryCallback[Key, V]
	shardCount uint64
}

type shard[V any] struct {
	mu      rwMutex
	entries map[Key]Entry[V]
}

// rwMutex mirrors the teacher's mutex.go abstraction (interface + no-op
// mock) so the store's locking can be swapped out in tests without
// changing call sites.
type rwMutex interface {
	Lock()
	Unlock()
	RLock()
	RUnlock()
}

// New creates a Store with the default shard count. onExpire, if non-nil,
// is called (outside any shard lock) whenever Get or the sweeper observes
// an entry past its expiry and removes it.
func New[V any](onExpire base.ExpiryCallback[Key, V]) *Store[V] {
	return NewWithShards[V](defaultShards, onExpire)
}

// NewWithShards is New with an explicit shard count, exposed for tests
// that want to force shard collisions or verify distribution.
func NewWithShards[V any](shards uint64, onExpire base.ExpiryCallback[Key, V]) *Store[V] {
	if shards == 0 {
		shards = 1
	}
	s := &Store[V]{
		shards:     make([]*shard[V], shards),
		onExpire:   onExpire,
		shardCount: shards,
	}
	for i := range s.shards {
		s.shards[i] = &shard[V]{mu: &sync.RWMutex{}, entries: make(map[Key]Entry[V])}
	}
	return s
}

func (s *Store[V]) shardFor(key Key) *shard[V] {
	idx := sharded.Default(key.FunctionID+"\x00"+key.Fingerprint, s.shardCount)
	return s.shards[idx]
}

// Set unconditionally replaces any existing entry for key. ttlNano == 0
// means never-expire, used by the never-die refresh path (spec §4.B).
func (s *Store[V]) Set(key Key, result V, ttlNano int64) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	sh.entries[key] = newEntry(result, ttlNano)
	sh.mu.Unlock()
}

// Get returns the entry for key, unless skipCache is true, the key is
// absent, or the entry is expired — spec §4.B. An expired entry is removed
// as a side effect (lazy expiry), and onExpire is invoked for it.
func (s *Store[V]) Get(key Key, skipCache bool) (Entry[V], bool) {
	if skipCache {
		return Entry[V]{}, false
	}

	sh := s.shardFor(key)
	sh.mu.RLock()
	entry, ok := sh.entries[key]
	sh.mu.RUnlock()
	if !ok {
		return Entry[V]{}, false
	}

	now := internal.NowNano()
	if !entry.isExpired(now) {
		return entry, true
	}

	s.deleteIfStillExpired(key, now)
	return Entry[V]{}, false
}

// IsExpired reports whether key is absent or expired, without removing it.
func (s *Store[V]) IsExpired(key Key) bool {
	sh := s.shardFor(key)
	sh.mu.RLock()
	entry, ok := sh.entries[key]
	sh.mu.RUnlock()
	if !ok {
		return true
	}
	return entry.isExpired(internal.NowNano())
}

// Delete removes key unconditionally, without invoking onExpire.
func (s *Store[V]) Delete(key Key) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	delete(sh.entries, key)
	sh.mu.Unlock()
}

func (s *Store[V]) deleteIfStillExpired(key Key, nowNano int64) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	entry, ok := sh.entries[key]
	if ok && entry.isExpired(nowNano) {
		delete(sh.entries, key)
	}
	sh.mu.Unlock()

	if ok && s.onExpire != nil {
		s.onExpire(key, entry.Result)
	}
}

// Clear removes all entries from every shard.
func (s *Store[V]) Clear() {
	for _, sh := range s.shards {
		sh.mu.Lock()
		sh.entries = make(map[Key]Entry[V])
		sh.mu.Unlock()
	}
}

// Sweep removes every entry expired at the given instant, except entries
// with TTLNano == 0 (never-die residents, per spec §4.G: "must never
// remove entries whose ttl is unset"). It snapshots keys per shard before
// deleting so concurrent writers are tolerated (spec §4.G:
// "snapshot-then-remove-by-key, ignore missing keys").
func (s *Store[V]) Sweep(nowNano int64) int {
	removed := 0

	for _, sh := range s.shards {
		sh.mu.RLock()
		var expired []Key
		var values []V
		for k, e := range sh.entries {
			if e.isExpired(nowNano) {
				expired = append(expired, k)
				values = append(values, e.Result)
			}
		}
		sh.mu.RUnlock()

		if len(expired) == 0 {
			continue
		}

		sh.mu.Lock()
		for _, k := range expired {
			if e, ok := sh.entries[k]; ok && e.isExpired(nowNano) {
				delete(sh.entries, k)
				removed++
			}
		}
		sh.mu.Unlock()

		if s.onExpire != nil {
			for i, k := range expired {
				s.onExpire(k, values[i])
			}
		}
	}

	return removed
}

// Len returns the number of entries currently stored, including expired
// ones not yet swept.
func (s *Store[V]) Len() int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		total += len(sh.entries)
		sh.mu.RUnlock()
	}
	return total
}

// SizeBytes returns the best-effort total size, in bytes, of every stored
// result — surfaced through metrics.go the same way item.go's bytes field
// fed HotCache's weight gauge.
func (s *Store[V]) SizeBytes() uint64 {
	var total uint64
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, e := range sh.entries {
			total += uint64(e.bytes)
		}
		sh.mu.RUnlock()
	}
	return total
}
