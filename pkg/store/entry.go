package store

import (
	"github.com/DmitriyVTitov/size"

	"github.com/go-memoize/memoize/internal"
)

// Key is the store's composite key from spec.md §3: "the pair
// (function_id, fingerprint)". function_id is the string form the memoizer
// assigns at wrap time (module-qualified-name equivalent per spec §9), not
// an address — stable across re-wrapping the same source definition.
type Key struct {
	FunctionID  string
	Fingerprint string
}

// Entry is spec.md's CacheEntry: { result, ttl, cached_at, expires_at }.
// When TTLNano is zero the entry is never-expired by Get — this is how
// never-die entries are served: the entry itself never expires, and the
// never-die supervisor's own back-off clock (pkg/neverdie) decides when to
// refresh it, not the store.
type Entry[V any] struct {
	Result    V
	TTLNano   int64
	CachedAt  int64
	ExpiresAt int64 // zero (with TTLNano == 0) means never-expires

	bytes uint
}

func newEntry[V any](result V, ttlNano int64) Entry[V] {
	now := internal.NowNano()
	e := Entry[V]{
		Result:   result,
		TTLNano:  ttlNano,
		CachedAt: now,
		bytes:    uint(size.Of(result)),
	}
	if ttlNano > 0 {
		e.ExpiresAt = now + ttlNano
	}
	return e
}

// isExpired reports whether the entry was expired at nowNano. An entry
// with TTLNano == 0 is never expired, per spec §3's invariant.
func (e Entry[V]) isExpired(nowNano int64) bool {
	return e.TTLNano > 0 && nowNano >= e.ExpiresAt
}
