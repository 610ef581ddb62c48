// Package lockregistry implements spec.md component C, the keyed lock
// registry: two disjoint tables, one for the blocking universe and one for
// the cooperative universe, exactly as spec §4.C frames them ("the two
// concurrency universes never share a table").
package lockregistry

import "github.com/samber/go-singleflightx"

// Blocking is the blocking-universe table: one composite-keyed
// single-flight group per result type V. Concurrent callers for the same
// (function_id, fingerprint) key block on the same in-flight call and
// share its result, exactly as spec §4.C/§4.D describe.
//
// Grounded directly on the teacher's own use of go-singleflightx in
// hot.go (HotCache.group), generalized from a per-cache group keyed by the
// cache's own K to a per-memoizer group keyed by a composite string that
// callers build from store.Key (FunctionID + "\x00" + Fingerprint) —
// samber/hot only ever has one entry space (the
// cache's own key type) to single-flight over, whereas this registry has
// to dedupe across every function_id sharing the instantiation of V, so
// the key carries the function identity itself.
type Blocking[V any] struct {
	group singleflightx.Group[string, V]
}

// NewBlocking creates an empty blocking table for one result type V.
func NewBlocking[V any]() *Blocking[V] {
	return &Blocking[V]{}
}

// Do runs fn if no call for key is in flight, or waits for and shares the
// result of the one that is. shared reports whether the result was handed
// to more than one caller; when others joined, it is true for the caller
// that started the call as well.
func (b *Blocking[V]) Do(key string, fn func() (V, error)) (result V, shared bool, err error) {
	result, err, shared = b.group.Do(key, fn)
	return result, shared, err
}

// Forget removes key's record of a completed call, so the next Do for that
// key always starts a fresh call rather than momentarily sharing a stale
// one.
func (b *Blocking[V]) Forget(key string) {
	b.group.Forget(key)
}
