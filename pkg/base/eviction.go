// Package base holds small generic types shared by the lower-level
// packages (store, sweeper, never-die registry) without introducing
// import cycles between them.
package base

// ExpiryCallback is invoked whenever an entry leaves the store because its
// TTL passed — from the sweeper (component G) or from a get-time lazy
// expiry check (component B). It is never called for never-die entries,
// since those are never removed by TTL.
//
// Renamed from the teacher's EvictionCallback: this engine has no
// size-bounded eviction (see spec Non-goals), so the only removal reason
// left is expiry.
type ExpiryCallback[K comparable, V any] func(K, V)
