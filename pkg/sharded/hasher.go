// Package sharded provides the hashing primitive used to spread a keyed
// store across N independent shards, reducing lock contention under
// concurrent access. Adapted from the teacher's generic Hasher[K] type,
// specialized to the string keys the cache store and lock registry both
// use, and backed by xxhash instead of a caller-supplied function.
package sharded

import "github.com/cespare/xxhash/v2"

// Hasher computes a shard index in [0, shards) for a string key.
type Hasher func(key string, shards uint64) uint64

// Default hashes key with xxhash and reduces it modulo shards.
// Deterministic: the same key always maps to the same shard, which is the
// property the cache store's shard selection relies on.
func Default(key string, shards uint64) uint64 {
	return xxhash.Sum64String(key) % shards
}
