// Package registry maps cache-key strings to compact 64-bit identifiers and
// back. Reverse-index membership is stored as identifiers, roughly a 10x
// memory saving over raw key strings at scale.
//
// The registry is process-local. Identifiers are monotonic and never reused
// within a process lifetime; cross-process backends must not attempt to
// share them.
package registry

import (
	"sync"
	"sync/atomic"
)

// Entry pairs an identifier with the cache key it names.
type Entry struct {
	ID  int64
	Key string
}

// Registry is a bidirectional, monotonically growing key<->id map. All
// operations are safe for concurrent use and O(1) amortized.
type Registry struct {
	next  atomic.Int64
	byKey sync.Map // string -> int64
	byID  sync.Map // int64 -> string
}

func New() *Registry { return &Registry{} }

// Register returns the identifier bound to key, creating one if none exists.
// Idempotent under concurrency: every concurrent registration of the same
// string returns the same id, and no two strings share one. A speculatively
// consumed counter value is abandoned on collision; the 2^63 space makes
// that safe indefinitely.
func (r *Registry) Register(key string) int64 {
	if v, ok := r.byKey.Load(key); ok {
		return v.(int64)
	}
	id := r.next.Add(1)
	if actual, loaded := r.byKey.LoadOrStore(key, id); loaded {
		return actual.(int64)
	}
	// reverse direction only after the forward insertion won
	r.byID.Store(id, key)
	return id
}

// Lookup returns the key bound to id.
func (r *Registry) Lookup(id int64) (string, bool) {
	v, ok := r.byID.Load(id)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// Resolve returns an Entry per input id that still exists, preserving input
// order. Missing ids are dangling references the caller should drop.
func (r *Registry) Resolve(ids []int64) []Entry {
	out := make([]Entry, 0, len(ids))
	for _, id := range ids {
		if k, ok := r.Lookup(id); ok {
			out = append(out, Entry{ID: id, Key: k})
		}
	}
	return out
}

// UnregisterID removes both directions if present; otherwise a no-op.
// CompareAndDelete on the forward table guards a concurrent re-registration
// of the same key under a fresh id.
func (r *Registry) UnregisterID(id int64) {
	v, ok := r.byID.LoadAndDelete(id)
	if !ok {
		return
	}
	r.byKey.CompareAndDelete(v.(string), id)
}
