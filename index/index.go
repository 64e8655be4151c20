// Package index maintains the reverse index: per record identity and per
// record type, the set of registry identifiers whose cache entries contain
// that record. Mutations go through the backend's native sets when the
// capability is present, or through the setlock fallback otherwise; either
// way each set operation is atomic, so concurrent adds and removes on one
// set converge.
package index

import (
	"context"

	"github.com/yourorg/recache/backend"
)

// Index dispatches set operations to the store chosen at construction.
type Index struct {
	sets backend.SetStore
}

// New binds the index to b's native set support when available, falling back
// otherwise. The decision is made once, mirroring capability resolution.
func New(b backend.Backend, fallback backend.SetStore) *Index {
	if ss, ok := b.(backend.SetStore); ok {
		return &Index{sets: ss}
	}
	return &Index{sets: fallback}
}

// Add records that the entry named by id contains the identity behind setKey.
func (ix *Index) Add(ctx context.Context, setKey string, id int64) error {
	return ix.sets.SetAdd(ctx, setKey, id)
}

// Remove drops a membership; absent members are a no-op.
func (ix *Index) Remove(ctx context.Context, setKey string, id int64) error {
	return ix.sets.SetRemove(ctx, setKey, id)
}

// Members returns the current membership; absent or empty sets yield nil.
func (ix *Index) Members(ctx context.Context, setKey string) ([]int64, error) {
	ids, ok, err := ix.sets.SetMembers(ctx, setKey)
	if err != nil || !ok {
		return nil, err
	}
	return ids, nil
}
