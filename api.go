package recache

import (
	"context"
	"time"

	be "github.com/yourorg/recache/backend"
)

// Fetch materializes a value from the source of truth on cache miss.
type Fetch func(ctx context.Context) (any, error)

// Mutation executes the caller's domain write and returns its result. Only a
// Record result triggers cache maintenance; anything else passes through.
type Mutation func(ctx context.Context) (any, error)

// Strategy selects how Update reconciles cache entries that contain the
// mutated record.
type Strategy int

const (
	// StrategyEvict deletes every entry containing the record (default).
	StrategyEvict Strategy = iota
	// StrategyWriteThrough rewrites every entry containing the record in
	// place. Collection rewrites are not atomic; callers that need
	// linearizable writes should evict instead.
	StrategyWriteThrough
)

// Engine is the public cache API. All operations are safe for concurrent use
// and interruptible at any backend call or lock acquisition.
type Engine interface {
	Enabled() bool
	Close(ctx context.Context) error

	// Read derives the cache key from (key, params), serves a hit, or calls
	// fetch and caches record-shaped results. Empty lists and opaque results
	// are returned without caching. A backend read error is fail-open: fetch
	// runs and its result is returned uncached.
	Read(ctx context.Context, key string, params map[string]any, ttl time.Duration, fetch Fetch) (any, error)

	// Create runs do and, on a Record result, evicts every cached collection
	// of that record's type so the next listing re-fetches.
	Create(ctx context.Context, do Mutation) (any, error)

	// Update runs do and reconciles per strategy on a Record result.
	Update(ctx context.Context, do Mutation, strategy Strategy) (any, error)

	// Delete runs do and, on a Record result, evicts every entry containing
	// the record.
	Delete(ctx context.Context, do Mutation) (any, error)

	// Flush evicts every cache entry that contains record.
	Flush(ctx context.Context, record Record) error

	// FlushCollections evicts every cached collection of record's type.
	FlushCollections(ctx context.Context, record Record) error

	// DirectWriteThrough overwrites every cache entry that contains record,
	// in place: singular entries are replaced, collection entries have the
	// matching element swapped.
	DirectWriteThrough(ctx context.Context, record Record, ttl time.Duration) error
}

// Options tune the engine. Only Backend is required; others have sensible
// defaults.
type Options struct {
	// Required
	Backend be.Backend

	Keyer  Keyer  // nil => JSONKeyer
	Logger Logger // nil => NopLogger
	Hooks  Hooks  // nil => NopHooks

	// FanoutThreshold is the list/membership size past which per-element
	// index work runs with bounded parallelism. 0 => 100.
	FanoutThreshold int

	// Set Lock fallback tuning (plain key-value backends only).
	LockPartitionMultiplier int           // partitions per scheduler; 0 => 4
	LockRetries             int           // acquisition budget; 0 => 100
	LockBackoff             time.Duration // pause between attempts; 0 => 1ms

	Disabled bool // default false (enabled)
}

// New resolves the backend's capabilities and publishes the engine. This is
// the explicit startup hook: capabilities, the lock table, and the registry
// are initialized here, once, and never consult the environment.
func New(opts Options) (Engine, error) {
	return newEngine(opts)
}
