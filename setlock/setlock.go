// Package setlock emulates atomic set mutation on backends that lack native
// set operations. Each set is stored as a single []int64 value under its set
// key; every mutation is a read-modify-write serialized by a partitioned
// in-process lock table. The table is strictly process-local: distributed
// deployments need a backend with native sets instead.
package setlock

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/yourorg/recache/backend"
)

const (
	// DefaultMultiplier sizes the lock table at GOMAXPROCS x 4 partitions:
	// small enough to stay cheap, wide enough to amortize contention.
	DefaultMultiplier = 4

	// DefaultRetries bounds acquisition attempts before surfacing livelock.
	// Under normal load a partition is never contended for more than a
	// handful of attempts.
	DefaultRetries = 100

	// DefaultBackoff is the pause between acquisition attempts.
	DefaultBackoff = time.Millisecond
)

// LockTimeoutError reports that a partition could not be acquired within the
// retry budget.
type LockTimeoutError struct {
	Key       string
	Partition int
	Attempts  int
}

func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("setlock: partition %d for %q not acquired after %d attempts",
		e.Partition, e.Key, e.Attempts)
}

// Config tunes the lock table. Zero values take the defaults above.
type Config struct {
	Multiplier int
	Retries    int
	Backoff    time.Duration
}

// Lock is the fallback set store over a plain backend. Holding a partition
// grants exclusive permission to read-modify-write any set whose key hashes
// there.
type Lock struct {
	b       backend.Backend
	parts   []sync.Mutex
	retries int
	backoff time.Duration
}

var _ backend.SetStore = (*Lock)(nil)

func New(b backend.Backend, cfg Config) *Lock {
	mult := cfg.Multiplier
	if mult <= 0 {
		mult = DefaultMultiplier
	}
	retries := cfg.Retries
	if retries <= 0 {
		retries = DefaultRetries
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	return &Lock{
		b:       b,
		parts:   make([]sync.Mutex, runtime.GOMAXPROCS(0)*mult),
		retries: retries,
		backoff: backoff,
	}
}

func (l *Lock) partition(key string) int {
	return int(xxhash.Sum64String(key) % uint64(len(l.parts)))
}

// acquire spins on TryLock with backoff, honoring ctx between attempts.
func (l *Lock) acquire(ctx context.Context, key string) (int, error) {
	p := l.partition(key)
	mu := &l.parts[p]
	for i := 0; i < l.retries; i++ {
		if mu.TryLock() {
			return p, nil
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(l.backoff):
		}
	}
	return 0, &LockTimeoutError{Key: key, Partition: p, Attempts: l.retries}
}

// SetAdd inserts member into the set at key. Idempotent on duplicates.
func (l *Lock) SetAdd(ctx context.Context, key string, member int64) error {
	p, err := l.acquire(ctx, key)
	if err != nil {
		return err
	}
	defer l.parts[p].Unlock()

	ids, err := l.read(ctx, key)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == member {
			return nil
		}
	}
	// fresh slice: the stored value may still be visible to lock-free readers
	next := make([]int64, 0, len(ids)+1)
	next = append(next, ids...)
	next = append(next, member)
	return l.b.Put(ctx, key, next, 0)
}

// SetRemove drops member from the set at key. Removing the last member
// deletes the key so SetMembers reports absent.
func (l *Lock) SetRemove(ctx context.Context, key string, member int64) error {
	p, err := l.acquire(ctx, key)
	if err != nil {
		return err
	}
	defer l.parts[p].Unlock()

	ids, err := l.read(ctx, key)
	if err != nil {
		return err
	}
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id != member {
			out = append(out, id)
		}
	}
	if len(out) == len(ids) {
		return nil
	}
	if len(out) == 0 {
		return l.b.Delete(ctx, key)
	}
	return l.b.Put(ctx, key, out, 0)
}

// SetMembers reads without holding the partition; a torn read is impossible
// because the value under the set key is replaced wholesale.
func (l *Lock) SetMembers(ctx context.Context, key string) ([]int64, bool, error) {
	ids, err := l.read(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if len(ids) == 0 {
		return nil, false, nil
	}
	return ids, true, nil
}

// MGet performs sequential individual reads: one slot per input key, nil for
// misses. Fallback for backends without native multi-get.
func (l *Lock) MGet(ctx context.Context, keys []string) ([]any, error) {
	out := make([]any, len(keys))
	for i, k := range keys {
		v, ok, err := l.b.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if ok {
			out[i] = v
		}
	}
	return out, nil
}

func (l *Lock) read(ctx context.Context, key string) ([]int64, error) {
	v, ok, err := l.b.Get(ctx, key)
	if err != nil || !ok {
		return nil, err
	}
	ids, ok := v.([]int64)
	if !ok {
		return nil, fmt.Errorf("setlock: value at %q is %T, not a member set", key, v)
	}
	return ids, nil
}
