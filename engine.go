package recache

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	be "github.com/yourorg/recache/backend"
	"github.com/yourorg/recache/index"
	"github.com/yourorg/recache/registry"
	"github.com/yourorg/recache/setlock"
)

const defaultFanoutThreshold = 100

type engine struct {
	b     be.Backend
	caps  be.Capabilities
	mg    be.MultiGetter // non-nil iff caps.MultiGet
	lock  *setlock.Lock
	idx   *index.Index
	reg   *registry.Registry
	keyer Keyer
	log   Logger
	hooks Hooks

	fanout  int
	enabled bool
}

func newEngine(opts Options) (*engine, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("recache: backend is required")
	}

	e := &engine{
		b:       opts.Backend,
		caps:    be.Resolve(opts.Backend),
		reg:     registry.New(),
		enabled: !opts.Disabled,
	}

	// defaults
	e.keyer = coalesce[Keyer](opts.Keyer, JSONKeyer{})
	e.log = coalesce[Logger](opts.Logger, NopLogger{})
	e.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	e.fanout = coalesce[int](opts.FanoutThreshold, defaultFanoutThreshold)

	e.lock = setlock.New(opts.Backend, setlock.Config{
		Multiplier: opts.LockPartitionMultiplier,
		Retries:    opts.LockRetries,
		Backoff:    opts.LockBackoff,
	})
	e.idx = index.New(opts.Backend, e.lock)
	if mg, ok := opts.Backend.(be.MultiGetter); ok {
		e.mg = mg
	}
	return e, nil
}

func (e *engine) Enabled() bool { return e.enabled }

func (e *engine) Close(ctx context.Context) error {
	if e.b != nil {
		return e.b.Close(ctx)
	}
	return nil
}

func (e *engine) Read(ctx context.Context, key string, params map[string]any, ttl time.Duration, fetch Fetch) (any, error) {
	if !e.enabled {
		return fetch(ctx)
	}
	ck, err := e.keyer.CacheKey(key, params)
	if err != nil {
		return nil, err
	}

	v, ok, err := e.b.Get(ctx, ck)
	if err != nil {
		// fail-open: serve from source and do not cache on a degraded backend
		e.log.Warn("read fallback: backend get failed", Fields{"key": ck, "err": err})
		e.hooks.ReadFallback(ck, err)
		return fetch(ctx)
	}
	if ok {
		return v, nil
	}

	r, err := fetch(ctx)
	if err != nil {
		return r, err
	}

	if rec, isRec := r.(Record); isRec {
		e.put(ctx, ck, r, ttl)
		if err := e.indexAdd(ctx, InstanceSetKey(rec), ck); err != nil {
			return nil, err
		}
		return r, nil
	}
	if recs, isList := RecordsOf(r); isList {
		if len(recs) == 0 {
			// empty listings are never cached; the fetch re-runs every call
			return r, nil
		}
		e.put(ctx, ck, r, ttl)
		if err := e.associateList(ctx, ck, recs); err != nil {
			return nil, err
		}
		return r, nil
	}
	// opaque shape: pass through without cache-state effect
	return r, nil
}

func (e *engine) Create(ctx context.Context, do Mutation) (any, error) {
	r, err := do(ctx)
	if err != nil {
		return r, err
	}
	if rec, ok := r.(Record); ok && e.enabled {
		if err := e.FlushCollections(ctx, rec); err != nil {
			return r, err
		}
	}
	return r, nil
}

func (e *engine) Update(ctx context.Context, do Mutation, strategy Strategy) (any, error) {
	r, err := do(ctx)
	if err != nil {
		return r, err
	}
	rec, ok := r.(Record)
	if !ok || !e.enabled {
		return r, nil
	}
	switch strategy {
	case StrategyWriteThrough:
		err = e.DirectWriteThrough(ctx, rec, 0)
	default:
		err = e.Flush(ctx, rec)
	}
	if err != nil {
		return r, err
	}
	return r, nil
}

func (e *engine) Delete(ctx context.Context, do Mutation) (any, error) {
	r, err := do(ctx)
	if err != nil {
		return r, err
	}
	if rec, ok := r.(Record); ok && e.enabled {
		if err := e.Flush(ctx, rec); err != nil {
			return r, err
		}
	}
	return r, nil
}

func (e *engine) Flush(ctx context.Context, record Record) error {
	if !e.enabled {
		return nil
	}
	return e.evict(ctx, InstanceSetKey(record))
}

func (e *engine) FlushCollections(ctx context.Context, record Record) error {
	if !e.enabled {
		return nil
	}
	return e.evict(ctx, TypeSetKey(record.TypeTag()))
}

func (e *engine) DirectWriteThrough(ctx context.Context, record Record, ttl time.Duration) error {
	if !e.enabled {
		return nil
	}
	setKey := InstanceSetKey(record)
	live, err := e.scan(ctx, setKey)
	if err != nil || len(live) == 0 {
		return err
	}
	return e.forEach(ctx, len(live), func(ctx context.Context, i int) error {
		return e.rewrite(ctx, live[i], record, ttl)
	})
}

// rewrite overwrites one live entry in place. Collection rewrites are not
// atomic: a concurrent writer may clobber this write, and the next cache
// miss reconstructs the value from source.
func (e *engine) rewrite(ctx context.Context, ent liveEntry, record Record, ttl time.Duration) error {
	if _, ok := ent.value.(Record); ok {
		e.put(ctx, ent.key, record, ttl)
		return nil
	}
	recs, ok := RecordsOf(ent.value)
	if !ok {
		// opaque entry: leave untouched
		return nil
	}
	at := -1
	for j, el := range recs {
		if SameIdentity(el, record) {
			at = j
			break
		}
	}
	if at < 0 {
		// the list no longer contains this identity
		e.hooks.WriteThroughSkipped(ent.key)
		return nil
	}
	next, ok := replaceElement(ent.value, at, record)
	if !ok {
		e.log.Warn("write-through: record not assignable to cached list", Fields{"key": ent.key})
		return nil
	}
	e.put(ctx, ent.key, next, ttl)
	return nil
}

// evict clears every live entry referenced by setKey: backend delete, then
// membership and registry cleanup. A failed delete leaves the membership in
// place so the next mutation retries it.
func (e *engine) evict(ctx context.Context, setKey string) error {
	live, err := e.scan(ctx, setKey)
	if err != nil || len(live) == 0 {
		return err
	}
	return e.forEach(ctx, len(live), func(ctx context.Context, i int) error {
		ent := live[i]
		if err := e.b.Delete(ctx, ent.key); err != nil {
			e.log.Warn("flush: backend delete failed", Fields{"key": ent.key, "err": err})
			return nil
		}
		if err := e.indexRemove(ctx, setKey, ent.id); err != nil {
			return err
		}
		e.reg.UnregisterID(ent.id)
		return nil
	})
}

type liveEntry struct {
	id    int64
	key   string
	value any
}

// scan walks the reverse-index set behind setKey: resolves memberships,
// lazily drops dangling identifiers and stale entries, and returns the live
// remainder with values already fetched. Lock timeouts and cancellation
// propagate. Other errors reading memberships or values abort before any
// entry is evicted or rewritten (dangling identifiers found before the
// value read have already been dropped); stale entries remain until
// re-referenced.
func (e *engine) scan(ctx context.Context, setKey string) ([]liveEntry, error) {
	ids, err := e.idx.Members(ctx, setKey)
	if err != nil {
		if isFatal(ctx, err) {
			return nil, err
		}
		e.log.Warn("flush skipped: membership read failed", Fields{"set": setKey, "err": err})
		e.hooks.FlushSkipped(setKey, err)
		return nil, nil
	}
	if len(ids) == 0 {
		return nil, nil
	}

	resolved := e.reg.Resolve(ids)
	if len(resolved) < len(ids) {
		known := make(map[int64]struct{}, len(resolved))
		for _, ent := range resolved {
			known[ent.ID] = struct{}{}
		}
		for _, id := range ids {
			if _, ok := known[id]; ok {
				continue
			}
			// dangling identifier: drop the orphaned membership
			if err := e.indexRemove(ctx, setKey, id); err != nil {
				return nil, err
			}
			e.hooks.StaleDropped(setKey, id)
		}
	}
	if len(resolved) == 0 {
		return nil, nil
	}

	keys := make([]string, len(resolved))
	for i, ent := range resolved {
		keys[i] = ent.Key
	}
	vals, err := e.multiGet(ctx, keys)
	if err != nil {
		e.log.Warn("flush skipped: multi-get failed", Fields{"set": setKey, "err": err})
		e.hooks.FlushSkipped(setKey, err)
		return nil, nil
	}

	live := make([]liveEntry, 0, len(resolved))
	for i, ent := range resolved {
		if vals[i] == nil {
			// entry evicted behind our back: lazy cleanup
			if err := e.indexRemove(ctx, setKey, ent.ID); err != nil {
				return nil, err
			}
			e.reg.UnregisterID(ent.ID)
			e.hooks.StaleDropped(setKey, ent.ID)
			continue
		}
		live = append(live, liveEntry{id: ent.ID, key: ent.Key, value: vals[i]})
	}
	return live, nil
}

func (e *engine) multiGet(ctx context.Context, keys []string) ([]any, error) {
	if e.caps.MultiGet {
		return e.mg.MultiGet(ctx, keys)
	}
	return e.lock.MGet(ctx, keys)
}

// put is best-effort: a failed backend write costs an extra fetch on the
// next read, never caller-visible failure.
func (e *engine) put(ctx context.Context, key string, value any, ttl time.Duration) {
	if err := e.b.Put(ctx, key, value, ttl); err != nil {
		e.log.Warn("backend put failed", Fields{"key": key, "err": err})
	}
}

// indexAdd registers the cache key and records a membership. Lock timeouts
// and cancellation propagate; backend unavailability is advisory and the
// membership is corrected on the next mutation.
func (e *engine) indexAdd(ctx context.Context, setKey, cacheKey string) error {
	id := e.reg.Register(cacheKey)
	if err := e.idx.Add(ctx, setKey, id); err != nil {
		if isFatal(ctx, err) {
			return err
		}
		e.log.Warn("index add failed", Fields{"set": setKey, "id": id, "err": err})
	}
	return nil
}

func (e *engine) indexRemove(ctx context.Context, setKey string, id int64) error {
	if err := e.idx.Remove(ctx, setKey, id); err != nil {
		if isFatal(ctx, err) {
			return err
		}
		e.log.Warn("index remove failed", Fields{"set": setKey, "id": id, "err": err})
	}
	return nil
}

// associateList records one instance membership per element plus the type
// membership that marks the entry as a cached collection.
func (e *engine) associateList(ctx context.Context, cacheKey string, recs []Record) error {
	err := e.forEach(ctx, len(recs), func(ctx context.Context, i int) error {
		return e.indexAdd(ctx, InstanceSetKey(recs[i]), cacheKey)
	})
	if err != nil {
		return err
	}
	return e.indexAdd(ctx, TypeSetKey(recs[0].TypeTag()), cacheKey)
}

// forEach runs f over [0,n), in parallel with a bounded group once n exceeds
// the fanout threshold. Semantics are unchanged either way; per-item work
// must be independent.
func (e *engine) forEach(ctx context.Context, n int, f func(ctx context.Context, i int) error) error {
	if n <= e.fanout {
		for i := 0; i < n; i++ {
			if err := f(ctx, i); err != nil {
				return err
			}
		}
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0) * 2)
	for i := 0; i < n; i++ {
		g.Go(func() error { return f(gctx, i) })
	}
	return g.Wait()
}

// isFatal separates errors that must surface (lock timeout, cancellation)
// from backend unavailability, which the lazy-maintenance discipline absorbs.
func isFatal(ctx context.Context, err error) bool {
	return IsLockTimeout(err) || ctx.Err() != nil
}
