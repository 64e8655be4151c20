package setlock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// kvStore is a plain key-value fake with no native set support.
type kvStore struct {
	mu sync.RWMutex
	m  map[string]any
}

func newKVStore() *kvStore { return &kvStore{m: make(map[string]any)} }

func (s *kvStore) Get(_ context.Context, key string) (any, bool, error) {
	s.mu.RLock()
	v, ok := s.m[key]
	s.mu.RUnlock()
	return v, ok, nil
}

func (s *kvStore) Put(_ context.Context, key string, value any, _ time.Duration) error {
	s.mu.Lock()
	s.m[key] = value
	s.mu.Unlock()
	return nil
}

func (s *kvStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
	return nil
}

func (s *kvStore) Close(context.Context) error { return nil }

func TestSetAddIdempotentAndMembers(t *testing.T) {
	ctx := context.Background()
	l := New(newKVStore(), Config{})

	for i := 0; i < 3; i++ {
		if err := l.SetAdd(ctx, "__set:user:1", 42); err != nil {
			t.Fatalf("SetAdd: %v", err)
		}
	}
	ids, ok, err := l.SetMembers(ctx, "__set:user:1")
	if err != nil || !ok || len(ids) != 1 || ids[0] != 42 {
		t.Fatalf("SetMembers = %v, %v, %v", ids, ok, err)
	}
}

func TestSetRemoveLastMemberDeletesKey(t *testing.T) {
	ctx := context.Background()
	kv := newKVStore()
	l := New(kv, Config{})

	if err := l.SetAdd(ctx, "s", 1); err != nil {
		t.Fatalf("SetAdd: %v", err)
	}
	if err := l.SetAdd(ctx, "s", 2); err != nil {
		t.Fatalf("SetAdd: %v", err)
	}
	if err := l.SetRemove(ctx, "s", 1); err != nil {
		t.Fatalf("SetRemove: %v", err)
	}
	if ids, ok, _ := l.SetMembers(ctx, "s"); !ok || len(ids) != 1 || ids[0] != 2 {
		t.Fatalf("after first remove: %v, %v", ids, ok)
	}

	if err := l.SetRemove(ctx, "s", 2); err != nil {
		t.Fatalf("SetRemove last: %v", err)
	}
	if _, ok, _ := l.SetMembers(ctx, "s"); ok {
		t.Fatalf("set should report absent after last member removed")
	}
	// removing from an absent set is a no-op
	if err := l.SetRemove(ctx, "s", 2); err != nil {
		t.Fatalf("SetRemove absent: %v", err)
	}
}

// Invariant: N concurrent adds of distinct members leave exactly N members.
func TestSetAddConcurrent(t *testing.T) {
	ctx := context.Background()
	l := New(newKVStore(), Config{})

	const n = 100
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			if err := l.SetAdd(ctx, "hot", int64(i)); err != nil {
				t.Errorf("SetAdd(%d): %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	ids, ok, err := l.SetMembers(ctx, "hot")
	if err != nil || !ok {
		t.Fatalf("SetMembers: ok=%v err=%v", ok, err)
	}
	if len(ids) != n {
		t.Fatalf("set has %d members, want %d", len(ids), n)
	}
	seen := make(map[int64]struct{}, n)
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate member %d", id)
		}
		seen[id] = struct{}{}
	}
}

func TestMGet(t *testing.T) {
	ctx := context.Background()
	kv := newKVStore()
	l := New(kv, Config{})

	_ = kv.Put(ctx, "a", "va", 0)
	_ = kv.Put(ctx, "c", "vc", 0)

	got, err := l.MGet(ctx, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("MGet: %v", err)
	}
	if len(got) != 3 || got[0] != any("va") || got[1] != nil || got[2] != any("vc") {
		t.Fatalf("MGet = %#v", got)
	}
}

// A held partition exhausts the retry budget and surfaces a lock timeout.
func TestLockTimeout(t *testing.T) {
	ctx := context.Background()
	l := New(newKVStore(), Config{Retries: 3, Backoff: time.Millisecond})

	key := "contended"
	p := l.partition(key)
	l.parts[p].Lock()
	defer l.parts[p].Unlock()

	err := l.SetAdd(ctx, key, 1)
	var lt *LockTimeoutError
	if !errors.As(err, &lt) {
		t.Fatalf("expected LockTimeoutError, got %v", err)
	}
	if lt.Partition != p || lt.Attempts != 3 {
		t.Fatalf("unexpected timeout detail: %+v", lt)
	}
}

// Cancellation interrupts acquisition between attempts.
func TestAcquireHonorsContext(t *testing.T) {
	l := New(newKVStore(), Config{Retries: 1000, Backoff: time.Millisecond})

	key := "held"
	p := l.partition(key)
	l.parts[p].Lock()
	defer l.parts[p].Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.SetAdd(ctx, key, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
