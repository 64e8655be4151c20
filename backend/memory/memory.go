// Package memory is the in-process conformance backend: one keyed table for
// values, one multi-valued table for sets, all optional capabilities native.
// TTL is accepted and ignored. Intended for tests and single-process use.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/yourorg/recache/backend"
)

type Store struct {
	mu     sync.RWMutex
	values map[string]any
	sets   map[string]map[int64]struct{}
}

var (
	_ backend.Backend     = (*Store)(nil)
	_ backend.SetStore    = (*Store)(nil)
	_ backend.MultiGetter = (*Store)(nil)
)

func New() *Store {
	return &Store{
		values: make(map[string]any),
		sets:   make(map[string]map[int64]struct{}),
	}
}

func (s *Store) Get(_ context.Context, key string) (any, bool, error) {
	s.mu.RLock()
	v, ok := s.values[key]
	s.mu.RUnlock()
	return v, ok, nil
}

func (s *Store) Put(_ context.Context, key string, value any, _ time.Duration) error {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
	return nil
}

func (s *Store) Close(context.Context) error { return nil }

func (s *Store) MultiGet(_ context.Context, keys []string) ([]any, error) {
	out := make([]any, len(keys))
	s.mu.RLock()
	for i, k := range keys {
		if v, ok := s.values[k]; ok {
			out[i] = v
		}
	}
	s.mu.RUnlock()
	return out, nil
}

func (s *Store) SetAdd(_ context.Context, key string, member int64) error {
	s.mu.Lock()
	set, ok := s.sets[key]
	if !ok {
		set = make(map[int64]struct{})
		s.sets[key] = set
	}
	set[member] = struct{}{}
	s.mu.Unlock()
	return nil
}

func (s *Store) SetRemove(_ context.Context, key string, member int64) error {
	s.mu.Lock()
	if set, ok := s.sets[key]; ok {
		delete(set, member)
		if len(set) == 0 {
			delete(s.sets, key)
		}
	}
	s.mu.Unlock()
	return nil
}

func (s *Store) SetMembers(_ context.Context, key string) ([]int64, bool, error) {
	s.mu.RLock()
	set, ok := s.sets[key]
	if !ok || len(set) == 0 {
		s.mu.RUnlock()
		return nil, false, nil
	}
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	s.mu.RUnlock()
	return out, true, nil
}

// Len reports the number of stored values; handy in tests.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
