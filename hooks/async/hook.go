// Package asynchook decouples hook sinks from engine hot paths: events are
// queued to a bounded channel and delivered by worker goroutines; a full
// queue drops events rather than blocking the cache.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{StaleDroppedEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	eng, _ := recache.New(recache.Options{
//	    Backend: b,
//	    Hooks:   hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"

	"github.com/yourorg/recache"
)

type Hooks struct {
	inner recache.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ recache.Hooks = (*Hooks)(nil)

func New(inner recache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) ReadFallback(k string, err error) { h.try(func() { h.inner.ReadFallback(k, err) }) }
func (h *Hooks) FlushSkipped(s string, err error) { h.try(func() { h.inner.FlushSkipped(s, err) }) }
func (h *Hooks) StaleDropped(s string, id int64)  { h.try(func() { h.inner.StaleDropped(s, id) }) }
func (h *Hooks) WriteThroughSkipped(k string)     { h.try(func() { h.inner.WriteThroughSkipped(k) }) }
