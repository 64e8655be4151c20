package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/yourorg/recache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	StaleDroppedEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

// Hooks logs engine events through slog. Stale-membership cleanup can fire
// per id during a large flush, so it is sampled.
type Hooks struct {
	l    *slog.Logger
	opts Options

	staleCtr atomic.Uint64
}

var _ recache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) ReadFallback(cacheKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("recache.read_fallback",
		"key", h.redact(cacheKey),
		"err", err)
}

func (h *Hooks) FlushSkipped(setKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("recache.flush_skipped",
		"set", setKey,
		"err", err)
}

func (h *Hooks) StaleDropped(setKey string, id int64) {
	if h.l == nil || !sample(h.opts.StaleDroppedEvery, &h.staleCtr) {
		return
	}
	h.l.Debug("recache.stale_dropped",
		"set", setKey,
		"id", id)
}

func (h *Hooks) WriteThroughSkipped(cacheKey string) {
	if h.l == nil {
		return
	}
	h.l.Debug("recache.write_through_skipped",
		"key", h.redact(cacheKey))
}
