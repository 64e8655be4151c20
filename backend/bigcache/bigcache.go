// Package bigcache adapts allegro/bigcache as a plain recache backend. It
// has no native sets or multi-get, so the engine serializes reverse-index
// mutations through the partitioned set lock. Per-entry TTL is unsupported;
// the global LifeWindow applies.
package bigcache

import (
	"context"
	"errors"
	"time"

	bc "github.com/allegro/bigcache/v3"

	be "github.com/yourorg/recache/backend"
	"github.com/yourorg/recache/codec"
)

type Backend struct {
	c     *bc.BigCache
	codec codec.Value
}

var _ be.Backend = (*Backend)(nil)

type Config struct {
	Codec              codec.Value
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(cfg Config) (*Backend, error) {
	if cfg.Codec == nil {
		return nil, errors.New("bigcache backend: nil codec")
	}
	conf := bc.DefaultConfig(cfg.LifeWindow)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.NewBigCache(conf)
	if err != nil {
		return nil, err
	}
	return &Backend{c: c, codec: cfg.Codec}, nil
}

func (p *Backend) Get(_ context.Context, key string) (any, bool, error) {
	b, err := p.c.Get(key)
	if err == bc.ErrEntryNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	v, err := p.codec.Decode(b)
	if err != nil {
		_ = p.c.Delete(key) // self-heal corrupt
		return nil, false, nil
	}
	return v, true, nil
}

func (p *Backend) Put(_ context.Context, key string, value any, _ time.Duration) error {
	b, err := p.codec.Encode(value)
	if err != nil {
		return err
	}
	return p.c.Set(key, b)
}

func (p *Backend) Delete(_ context.Context, key string) error {
	if err := p.c.Delete(key); err != nil && err != bc.ErrEntryNotFound {
		return err
	}
	return nil
}

func (p *Backend) Close(_ context.Context) error {
	return p.c.Close()
}
