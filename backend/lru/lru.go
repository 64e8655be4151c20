// Package lru adapts hashicorp/golang-lru's expirable LRU as a plain
// recache backend: bounded entries, per-store TTL, no native sets.
package lru

import (
	"context"
	"errors"
	"time"

	expirable "github.com/hashicorp/golang-lru/v2/expirable"

	be "github.com/yourorg/recache/backend"
	"github.com/yourorg/recache/codec"
)

type Backend struct {
	c     *expirable.LRU[string, []byte]
	codec codec.Value
}

var _ be.Backend = (*Backend)(nil)

type Config struct {
	Codec codec.Value
	Size  int // maximum entries; 0 = unlimited
	// TTL applies store-wide; the engine's per-entry TTL is ignored, the
	// same trade BigCache makes with its LifeWindow.
	TTL time.Duration
}

func New(cfg Config) (*Backend, error) {
	if cfg.Codec == nil {
		return nil, errors.New("lru backend: nil codec")
	}
	return &Backend{
		c:     expirable.NewLRU[string, []byte](cfg.Size, nil, cfg.TTL),
		codec: cfg.Codec,
	}, nil
}

func (p *Backend) Get(_ context.Context, key string) (any, bool, error) {
	b, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	v, err := p.codec.Decode(b)
	if err != nil {
		p.c.Remove(key) // self-heal corrupt
		return nil, false, nil
	}
	return v, true, nil
}

func (p *Backend) Put(_ context.Context, key string, value any, _ time.Duration) error {
	b, err := p.codec.Encode(value)
	if err != nil {
		return err
	}
	p.c.Add(key, b)
	return nil
}

func (p *Backend) Delete(_ context.Context, key string) error {
	p.c.Remove(key)
	return nil
}

func (p *Backend) Close(context.Context) error { return nil }
