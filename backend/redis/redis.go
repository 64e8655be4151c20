// Package redis adapts a go-redis client as a recache backend with native
// set and multi-get capabilities: reverse-index mutations map to SADD/SREM
// and get single-operation atomicity on the server, so no in-process lock
// table is involved. Set members are registry identifiers, which are
// process-local (see package registry).
package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	be "github.com/yourorg/recache/backend"
	"github.com/yourorg/recache/codec"
)

var (
	ErrNilClient = errors.New("redis backend: nil client")
	ErrNilCodec  = errors.New("redis backend: nil codec")
)

type Redis struct {
	rdb         goredis.UniversalClient
	codec       codec.Value
	closeClient bool
}

var (
	_ be.Backend     = (*Redis)(nil)
	_ be.SetStore    = (*Redis)(nil)
	_ be.MultiGetter = (*Redis)(nil)
)

type Config struct {
	Client goredis.UniversalClient
	// Codec round-trips engine values through bytes (see codec.Envelope).
	Codec codec.Value
	// CloseClient releases the client on Close; set true only if this
	// backend exclusively owns it.
	CloseClient bool
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	if cfg.Codec == nil {
		return nil, ErrNilCodec
	}
	return &Redis{rdb: cfg.Client, codec: cfg.Codec, closeClient: cfg.CloseClient}, nil
}

func (r *Redis) Get(ctx context.Context, key string) (any, bool, error) {
	b, err := r.rdb.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	v, err := r.codec.Decode(b)
	if err != nil {
		// self-heal: foreign or corrupt bytes become a miss
		_ = r.rdb.Del(ctx, key).Err()
		return nil, false, nil
	}
	return v, true, nil
}

func (r *Redis) Put(ctx context.Context, key string, value any, ttl time.Duration) error {
	b, err := r.codec.Encode(value)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = 0 // non-positive TTL means "no expiry"
	}
	return r.rdb.Set(ctx, key, b, ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, key).Err()
}

// Close releases the underlying client only when this backend owns it.
func (r *Redis) Close(context.Context) error {
	if r.closeClient {
		if err := r.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

func (r *Redis) SetAdd(ctx context.Context, key string, member int64) error {
	return r.rdb.SAdd(ctx, key, member).Err()
}

func (r *Redis) SetRemove(ctx context.Context, key string, member int64) error {
	return r.rdb.SRem(ctx, key, member).Err()
}

func (r *Redis) SetMembers(ctx context.Context, key string) ([]int64, bool, error) {
	vals, err := r.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, false, err
	}
	if len(vals) == 0 {
		return nil, false, nil
	}
	ids := make([]int64, 0, len(vals))
	for _, s := range vals {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, false, err
		}
		ids = append(ids, id)
	}
	return ids, true, nil
}

func (r *Redis) MultiGet(ctx context.Context, keys []string) ([]any, error) {
	raw, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]any, len(keys))
	for i, v := range raw {
		var b []byte
		switch vv := v.(type) {
		case nil:
			continue
		case string:
			b = []byte(vv)
		case []byte:
			b = vv
		default:
			continue
		}
		dec, err := r.codec.Decode(b)
		if err != nil {
			// leave the slot as a miss; Get will self-heal the entry
			continue
		}
		out[i] = dec
	}
	return out, nil
}
