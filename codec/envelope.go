package codec

import (
	"fmt"

	"github.com/yourorg/recache"
	"github.com/yourorg/recache/internal/wire"
)

// Envelope is the canonical Value codec. Records and record lists are framed
// with their type tags so decoding can allocate the right concrete type via
// registered constructors; member sets and opaque values use dedicated frame
// kinds. The zero value is not ready to use; construct with New.
type Envelope struct {
	body  Body
	ctors map[string]func() recache.Record
}

var _ Value = (*Envelope)(nil)

// New builds an Envelope around body. A nil body defaults to Msgpack.
func New(body Body) *Envelope {
	if body == nil {
		body = Msgpack{}
	}
	return &Envelope{body: body, ctors: make(map[string]func() recache.Record)}
}

// Register binds a type tag to a constructor for its concrete record type,
// e.g. Register("user", func() recache.Record { return &User{} }).
// It panics on duplicate tags; registration happens at setup time.
func (e *Envelope) Register(tag string, ctor func() recache.Record) *Envelope {
	if _, dup := e.ctors[tag]; dup {
		panic(fmt.Sprintf("codec: type tag %q already registered", tag))
	}
	e.ctors[tag] = ctor
	return e
}

func (e *Envelope) Encode(v any) ([]byte, error) {
	if ids, ok := v.([]int64); ok {
		return wire.EncodeIDSet(ids), nil
	}
	if r, ok := v.(recache.Record); ok {
		body, err := e.body.Marshal(r)
		if err != nil {
			return nil, err
		}
		return wire.EncodeRecord(wire.Item{Tag: r.TypeTag(), Body: body})
	}
	if recs, ok := recache.RecordsOf(v); ok {
		items := make([]wire.Item, 0, len(recs))
		for _, r := range recs {
			body, err := e.body.Marshal(r)
			if err != nil {
				return nil, err
			}
			items = append(items, wire.Item{Tag: r.TypeTag(), Body: body})
		}
		return wire.EncodeList(items)
	}
	body, err := e.body.Marshal(v)
	if err != nil {
		return nil, err
	}
	return wire.EncodeOpaque(body), nil
}

func (e *Envelope) Decode(b []byte) (any, error) {
	kind, err := wire.Kind(b)
	if err != nil {
		return nil, err
	}
	switch kind {
	case wire.KindRecord:
		it, err := wire.DecodeRecord(b)
		if err != nil {
			return nil, err
		}
		return e.decodeItem(it)
	case wire.KindList:
		items, err := wire.DecodeList(b)
		if err != nil {
			return nil, err
		}
		recs := make([]recache.Record, 0, len(items))
		for _, it := range items {
			r, err := e.decodeItem(it)
			if err != nil {
				return nil, err
			}
			recs = append(recs, r)
		}
		return recs, nil
	case wire.KindIDSet:
		return wire.DecodeIDSet(b)
	default:
		body, err := wire.DecodeOpaque(b)
		if err != nil {
			return nil, err
		}
		var v any
		if err := e.body.Unmarshal(body, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

func (e *Envelope) decodeItem(it wire.Item) (recache.Record, error) {
	ctor, ok := e.ctors[it.Tag]
	if !ok {
		return nil, fmt.Errorf("codec: no constructor registered for type tag %q", it.Tag)
	}
	r := ctor()
	if err := e.body.Unmarshal(it.Body, r); err != nil {
		return nil, err
	}
	return r, nil
}
