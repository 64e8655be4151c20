package codec

import (
	"testing"

	"github.com/yourorg/recache"
)

type account struct {
	ID   int    `json:"id" msgpack:"id"`
	Name string `json:"name" msgpack:"name"`
}

func (a *account) TypeTag() string { return "account" }
func (a *account) PrimaryKey() []recache.Field {
	return []recache.Field{{Name: "id", Value: a.ID}}
}

func newTestEnvelope(t *testing.T, body Body) *Envelope {
	t.Helper()
	return New(body).Register("account", func() recache.Record { return &account{} })
}

func TestEnvelopeRecordRoundTrip(t *testing.T) {
	bodies := map[string]Body{
		"msgpack": Msgpack{},
		"json":    JSON{},
		"cbor":    MustCBOR(false),
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			env := newTestEnvelope(t, body)
			in := &account{ID: 7, Name: "ada"}

			b, err := env.Encode(in)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			out, err := env.Decode(b)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			got, ok := out.(*account)
			if !ok || *got != *in {
				t.Fatalf("round trip = %#v", out)
			}
		})
	}
}

func TestEnvelopeListRoundTrip(t *testing.T) {
	env := newTestEnvelope(t, nil)
	in := []*account{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}

	b, err := env.Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := env.Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	recs, ok := out.([]recache.Record)
	if !ok || len(recs) != 2 {
		t.Fatalf("decoded list = %#v", out)
	}
	for i, r := range recs {
		got, ok := r.(*account)
		if !ok || *got != *in[i] {
			t.Fatalf("element %d = %#v", i, r)
		}
	}
}

func TestEnvelopeIDSetRoundTrip(t *testing.T) {
	env := newTestEnvelope(t, nil)
	in := []int64{3, 1, 4}

	b, err := env.Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := env.Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	ids, ok := out.([]int64)
	if !ok || len(ids) != 3 || ids[0] != 3 || ids[1] != 1 || ids[2] != 4 {
		t.Fatalf("decoded id set = %#v", out)
	}
}

func TestEnvelopeOpaqueRoundTrip(t *testing.T) {
	env := newTestEnvelope(t, nil)

	b, err := env.Encode(map[string]any{"count": int8(5)})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := env.Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	m, ok := out.(map[string]any)
	if !ok || len(m) != 1 {
		t.Fatalf("decoded opaque = %#v", out)
	}
}

func TestEnvelopeUnknownTag(t *testing.T) {
	env := newTestEnvelope(t, nil)
	in := &account{ID: 1, Name: "a"}
	b, err := env.Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	bare := New(nil) // no constructors registered
	if _, err := bare.Decode(b); err == nil {
		t.Fatalf("Decode should fail for unregistered tag")
	}
}

func TestEnvelopeDuplicateTagPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on duplicate tag")
		}
	}()
	newTestEnvelope(t, nil).Register("account", func() recache.Record { return &account{} })
}

func TestLimitDecode(t *testing.T) {
	env := newTestEnvelope(t, nil)
	lim := Limit{Inner: env, MaxDecode: 4}

	b, err := lim.Encode(&account{ID: 1, Name: "long-enough"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := lim.Decode(b); err == nil {
		t.Fatalf("Decode should reject oversized payload")
	}
	if _, err := (Limit{Inner: env}).Decode(b); err != nil {
		t.Fatalf("unlimited Decode: %v", err)
	}
}
