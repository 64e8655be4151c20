// Package codec serializes engine values for byte-oriented backends.
//
// A Value codec round-trips the full value shapes the engine stores: tagged
// records, record lists, reverse-index member sets, and opaque values. The
// shipped implementation is Envelope, which frames values through the wire
// format and delegates record bodies to a pluggable Body codec (msgpack by
// default; CBOR, JSON and protobuf are provided).
//
// Backends that store values in memory as Go values (e.g. backend/memory)
// need no codec at all.
package codec

// Value encodes/decodes engine values to []byte for storage.
type Value interface {
	Encode(v any) ([]byte, error)
	Decode(b []byte) (any, error)
}

// Body (de)serializes a single record body. Unmarshal fills the concrete
// record allocated by the envelope's type-tag constructor.
type Body interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(b []byte, into any) error
}
