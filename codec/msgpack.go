package codec

import "github.com/vmihailenco/msgpack/v5"

// Msgpack is the default Body codec. The zero value is ready to use.
//
// Msgpack is compact and fast; be mindful of struct tag differences vs JSON.
// Use `msgpack:"fieldName"` tags if you need explicit control.
type Msgpack struct{}

func (Msgpack) Marshal(v any) ([]byte, error)      { return msgpack.Marshal(v) }
func (Msgpack) Unmarshal(b []byte, into any) error { return msgpack.Unmarshal(b, into) }
