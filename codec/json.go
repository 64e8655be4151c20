package codec

import "encoding/json"

// JSON is a Body codec using encoding/json. Handy when cached bodies should
// stay human-inspectable in the backing store.
type JSON struct{}

func (JSON) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSON) Unmarshal(b []byte, into any) error { return json.Unmarshal(b, into) }
