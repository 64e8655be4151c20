package recache

import (
	"encoding/json"
	"fmt"
)

// Keyer derives the backend cache key from a logical key and a caller
// parameter map. Implementations must be pure and deterministic for
// logically equal params regardless of construction order.
type Keyer interface {
	CacheKey(key string, params map[string]any) (string, error)
}

// JSONKeyer is the canonical Keyer: it emits "<key>:<json>" where the JSON
// encoding of params is order-independent (encoding/json writes map keys in
// sorted order). Empty params collapse to the bare key.
type JSONKeyer struct{}

var _ Keyer = JSONKeyer{}

func (JSONKeyer) CacheKey(key string, params map[string]any) (string, error) {
	if len(params) == 0 {
		return key, nil
	}
	b, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("recache: derive key %q: %w", key, err)
	}
	return key + ":" + string(b), nil
}
