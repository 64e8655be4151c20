package recache

import (
	"strings"
	"testing"
)

func TestJSONKeyerDeterministic(t *testing.T) {
	k := JSONKeyer{}

	a, err := k.CacheKey("find_user", map[string]any{"id": 5, "active": true})
	if err != nil {
		t.Fatalf("CacheKey: %v", err)
	}
	b, err := k.CacheKey("find_user", map[string]any{"active": true, "id": 5})
	if err != nil {
		t.Fatalf("CacheKey: %v", err)
	}
	if a != b {
		t.Fatalf("logically equal params derived different keys: %q vs %q", a, b)
	}
	if !strings.HasPrefix(a, "find_user:") {
		t.Fatalf("derived key %q lacks logical-key prefix", a)
	}
}

func TestJSONKeyerEmptyParams(t *testing.T) {
	k := JSONKeyer{}
	for _, params := range []map[string]any{nil, {}} {
		got, err := k.CacheKey("all_users", params)
		if err != nil || got != "all_users" {
			t.Fatalf("CacheKey(%v) = %q, %v", params, got, err)
		}
	}
}

func TestJSONKeyerUnencodableParam(t *testing.T) {
	if _, err := (JSONKeyer{}).CacheKey("k", map[string]any{"ch": make(chan int)}); err == nil {
		t.Fatalf("expected error for unencodable param")
	}
}

func TestDistinctParamsDistinctKeys(t *testing.T) {
	k := JSONKeyer{}
	a, _ := k.CacheKey("find_user", map[string]any{"id": 1})
	b, _ := k.CacheKey("find_user", map[string]any{"id": 2})
	if a == b {
		t.Fatalf("distinct params collided on %q", a)
	}
}
