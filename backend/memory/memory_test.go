package memory

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/yourorg/recache/backend"
)

func TestConformance(t *testing.T) {
	ctx := context.Background()
	s := New()

	caps := backend.Resolve(s)
	if !caps.Sets || !caps.MultiGet {
		t.Fatalf("conformance backend must expose all capabilities, got %+v", caps)
	}

	t.Run("values", func(t *testing.T) {
		if _, ok, err := s.Get(ctx, "k"); ok || err != nil {
			t.Fatalf("miss = ok=%v err=%v", ok, err)
		}
		if err := s.Put(ctx, "k", "v", time.Minute); err != nil {
			t.Fatalf("Put: %v", err)
		}
		if v, ok, _ := s.Get(ctx, "k"); !ok || v != any("v") {
			t.Fatalf("Get = %v, %v", v, ok)
		}
		if err := s.Delete(ctx, "k"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, ok, _ := s.Get(ctx, "k"); ok {
			t.Fatalf("value survived delete")
		}
		// deleting an absent key is not an error
		if err := s.Delete(ctx, "k"); err != nil {
			t.Fatalf("Delete absent: %v", err)
		}
	})

	t.Run("multiget", func(t *testing.T) {
		_ = s.Put(ctx, "a", 1, 0)
		_ = s.Put(ctx, "c", 3, 0)
		got, err := s.MultiGet(ctx, []string{"a", "b", "c"})
		if err != nil {
			t.Fatalf("MultiGet: %v", err)
		}
		if len(got) != 3 || got[0] != any(1) || got[1] != nil || got[2] != any(3) {
			t.Fatalf("MultiGet = %#v", got)
		}
	})

	t.Run("sets", func(t *testing.T) {
		key := "__set:user:1"
		if _, ok, err := s.SetMembers(ctx, key); ok || err != nil {
			t.Fatalf("absent set = ok=%v err=%v", ok, err)
		}
		for _, id := range []int64{5, 2, 5} {
			if err := s.SetAdd(ctx, key, id); err != nil {
				t.Fatalf("SetAdd: %v", err)
			}
		}
		ids, ok, err := s.SetMembers(ctx, key)
		if err != nil || !ok {
			t.Fatalf("SetMembers: ok=%v err=%v", ok, err)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		if len(ids) != 2 || ids[0] != 2 || ids[1] != 5 {
			t.Fatalf("SetMembers = %v", ids)
		}

		if err := s.SetRemove(ctx, key, 2); err != nil {
			t.Fatalf("SetRemove: %v", err)
		}
		if err := s.SetRemove(ctx, key, 5); err != nil {
			t.Fatalf("SetRemove: %v", err)
		}
		if _, ok, _ := s.SetMembers(ctx, key); ok {
			t.Fatalf("set should be absent after removing every member")
		}
	})
}
