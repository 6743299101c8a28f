package cache

import (
	"encoding/json"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	t.Run("identical bodies produce identical keys", func(t *testing.T) {
		a := []byte(`{"model":"m","temperature":0.5,"messages":[{"role":"user","content":"hi"}],"session_id":"ignored-a"}`)
		b := []byte(`{"session_id":"ignored-b","messages":[{"role":"user","content":"hi"}],"temperature":0.5,"model":"m"}`)

		keyA, err := Key(a)
		if err != nil {
			t.Fatalf("Key(a) error: %v", err)
		}
		keyB, err := Key(b)
		if err != nil {
			t.Fatalf("Key(b) error: %v", err)
		}
		if keyA != keyB {
			t.Errorf("keys differ: %s vs %s, want equal (field order and ignored fields must not matter)", keyA, keyB)
		}
	})

	t.Run("array order changes the key", func(t *testing.T) {
		a := []byte(`{"model":"m","messages":[{"role":"user","content":"a"},{"role":"user","content":"b"}]}`)
		b := []byte(`{"model":"m","messages":[{"role":"user","content":"b"},{"role":"user","content":"a"}]}`)

		keyA, _ := Key(a)
		keyB, _ := Key(b)
		if keyA == keyB {
			t.Error("array reordering should change the key")
		}
	})

	t.Run("differing model changes the key", func(t *testing.T) {
		a := []byte(`{"model":"m1","messages":[]}`)
		b := []byte(`{"model":"m2","messages":[]}`)

		keyA, _ := Key(a)
		keyB, _ := Key(b)
		if keyA == keyB {
			t.Error("differing model should change the key")
		}
	})

	t.Run("null fields are dropped from the key", func(t *testing.T) {
		a := []byte(`{"model":"m","tool_choice":null}`)
		b := []byte(`{"model":"m"}`)

		keyA, _ := Key(a)
		keyB, _ := Key(b)
		if keyA != keyB {
			t.Error("a null field should be indistinguishable from an absent one")
		}
	})
}

func TestAdmit(t *testing.T) {
	cases := []struct {
		name        string
		ok          bool
		status      int
		hasToolCall bool
		want        bool
	}{
		{"success no tool call admits", true, 200, false, true},
		{"non-200 status rejected", true, 404, false, false},
		{"ok=false rejected", false, 200, false, false},
		{"tool call in first choice rejected", true, 200, true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Admit(tc.ok, tc.status, tc.hasToolCall); got != tc.want {
				t.Errorf("Admit(%v, %d, %v) = %v, want %v", tc.ok, tc.status, tc.hasToolCall, got, tc.want)
			}
		})
	}
}

func TestPromptCache_PutGet(t *testing.T) {
	t.Run("returns a clone, not the stored reference", func(t *testing.T) {
		c := NewPromptCache(PromptCacheOptions{MaxEntries: 10, TTL: time.Minute})
		now := time.Now()
		c.Put("key1", json.RawMessage(`{"text":"hello"}`), now)

		got, ok := c.Get("key1", now)
		if !ok {
			t.Fatal("expected a hit")
		}
		got.Body[2] = 'X' // mutate the returned clone

		again, ok := c.Get("key1", now)
		if !ok {
			t.Fatal("expected a second hit")
		}
		if string(again.Body) != `{"text":"hello"}` {
			t.Errorf("stored entry was mutated via returned clone: %s", again.Body)
		}
	})

	t.Run("miss for unknown key", func(t *testing.T) {
		c := NewPromptCache(PromptCacheOptions{})
		if _, ok := c.Get("missing", time.Now()); ok {
			t.Error("expected a miss")
		}
	})

	t.Run("entries expire after TTL and are lazily dropped", func(t *testing.T) {
		c := NewPromptCache(PromptCacheOptions{MaxEntries: 10, TTL: 100 * time.Millisecond})
		base := time.Now()
		c.Put("key1", json.RawMessage(`{}`), base)

		if _, ok := c.Get("key1", base.Add(50*time.Millisecond)); !ok {
			t.Error("expected a hit within TTL")
		}
		if _, ok := c.Get("key1", base.Add(150*time.Millisecond)); ok {
			t.Error("expected a miss after TTL expiry")
		}
		if c.Size() != 0 {
			t.Error("expired entry should be dropped from the index on lookup")
		}
	})

	t.Run("evicts least-recently-used entry past the size cap", func(t *testing.T) {
		c := NewPromptCache(PromptCacheOptions{MaxEntries: 2, TTL: time.Hour})
		now := time.Now()
		c.Put("a", json.RawMessage(`{}`), now)
		c.Put("b", json.RawMessage(`{}`), now)
		c.Get("a", now) // touch a, making b the least-recently-used
		c.Put("c", json.RawMessage(`{}`), now)

		if _, ok := c.Get("b", now); ok {
			t.Error("expected b to be evicted as least-recently-used")
		}
		if _, ok := c.Get("a", now); !ok {
			t.Error("expected a to survive eviction")
		}
		if _, ok := c.Get("c", now); !ok {
			t.Error("expected c to survive as the newest entry")
		}
	})
}
