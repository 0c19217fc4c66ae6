package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

func TestNewConfigStore_Seeded(t *testing.T) {
	seed := map[string]any{"llm.model": "claude-3-haiku-20240307"}
	store := NewConfigStore(seed)

	seed["llm.model"] = "mutated"
	assert.Equal(t, "claude-3-haiku-20240307", store.GetString("llm.model"))
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("retrieval.k", 4))
	require.NoError(t, store.Set("retrieval.k", 6))

	val, ok := store.Get("retrieval.k")
	assert.True(t, ok)
	assert.Equal(t, 6, val)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_Set_EmptyKey(t *testing.T) {
	err := NewConfigStore().Set("  ", "x")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStore(map[string]any{
		"s":       "text",
		"i":       3,
		"i64":     int64(7),
		"whole":   float64(12),
		"frac":    0.2,
		"b":       true,
		"strs":    []string{"a", "b"},
		"mixed":   []any{"a", 1, "c"},
		"notlist": "x",
	})

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"string", store.GetString("s"), "text"},
		{"string wrong type", store.GetString("i"), ""},
		{"int", store.GetInt("i"), 3},
		{"int64", store.GetInt("i64"), 7},
		{"whole float as int", store.GetInt("whole"), 12},
		{"fractional float as int", store.GetInt("frac"), 0},
		{"float", store.GetFloat("frac"), 0.2},
		{"int as float", store.GetFloat("i"), 3.0},
		{"missing float", store.GetFloat("nope"), 0.0},
		{"bool", store.GetBool("b"), true},
		{"bool wrong type", store.GetBool("s"), false},
		{"string slice", store.GetStringSlice("strs"), []string{"a", "b"}},
		{"mixed slice", store.GetStringSlice("mixed"), []string{"a", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}

	assert.Nil(t, store.GetStringSlice("notlist"))
}

func TestConfigStore_Keys(t *testing.T) {
	store := NewConfigStore(map[string]any{"b": 1, "a": 2})
	assert.Equal(t, []string{"a", "b"}, store.Keys())
}

func TestConfigStore_SaveLoadNoop(t *testing.T) {
	store := NewConfigStore()
	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
}

func TestConfigStore_ConcurrentAccess(t *testing.T) {
	store := NewConfigStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("k", n)
		}(i)
		go func() {
			defer wg.Done()
			_ = store.GetInt("k")
		}()
	}
	wg.Wait()
	_, ok := store.Get("k")
	assert.True(t, ok)
}
