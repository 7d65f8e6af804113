package db

import (
	"strconv"
	"testing"

	"github.com/Borislavv/go-ash-storage/internal/cache/db/model"
	"github.com/stretchr/testify/require"
)

func set(m *Map, e *model.Entry) *model.Entry {
	return m.Set(e.Key().Value(), e)
}

// TestMap_SetGetRemove keeps the global length in sync.
func TestMap_SetGetRemove(t *testing.T) {
	m := NewMap()

	for i := 0; i < 100; i++ {
		set(m, entry("p."+strconv.Itoa(i), i))
	}
	require.Equal(t, int64(100), m.Len())

	e := entry("p.1", "replaced")
	require.NotNil(t, set(m, e))
	require.Equal(t, int64(100), m.Len())

	got, ok := m.Get(e.Key().Value())
	require.True(t, ok)
	require.Same(t, e, got)

	_, hit := m.Remove(e.Key().Value())
	require.True(t, hit)
	require.Equal(t, int64(99), m.Len())
}

// TestMap_RemoveIf only removes the expected entry.
func TestMap_RemoveIf(t *testing.T) {
	m := NewMap()
	stale, fresh := entry("a", 1), entry("a", 2)
	set(m, stale)
	set(m, fresh)

	require.False(t, m.RemoveIf(stale.Key().Value(), stale))
	require.True(t, m.RemoveIf(fresh.Key().Value(), fresh))
	require.Equal(t, int64(0), m.Len())
}

// TestMap_RemoveWhere removes a subtree across shards.
func TestMap_RemoveWhere(t *testing.T) {
	m := NewMap()
	for i := 0; i < 50; i++ {
		set(m, entry("tree."+strconv.Itoa(i), i))
		set(m, entry("other."+strconv.Itoa(i), i))
	}

	removed := m.RemoveWhere(func(e *model.Entry) bool { return e.IsUnder("tree") })
	require.Len(t, removed, 50)
	require.Equal(t, int64(50), m.Len())
}

// TestMap_Clear wipes everything.
func TestMap_Clear(t *testing.T) {
	m := NewMap()
	for i := 0; i < 50; i++ {
		set(m, entry(strconv.Itoa(i), i))
	}

	require.Len(t, m.Clear(), 50)
	require.Equal(t, int64(0), m.Len())
}
