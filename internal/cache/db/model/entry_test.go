package model

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestNewEntry keeps path, value and dynamic type.
func TestNewEntry(t *testing.T) {
	e := NewEntry(NewKey("a.b"), "a.b", NewValue(int64(7)))

	require.Equal(t, "a.b", e.Path())
	require.Equal(t, int64(7), e.Value().Any())
	require.Equal(t, reflect.TypeFor[int64](), e.Value().Type())
	require.False(t, e.Value().IsNil())
	require.Nil(t, e.Expiry())
	require.Positive(t, e.CachedAt())
}

// TestEntry_IsUnder matches the path itself and dotted descendants only.
func TestEntry_IsUnder(t *testing.T) {
	e := NewEntry(NewKey("players.steve.level"), "players.steve.level", NewValue(1))

	require.True(t, e.IsUnder(""))
	require.True(t, e.IsUnder("players"))
	require.True(t, e.IsUnder("players.steve"))
	require.True(t, e.IsUnder("players.steve.level"))
	require.False(t, e.IsUnder("players.ste"))
	require.False(t, e.IsUnder("players.steve.level.x"))
	require.False(t, e.IsUnder("player"))
}

// TestEntry_Key_Nil is nil-safe.
func TestEntry_Key_Nil(t *testing.T) {
	var e *Entry
	require.Nil(t, e.Key())
}

// TestValue_Nil reports a nil value.
func TestValue_Nil(t *testing.T) {
	v := NewValue(nil)
	require.True(t, v.IsNil())
	require.Nil(t, v.Type())
}
