package model

import (
	"github.com/stretchr/testify/require"
	"testing"
)

// TestNewKey creates a key from a path.
func TestNewKey(t *testing.T) {
	key := NewKey("players.steve.level")
	require.NotNil(t, key)
	require.Greater(t, key.Value(), uint64(0), "key value should be non-zero")
}

// TestKey_Value is stable for the same path.
func TestKey_Value(t *testing.T) {
	require.Equal(t, NewKey("a.b").Value(), NewKey("a.b").Value())
}

// TestKey_IsTheSame verifies key comparison.
func TestKey_IsTheSame(t *testing.T) {
	key1 := NewKey("a.b")
	key2 := NewKey("a.b")
	key3 := NewKey("a.c")

	require.True(t, key1.IsTheSame(key2), "same paths should produce same keys")
	require.False(t, key1.IsTheSame(key3), "different paths should produce different keys")
	require.True(t, key1.IsTheSame(key1))
}
