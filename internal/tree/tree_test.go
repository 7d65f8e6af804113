package tree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSetGet creates intermediate sections.
func TestSetGet(t *testing.T) {
	root := map[string]any{}
	require.True(t, Set(root, "a.b.c", 1))

	v, ok := Get(root, "a.b.c")
	require.True(t, ok)
	require.Equal(t, 1, v)

	v, ok = Get(root, "a.b")
	require.True(t, ok)
	require.Equal(t, map[string]any{"c": 1}, v)

	_, ok = Get(root, "a.x")
	require.False(t, ok)

	_, ok = Get(root, "a.b.c.d")
	require.False(t, ok)
}

// TestSet_ReplacesLeafWithSection overwrites a value that stands in the way.
func TestSet_ReplacesLeafWithSection(t *testing.T) {
	root := map[string]any{"a": 5}
	require.True(t, Set(root, "a.b", 6))
	require.Equal(t, map[string]any{"a": map[string]any{"b": 6}}, root)

	require.False(t, Set(root, "", 1))
}

// TestDelete prunes empty sections.
func TestDelete(t *testing.T) {
	root := map[string]any{}
	Set(root, "a.b.c", 1)
	Set(root, "a.d", 2)

	require.True(t, Delete(root, "a.b.c"))
	require.Equal(t, map[string]any{"a": map[string]any{"d": 2}}, root)

	require.True(t, Delete(root, "a"))
	require.Empty(t, root)

	require.False(t, Delete(root, "missing.path"))
	require.False(t, Delete(root, ""))
}

// TestKeys lists direct children in order.
func TestKeys(t *testing.T) {
	root := map[string]any{}
	Set(root, "p.z", 1)
	Set(root, "p.a.b", 2)
	Set(root, "q", 3)

	require.Equal(t, []string{"a", "z"}, Keys(root, "p"))
	require.Equal(t, []string{"p", "q"}, Keys(root, ""))
	require.Nil(t, Keys(root, "q"))
	require.Nil(t, Keys(root, "nope"))
}

// TestClone does not share sections with the source.
func TestClone(t *testing.T) {
	src := map[string]any{"a": map[string]any{"b": []any{1, map[string]any{"c": 2}}}}
	cp := Clone(src).(map[string]any)

	cp["a"].(map[string]any)["b"].([]any)[1].(map[string]any)["c"] = 3
	v, _ := Get(src, "a.b")
	require.Equal(t, 2, v.([]any)[1].(map[string]any)["c"])
}

// TestNormalize converts any-keyed sections.
func TestNormalize(t *testing.T) {
	v := Normalize(map[any]any{"a": map[any]any{1: "x"}, "l": []any{map[any]any{"k": true}}})
	require.Equal(t, map[string]any{
		"a": map[string]any{"1": "x"},
		"l": []any{map[string]any{"k": true}},
	}, v)
}

// TestFlatten visits leaves with full paths.
func TestFlatten(t *testing.T) {
	root := map[string]any{}
	Set(root, "a.b", 1)
	Set(root, "a.c", []any{1, 2})
	Set(root, "d", "x")

	got := map[string]any{}
	Flatten(root, func(path string, v any) { got[path] = v })
	require.Equal(t, map[string]any{"a.b": 1, "a.c": []any{1, 2}, "d": "x"}, got)
}

// TestJoin skips empty parts.
func TestJoin(t *testing.T) {
	require.Equal(t, "a.b", Join("", "a", "", "b"))
	require.Equal(t, "", Join())
	require.Nil(t, Split(""))
}

// TestChildren keeps distinct direct children only.
func TestChildren(t *testing.T) {
	descendants := []string{"homes.base.x", "homes.base.y", "homes.work.x", "homesick", "other.a"}
	require.Equal(t, []string{"base", "work"}, Children("homes", descendants))
	require.Equal(t, []string{"x", "y"}, Children("homes.base", descendants))
	require.Equal(t, []string{"homes", "homesick", "other"}, Children("", descendants))
	require.Empty(t, Children("missing", descendants))
}

// TestSection rebuilds nested sections from flat leaves.
func TestSection(t *testing.T) {
	leaves := map[string]any{
		"homes.base.x":     10,
		"homes.base.world": "overworld",
		"other":            true,
	}
	require.Equal(t, map[string]any{
		"x":     10,
		"world": "overworld",
	}, Section("homes.base", leaves))
	require.Equal(t, map[string]any{
		"homes": map[string]any{"base": map[string]any{"x": 10, "world": "overworld"}},
		"other": true,
	}, Section("", leaves))
}
