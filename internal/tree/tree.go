// Package tree implements dot-path access to nested map[string]any documents.
package tree

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

const Separator = "."

// Split breaks a path into its segments. The empty path has no segments.
func Split(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, Separator)
}

// Join concatenates non-empty path parts with the separator.
func Join(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, Separator)
}

// Get returns the value at path. The empty path addresses the root itself.
func Get(root map[string]any, path string) (any, bool) {
	if path == "" {
		return root, true
	}
	var cur any = root
	for _, seg := range Split(path) {
		node, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = node[seg]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// Set stores v at path, creating intermediate sections and replacing
// non-section values found on the way. Setting the empty path is refused.
func Set(root map[string]any, path string, v any) bool {
	segs := Split(path)
	if len(segs) == 0 {
		return false
	}
	node := root
	for _, seg := range segs[:len(segs)-1] {
		next, ok := node[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			node[seg] = next
		}
		node = next
	}
	node[segs[len(segs)-1]] = v
	return true
}

// Delete removes the value at path and prunes sections left empty by the removal.
func Delete(root map[string]any, path string) bool {
	segs := Split(path)
	if len(segs) == 0 {
		return false
	}
	return deleteIn(root, segs)
}

func deleteIn(node map[string]any, segs []string) bool {
	if len(segs) == 1 {
		if _, ok := node[segs[0]]; !ok {
			return false
		}
		delete(node, segs[0])
		return true
	}
	child, ok := node[segs[0]].(map[string]any)
	if !ok {
		return false
	}
	if !deleteIn(child, segs[1:]) {
		return false
	}
	if len(child) == 0 {
		delete(node, segs[0])
	}
	return true
}

// Keys returns the sorted direct child keys of the section at path.
// A missing path or a non-section value has no keys.
func Keys(root map[string]any, path string) []string {
	v, ok := Get(root, path)
	if !ok {
		return nil
	}
	node, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return slices.Sorted(maps.Keys(node))
}

// Clone deep-copies sections and lists so callers cannot mutate the document.
func Clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, el := range t {
			out[k] = Clone(el)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, el := range t {
			out[i] = Clone(el)
		}
		return out
	default:
		return v
	}
}

// Normalize rewrites decoder output into the shapes used by the tree:
// map[any]any sections become map[string]any, typed slices become []any.
func Normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, el := range t {
			t[k] = Normalize(el)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, el := range t {
			out[fmt.Sprint(k)] = Normalize(el)
		}
		return out
	case []any:
		for i, el := range t {
			t[i] = Normalize(el)
		}
		return t
	default:
		return v
	}
}

// Flatten walks a document and calls fn for every leaf with its full path.
// Lists are leaves.
func Flatten(root map[string]any, fn func(path string, v any)) {
	flatten("", root, fn)
}

func flatten(prefix string, node map[string]any, fn func(path string, v any)) {
	for _, k := range slices.Sorted(maps.Keys(node)) {
		p := Join(prefix, k)
		if child, ok := node[k].(map[string]any); ok {
			flatten(p, child, fn)
			continue
		}
		fn(p, node[k])
	}
}

// Children returns the sorted distinct direct child names of path found among
// the full paths of its descendants.
func Children(path string, descendants []string) []string {
	prefix := ""
	if path != "" {
		prefix = path + Separator
	}
	names := make(map[string]struct{}, len(descendants))
	for _, d := range descendants {
		if !strings.HasPrefix(d, prefix) {
			continue
		}
		if name, _, _ := strings.Cut(d[len(prefix):], Separator); name != "" {
			names[name] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(names))
}

// Section assembles a section from values keyed by full paths beneath base.
func Section(base string, leaves map[string]any) map[string]any {
	prefix := ""
	if base != "" {
		prefix = base + Separator
	}
	out := make(map[string]any)
	for path, v := range leaves {
		if sub, ok := strings.CutPrefix(path, prefix); ok {
			Set(out, sub, v)
		}
	}
	return out
}
