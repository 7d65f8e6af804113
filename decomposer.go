package ashstorage

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// PathPlaceholder is substituted with a sub-path when fragments are composed under a base path.
const PathPlaceholder = "%path%"

// RetrieveFunc resolves one field of a recomposed object from its composed path.
type RetrieveFunc func(ctx context.Context, path string) *Future[any]

// Decomposer turns a T into path/value fragments and rebuilds it from storage.
type Decomposer[T any] struct {
	decompose func(v T, d *Decomposed)
	recompose func(c *Container, r *Recomposed[T])
}

// NewDecomposer builds a decomposer from its two halves. recompose may be nil for
// store-only types; retrieving them as T then fails with ErrNoRecomposer.
func NewDecomposer[T any](decompose func(v T, d *Decomposed), recompose func(c *Container, r *Recomposed[T])) *Decomposer[T] {
	return &Decomposer[T]{decompose: decompose, recompose: recompose}
}

// Fragment is one decomposed entry. Keyless fragments are list items with no sub-path.
type Fragment struct {
	Path    string
	Keyless bool
	Value   any
}

// Decomposed collects the fragments of one object in insertion order.
type Decomposed struct {
	entries []Fragment
}

// Add sets the value of a sub-path. Adding a sub-path twice keeps its first position.
func (d *Decomposed) Add(path string, v any) *Decomposed {
	for i := range d.entries {
		if !d.entries[i].Keyless && d.entries[i].Path == path {
			d.entries[i].Value = v
			return d
		}
	}
	d.entries = append(d.entries, Fragment{Path: path, Value: v})
	return d
}

// Append adds a keyless fragment.
func (d *Decomposed) Append(v any) *Decomposed {
	d.entries = append(d.entries, Fragment{Keyless: true, Value: v})
	return d
}

func (d *Decomposed) Entries() []Fragment { return d.entries }
func (d *Decomposed) Len() int            { return len(d.entries) }

type recomposeField struct {
	path     string
	retrieve RetrieveFunc
	resolved bool
	value    any
}

// Recomposed declares, in order, the fields needed to rebuild a T and the completion building it.
type Recomposed[T any] struct {
	fields   []recomposeField
	complete func(done Completed) (T, error)
}

// Field declares a sub-path resolved by retrieve. retrieve receives the composed path.
func (r *Recomposed[T]) Field(path string, retrieve RetrieveFunc) *Recomposed[T] {
	r.fields = append(r.fields, recomposeField{path: path, retrieve: retrieve})
	return r
}

// Resolved declares a sub-path whose value is already known.
func (r *Recomposed[T]) Resolved(path string, v any) *Recomposed[T] {
	r.fields = append(r.fields, recomposeField{path: path, resolved: true, value: v})
	return r
}

// OnComplete sets the function building T once every field is resolved.
func (r *Recomposed[T]) OnComplete(fn func(done Completed) (T, error)) *Recomposed[T] {
	r.complete = fn
	return r
}

// isAbsent reports whether every retrieved field came back empty: the object is not stored.
func (r *Recomposed[T]) isAbsent(values []any) bool {
	retrieved := 0
	for i, field := range r.fields {
		if field.resolved {
			continue
		}
		if values[i] != nil {
			return false
		}
		retrieved++
	}
	return retrieved > 0
}

// Completed holds the resolved field values keyed by sub-path.
type Completed struct {
	values map[string]any
	order  []string
}

// Get returns the value resolved for path, nil when the field was absent.
func (c Completed) Get(path string) any { return c.values[path] }

// Has reports whether path resolved to a non-nil value.
func (c Completed) Has(path string) bool { return c.values[path] != nil }

// Paths returns the declared sub-paths in declaration order.
func (c Completed) Paths() []string { return c.order }

func (c Completed) Len() int { return len(c.order) }

// Value returns the resolved value of path converted to V.
// An absent value yields the zero V and no error.
func Value[V any](done Completed, path string) (V, error) {
	return castAs[V](done.Get(path), path)
}

func (d *Decomposer[T]) canRecompose() bool { return d.recompose != nil }

func (d *Decomposer[T]) decomposeAny(v any) (*Decomposed, error) {
	t, ok := v.(T)
	if !ok {
		return nil, fmt.Errorf("%w: decompose %T as %T", ErrCastMismatch, v, *new(T))
	}
	out := &Decomposed{}
	d.decompose(t, out)
	return out, nil
}

// recomposeAny resolves the declared fields concurrently and completes T once all are in.
// Field futures are joined on a plain goroutine so a bounded scheduler never waits on itself.
func (d *Decomposer[T]) recomposeAny(ctx context.Context, c *Container, template string) *Future[any] {
	r := &Recomposed[T]{}
	d.recompose(c, r)
	if r.complete == nil {
		return Failed[any](fmt.Errorf("%w: %T declares no completion", ErrNoRecomposer, *new(T)))
	}

	values := make([]any, len(r.fields))
	g, gctx := errgroup.WithContext(ctx)
	for i, field := range r.fields {
		if field.resolved {
			values[i] = field.value
			continue
		}

		path := composePath(template, field.path)
		if v, ok := c.cache.Get(path); ok && !isRawTree(v.Any()) {
			values[i] = v.Any()
			continue
		}

		future := field.retrieve(gctx, path)
		g.Go(func() error {
			v, err := future.Wait(gctx)
			if err != nil {
				return fmt.Errorf("recompose field %q: %w", path, err)
			}
			values[i] = v
			c.cacheRetrieved(path, v)
			return nil
		})
	}

	f := newFuture[any]()
	go func() {
		if err := g.Wait(); err != nil {
			f.resolve(nil, err)
			return
		}
		if r.isAbsent(values) {
			f.resolve(nil, nil)
			return
		}

		done := Completed{values: make(map[string]any, len(r.fields)), order: make([]string, 0, len(r.fields))}
		for i, field := range r.fields {
			done.values[field.path] = values[i]
			done.order = append(done.order, field.path)
		}

		t, err := r.complete(done)
		if err != nil {
			f.resolve(nil, err)
			return
		}
		f.resolve(t, nil)
	}()
	return f
}

// isRawTree reports whether v is a section or list as a backend returns it,
// which the field's own retrieval must convert.
func isRawTree(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	default:
		return false
	}
}

// templateFor returns the template fragments of path are composed with.
func templateFor(path string) string {
	switch {
	case strings.Contains(path, PathPlaceholder):
		return path
	case path == "":
		return PathPlaceholder
	default:
		return path + "." + PathPlaceholder
	}
}

// composePath substitutes sub into template. An empty sub yields the base path.
func composePath(template, sub string) string {
	if sub == "" {
		template = strings.ReplaceAll(template, "."+PathPlaceholder, "")
	}
	return strings.ReplaceAll(template, PathPlaceholder, sub)
}
