package ashstorage

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strconv"

	"github.com/Borislavv/go-ash-storage/internal/tree"
)

// Store writes value to the backend right away, bypassing the pending sets, and completes
// the backend once. Pending changes of path are discarded and its cached subtree is
// replaced by the decomposed fragments (per settings) before the call returns.
func (c *Container) Store(ctx context.Context, path string, value any) *Future[struct{}] {
	if err := c.checkMutable(path); err != nil {
		return Failed[struct{}](err)
	}
	if err := c.validate(path, value); err != nil {
		return Failed[struct{}](err)
	}

	c.mu.Lock()
	c.stageStoreUnlocked(path, value)
	c.mu.Unlock()

	return runAsync(c, "store", func() (struct{}, error) {
		if err := c.storeData(ctx, path, value); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, c.complete(ctx)
	})
}

// StoreAll stores every value independently and completes the backend once after all of them.
// Nothing is staged when one of the values is unsupported.
func (c *Container) StoreAll(ctx context.Context, values map[string]any) *Future[struct{}] {
	for path, value := range values {
		if err := c.checkMutable(path); err != nil {
			return Failed[struct{}](err)
		}
		if err := c.validate(path, value); err != nil {
			return Failed[struct{}](err)
		}
	}
	paths := slices.Sorted(maps.Keys(values))

	c.mu.Lock()
	for _, path := range paths {
		c.stageStoreUnlocked(path, values[path])
	}
	c.mu.Unlock()

	futures := make([]*Future[struct{}], 0, len(paths))
	for _, path := range paths {
		value := values[path]
		futures = append(futures, runAsync(c, "store", func() (struct{}, error) {
			return struct{}{}, c.storeData(ctx, path, value)
		}))
	}

	f := newFuture[struct{}]()
	go func() {
		err := awaitAll(ctx, futures)
		f.resolve(struct{}{}, errors.Join(err, c.complete(ctx)))
	}()
	return f
}

// Delete removes path from the backend right away and completes it once.
func (c *Container) Delete(ctx context.Context, path string) *Future[struct{}] {
	return c.DeleteAll(ctx, path)
}

func (c *Container) DeleteAll(ctx context.Context, paths ...string) *Future[struct{}] {
	for _, path := range paths {
		if err := c.checkMutable(path); err != nil {
			return Failed[struct{}](err)
		}
	}

	c.mu.Lock()
	for _, path := range paths {
		c.pending.DiscardTree(path)
		c.cache.Invalidate(path)
	}
	c.mu.Unlock()

	return runAsync(c, "delete", func() (struct{}, error) {
		errs := make([]error, 0, len(paths)+1)
		for _, path := range paths {
			errs = append(errs, c.deleteData(ctx, path))
		}
		errs = append(errs, c.complete(ctx))
		return struct{}{}, errors.Join(errs...)
	})
}

// Flush writes the pending changes to the backend in the order they were made, then calls
// Complete once. With nothing pending it returns a completed future and touches nothing.
// Changes made while a flush runs land in the next one.
func (c *Container) Flush(ctx context.Context) *Future[struct{}] {
	if c.closed.Load() {
		return Failed[struct{}](ErrClosed)
	}
	if c.pending.IsEmpty() {
		return Ready(struct{}{})
	}
	return runAsync(c, "flush", func() (struct{}, error) {
		return struct{}{}, c.flush(ctx)
	})
}

/**
 * Private API.
 */

func (c *Container) flush(ctx context.Context) error {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	batch := c.pending.Drain()
	if batch.IsEmpty() {
		return nil
	}

	// a later delete beneath an earlier write must not be undone by it
	errs := make([]error, 0, 1)
	for _, change := range batch.Changes() {
		var err error
		if change.Delete {
			err = c.deleteData(ctx, change.Path)
		} else {
			err = c.storeData(ctx, change.Path, change.Value)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.complete(ctx); err != nil {
		errs = append(errs, err)
	}

	c.logger.Debug("pending changes flushed",
		"writes", len(batch.Writes),
		"deletes", len(batch.Deletes),
		"failures", len(errs),
	)
	return errors.Join(errs...)
}

func (c *Container) stageStoreUnlocked(path string, value any) {
	c.pending.Discard(path)
	c.cache.Invalidate(path)

	if !c.settings.IsCacheOnStore {
		return
	}
	d := c.api.decomposer(reflect.TypeOf(value))
	if d == nil {
		c.cache.Set(path, value)
		return
	}
	decomposed, err := d.decomposeAny(value)
	if err != nil {
		return
	}
	template := templateFor(path)
	for _, fragment := range decomposed.Entries() {
		if fragment.Keyless || fragment.Value == nil {
			continue
		}
		c.cache.Set(composePath(template, fragment.Path), fragment.Value)
	}
}

// storeData writes value under path: registered types fragment by fragment,
// lists natively or under index sub-paths, everything else as-is.
func (c *Container) storeData(ctx context.Context, path string, value any) error {
	if value == nil {
		return nil
	}

	typ := reflect.TypeOf(value)
	if d := c.api.decomposer(typ); d != nil {
		decomposed, err := d.decomposeAny(value)
		if err != nil {
			return err
		}
		return c.storeDecomposed(ctx, path, decomposed)
	}
	if typ.Kind() == reflect.Slice {
		return c.storeList(ctx, path, reflect.ValueOf(value))
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := c.backend.Store(ctx, path, value); err != nil {
		return fmt.Errorf("store %q: %w", path, err)
	}
	return nil
}

func (c *Container) storeDecomposed(ctx context.Context, path string, decomposed *Decomposed) error {
	var (
		template = templateFor(path)
		errs     []error
		index    int
	)
	for _, fragment := range decomposed.Entries() {
		if fragment.Value == nil {
			continue
		}
		sub := fragment.Path
		if fragment.Keyless {
			sub = strconv.Itoa(index)
			index++
		}
		if err := c.storeData(ctx, composePath(template, sub), fragment.Value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Container) storeList(ctx context.Context, path string, rv reflect.Value) error {
	if c.list != nil {
		elems, err := c.materializeList(rv)
		if err != nil {
			return err
		}
		if err = c.limiter.Wait(ctx); err != nil {
			return err
		}
		if err = c.list.StoreList(ctx, path, elems); err != nil {
			return fmt.Errorf("store list %q: %w", path, err)
		}
		return nil
	}

	// indices of a longer previous list must not survive
	if err := c.deleteData(ctx, path); err != nil {
		return err
	}
	var errs []error
	for i := range rv.Len() {
		if err := c.storeData(ctx, indexPath(path, i), rv.Index(i).Interface()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// materializeList converts list elements into backend-native values. Registered elements
// become sections; their keyless fragments are appended to the list itself.
func (c *Container) materializeList(rv reflect.Value) ([]any, error) {
	out := make([]any, 0, rv.Len())
	for i := range rv.Len() {
		elem := rv.Index(i).Interface()
		if elem == nil {
			continue
		}

		d := c.api.decomposer(reflect.TypeOf(elem))
		if d == nil {
			v, err := c.materialize(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
			continue
		}

		decomposed, err := d.decomposeAny(elem)
		if err != nil {
			return nil, err
		}
		section := make(map[string]any)
		for _, fragment := range decomposed.Entries() {
			if fragment.Value == nil {
				continue
			}
			v, err := c.materialize(fragment.Value)
			if err != nil {
				return nil, err
			}
			if fragment.Keyless {
				out = append(out, v)
				continue
			}
			tree.Set(section, fragment.Path, v)
		}
		if len(section) > 0 {
			out = append(out, section)
		}
	}
	return out, nil
}

// materialize converts v into a backend-native value: primitives as-is,
// lists as []any and registered types as nested sections.
func (c *Container) materialize(v any) (any, error) {
	typ := reflect.TypeOf(v)
	if d := c.api.decomposer(typ); d != nil {
		decomposed, err := d.decomposeAny(v)
		if err != nil {
			return nil, err
		}
		section := make(map[string]any)
		index := 0
		for _, fragment := range decomposed.Entries() {
			if fragment.Value == nil {
				continue
			}
			m, err := c.materialize(fragment.Value)
			if err != nil {
				return nil, err
			}
			sub := fragment.Path
			if fragment.Keyless {
				sub = strconv.Itoa(index)
				index++
			}
			tree.Set(section, sub, m)
		}
		return section, nil
	}
	if typ.Kind() == reflect.Slice {
		return c.materializeList(reflect.ValueOf(v))
	}
	return v, nil
}

func (c *Container) deleteData(ctx context.Context, path string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := c.backend.Delete(ctx, path); err != nil {
		return fmt.Errorf("delete %q: %w", path, err)
	}
	return nil
}

func (c *Container) complete(ctx context.Context) error {
	if err := c.backend.Complete(ctx); err != nil {
		return fmt.Errorf("complete: %w", err)
	}
	return nil
}

func indexPath(path string, i int) string {
	return tree.Join(path, strconv.Itoa(i))
}
