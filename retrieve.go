package ashstorage

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strconv"

	"github.com/Borislavv/go-ash-storage/backend/memory"
	"github.com/Borislavv/go-ash-storage/internal/cast"
	"github.com/Borislavv/go-ash-storage/internal/flusher"
	"github.com/Borislavv/go-ash-storage/internal/telemetry"
	"golang.org/x/sync/errgroup"
)

// Retrieve returns the value of path as the backend holds it: the cached value when present,
// otherwise a blocking backend read that is cached per settings. An absent path yields nil.
// Concurrent misses of the same path share one backend read, which outlives the
// cancellation of any single caller.
func (c *Container) Retrieve(ctx context.Context, path string) (any, error) {
	if v, ok := c.cache.Get(path); ok {
		return v.Any(), nil
	}
	ch := c.group.DoChan(path, func() (any, error) {
		return c.retrieveData(context.WithoutCancel(ctx), path, true)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RetrieveAsync is Retrieve running on the scheduler.
func (c *Container) RetrieveAsync(ctx context.Context, path string) *Future[any] {
	if v, ok := c.cache.Get(path); ok {
		return Ready(v.Any())
	}
	return runAsync(c, "retrieve", func() (any, error) {
		return c.Retrieve(ctx, path)
	})
}

// RetrieveAllAsync retrieves every path. Absent paths map to nil.
// The backend's retrieve completion runs once for the whole batch.
func (c *Container) RetrieveAllAsync(ctx context.Context, paths ...string) *Future[map[string]any] {
	out := make(map[string]any, len(paths))
	misses := make([]string, 0, len(paths))
	for _, path := range paths {
		if v, ok := c.cache.Get(path); ok {
			out[path] = v.Any()
			continue
		}
		misses = append(misses, path)
	}
	if len(misses) == 0 {
		return Ready(out)
	}

	futures := make([]*Future[any], len(misses))
	for i, path := range misses {
		futures[i] = runAsync(c, "retrieve", func() (any, error) {
			return c.retrieveData(ctx, path, false)
		})
	}

	f := newFuture[map[string]any]()
	go func() {
		errs := make([]error, 0, 1)
		for i, future := range futures {
			v, err := future.Wait(ctx)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			out[misses[i]] = v
		}
		if err := c.completeRetrieve(ctx); err != nil {
			errs = append(errs, err)
		}
		if err := errors.Join(errs...); err != nil {
			f.resolve(nil, err)
			return
		}
		f.resolve(out, nil)
	}()
	return f
}

// Keys returns the sorted direct children of path in the backend.
func (c *Container) Keys(ctx context.Context, path string) ([]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	keys, err := c.backend.Keys(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("keys %q: %w", path, err)
	}
	slices.Sort(keys)
	return keys, nil
}

/**
 * Private API.
 */

// retrieveData reads path from the backend. complete runs the retrieve completion
// right after the read; batches pass false and complete once themselves.
func (c *Container) retrieveData(ctx context.Context, path string, complete bool) (any, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	v, err := c.backend.Retrieve(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("retrieve %q: %w", path, err)
	}
	if complete {
		if err = c.completeRetrieve(ctx); err != nil {
			return nil, fmt.Errorf("retrieve %q: %w", path, err)
		}
	}
	c.cacheRetrieved(path, v)
	return v, nil
}

func (c *Container) completeRetrieve(ctx context.Context) error {
	rc, ok := c.backend.(RetrieveCompleter)
	if !ok {
		return nil
	}
	if err := rc.CompleteRetrieve(ctx); err != nil {
		return fmt.Errorf("complete retrieve: %w", err)
	}
	return nil
}

// retrieveAs returns the value of path converted to typ, nil when absent.
// Registered types are recomposed, lists are read element-wise.
func (c *Container) retrieveAs(ctx context.Context, path string, typ reflect.Type) (any, error) {
	d := c.api.decomposer(typ)
	if v, ok := c.cache.Get(path); ok {
		if out, ok := cast.Convert(v.Any(), typ); ok {
			return out, nil
		}
		if d == nil && !isRawTree(v.Any()) {
			return nil, castError(path, v.Any(), typ)
		}
		// a raw section or list cached by an implicit retrieve, read it typed
	}

	if !c.IsSupported(typ) {
		return nil, fmt.Errorf("%w: %s at %q", ErrUnsupportedType, typ, path)
	}
	if d != nil {
		return c.recompose(ctx, d, path)
	}
	if typ.Kind() == reflect.Slice {
		return c.retrieveList(ctx, path, typ)
	}

	v, err := c.Retrieve(ctx, path)
	if err != nil || v == nil {
		return nil, err
	}
	out, ok := cast.Convert(v, typ)
	if !ok {
		return nil, castError(path, v, typ)
	}
	return out, nil
}

// retrieveAsAsync runs retrieveAs on its own goroutine: it joins other futures
// and must never occupy a scheduler worker.
func (c *Container) retrieveAsAsync(ctx context.Context, path string, typ reflect.Type) *Future[any] {
	if v, ok := c.cache.Get(path); ok {
		if out, ok := cast.Convert(v.Any(), typ); ok {
			return Ready(out)
		}
	}
	f := newFuture[any]()
	go func() {
		f.resolve(c.retrieveAs(ctx, path, typ))
	}()
	return f
}

// recompose blocks for at most settings.RecomposeTimeout.
func (c *Container) recompose(ctx context.Context, d decomposer, path string) (any, error) {
	if !d.canRecompose() {
		return nil, fmt.Errorf("%w: %q", ErrNoRecomposer, path)
	}

	timeout := c.settings.RecomposeTimeout
	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	v, err := d.recomposeAny(rctx, c, templateFor(path)).Wait(rctx)
	if err != nil {
		if ctx.Err() == nil && errors.Is(rctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %q after %s", ErrRecomposeTimeout, path, timeout)
		}
		return nil, fmt.Errorf("recompose %q: %w", path, err)
	}
	return v, nil
}

func (c *Container) retrieveList(ctx context.Context, path string, typ reflect.Type) (any, error) {
	if c.list != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		raw, err := c.list.RetrieveList(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("retrieve list %q: %w", path, err)
		}
		if raw == nil {
			return nil, nil
		}
		return c.decodeList(ctx, path, raw, typ)
	}

	keys, err := c.Keys(ctx, path)
	if err != nil {
		return nil, err
	}
	indices := indexKeys(keys)
	if len(indices) == 0 {
		return nil, nil
	}

	values := make([]any, len(indices))
	g, gctx := errgroup.WithContext(ctx)
	for i, index := range indices {
		g.Go(func() (err error) {
			values[i], err = c.retrieveAs(gctx, indexPath(path, index), typ.Elem())
			return err
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}
	return makeSlice(typ, values), nil
}

func (c *Container) decodeList(ctx context.Context, path string, raw []any, typ reflect.Type) (any, error) {
	values := make([]any, len(raw))
	for i, elem := range raw {
		v, err := c.decodeElement(ctx, indexPath(path, i), elem, typ.Elem())
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return makeSlice(typ, values), nil
}

// decodeElement converts one element of a native list. Sections of registered types are
// recomposed through a container over the section itself.
func (c *Container) decodeElement(ctx context.Context, path string, elem any, typ reflect.Type) (any, error) {
	if elem == nil {
		return nil, nil
	}
	if d := c.api.decomposer(typ); d != nil {
		if out, ok := cast.Convert(elem, typ); ok {
			return out, nil
		}
		section, ok := elem.(map[string]any)
		if !ok {
			return nil, castError(path, elem, typ)
		}
		return c.elementContainer(section).recompose(ctx, d, "")
	}
	if raw, ok := elem.([]any); ok && typ.Kind() == reflect.Slice {
		return c.decodeList(ctx, path, raw, typ)
	}
	out, ok := cast.Convert(elem, typ)
	if !ok {
		return nil, castError(path, elem, typ)
	}
	return out, nil
}

// elementContainer reads one list element section. It never caches and never flushes.
func (c *Container) elementContainer(section map[string]any) *Container {
	b := memory.NewFrom(section)
	ec := &Container{
		ctx:       c.ctx,
		cancel:    func() {},
		api:       c.api,
		backend:   b,
		list:      b,
		settings:  c.scratchSettings,
		logger:    c.logger,
		cache:     c.scratch,
		pending:   c.scratch.Pending(),
		limiter:   c.unlimited,
		flusher:   &flusher.NoOpFlusher{},
		telemetry: &telemetry.NoOpLogger{},

		scratch:         c.scratch,
		scratchSettings: c.scratchSettings,
		unlimited:       c.unlimited,
	}
	ec.closed.Store(true)
	return ec
}

func makeSlice(typ reflect.Type, values []any) any {
	out := reflect.MakeSlice(typ, 0, len(values))
	for _, v := range values {
		if v == nil {
			out = reflect.Append(out, reflect.Zero(typ.Elem()))
			continue
		}
		out = reflect.Append(out, reflect.ValueOf(v))
	}
	return out.Interface()
}

// indexKeys returns the numeric keys in ascending order.
func indexKeys(keys []string) []int {
	out := make([]int, 0, len(keys))
	for _, k := range keys {
		if i, err := strconv.Atoi(k); err == nil && i >= 0 {
			out = append(out, i)
		}
	}
	slices.Sort(out)
	return out
}

func castError(path string, v any, typ reflect.Type) error {
	return fmt.Errorf("%w: %q holds %T, want %s", ErrCastMismatch, path, v, typ)
}

func castAs[T any](v any, path string) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	t, ok := cast.To[T](v)
	if !ok {
		return zero, castError(path, v, reflect.TypeFor[T]())
	}
	return t, nil
}
