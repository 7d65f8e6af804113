package ashstorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/Borislavv/go-ash-storage/config"
	"github.com/Borislavv/go-ash-storage/internal/cache"
	"github.com/Borislavv/go-ash-storage/internal/flusher"
	"github.com/Borislavv/go-ash-storage/internal/shared/rate"
	"github.com/Borislavv/go-ash-storage/internal/telemetry"
	"github.com/Borislavv/go-ash-storage/scheduler"
	"golang.org/x/sync/singleflight"
)

// Container is a path-addressed store in front of a Backend: an object cache,
// pending write/delete sets drained by Flush, and the decomposition engine.
type Container struct {
	ctx    context.Context
	cancel context.CancelFunc

	api      *API
	backend  Backend
	list     ListBackend // nil when the backend cannot hold lists
	settings *config.Settings
	logger   *slog.Logger

	cache   *cache.Cache
	pending *cache.Pending
	limiter *rate.Limiter
	group   singleflight.Group

	mu        sync.Mutex // set/remove/store bookkeeping
	flushMu   sync.Mutex // serialises flushes
	flusher   flusher.Flusher
	telemetry telemetry.Logger
	closers   []io.Closer
	closed    atomic.Bool

	// shared by the read-only containers decoding list elements
	scratch         *cache.Cache
	scratchSettings *config.Settings
	unlimited       *rate.Limiter
}

// New creates a container over backend. Nil settings mean config.DefaultSettings().
// The periodic flush task and the stats logger start immediately.
func New(ctx context.Context, api *API, backend Backend, settings *config.Settings) (*Container, error) {
	if settings == nil {
		settings = config.DefaultSettings()
	}
	settings.AdjustConfig()

	c := newContainer(ctx, api, backend, settings)

	f, err := flusher.New(c.ctx, settings, api.sched, c.flush, c.logger)
	if err != nil {
		c.cancel()
		return nil, fmt.Errorf("start flusher: %w", err)
	}
	c.flusher = f

	c.telemetry = telemetry.New(c.ctx, settings.Telemetry, c.logger, telemetry.Sources{
		Cache:     c.cache,
		Pending:   c.pending,
		Flusher:   c.flusher,
		Scheduler: api.sched,
	})

	c.logger.Info("storage container is running",
		"backend", fmt.Sprintf("%T", backend),
		"lists", c.list != nil,
		"use_cache", settings.UseCache,
		"cache_duration", settings.CacheDuration,
		"flush_rate", settings.FlushRate,
		"flush_schedule", settings.FlushSchedule,
	)
	return c, nil
}

// NewFromConfig builds the whole stack from cfg: logger, scheduler pool, API and container.
// The scheduler is owned by the container and closed with it.
func NewFromConfig(ctx context.Context, cfg *config.Config, backend Backend) (*Container, error) {
	cfg.AdjustConfig()

	logger := NewLogger(cfg.Logger)
	pool := scheduler.New(ctx, cfg.Scheduler, logger)

	c, err := New(ctx, NewAPI(pool, logger), backend, cfg.Settings)
	if err != nil {
		_ = pool.Close()
		return nil, err
	}
	c.closers = append(c.closers, pool)
	return c, nil
}

func newContainer(ctx context.Context, api *API, backend Backend, settings *config.Settings) *Container {
	ctx, cancel := context.WithCancel(ctx)
	c := &Container{
		ctx:       ctx,
		cancel:    cancel,
		api:       api,
		backend:   backend,
		settings:  settings,
		logger:    api.logger.With("component", "storage"),
		cache:     cache.New(settings, api.sched, api.logger),
		limiter:   rate.NewLimiter(ctx, settings.BackendRate),
		flusher:   &flusher.NoOpFlusher{},
		telemetry: &telemetry.NoOpLogger{},
	}
	c.pending = c.cache.Pending()

	scratchSettings := *settings
	scratchSettings.UseCache = false
	scratchSettings.FlushRate = 0
	scratchSettings.FlushSchedule = ""
	scratchSettings.BackendRate = 0
	scratchSettings.Telemetry = nil
	scratchSettings.AdjustConfig()
	c.scratchSettings = &scratchSettings
	c.scratch = cache.New(c.scratchSettings, api.sched, api.logger)
	c.unlimited = rate.NewLimiter(ctx, 0)

	if list, ok := backend.(ListBackend); ok {
		c.list = list
	}
	if closer, ok := backend.(io.Closer); ok {
		c.closers = append(c.closers, closer)
	}
	return c
}

// Get returns the cached value of path. It never touches the backend.
func (c *Container) Get(path string) (any, bool) {
	if v, ok := c.cache.Get(path); ok {
		return v.Any(), true
	}
	return nil, false
}

// Set puts value into the pending-write set and caches it per settings.
// Nothing reaches the backend before the next flush.
func (c *Container) Set(path string, value any) error {
	if err := c.checkMutable(path); err != nil {
		return err
	}
	if err := c.validate(path, value); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.setUnlocked(path, value)
	return nil
}

// SetAll validates every value first and sets none of them when one is unsupported.
func (c *Container) SetAll(values map[string]any) error {
	for path, value := range values {
		if err := c.checkMutable(path); err != nil {
			return err
		}
		if err := c.validate(path, value); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, path := range slices.Sorted(maps.Keys(values)) {
		c.setUnlocked(path, values[path])
	}
	return nil
}

// Remove marks path for deletion on the next flush and evicts its cached subtree.
func (c *Container) Remove(path string) error {
	return c.RemoveAll(path)
}

func (c *Container) RemoveAll(paths ...string) error {
	for _, path := range paths {
		if err := c.checkMutable(path); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, path := range paths {
		c.pending.PutDelete(path)
		c.cache.Invalidate(path)
	}
	return nil
}

// IsSupported reports whether values of typ can be stored: primitives, strings,
// registered types and lists of them the backend can hold.
func (c *Container) IsSupported(typ reflect.Type) bool {
	if typ == nil {
		return false
	}
	if c.api.decomposer(typ) != nil || isPrimitive(typ) {
		return true
	}
	if typ.Kind() == reflect.Slice {
		if c.list != nil {
			return c.IsSupported(typ.Elem())
		}
		// without native lists only objects can be spread over index sub-paths
		return c.api.decomposer(typ.Elem()) != nil
	}
	return false
}

func (c *Container) IsCached(path string) bool {
	return c.cache.IsCached(path)
}

// Cache caches v under path when caching is enabled.
func (c *Container) Cache(path string, v any) {
	if c.settings.UseCache && v != nil {
		c.cache.Set(path, v)
	}
}

func (c *Container) ClearCache() {
	c.cache.Clear()
}

// Pending returns the number of pending writes and deletes awaiting the next flush.
func (c *Container) Pending() (writes, deletes int) {
	return c.pending.Len()
}

func (c *Container) Settings() *config.Settings { return c.settings }

func (c *Container) API() *API { return c.api }

func (c *Container) Backend() Backend { return c.backend }

// RestartFlushTask restarts the periodic flush from now.
func (c *Container) RestartFlushTask() {
	c.flusher.Reset()
}

// Close stops the flush task and the stats logger, flushes pending changes and
// closes owned resources. Later mutations fail with ErrClosed.
func (c *Container) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	errs := []error{
		c.flusher.Close(),
		c.telemetry.Close(),
	}
	if err := c.flush(context.WithoutCancel(c.ctx)); err != nil {
		errs = append(errs, fmt.Errorf("final flush: %w", err))
	}
	c.cancel()

	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i].Close())
	}

	c.logger.Info("storage container is stopped")
	return errors.Join(errs...)
}

/**
 * Private API.
 */

func (c *Container) setUnlocked(path string, value any) {
	c.pending.PutWrite(path, value)
	c.cache.Invalidate(path)
	c.cacheStored(path, value)
}

func (c *Container) checkMutable(path string) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if path == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	return nil
}

// validate checks value and everything it decomposes into before any mutation.
func (c *Container) validate(path string, value any) error {
	if value == nil {
		return fmt.Errorf("%w: nil value at %q", ErrUnsupportedType, path)
	}

	typ := reflect.TypeOf(value)
	if !c.IsSupported(typ) {
		return fmt.Errorf("%w: %s at %q", ErrUnsupportedType, typ, path)
	}

	if d := c.api.decomposer(typ); d != nil {
		decomposed, err := d.decomposeAny(value)
		if err != nil {
			return err
		}
		template := templateFor(path)
		for _, fragment := range decomposed.Entries() {
			if fragment.Value == nil {
				continue
			}
			if err = c.validate(composePath(template, fragment.Path), fragment.Value); err != nil {
				return err
			}
		}
		return nil
	}

	if typ.Kind() == reflect.Slice {
		rv := reflect.ValueOf(value)
		for i := range rv.Len() {
			if err := c.validate(indexPath(path, i), rv.Index(i).Interface()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Container) cacheStored(path string, v any) {
	if c.settings.IsCacheOnStore && v != nil {
		c.cache.Set(path, v)
	}
}

func (c *Container) cacheRetrieved(path string, v any) {
	if c.settings.IsCacheOnRetrieve && v != nil {
		c.cache.Set(path, v)
	}
}

// runAsync runs fn on the scheduler and resolves the returned future with its result.
// A panic inside fn fails the future with ErrTaskPanicked and is re-raised to the scheduler.
func runAsync[T any](c *Container, name string, fn func() (T, error)) *Future[T] {
	f := newFuture[T]()
	c.api.sched.RunTaskAsync(scheduler.NewTask(name, func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				f.resolve(zero, fmt.Errorf("%w: %s: %v", ErrTaskPanicked, name, r))
				panic(r)
			}
		}()
		f.resolve(fn())
	}))
	return f
}
