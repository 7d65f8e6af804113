package cache

import (
	"log/slog"
	"strings"
	"time"

	"github.com/Borislavv/go-ash-storage/config"
	"github.com/Borislavv/go-ash-storage/internal/cache/db"
	"github.com/Borislavv/go-ash-storage/internal/cache/db/model"
	"github.com/Borislavv/go-ash-storage/scheduler"
)

type Cacher interface {
	Get(path string) (model.Value, bool)
	Set(path string, value any)
	IsCached(path string) bool
	Evict(path string) bool
	EvictTree(path string) int
	Invalidate(path string) int
	Clear()
	Len() int64
	Metrics() (hits, misses, expired, evicted int64)
}

// Cache is the TTL object cache of a storage container plus its pending write/delete sets.
// Expiry is driven by the scheduler and never touches the backend.
type Cache struct {
	cfg      *config.Settings
	db       *db.Map
	sched    scheduler.Scheduler
	logger   *slog.Logger
	counters *counters
	pending  *Pending
}

func New(cfg *config.Settings, sched scheduler.Scheduler, logger *slog.Logger) *Cache {
	return &Cache{
		cfg:      cfg,
		db:       db.NewMap(),
		sched:    sched,
		logger:   logger,
		counters: newCounters(),
		pending:  NewPending(),
	}
}

// Get returns the cached value of path.
func (c *Cache) Get(path string) (model.Value, bool) {
	if entry, ok := c.get(path); ok {
		c.counters.hits.Add(1)
		return entry.Value(), true
	}
	c.counters.misses.Add(1)
	return model.Value{}, false
}

// Set caches value under path for the configured duration, replacing any previous entry
// and cancelling its expiry.
func (c *Cache) Set(path string, value any) {
	c.SetFor(path, value, c.cfg.CacheDuration)
}

// SetFor is Set with an explicit TTL. A non-positive ttl never expires.
func (c *Cache) SetFor(path string, value any, ttl time.Duration) {
	key := model.NewKey(path)
	entry := model.NewEntry(key, path, model.NewValue(value))

	var expiry *scheduler.Task
	if ttl > 0 {
		expiry = scheduler.NewTask("cache expiry", func() {
			if c.db.RemoveIf(key.Value(), entry) {
				c.counters.expired.Add(1)
			}
		})
		entry.SetExpiry(expiry)
	}

	if old := c.db.Set(key.Value(), entry); old != nil {
		c.cancelExpiry(old)
	}
	if expiry != nil {
		c.sched.RunTaskLater(expiry, ttl)
	}
}

func (c *Cache) IsCached(path string) bool {
	_, ok := c.get(path)
	return ok
}

// Evict removes path from the cache. It reports whether an entry was removed.
func (c *Cache) Evict(path string) bool {
	key := model.NewKey(path)
	entry, ok := c.db.Get(key.Value())
	if !ok || entry.Path() != path {
		return false
	}
	if !c.db.RemoveIf(key.Value(), entry) {
		return false
	}
	c.cancelExpiry(entry)
	c.counters.evicted.Add(1)
	return true
}

// EvictTree removes path and every entry beneath it ("path.*").
// The empty path clears the whole cache.
func (c *Cache) EvictTree(path string) int {
	removed := c.db.RemoveWhere(func(e *model.Entry) bool { return e.IsUnder(path) })
	for _, entry := range removed {
		c.cancelExpiry(entry)
	}
	c.counters.evicted.Add(int64(len(removed)))
	return len(removed)
}

// Invalidate evicts the subtree of path and every ancestor of path, since a cached
// ancestor object holds a copy of the changed value.
func (c *Cache) Invalidate(path string) int {
	n := c.EvictTree(path)
	for i := strings.LastIndexByte(path, '.'); i > 0; i = strings.LastIndexByte(path, '.') {
		path = path[:i]
		if c.Evict(path) {
			n++
		}
	}
	return n
}

func (c *Cache) Clear() {
	removed := c.db.Clear()
	for _, entry := range removed {
		c.cancelExpiry(entry)
	}
	c.counters.evicted.Add(int64(len(removed)))
}

func (c *Cache) Len() int64 { return c.db.Len() }

func (c *Cache) Metrics() (hits, misses, expired, evicted int64) {
	return c.counters.snapshot()
}

// Pending returns the pending write/delete sets awaiting the next flush.
func (c *Cache) Pending() *Pending { return c.pending }

/**
 * Private API.
 */

func (c *Cache) get(path string) (*model.Entry, bool) {
	entry, ok := c.db.Get(model.NewKey(path).Value())
	if !ok || entry.Path() != path {
		// miss or hash collision
		return nil, false
	}
	return entry, true
}

func (c *Cache) cancelExpiry(entry *model.Entry) {
	if t := entry.Expiry(); t != nil {
		c.sched.Cancel(t)
	}
}
