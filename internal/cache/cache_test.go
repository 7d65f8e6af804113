package cache

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Borislavv/go-ash-storage/config"
	"github.com/Borislavv/go-ash-storage/scheduler"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *scheduler.Pool) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sched := scheduler.New(t.Context(), config.DefaultScheduler(), logger)
	t.Cleanup(func() { _ = sched.Close() })

	cfg := config.DefaultSettings()
	cfg.CacheDuration = ttl
	return New(cfg, sched, logger), sched
}

// TestCache_Get_Miss reports a miss and counts it.
func TestCache_Get_Miss(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)

	_, ok := c.Get("nope")
	require.False(t, ok)

	hits, misses, _, _ := c.Metrics()
	require.Zero(t, hits)
	require.Equal(t, int64(1), misses)
}

// TestCache_Set_Get returns the cached value with its type.
func TestCache_Set_Get(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)

	c.Set("a.b", int32(5))
	v, ok := c.Get("a.b")
	require.True(t, ok)
	require.Equal(t, int32(5), v.Any())
	require.Equal(t, "int32", v.Type().String())
	require.True(t, c.IsCached("a.b"))
	require.Equal(t, int64(1), c.Len())

	hits, _, _, _ := c.Metrics()
	require.Equal(t, int64(1), hits)
}

// TestCache_Expiry removes entries once the TTL elapses.
func TestCache_Expiry(t *testing.T) {
	c, _ := newTestCache(t, 30*time.Millisecond)

	c.Set("a", 1)
	require.True(t, c.IsCached("a"))

	require.Eventually(t, func() bool { return !c.IsCached("a") }, time.Second, 5*time.Millisecond)

	_, _, expired, _ := c.Metrics()
	require.Equal(t, int64(1), expired)
}

// TestCache_Overwrite_CancelsOldExpiry keeps the newer entry alive past the old TTL.
func TestCache_Overwrite_CancelsOldExpiry(t *testing.T) {
	c, sched := newTestCache(t, 30*time.Millisecond)

	c.Set("a", 1)
	c.SetFor("a", 2, 0)
	require.Zero(t, sched.Pending())

	time.Sleep(80 * time.Millisecond)
	v, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, 2, v.Any())
}

// TestCache_Overwrite_RestartsTTL measures expiry from the latest write.
func TestCache_Overwrite_RestartsTTL(t *testing.T) {
	c, _ := newTestCache(t, 80*time.Millisecond)

	c.Set("a", 1)
	time.Sleep(50 * time.Millisecond)
	c.Set("a", 2)
	time.Sleep(50 * time.Millisecond)

	v, ok := c.Get("a")
	require.True(t, ok, "second write must restart the TTL")
	require.Equal(t, 2, v.Any())

	require.Eventually(t, func() bool { return !c.IsCached("a") }, time.Second, 5*time.Millisecond)
}

// TestCache_NoTTL never expires entries.
func TestCache_NoTTL(t *testing.T) {
	c, sched := newTestCache(t, 0)

	c.Set("a", 1)
	require.Zero(t, sched.Pending())
	require.True(t, c.IsCached("a"))
}

// TestCache_Evict removes a single path and cancels its expiry.
func TestCache_Evict(t *testing.T) {
	c, sched := newTestCache(t, time.Minute)

	c.Set("a", 1)
	c.Set("a.b", 2)
	require.Equal(t, 2, sched.Pending())

	require.True(t, c.Evict("a"))
	require.False(t, c.Evict("a"))
	require.False(t, c.IsCached("a"))
	require.True(t, c.IsCached("a.b"))
	require.Equal(t, 1, sched.Pending())
}

// TestCache_EvictTree removes the path and its descendants only.
func TestCache_EvictTree(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)

	c.Set("p", 0)
	c.Set("p.a", 1)
	c.Set("p.a.b", 2)
	c.Set("pa", 3)
	c.Set("q", 4)

	require.Equal(t, 3, c.EvictTree("p"))
	require.False(t, c.IsCached("p.a.b"))
	require.True(t, c.IsCached("pa"))
	require.True(t, c.IsCached("q"))

	_, _, _, evicted := c.Metrics()
	require.Equal(t, int64(3), evicted)
}

// TestCache_Invalidate evicts the subtree and the ancestors of a path.
func TestCache_Invalidate(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)

	c.Set("p", 0)
	c.Set("p.a", 1)
	c.Set("p.a.b", 2)
	c.Set("p.a.b.c", 3)
	c.Set("p.z", 4)
	c.Set("pa", 5)

	require.Equal(t, 4, c.Invalidate("p.a.b"))
	require.False(t, c.IsCached("p"))
	require.False(t, c.IsCached("p.a"))
	require.False(t, c.IsCached("p.a.b"))
	require.False(t, c.IsCached("p.a.b.c"))
	require.True(t, c.IsCached("p.z"))
	require.True(t, c.IsCached("pa"))

	require.Zero(t, c.Invalidate("missing.path"))
}

// TestCache_Clear empties the cache and its timers.
func TestCache_Clear(t *testing.T) {
	c, sched := newTestCache(t, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()

	require.Zero(t, c.Len())
	require.Zero(t, sched.Pending())
}
