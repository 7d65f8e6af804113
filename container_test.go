package ashstorage

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Borislavv/go-ash-storage/config"
	"github.com/Borislavv/go-ash-storage/internal/testutil"
)

// TestContainer_SetFlushRemoveFlush writes and deletes exactly once per flush.
func TestContainer_SetFlushRemoveFlush(t *testing.T) {
	ctx := t.Context()
	rec := testutil.NewRecorder()
	c := newTestContainer(t, rec, nil)

	require.NoError(t, c.Set("a.b", 5))
	require.NoError(t, c.Flush(ctx).Err())
	require.Equal(t, []testutil.Call{
		{Op: testutil.OpStore, Path: "a.b", Value: 5},
		{Op: testutil.OpComplete},
	}, rec.Calls())

	writes, deletes := c.Pending()
	require.Zero(t, writes)
	require.Zero(t, deletes)

	rec.Reset()
	require.NoError(t, c.Remove("a.b"))
	require.NoError(t, c.Flush(ctx).Err())
	require.Equal(t, []testutil.Call{
		{Op: testutil.OpDelete, Path: "a.b"},
		{Op: testutil.OpComplete},
	}, rec.Calls())
}

// TestContainer_SetRemove_MutuallyExclusive keeps the last change of a path only.
func TestContainer_SetRemove_MutuallyExclusive(t *testing.T) {
	c := newTestContainer(t, testutil.NewRecorder(), nil)

	require.NoError(t, c.Set("p", 1))
	require.NoError(t, c.Remove("p"))
	_, isWrite := c.pending.Write("p")
	require.False(t, isWrite)
	require.True(t, c.pending.IsDelete("p"))
	require.False(t, c.IsCached("p"))

	require.NoError(t, c.Set("p", 2))
	_, isWrite = c.pending.Write("p")
	require.True(t, isWrite)
	require.False(t, c.pending.IsDelete("p"))
}

// TestContainer_Flush_NothingPending resolves at once without backend calls.
func TestContainer_Flush_NothingPending(t *testing.T) {
	rec := testutil.NewRecorder()
	c := newTestContainer(t, rec, nil)

	f := c.Flush(t.Context())
	require.True(t, f.IsDone())
	require.NoError(t, f.Err())
	require.Empty(t, rec.Calls())
}

// TestContainer_Set_Unsupported mutates nothing.
func TestContainer_Set_Unsupported(t *testing.T) {
	c := newTestContainer(t, testutil.NewRecorder(), nil)
	require.NoError(t, c.Set("kept", 1))

	for _, v := range []any{unregistered{V: 1}, nil, map[string]int{"a": 1}, []unregistered{{V: 1}}} {
		require.ErrorIs(t, c.Set("k", v), ErrUnsupportedType)
	}
	require.ErrorIs(t, c.SetAll(map[string]any{"ok": 1, "bad": unregistered{}}), ErrUnsupportedType)
	require.ErrorIs(t, c.Set("", 1), ErrInvalidPath)

	writes, deletes := c.Pending()
	require.Equal(t, 1, writes)
	require.Zero(t, deletes)
	require.False(t, c.IsCached("k"))
	require.False(t, c.IsCached("ok"))
}

// TestContainer_Set_UnsupportedFragment is rejected before any mutation.
func TestContainer_Set_UnsupportedFragment(t *testing.T) {
	api := newTestAPI(t)
	Register(api, NewDecomposer(func(v unregistered, d *Decomposed) {
		d.Add("inner", struct{}{})
	}, nil))
	c := newTestContainerWithAPI(t, api, testutil.NewRecorder(), nil)

	err := c.Store(t.Context(), "k", unregistered{}).Err()
	require.ErrorIs(t, err, ErrUnsupportedType)
	require.ErrorContains(t, err, `"k.inner"`)
	require.False(t, c.IsCached("k.inner"))
}

// TestContainer_IsSupported covers primitives, registered types and lists.
func TestContainer_IsSupported(t *testing.T) {
	api := newTestAPI(t)
	list := newTestContainerWithAPI(t, api, testutil.NewRecorder(), nil)
	plain := newTestContainerWithAPI(t, api, testutil.NewPlain(), nil)

	for _, typ := range []reflect.Type{
		reflect.TypeFor[int](), reflect.TypeFor[string](), reflect.TypeFor[bool](),
		reflect.TypeFor[float64](), reflect.TypeFor[time.Duration](), reflect.TypeFor[Pair](),
		reflect.TypeFor[Color](), reflect.TypeFor[[]Home](),
	} {
		require.True(t, list.IsSupported(typ), typ.String())
		require.True(t, plain.IsSupported(typ), typ.String())
	}

	require.True(t, list.IsSupported(reflect.TypeFor[[]string]()))
	require.True(t, list.IsSupported(reflect.TypeFor[[][]int]()))
	require.False(t, plain.IsSupported(reflect.TypeFor[[]string]()))

	require.False(t, list.IsSupported(nil))
	require.False(t, list.IsSupported(reflect.TypeFor[unregistered]()))
	require.False(t, list.IsSupported(reflect.TypeFor[*Pair]()))
	require.False(t, list.IsSupported(reflect.TypeFor[map[string]any]()))
}

// TestContainer_Get reads the cache only.
func TestContainer_Get(t *testing.T) {
	rec := testutil.NewRecorder()
	c := newTestContainer(t, rec, nil)

	require.NoError(t, c.Set("name", "base"))
	v, ok := c.Get("name")
	require.True(t, ok)
	require.Equal(t, "base", v)

	s, ok, err := Get[string](c, "name")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "base", s)

	_, ok, err = Get[int](c, "name")
	require.ErrorIs(t, err, ErrCastMismatch)
	require.False(t, ok)
	require.Equal(t, 7, GetOrElse(c, "name", 7))
	require.Equal(t, 7, GetOrElse(c, "missing", 7))

	_, ok = c.Get("missing")
	require.False(t, ok)
	require.Empty(t, rec.Calls())
}

// TestContainer_CacheSettings honours the master switch.
func TestContainer_CacheSettings(t *testing.T) {
	c := newTestContainer(t, testutil.NewRecorder(), testutil.NoCacheSettings())

	require.NoError(t, c.Set("a", 1))
	require.False(t, c.IsCached("a"))
	c.Cache("a", 1)
	require.False(t, c.IsCached("a"))

	cached := newTestContainer(t, testutil.NewRecorder(), nil)
	cached.Cache("a", 1)
	require.True(t, cached.IsCached("a"))
	cached.ClearCache()
	require.False(t, cached.IsCached("a"))
}

// TestContainer_CacheTTL expires entries after the configured duration only.
func TestContainer_CacheTTL(t *testing.T) {
	settings := testutil.Settings()
	settings.CacheDuration = 30 * time.Millisecond
	short := newTestContainer(t, testutil.NewRecorder(), settings)

	require.NoError(t, short.Set("a", 1))
	require.True(t, short.IsCached("a"))
	require.Eventually(t, func() bool { return !short.IsCached("a") }, time.Second, 5*time.Millisecond)

	forever := testutil.Settings()
	forever.CacheDuration = 0
	long := newTestContainer(t, testutil.NewRecorder(), forever)

	require.NoError(t, long.Set("a", 1))
	time.Sleep(60 * time.Millisecond)
	require.True(t, long.IsCached("a"))
	require.NoError(t, long.Remove("a"))
	require.False(t, long.IsCached("a"))
}

// TestContainer_Flush_SnapshotIsolation sends changes made during a flush with the next one.
func TestContainer_Flush_SnapshotIsolation(t *testing.T) {
	ctx := t.Context()
	rec := testutil.NewRecorder()
	rec.Delay(testutil.OpStore, 100*time.Millisecond)
	c := newTestContainer(t, rec, nil)

	require.NoError(t, c.Set("a", 1))
	first := c.Flush(ctx)
	require.Eventually(t, func() bool { return rec.Count(testutil.OpStore) == 1 }, time.Second, time.Millisecond)

	require.NoError(t, c.Set("b", 2))
	require.NoError(t, first.Err())
	require.Equal(t, []string{"a"}, rec.Paths(testutil.OpStore))

	writes, _ := c.Pending()
	require.Equal(t, 1, writes)

	require.NoError(t, c.Flush(ctx).Err())
	require.Equal(t, []string{"a", "b"}, rec.Paths(testutil.OpStore))
	require.Equal(t, 2, rec.Count(testutil.OpComplete))
}

// TestContainer_Flush_ChangeOrder replays a batch in change order and aggregates failures.
func TestContainer_Flush_ChangeOrder(t *testing.T) {
	rec := testutil.NewRecorder()
	boom := errors.New("boom")
	rec.FailOn(testutil.OpStore, "b", boom)
	c := newTestContainer(t, rec, nil)

	require.NoError(t, c.SetAll(map[string]any{"b": 2, "a": 1}))
	require.NoError(t, c.Remove("z"))

	err := c.Flush(t.Context()).Err()
	require.ErrorIs(t, err, boom)

	ops := make([]string, 0, 4)
	for _, call := range rec.Calls() {
		ops = append(ops, call.Op+":"+call.Path)
	}
	require.Equal(t, []string{"store:a", "store:b", "delete:z", "complete:"}, ops)
}

// TestContainer_RemoveBeneathPendingWrite deletes the field after the object is written.
func TestContainer_RemoveBeneathPendingWrite(t *testing.T) {
	ctx := t.Context()
	rec := testutil.NewRecorder()
	c := newTestContainer(t, rec, nil)

	require.NoError(t, c.Set("p", Pair{X: 3, Y: 4}))
	require.NoError(t, c.Remove("p.x"))
	require.NoError(t, c.Flush(ctx).Err())

	require.Equal(t, map[string]any{"p": map[string]any{"y": 4}}, rec.Snapshot())
	v, err := c.Retrieve(ctx, "p.x")
	require.NoError(t, err)
	require.Nil(t, v)
}

// TestContainer_ChangeBeneathCachedObject evicts the cached ancestors of a changed path.
func TestContainer_ChangeBeneathCachedObject(t *testing.T) {
	ctx := t.Context()
	rec := testutil.NewRecorder()
	c := newTestContainer(t, rec, nil)

	require.NoError(t, c.Set("p", Pair{X: 3, Y: 4}))
	require.NoError(t, c.Flush(ctx).Err())
	require.True(t, c.IsCached("p"))

	require.NoError(t, c.Set("p.x", 9))
	require.False(t, c.IsCached("p"))
	require.NoError(t, c.Flush(ctx).Err())
	require.Equal(t, map[string]any{"p": map[string]any{"x": 9, "y": 4}}, rec.Snapshot())

	p, err := RetrieveAs[Pair](ctx, c, "p")
	require.NoError(t, err)
	require.Equal(t, Pair{X: 9, Y: 4}, p)

	c.Cache("p", p)
	require.NoError(t, c.Remove("p.y"))
	require.False(t, c.IsCached("p"))

	c.Cache("p", Pair{X: 9})
	require.NoError(t, c.Store(ctx, "p.y", 7).Err())
	require.False(t, c.IsCached("p"))
	require.True(t, c.IsCached("p.y"))

	c.Cache("p", Pair{X: 9, Y: 7})
	require.NoError(t, c.Delete(ctx, "p.y").Err())
	require.False(t, c.IsCached("p"))
}

// TestContainer_AutoFlush drains pending changes on the configured period.
func TestContainer_AutoFlush(t *testing.T) {
	settings := testutil.Settings()
	settings.FlushRate = 20 * time.Millisecond
	rec := testutil.NewRecorder()
	c := newTestContainer(t, rec, settings)

	require.NoError(t, c.Set("a", 1))
	require.Eventually(t, func() bool { return rec.Count(testutil.OpStore) == 1 }, time.Second, 5*time.Millisecond)
	c.RestartFlushTask()
}

// TestContainer_CronFlush drains pending changes on a cron schedule.
func TestContainer_CronFlush(t *testing.T) {
	settings := testutil.Settings()
	settings.FlushSchedule = "@every 1s"
	rec := testutil.NewRecorder()
	c := newTestContainer(t, rec, settings)

	require.NoError(t, c.Set("a", 1))
	require.Eventually(t, func() bool { return rec.Count(testutil.OpStore) == 1 }, 3*time.Second, 10*time.Millisecond)
}

// TestNew_BadSchedule fails to start.
func TestNew_BadSchedule(t *testing.T) {
	settings := testutil.Settings()
	settings.FlushSchedule = "not a schedule"
	_, err := New(t.Context(), newTestAPI(t), testutil.NewRecorder(), settings)
	require.ErrorContains(t, err, "start flusher")
}

// TestContainer_Close flushes and rejects later mutations.
func TestContainer_Close(t *testing.T) {
	rec := testutil.NewRecorder()
	c := newTestContainer(t, rec, nil)

	require.NoError(t, c.Set("a", 1))
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	v, err := rec.Retrieve(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, 1, v)

	require.ErrorIs(t, c.Set("a", 2), ErrClosed)
	require.ErrorIs(t, c.Remove("a"), ErrClosed)
	require.ErrorIs(t, c.Store(context.Background(), "a", 2).Err(), ErrClosed)
	require.ErrorIs(t, c.Flush(context.Background()).Err(), ErrClosed)
}

// TestNewFromConfig builds and owns the whole stack.
func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Logger.Level = "error"
	cfg.Scheduler = testutil.SchedulerCfg()
	cfg.Settings.FlushRate = 0

	rec := testutil.NewRecorder()
	c, err := NewFromConfig(t.Context(), cfg, rec)
	require.NoError(t, err)
	Register(c.API(), pairDecomposer())

	require.NoError(t, c.Store(t.Context(), "point", Pair{X: 1, Y: 2}).Err())
	require.Same(t, cfg.Settings, c.Settings())
	require.Equal(t, rec, c.Backend())
	require.NoError(t, c.Close())
}

// TestFromHooks adapts plain functions.
func TestFromHooks(t *testing.T) {
	ctx := t.Context()
	stored := make(map[string]any)
	completes := 0
	b := FromHooks(Hooks{
		Store:    func(_ context.Context, path string, v any) error { stored[path] = v; return nil },
		Delete:   func(_ context.Context, path string) error { delete(stored, path); return nil },
		Retrieve: func(_ context.Context, path string) (any, error) { return stored[path], nil },
		Complete: func(context.Context) error { completes++; return nil },
	})

	c := newTestContainer(t, b, testutil.NoCacheSettings())
	require.NoError(t, c.Store(ctx, "point", Pair{X: 3, Y: 4}).Err())
	require.Equal(t, map[string]any{"point.x": 3, "point.y": 4}, stored)
	require.Equal(t, 1, completes)

	p, err := RetrieveAs[Pair](ctx, c, "point")
	require.NoError(t, err)
	require.Equal(t, Pair{X: 3, Y: 4}, p)

	keys, err := c.Keys(ctx, "point")
	require.NoError(t, err)
	require.Empty(t, keys)
	require.NoError(t, b.CompleteRetrieve(ctx))
}
