//go:build integration

package mysql

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Borislavv/go-ash-storage/config"
)

// TestIntegration_RoundTrip runs against MYSQL_DSN.
func TestIntegration_RoundTrip(t *testing.T) {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		t.Skip("MYSQL_DSN is not set")
	}
	ctx := t.Context()

	b, err := Open(ctx, &config.MySQLCfg{DSN: dsn}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	root := "it-" + uuid.NewString()
	t.Cleanup(func() {
		ctx := context.Background()
		require.NoError(t, b.Delete(ctx, root))
		require.NoError(t, b.Complete(ctx))
		require.NoError(t, b.Close())
	})

	require.NoError(t, b.Store(ctx, root+".homes.base.x", 10))
	require.NoError(t, b.Store(ctx, root+".homes.base.world", "overworld"))
	require.NoError(t, b.Complete(ctx))

	v, err := b.Retrieve(ctx, root+".homes.base.x")
	require.NoError(t, err)
	require.EqualValues(t, 10, v)

	section, err := b.Retrieve(ctx, root+".homes.base")
	require.NoError(t, err)
	require.Equal(t, map[string]any{"x": 10.0, "world": "overworld"}, section)

	keys, err := b.Keys(ctx, root+".homes")
	require.NoError(t, err)
	require.Equal(t, []string{"base"}, keys)
}
