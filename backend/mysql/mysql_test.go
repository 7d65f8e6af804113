package mysql

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Borislavv/go-ash-storage/backend/internal/sqlpath"
	"github.com/Borislavv/go-ash-storage/config"
)

// TestOpen_InvalidConfig fails before connecting.
func TestOpen_InvalidConfig(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	_, err := Open(t.Context(), &config.MySQLCfg{}, logger)
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Open(t.Context(), &config.MySQLCfg{DSN: "u:p@tcp(localhost:3306)/db", Table: "x`y"}, logger)
	require.ErrorIs(t, err, sqlpath.ErrInvalidTable)

	_, err = Open(t.Context(), &config.MySQLCfg{DSN: "not a dsn"}, logger)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

// TestQueue_UntilComplete keeps statements in order.
func TestQueue_UntilComplete(t *testing.T) {
	b := New(nil, "ash_storage", slog.New(slog.DiscardHandler))
	require.NoError(t, b.Store(t.Context(), "a.b", 1))
	require.NoError(t, b.Delete(t.Context(), "c"))
	require.ErrorContains(t, b.Store(t.Context(), "x", make(chan int)), `encode "x"`)

	require.Len(t, b.pending, 2)
	require.Equal(t, b.queries.upsert, b.pending[0].query)
	require.Equal(t, []any{"a.b", "1"}, b.pending[0].args)
	require.Equal(t, []any{"c", "c.%"}, b.pending[1].args)
}

// TestComplete_Empty does not touch the database.
func TestComplete_Empty(t *testing.T) {
	b := New(nil, "ash_storage", slog.New(slog.DiscardHandler))
	require.NoError(t, b.Complete(t.Context()))
}
