package backend

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Borislavv/go-ash-storage/backend/file"
	"github.com/Borislavv/go-ash-storage/backend/memory"
	"github.com/Borislavv/go-ash-storage/config"
)

// TestOpen_Memory is the default medium.
func TestOpen_Memory(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	b, err := Open(t.Context(), nil, logger)
	require.NoError(t, err)
	require.IsType(t, &memory.Backend{}, b)

	b, err = Open(t.Context(), &config.BackendCfg{}, logger)
	require.NoError(t, err)
	require.IsType(t, &memory.Backend{}, b)
}

// TestOpen_File opens the document file.
func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	b, err := Open(t.Context(), &config.BackendCfg{File: &config.FileCfg{Path: path}}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	require.IsType(t, &file.Backend{}, b)
}

// TestOpen_Error names the failing backend.
func TestOpen_Error(t *testing.T) {
	_, err := Open(t.Context(), &config.BackendCfg{Redis: &config.RedisCfg{URL: "http://nope"}}, slog.New(slog.DiscardHandler))
	require.ErrorContains(t, err, "open redis backend")
}

// TestOpenContainer builds a working container from configuration.
func TestOpenContainer(t *testing.T) {
	ctx := t.Context()
	cfg := config.Default()
	cfg.Logger.Level = "error"
	cfg.Settings.FlushRate = 0
	cfg.Backend = &config.BackendCfg{File: &config.FileCfg{Path: filepath.Join(t.TempDir(), "data.yaml")}}

	c, err := OpenContainer(ctx, cfg)
	require.NoError(t, err)

	require.NoError(t, c.Store(ctx, "greeting", "hello").Err())
	require.NoError(t, c.Close())

	reopened, err := OpenContainer(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, reopened.Close()) })

	v, err := reopened.Retrieve(ctx, "greeting")
	require.NoError(t, err)
	require.Equal(t, "hello", v)
}
