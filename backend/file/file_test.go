package file

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/Borislavv/go-ash-storage/config"
	"github.com/stretchr/testify/require"
)

func open(t *testing.T, path string) *Backend {
	t.Helper()
	b, err := Open(&config.FileCfg{Path: path}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return b
}

// TestOpen_CreatesMissingFile writes an empty document and its directories.
func TestOpen_CreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data.yaml")
	b := open(t, path)

	_, err := os.Stat(path)
	require.NoError(t, err)
	require.Empty(t, b.Snapshot())
}

// TestOpen_EmptyPath is rejected.
func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open(&config.FileCfg{}, slog.New(slog.DiscardHandler))
	require.ErrorIs(t, err, ErrEmptyPath)
}

// TestComplete_PersistsAcrossReopen covers both document formats.
func TestComplete_PersistsAcrossReopen(t *testing.T) {
	for _, name := range []string{"data.yaml", "data.json"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := t.Context()
			path := filepath.Join(t.TempDir(), name)

			b := open(t, path)
			require.NoError(t, b.Store(ctx, "homes.base.x", 10))
			require.NoError(t, b.StoreList(ctx, "tags", []any{"a", "b"}))

			reopened := open(t, path)
			v, err := reopened.Retrieve(ctx, "homes.base.x")
			require.NoError(t, err)
			require.Nil(t, v, "nothing is written before Complete")

			require.NoError(t, b.Complete(ctx))
			require.EqualValues(t, 1, b.Completes())

			reopened = open(t, path)
			v, err = reopened.Retrieve(ctx, "homes.base.x")
			require.NoError(t, err)
			require.EqualValues(t, 10, v)

			list, err := reopened.RetrieveList(ctx, "tags")
			require.NoError(t, err)
			require.Equal(t, []any{"a", "b"}, list)
		})
	}
}

// TestReload_DropsUnsavedChanges re-reads the file.
func TestReload_DropsUnsavedChanges(t *testing.T) {
	ctx := t.Context()
	b := open(t, filepath.Join(t.TempDir(), "data.yaml"))

	require.NoError(t, b.Store(ctx, "a", "saved"))
	require.NoError(t, b.Complete(ctx))
	require.NoError(t, b.Store(ctx, "a", "unsaved"))

	require.NoError(t, b.Reload())
	v, err := b.Retrieve(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "saved", v)
}

// TestOpen_InvalidDocument surfaces decode errors.
func TestOpen_InvalidDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

	_, err := Open(&config.FileCfg{Path: path}, slog.New(slog.DiscardHandler))
	require.ErrorContains(t, err, "decode json")
}
