// Package file stores the whole document in one YAML or JSON file.
// Changes are kept in memory and written atomically on Complete.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/Borislavv/go-ash-storage/backend/codec"
	"github.com/Borislavv/go-ash-storage/backend/memory"
	"github.com/Borislavv/go-ash-storage/config"
)

var ErrEmptyPath = errors.New("file: empty document path")

type Backend struct {
	*memory.Backend

	cfg    *config.FileCfg
	codec  codec.Codec
	logger *slog.Logger
	mu     sync.Mutex // serialises saves
}

// Open loads the document at cfg.Path, creating it (and its directories) when missing.
func Open(cfg *config.FileCfg, logger *slog.Logger) (*Backend, error) {
	if cfg.Path == "" {
		return nil, ErrEmptyPath
	}
	cfg.AdjustConfig()

	b := &Backend{
		Backend: memory.New(),
		cfg:     cfg,
		codec:   codec.For(cfg.Format),
		logger:  logger,
	}
	if err := b.Reload(); err != nil {
		return nil, err
	}
	return b, nil
}

// Reload replaces the in-memory document with the file contents. Unsaved changes are lost.
func (b *Backend) Reload() error {
	data, err := os.ReadFile(b.cfg.Path)
	if errors.Is(err, fs.ErrNotExist) {
		if err = b.save(make(map[string]any)); err != nil {
			return err
		}
		b.Replace(make(map[string]any))
		b.logger.Info("storage file created", "path", b.cfg.Path, "format", b.cfg.Format)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", b.cfg.Path, err)
	}

	doc, err := b.codec.Unmarshal(data)
	if err != nil {
		return fmt.Errorf("load %s: %w", b.cfg.Path, err)
	}
	b.Replace(doc)
	return nil
}

// Complete writes the document to disk.
func (b *Backend) Complete(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.save(b.Snapshot()); err != nil {
		return err
	}
	return b.Backend.Complete(ctx)
}

func (b *Backend) Path() string { return b.cfg.Path }

// save writes doc to a temporary file next to the target and renames it into place.
func (b *Backend) save(doc map[string]any) error {
	data, err := b.codec.Marshal(doc)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	dir := filepath.Dir(b.cfg.Path)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(b.cfg.Path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), b.cfg.Path); err != nil {
		return fmt.Errorf("rename into %s: %w", b.cfg.Path, err)
	}
	return nil
}
