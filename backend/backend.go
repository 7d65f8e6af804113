// Package backend opens the storage medium selected by configuration.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	ashstorage "github.com/Borislavv/go-ash-storage"
	"github.com/Borislavv/go-ash-storage/backend/file"
	"github.com/Borislavv/go-ash-storage/backend/memory"
	"github.com/Borislavv/go-ash-storage/backend/mysql"
	"github.com/Borislavv/go-ash-storage/backend/postgres"
	"github.com/Borislavv/go-ash-storage/backend/redis"
	"github.com/Borislavv/go-ash-storage/backend/s3"
	"github.com/Borislavv/go-ash-storage/config"
)

// Open returns the backend selected by cfg. A nil cfg opens an in-memory backend.
func Open(ctx context.Context, cfg *config.BackendCfg, logger *slog.Logger) (ashstorage.Backend, error) {
	if !cfg.Enabled() {
		return memory.New(), nil
	}
	cfg.AdjustConfig()

	var (
		b   ashstorage.Backend
		err error
	)
	switch cfg.Kind {
	case config.BackendFile:
		b, err = file.Open(cfg.File, logger)
	case config.BackendS3:
		b, err = s3.Open(ctx, cfg.S3, logger)
	case config.BackendRedis:
		b, err = redis.Open(ctx, cfg.Redis, logger)
	case config.BackendPostgres:
		b, err = postgres.Open(ctx, cfg.Postgres, logger)
	case config.BackendMySQL:
		b, err = mysql.Open(ctx, cfg.MySQL, logger)
	default:
		b = memory.New()
	}
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.Kind, err)
	}

	logger.Info("storage backend is opened", "kind", cfg.Kind)
	return b, nil
}

// OpenContainer opens the configured backend and builds a container over it.
// The container owns the backend and closes it.
func OpenContainer(ctx context.Context, cfg *config.Config) (*ashstorage.Container, error) {
	cfg.AdjustConfig()

	b, err := Open(ctx, cfg.Backend, ashstorage.NewLogger(cfg.Logger))
	if err != nil {
		return nil, err
	}

	c, err := ashstorage.NewFromConfig(ctx, cfg, b)
	if err != nil {
		if closer, ok := b.(io.Closer); ok {
			err = errors.Join(err, closer.Close())
		}
		return nil, err
	}
	return c, nil
}
