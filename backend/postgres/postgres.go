// Package postgres stores one JSONB row per path. Writes are queued in a pgx batch
// and sent in one transaction by Complete.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Borislavv/go-ash-storage/backend/internal/sqlpath"
	"github.com/Borislavv/go-ash-storage/config"
	"github.com/Borislavv/go-ash-storage/internal/tree"
)

var (
	ErrInvalidConfig            = errors.New("postgres: invalid configuration")
	ErrFailedToOpenDBConnection = errors.New("postgres: failed to open database connection")
	ErrNotList                  = errors.New("postgres: value is not a list")
)

type Backend struct {
	pool    *pgxpool.Pool
	queries queries
	logger  *slog.Logger

	mu    sync.Mutex
	batch *pgx.Batch
}

type queries struct {
	upsert, delete, get, descendants, paths string
}

func newQueries(table string) queries {
	t := pgx.Identifier{table}.Sanitize()
	return queries{
		upsert: `INSERT INTO ` + t + ` (path, value, updated_at) VALUES ($1, $2::jsonb, now())
			ON CONFLICT (path) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		delete:      `DELETE FROM ` + t + ` WHERE path = $1 OR path LIKE $2`,
		get:         `SELECT value FROM ` + t + ` WHERE path = $1`,
		descendants: `SELECT path, value FROM ` + t + ` WHERE path LIKE $1`,
		paths:       `SELECT path FROM ` + t + ` WHERE path LIKE $1`,
	}
}

// Open connects to cfg.DSN and applies migrations when cfg.Migrate is set.
func Open(ctx context.Context, cfg *config.PostgresCfg, logger *slog.Logger) (*Backend, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("%w: dsn is required", ErrInvalidConfig)
	}
	cfg.AdjustConfig()
	if err := sqlpath.ValidateTable(cfg.Table); err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	poolCfg.MaxConns = cfg.MaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.Join(ErrFailedToOpenDBConnection, err)
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Join(ErrFailedToOpenDBConnection, err)
	}

	if cfg.Migrate {
		if err = Migrate(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return New(pool, cfg.Table, logger), nil
}

// New wraps an existing pool. The table must exist.
func New(pool *pgxpool.Pool, table string, logger *slog.Logger) *Backend {
	return &Backend{
		pool:    pool,
		queries: newQueries(table),
		logger:  logger,
		batch:   &pgx.Batch{},
	}
}

func (b *Backend) Store(_ context.Context, path string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", path, err)
	}

	b.mu.Lock()
	b.batch.Queue(b.queries.upsert, path, string(data))
	b.mu.Unlock()
	return nil
}

func (b *Backend) StoreList(ctx context.Context, path string, elems []any) error {
	return b.Store(ctx, path, elems)
}

// Delete queues the removal of path and every path beneath it.
func (b *Backend) Delete(_ context.Context, path string) error {
	b.mu.Lock()
	b.batch.Queue(b.queries.delete, path, sqlpath.Descendants(path))
	b.mu.Unlock()
	return nil
}

// Retrieve returns the row of path, or a section assembled from the rows beneath it.
func (b *Backend) Retrieve(ctx context.Context, path string) (any, error) {
	var data []byte
	err := b.pool.QueryRow(ctx, b.queries.get, path).Scan(&data)
	switch {
	case err == nil:
		return decode(path, data)
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("select %q: %w", path, err)
	}

	rows, err := b.pool.Query(ctx, b.queries.descendants, sqlpath.Descendants(path))
	if err != nil {
		return nil, fmt.Errorf("select beneath %q: %w", path, err)
	}
	defer rows.Close()

	leaves := make(map[string]any)
	for rows.Next() {
		var sub string
		if err = rows.Scan(&sub, &data); err != nil {
			return nil, fmt.Errorf("scan beneath %q: %w", path, err)
		}
		if leaves[sub], err = decode(sub, data); err != nil {
			return nil, err
		}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("select beneath %q: %w", path, err)
	}
	if len(leaves) == 0 {
		return nil, nil
	}
	return tree.Section(path, leaves), nil
}

func (b *Backend) RetrieveList(ctx context.Context, path string) ([]any, error) {
	var data []byte
	err := b.pool.QueryRow(ctx, b.queries.get, path).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select %q: %w", path, err)
	}
	v, err := decode(path, data)
	if err != nil {
		return nil, err
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %q holds %T", ErrNotList, path, v)
	}
	return list, nil
}

func (b *Backend) Keys(ctx context.Context, path string) ([]string, error) {
	rows, err := b.pool.Query(ctx, b.queries.paths, sqlpath.Descendants(path))
	if err != nil {
		return nil, fmt.Errorf("select keys of %q: %w", path, err)
	}
	paths, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect keys of %q: %w", path, err)
	}
	return tree.Children(path, paths), nil
}

// Complete sends the queued statements in one transaction.
func (b *Backend) Complete(ctx context.Context) error {
	b.mu.Lock()
	batch := b.batch
	b.batch = &pgx.Batch{}
	b.mu.Unlock()

	if batch.Len() == 0 {
		return nil
	}
	err := pgx.BeginFunc(ctx, b.pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("send batch of %d: %w", batch.Len(), err)
	}
	return nil
}

func (b *Backend) Close() error {
	b.pool.Close()
	return nil
}

func decode(path string, data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode %q: %w", path, err)
	}
	return v, nil
}
