// Package mysql stores one JSON row per path. Statements are queued and executed
// in one transaction by Complete.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-sql-driver/mysql"

	"github.com/Borislavv/go-ash-storage/backend/internal/sqlpath"
	"github.com/Borislavv/go-ash-storage/config"
	"github.com/Borislavv/go-ash-storage/internal/tree"
)

var (
	ErrInvalidConfig            = errors.New("mysql: invalid configuration")
	ErrFailedToOpenDBConnection = errors.New("mysql: failed to open database connection")
	ErrNotList                  = errors.New("mysql: value is not a list")
)

type statement struct {
	query string
	args  []any
}

type Backend struct {
	db      *sql.DB
	queries queries
	logger  *slog.Logger

	mu      sync.Mutex
	pending []statement
}

type queries struct {
	create, upsert, delete, get, descendants, paths string
}

func newQueries(table string) queries {
	t := "`" + table + "`"
	return queries{
		create: `CREATE TABLE IF NOT EXISTS ` + t + ` (
			path       VARCHAR(512) NOT NULL PRIMARY KEY,
			value      JSON NOT NULL,
			updated_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6)
		)`,
		upsert:      `INSERT INTO ` + t + ` (path, value) VALUES (?, ?) ON DUPLICATE KEY UPDATE value = VALUES(value)`,
		delete:      `DELETE FROM ` + t + ` WHERE path = ? OR path LIKE ?`,
		get:         `SELECT value FROM ` + t + ` WHERE path = ?`,
		descendants: `SELECT path, value FROM ` + t + ` WHERE path LIKE ?`,
		paths:       `SELECT path FROM ` + t + ` WHERE path LIKE ?`,
	}
}

// Open connects to cfg.DSN and creates the table when missing.
func Open(ctx context.Context, cfg *config.MySQLCfg, logger *slog.Logger) (*Backend, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("%w: dsn is required", ErrInvalidConfig)
	}
	cfg.AdjustConfig()
	if err := sqlpath.ValidateTable(cfg.Table); err != nil {
		return nil, err
	}

	driverCfg, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	driverCfg.ParseTime = true

	connector, err := mysql.NewConnector(driverCfg)
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(cfg.MaxOpenConns)

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Join(ErrFailedToOpenDBConnection, err)
	}

	b := New(db, cfg.Table, logger)
	if _, err = db.ExecContext(ctx, b.queries.create); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create table %s: %w", cfg.Table, err)
	}
	return b, nil
}

// New wraps an existing handle. The table must exist.
func New(db *sql.DB, table string, logger *slog.Logger) *Backend {
	return &Backend{db: db, queries: newQueries(table), logger: logger}
}

func (b *Backend) Store(_ context.Context, path string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", path, err)
	}
	b.queue(b.queries.upsert, path, string(data))
	return nil
}

func (b *Backend) StoreList(ctx context.Context, path string, elems []any) error {
	return b.Store(ctx, path, elems)
}

// Delete queues the removal of path and every path beneath it.
func (b *Backend) Delete(_ context.Context, path string) error {
	b.queue(b.queries.delete, path, sqlpath.Descendants(path))
	return nil
}

// Retrieve returns the row of path, or a section assembled from the rows beneath it.
func (b *Backend) Retrieve(ctx context.Context, path string) (any, error) {
	var data []byte
	err := b.db.QueryRowContext(ctx, b.queries.get, path).Scan(&data)
	switch {
	case err == nil:
		return decode(path, data)
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("select %q: %w", path, err)
	}

	rows, err := b.db.QueryContext(ctx, b.queries.descendants, sqlpath.Descendants(path))
	if err != nil {
		return nil, fmt.Errorf("select beneath %q: %w", path, err)
	}
	defer func() { _ = rows.Close() }()

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
	err := b.db.QueryRowContext(ctx, b.queries.get, path).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
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
	rows, err := b.db.QueryContext(ctx, b.queries.paths, sqlpath.Descendants(path))
	if err != nil {
		return nil, fmt.Errorf("select keys of %q: %w", path, err)
	}
	defer func() { _ = rows.Close() }()

	var paths []string
	for rows.Next() {
		var p string
		if err = rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan keys of %q: %w", path, err)
		}
		paths = append(paths, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("select keys of %q: %w", path, err)
	}
	return tree.Children(path, paths), nil
}

// Complete executes the queued statements in one transaction.
func (b *Backend) Complete(ctx context.Context) error {
	b.mu.Lock()
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	for _, st := range pending {
		if _, err = tx.ExecContext(ctx, st.query, st.args...); err != nil {
			return errors.Join(fmt.Errorf("exec: %w", err), tx.Rollback())
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit %d statements: %w", len(pending), err)
	}
	return nil
}

func (b *Backend) Close() error {
	return b.db.Close()
}

func (b *Backend) queue(query string, args ...any) {
	b.mu.Lock()
	b.pending = append(b.pending, statement{query: query, args: args})
	b.mu.Unlock()
}

func decode(path string, data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode %q: %w", path, err)
	}
	return v, nil
}
