// Package redis stores one JSON-encoded value per path under "{prefix}:{path}".
// Writes are queued in a transaction pipeline and executed by Complete.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/Borislavv/go-ash-storage/config"
	"github.com/Borislavv/go-ash-storage/internal/tree"
)

const scanCount = 512

var (
	ErrInvalidURL       = errors.New("redis: invalid url")
	ErrConnectionFailed = errors.New("redis: connection failed")
	ErrNotList          = errors.New("redis: value is not a list")
)

type Backend struct {
	client redis.UniversalClient
	prefix string
	logger *slog.Logger

	mu   sync.Mutex
	pipe redis.Pipeliner
}

// Open connects to cfg.URL and pings the server.
func Open(ctx context.Context, cfg *config.RedisCfg, logger *slog.Logger) (*Backend, error) {
	if !strings.HasPrefix(cfg.URL, "redis://") && !strings.HasPrefix(cfg.URL, "rediss://") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, cfg.URL)
	}
	cfg.AdjustConfig()

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, errors.Join(ErrInvalidURL, err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)
	if err = client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	return New(client, cfg.Prefix, logger), nil
}

// New wraps an existing client.
func New(client redis.UniversalClient, prefix string, logger *slog.Logger) *Backend {
	return &Backend{
		client: client,
		prefix: prefix,
		logger: logger,
		pipe:   client.TxPipeline(),
	}
}

// Store queues the value of path until Complete.
func (b *Backend) Store(ctx context.Context, path string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", path, err)
	}

	b.mu.Lock()
	b.pipe.Set(ctx, b.key(path), data, 0)
	b.mu.Unlock()
	return nil
}

func (b *Backend) StoreList(ctx context.Context, path string, elems []any) error {
	return b.Store(ctx, path, elems)
}

// Delete queues the removal of path and of every path beneath it.
func (b *Backend) Delete(ctx context.Context, path string) error {
	keys, err := b.scan(ctx, path)
	if err != nil {
		return err
	}
	keys = append(keys, b.key(path))

	b.mu.Lock()
	b.pipe.Del(ctx, keys...)
	b.mu.Unlock()
	return nil
}

// Retrieve returns the value of path. A path holding no value but having descendants
// is returned as a section assembled from them.
func (b *Backend) Retrieve(ctx context.Context, path string) (any, error) {
	data, err := b.client.Get(ctx, b.key(path)).Bytes()
	switch {
	case err == nil:
		return decode(path, data)
	case !errors.Is(err, redis.Nil):
		return nil, fmt.Errorf("get %q: %w", path, err)
	}

	keys, err := b.scan(ctx, path)
	if err != nil || len(keys) == 0 {
		return nil, err
	}
	values, err := b.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget %q: %w", path, err)
	}

	leaves := make(map[string]any, len(keys))
	for i, key := range keys {
		raw, ok := values[i].(string)
		if !ok {
			continue // removed between scan and mget
		}
		if leaves[b.path(key)], err = decode(key, []byte(raw)); err != nil {
			return nil, err
		}
	}
	return tree.Section(path, leaves), nil
}

func (b *Backend) RetrieveList(ctx context.Context, path string) ([]any, error) {
	data, err := b.client.Get(ctx, b.key(path)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", path, err)
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

// Keys returns the direct children of path.
func (b *Backend) Keys(ctx context.Context, path string) ([]string, error) {
	keys, err := b.scan(ctx, path)
	if err != nil {
		return nil, err
	}
	return tree.Children(path, b.paths(keys)), nil
}

// Complete executes the queued writes atomically.
func (b *Backend) Complete(ctx context.Context) error {
	b.mu.Lock()
	pipe := b.pipe
	b.pipe = b.client.TxPipeline()
	b.mu.Unlock()

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("exec pipeline: %w", err)
	}
	return nil
}

func (b *Backend) Close() error {
	return b.client.Close()
}

/**
 * Private API.
 */

func (b *Backend) key(path string) string {
	if b.prefix == "" {
		return path
	}
	return b.prefix + ":" + path
}

func (b *Backend) path(key string) string {
	if b.prefix == "" {
		return key
	}
	return strings.TrimPrefix(key, b.prefix+":")
}

func (b *Backend) paths(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = b.path(k)
	}
	return out
}

// scan returns the keys beneath path. The empty path matches every key of the prefix.
func (b *Backend) scan(ctx context.Context, path string) ([]string, error) {
	match := b.key(escape(path) + ".*")
	if path == "" {
		match = b.key("*")
	}

	var keys []string
	iter := b.client.Scan(ctx, 0, match, scanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan %q: %w", path, err)
	}
	return keys, nil
}

// escape quotes glob metacharacters of a SCAN pattern.
func escape(path string) string {
	var sb strings.Builder
	for _, r := range path {
		switch r {
		case '*', '?', '[', ']', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func decode(path string, data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode %q: %w", path, err)
	}
	return v, nil
}
