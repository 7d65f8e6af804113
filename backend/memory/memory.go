// Package memory is an in-process document backend: a tree of sections guarded by a RWMutex.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Borislavv/go-ash-storage/internal/tree"
)

var (
	ErrRootPath = errors.New("memory: cannot store at the root path")
	ErrNotList  = errors.New("memory: value is not a list")
)

// Backend holds the document in memory. Stored values are deep-copied on the way in and out.
type Backend struct {
	mu        sync.RWMutex
	root      map[string]any
	completes atomic.Int64
}

func New() *Backend {
	return NewFrom(make(map[string]any))
}

// NewFrom serves root as the document. root is not copied.
func NewFrom(root map[string]any) *Backend {
	if root == nil {
		root = make(map[string]any)
	}
	return &Backend{root: root}
}

func (b *Backend) Store(_ context.Context, path string, value any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !tree.Set(b.root, path, tree.Clone(value)) {
		return ErrRootPath
	}
	return nil
}

func (b *Backend) Delete(_ context.Context, path string) error {
	b.mu.Lock()
	tree.Delete(b.root, path)
	b.mu.Unlock()
	return nil
}

// Retrieve returns nil for an absent path.
func (b *Backend) Retrieve(_ context.Context, path string) (any, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if v, ok := tree.Get(b.root, path); ok {
		return tree.Clone(v), nil
	}
	return nil, nil
}

// Complete counts completions; the document is already in place.
func (b *Backend) Complete(context.Context) error {
	b.completes.Add(1)
	return nil
}

func (b *Backend) Keys(_ context.Context, path string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return tree.Keys(b.root, path), nil
}

func (b *Backend) StoreList(ctx context.Context, path string, elems []any) error {
	return b.Store(ctx, path, elems)
}

func (b *Backend) RetrieveList(ctx context.Context, path string) ([]any, error) {
	v, err := b.Retrieve(ctx, path)
	if err != nil || v == nil {
		return nil, err
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %q holds %T", ErrNotList, path, v)
	}
	return list, nil
}

// Snapshot returns a deep copy of the whole document.
func (b *Backend) Snapshot() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return tree.Clone(b.root).(map[string]any)
}

// Replace swaps the whole document.
func (b *Backend) Replace(root map[string]any) {
	if root == nil {
		root = make(map[string]any)
	}
	b.mu.Lock()
	b.root = root
	b.mu.Unlock()
}

// Completes returns how many times Complete was called.
func (b *Backend) Completes() int64 {
	return b.completes.Load()
}
