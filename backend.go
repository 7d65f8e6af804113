package ashstorage

import "context"

// Backend is the storage medium behind a container. Paths are dot-delimited.
// Retrieve reports an absent path as (nil, nil). Complete persists everything
// written since the previous call (e.g. saves a document file).
type Backend interface {
	Store(ctx context.Context, path string, value any) error
	Delete(ctx context.Context, path string) error
	Retrieve(ctx context.Context, path string) (any, error)
	Complete(ctx context.Context) error
	Keys(ctx context.Context, path string) ([]string, error)
}

// ListBackend is a Backend able to hold ordered lists natively.
// Elements are primitives, nested map[string]any sections or nested lists.
type ListBackend interface {
	Backend
	StoreList(ctx context.Context, path string, elems []any) error
	RetrieveList(ctx context.Context, path string) ([]any, error)
}

// RetrieveCompleter is implemented by backends needing a hook after a blocking retrieve.
type RetrieveCompleter interface {
	CompleteRetrieve(ctx context.Context) error
}

// Hooks is a Backend made of plain functions. Store, Delete and Retrieve are required.
type Hooks struct {
	Store            func(ctx context.Context, path string, value any) error
	Delete           func(ctx context.Context, path string) error
	Retrieve         func(ctx context.Context, path string) (any, error)
	Complete         func(ctx context.Context) error
	CompleteRetrieve func(ctx context.Context) error
	Keys             func(ctx context.Context, path string) ([]string, error)
}

// HookBackend adapts Hooks to Backend.
type HookBackend struct {
	hooks Hooks
}

// FromHooks wraps a set of functions as a Backend.
func FromHooks(h Hooks) *HookBackend {
	return &HookBackend{hooks: h}
}

func (b *HookBackend) Store(ctx context.Context, path string, value any) error {
	return b.hooks.Store(ctx, path, value)
}

func (b *HookBackend) Delete(ctx context.Context, path string) error {
	return b.hooks.Delete(ctx, path)
}

func (b *HookBackend) Retrieve(ctx context.Context, path string) (any, error) {
	return b.hooks.Retrieve(ctx, path)
}

func (b *HookBackend) Complete(ctx context.Context) error {
	if b.hooks.Complete == nil {
		return nil
	}
	return b.hooks.Complete(ctx)
}

func (b *HookBackend) CompleteRetrieve(ctx context.Context) error {
	if b.hooks.CompleteRetrieve == nil {
		return nil
	}
	return b.hooks.CompleteRetrieve(ctx)
}

func (b *HookBackend) Keys(ctx context.Context, path string) ([]string, error) {
	if b.hooks.Keys == nil {
		return nil, nil
	}
	return b.hooks.Keys(ctx, path)
}
