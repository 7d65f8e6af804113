// Package testutil provides backends and configuration for tests.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/Borislavv/go-ash-storage/backend/memory"
)

const (
	OpStore        = "store"
	OpDelete       = "delete"
	OpRetrieve     = "retrieve"
	OpComplete     = "complete"
	OpKeys         = "keys"
	OpStoreList    = "store_list"
	OpRetrieveList = "retrieve_list"
)

// Call is one recorded backend call.
type Call struct {
	Op    string
	Path  string
	Value any
}

// Recorder is an in-memory list-capable backend recording every call.
// Failures and delays can be injected per operation.
type Recorder struct {
	*memory.Backend

	mu       sync.Mutex
	calls    []Call
	failures map[string]error
	delays   map[string]time.Duration
}

func NewRecorder() *Recorder {
	return &Recorder{
		Backend:  memory.New(),
		failures: make(map[string]error),
		delays:   make(map[string]time.Duration),
	}
}

// FailOn makes op fail with err. A path of "" fails op for every path.
func (r *Recorder) FailOn(op, path string, err error) {
	r.mu.Lock()
	r.failures[op+"|"+path] = err
	r.mu.Unlock()
}

// Delay makes op sleep for d (or until its context is done) before running.
func (r *Recorder) Delay(op string, d time.Duration) {
	r.mu.Lock()
	r.delays[op] = d
	r.mu.Unlock()
}

func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Count returns how many calls of op were recorded.
func (r *Recorder) Count(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Paths returns the paths of the recorded calls of op in call order.
func (r *Recorder) Paths(op string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, c := range r.calls {
		if c.Op == op {
			out = append(out, c.Path)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}

func (r *Recorder) Store(ctx context.Context, path string, value any) error {
	if err := r.record(ctx, OpStore, path, value); err != nil {
		return err
	}
	return r.Backend.Store(ctx, path, value)
}

func (r *Recorder) Delete(ctx context.Context, path string) error {
	if err := r.record(ctx, OpDelete, path, nil); err != nil {
		return err
	}
	return r.Backend.Delete(ctx, path)
}

func (r *Recorder) Retrieve(ctx context.Context, path string) (any, error) {
	if err := r.record(ctx, OpRetrieve, path, nil); err != nil {
		return nil, err
	}
	return r.Backend.Retrieve(ctx, path)
}

func (r *Recorder) Complete(ctx context.Context) error {
	if err := r.record(ctx, OpComplete, "", nil); err != nil {
		return err
	}
	return r.Backend.Complete(ctx)
}

func (r *Recorder) Keys(ctx context.Context, path string) ([]string, error) {
	if err := r.record(ctx, OpKeys, path, nil); err != nil {
		return nil, err
	}
	return r.Backend.Keys(ctx, path)
}

func (r *Recorder) StoreList(ctx context.Context, path string, elems []any) error {
	if err := r.record(ctx, OpStoreList, path, elems); err != nil {
		return err
	}
	return r.Backend.StoreList(ctx, path, elems)
}

func (r *Recorder) RetrieveList(ctx context.Context, path string) ([]any, error) {
	if err := r.record(ctx, OpRetrieveList, path, nil); err != nil {
		return nil, err
	}
	return r.Backend.RetrieveList(ctx, path)
}

func (r *Recorder) record(ctx context.Context, op, path string, value any) error {
	r.mu.Lock()
	r.calls = append(r.calls, Call{Op: op, Path: path, Value: value})
	err, ok := r.failures[op+"|"+path]
	if !ok {
		err = r.failures[op+"|"]
	}
	delay := r.delays[op]
	r.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

type basic interface {
	Store(ctx context.Context, path string, value any) error
	Delete(ctx context.Context, path string) error
	Retrieve(ctx context.Context, path string) (any, error)
	Complete(ctx context.Context) error
	Keys(ctx context.Context, path string) ([]string, error)
}

// Plain hides the list capability of a Recorder.
type Plain struct {
	basic
	Recorder *Recorder
}

func NewPlain() *Plain {
	r := NewRecorder()
	return &Plain{basic: r, Recorder: r}
}
