package ashstorage

import (
	"context"
	"errors"
	"sync"
)

// Future is the result of an asynchronous operation. It resolves exactly once.
type Future[T any] struct {
	done chan struct{}
	once sync.Once
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Ready returns an already resolved future.
func Ready[T any](v T) *Future[T] {
	f := newFuture[T]()
	f.resolve(v, nil)
	return f
}

// Failed returns an already failed future.
func Failed[T any](err error) *Future[T] {
	f := newFuture[T]()
	var zero T
	f.resolve(zero, err)
	return f
}

func (f *Future[T]) resolve(v T, err error) {
	f.once.Do(func() {
		f.val, f.err = v, err
		close(f.done)
	})
}

// Done is closed once the future is resolved.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Wait blocks until the future resolves or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Get blocks until the future resolves.
func (f *Future[T]) Get() (T, error) {
	<-f.done
	return f.val, f.err
}

// Err blocks until the future resolves and returns its error.
func (f *Future[T]) Err() error {
	<-f.done
	return f.err
}

// IsDone reports whether the future is resolved without blocking.
func (f *Future[T]) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// thenMap resolves a new future with fn applied to the result of f.
func thenMap[A, B any](f *Future[A], fn func(A) (B, error)) *Future[B] {
	out := newFuture[B]()
	go func() {
		v, err := f.Get()
		if err != nil {
			var zero B
			out.resolve(zero, err)
			return
		}
		out.resolve(fn(v))
	}()
	return out
}

// asAny widens a typed future for recompose field declarations.
func asAny[T any](f *Future[T]) *Future[any] {
	return thenMap(f, func(v T) (any, error) { return v, nil })
}

// awaitAll waits for every future and joins their errors.
func awaitAll[T any](ctx context.Context, futures []*Future[T]) error {
	errs := make([]error, 0, len(futures))
	for _, f := range futures {
		if _, err := f.Wait(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
