package ashstorage

import (
	"context"
	"reflect"
)

// Get returns the cached value of path as T. ok is false on a miss.
func Get[T any](c *Container, path string) (v T, ok bool, err error) {
	raw, ok := c.Get(path)
	if !ok {
		return v, false, nil
	}
	if v, err = castAs[T](raw, path); err != nil {
		return v, false, err
	}
	return v, true, nil
}

// GetOrElse returns the cached value of path as T, or orElse on a miss or a type mismatch.
func GetOrElse[T any](c *Container, path string, orElse T) T {
	v, ok, err := Get[T](c, path)
	if !ok || err != nil {
		return orElse
	}
	return v
}

// Retrieve is Container.Retrieve followed by a checked conversion to T.
func Retrieve[T any](ctx context.Context, c *Container, path string) (T, error) {
	raw, err := c.Retrieve(ctx, path)
	if err != nil {
		var zero T
		return zero, err
	}
	return castAs[T](raw, path)
}

// RetrieveOrElse is Retrieve returning orElse when path is absent.
func RetrieveOrElse[T any](ctx context.Context, c *Container, path string, orElse T) (T, error) {
	raw, err := c.Retrieve(ctx, path)
	if err != nil || raw == nil {
		return orElse, err
	}
	return castAs[T](raw, path)
}

// RetrieveAs retrieves path as T. Registered types are recomposed from their fragments,
// waiting at most the container's recompose timeout; slices are read element by element.
// An absent path yields the zero T.
func RetrieveAs[T any](ctx context.Context, c *Container, path string) (T, error) {
	raw, err := c.retrieveAs(ctx, path, reflect.TypeFor[T]())
	if err != nil {
		var zero T
		return zero, err
	}
	return castAs[T](raw, path)
}

// RetrieveAsOrElse is RetrieveAs returning orElse when path is absent.
func RetrieveAsOrElse[T any](ctx context.Context, c *Container, path string, orElse T) (T, error) {
	raw, err := c.retrieveAs(ctx, path, reflect.TypeFor[T]())
	if err != nil || raw == nil {
		return orElse, err
	}
	return castAs[T](raw, path)
}

// RetrieveOrElseAsync is RetrieveOrElse running on the scheduler.
func RetrieveOrElseAsync[T any](ctx context.Context, c *Container, path string, orElse T) *Future[T] {
	return thenMap(c.RetrieveAsync(ctx, path), orElseCast(path, orElse))
}

// RetrieveAsOrElseAsync is RetrieveAsOrElse without blocking the caller.
func RetrieveAsOrElseAsync[T any](ctx context.Context, c *Container, path string, orElse T) *Future[T] {
	return thenMap(c.retrieveAsAsync(ctx, path, reflect.TypeFor[T]()), orElseCast(path, orElse))
}

func RetrieveAsAsync[T any](ctx context.Context, c *Container, path string) *Future[T] {
	return thenMap(c.retrieveAsAsync(ctx, path, reflect.TypeFor[T]()), func(raw any) (T, error) {
		return castAs[T](raw, path)
	})
}

// RetrieveList retrieves a list of primitives or registered values.
func RetrieveList[T any](ctx context.Context, c *Container, path string) ([]T, error) {
	return RetrieveAs[[]T](ctx, c, path)
}

func RetrieveListAsync[T any](ctx context.Context, c *Container, path string) *Future[[]T] {
	return RetrieveAsAsync[[]T](ctx, c, path)
}

// Implicit resolves a field with Container.RetrieveAsync, as the backend holds it.
func Implicit(c *Container) RetrieveFunc {
	return c.RetrieveAsync
}

// Nested resolves a field by recomposing a registered V stored beneath it.
func Nested[V any](c *Container) RetrieveFunc {
	typ := reflect.TypeFor[V]()
	return func(ctx context.Context, path string) *Future[any] {
		return c.retrieveAsAsync(ctx, path, typ)
	}
}

// ListOf resolves a field holding a list of V.
func ListOf[V any](c *Container) RetrieveFunc {
	return Nested[[]V](c)
}

func orElseCast[T any](path string, orElse T) func(raw any) (T, error) {
	return func(raw any) (T, error) {
		if raw == nil {
			return orElse, nil
		}
		return castAs[T](raw, path)
	}
}
