package ashstorage

import "errors"

var (
	// ErrUnsupportedType is returned when a value or type is neither a primitive, a string,
	// a registered decomposable type nor a list the backend can hold. Nothing is mutated.
	ErrUnsupportedType = errors.New("ashstorage: unsupported type")

	// ErrCastMismatch is returned when a cached or retrieved value cannot be converted to the requested type.
	ErrCastMismatch = errors.New("ashstorage: cast mismatch")

	// ErrRecomposeTimeout is returned when a blocking typed retrieve exceeds the recompose timeout.
	ErrRecomposeTimeout = errors.New("ashstorage: recompose timeout")

	// ErrRecomposeArityMismatch is returned when a constructor expects a different number of fields
	// than the decomposer recomposes.
	ErrRecomposeArityMismatch = errors.New("ashstorage: recompose arity mismatch")

	// ErrRecomposeNullNotAllowed is returned when a required field resolved to no value.
	ErrRecomposeNullNotAllowed = errors.New("ashstorage: recompose null not allowed")

	// ErrNoRecomposer is returned when a registered type cannot be rebuilt from storage.
	ErrNoRecomposer = errors.New("ashstorage: decomposer has no recompose function")

	// ErrInvalidPath is returned for an empty path where a value must be addressed.
	ErrInvalidPath = errors.New("ashstorage: invalid path")

	// ErrClosed is returned by mutating operations on a closed container.
	ErrClosed = errors.New("ashstorage: container is closed")

	// ErrTaskPanicked fails the future of a background operation that panicked.
	ErrTaskPanicked = errors.New("ashstorage: task panicked")
)
