package ashstorage

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// FieldTag is the struct tag matched against field paths when no constructor is declared.
const FieldTag = "storage"

// Field describes one stored field of T.
type Field[T any] struct {
	// Path is the sub-path of the field beneath the object's path.
	Path string

	// Get reads the field for storing. A nil Get makes the field recompose-only.
	Get func(v T) any

	// StoreOnly excludes the field from recomposition.
	StoreOnly bool

	// Retrieve selects how the field is resolved (Implicit, Nested[V], ListOf[V]).
	// Nil means Implicit.
	Retrieve func(c *Container) RetrieveFunc

	// AllowNil accepts an absent value instead of failing with ErrRecomposeNullNotAllowed.
	AllowNil bool
}

type fieldOptions[T any] struct {
	arity     int
	construct func(args []any) (T, error)
}

// FieldOption configures NewFieldDecomposer.
type FieldOption[T any] func(o *fieldOptions[T])

// WithConstructor builds T from the recomposed field values in declaration order.
// arity must match the number of recomposed fields.
func WithConstructor[T any](arity int, fn func(args []any) (T, error)) FieldOption[T] {
	return func(o *fieldOptions[T]) {
		o.arity = arity
		o.construct = fn
	}
}

// NewFieldDecomposer builds a decomposer from an explicit field table. Without a constructor,
// the resolved values are decoded into T by matching field paths to `storage` struct tags.
func NewFieldDecomposer[T any](fields []Field[T], opts ...FieldOption[T]) (*Decomposer[T], error) {
	o := &fieldOptions[T]{}
	for _, opt := range opts {
		opt(o)
	}

	recomposed := make([]Field[T], 0, len(fields))
	for _, f := range fields {
		if !f.StoreOnly {
			recomposed = append(recomposed, f)
		}
	}
	if o.construct != nil && o.arity != len(recomposed) {
		return nil, fmt.Errorf("%w: %T constructor takes %d values, %d fields are recomposed",
			ErrRecomposeArityMismatch, *new(T), o.arity, len(recomposed))
	}

	decompose := func(v T, d *Decomposed) {
		for _, f := range fields {
			if f.Get != nil {
				d.Add(f.Path, f.Get(v))
			}
		}
	}

	recompose := func(c *Container, r *Recomposed[T]) {
		for _, f := range recomposed {
			retrieve := Implicit(c)
			if f.Retrieve != nil {
				retrieve = f.Retrieve(c)
			}
			r.Field(f.Path, retrieve)
		}
		r.OnComplete(func(done Completed) (T, error) {
			var zero T

			args := make([]any, 0, len(recomposed))
			for _, f := range recomposed {
				v := done.Get(f.Path)
				if v == nil && !f.AllowNil {
					return zero, fmt.Errorf("%w: %T field %q", ErrRecomposeNullNotAllowed, zero, f.Path)
				}
				args = append(args, v)
			}

			if o.construct != nil {
				return o.construct(args)
			}
			return decodeFields[T](recomposed, args)
		})
	}

	return NewDecomposer(decompose, recompose), nil
}

func decodeFields[T any](fields []Field[T], args []any) (T, error) {
	var out T

	input := make(map[string]any, len(fields))
	for i, f := range fields {
		if args[i] != nil {
			input[f.Path] = args[i]
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: FieldTag,
		Result:  &out,
	})
	if err != nil {
		return out, err
	}
	if err = decoder.Decode(input); err != nil {
		return out, fmt.Errorf("%w: decode %T: %v", ErrCastMismatch, out, err)
	}
	return out, nil
}
