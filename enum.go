package ashstorage

import "fmt"

const enumValuePath = "value"

// RegisterEnum makes a closed set of values storable by name. A value is stored as its
// fmt.Sprint form (its String method when it has one) under the "value" sub-path.
func RegisterEnum[T comparable](api *API, values ...T) {
	byName := make(map[string]T, len(values))
	for _, v := range values {
		byName[fmt.Sprint(v)] = v
	}

	Register(api, NewDecomposer(
		func(v T, d *Decomposed) {
			d.Add(enumValuePath, fmt.Sprint(v))
		},
		func(c *Container, r *Recomposed[T]) {
			r.Field(enumValuePath, c.RetrieveAsync).OnComplete(func(done Completed) (T, error) {
				var zero T
				name, err := Value[string](done, enumValuePath)
				if err != nil {
					return zero, err
				}
				v, ok := byName[name]
				if !ok {
					return zero, fmt.Errorf("%w: %q is not a %T", ErrCastMismatch, name, zero)
				}
				return v, nil
			})
		},
	))
}
