// Package cast converts untyped values, as decoded by YAML/JSON codecs or SQL drivers,
// into a requested Go type.
package cast

import (
	"math"
	"reflect"
)

// To converts v into T. Numbers are converted between kinds when the value fits
// the target without loss; slices are converted element by element.
func To[T any](v any) (T, bool) {
	var zero T
	if t, ok := v.(T); ok {
		return t, true
	}
	out, ok := Convert(v, reflect.TypeFor[T]())
	if !ok {
		return zero, false
	}
	t, ok := out.(T)
	return t, ok
}

// Convert is the reflect flavor of To.
func Convert(v any, typ reflect.Type) (any, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Type() == typ {
		return v, true
	}
	if typ.Kind() == reflect.Interface {
		if rv.Type().Implements(typ) {
			return v, true
		}
		return nil, false
	}

	switch typ.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return convertNumber(rv, typ)
	case reflect.Bool:
		if rv.Kind() == reflect.Bool {
			return rv.Convert(typ).Interface(), true
		}
	case reflect.String:
		if rv.Kind() == reflect.String {
			return rv.Convert(typ).Interface(), true
		}
	case reflect.Slice:
		return convertSlice(rv, typ)
	case reflect.Map:
		return convertMap(rv, typ)
	default:
	}
	return nil, false
}

func convertNumber(rv reflect.Value, typ reflect.Type) (any, bool) {
	switch {
	case isInt(rv.Kind()):
		n := rv.Int()
		switch {
		case isInt(typ.Kind()):
			if reflect.Zero(typ).OverflowInt(n) {
				return nil, false
			}
		case isUint(typ.Kind()):
			if n < 0 || reflect.Zero(typ).OverflowUint(uint64(n)) {
				return nil, false
			}
		}
		return rv.Convert(typ).Interface(), true

	case isUint(rv.Kind()):
		n := rv.Uint()
		switch {
		case isInt(typ.Kind()):
			if n > math.MaxInt64 || reflect.Zero(typ).OverflowInt(int64(n)) {
				return nil, false
			}
		case isUint(typ.Kind()):
			if reflect.Zero(typ).OverflowUint(n) {
				return nil, false
			}
		}
		return rv.Convert(typ).Interface(), true

	case isFloat(rv.Kind()):
		f := rv.Float()
		switch {
		case isFloat(typ.Kind()):
			if reflect.Zero(typ).OverflowFloat(f) {
				return nil, false
			}
		case isInt(typ.Kind()):
			if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 || reflect.Zero(typ).OverflowInt(int64(f)) {
				return nil, false
			}
		case isUint(typ.Kind()):
			if f != math.Trunc(f) || f < 0 || f >= math.MaxUint64 || reflect.Zero(typ).OverflowUint(uint64(f)) {
				return nil, false
			}
		}
		return rv.Convert(typ).Interface(), true
	}
	return nil, false
}

func convertSlice(rv reflect.Value, typ reflect.Type) (any, bool) {
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := reflect.MakeSlice(typ, rv.Len(), rv.Len())
	for i := 0; i < rv.Len(); i++ {
		el, ok := Convert(rv.Index(i).Interface(), typ.Elem())
		if !ok {
			return nil, false
		}
		out.Index(i).Set(reflect.ValueOf(el))
	}
	return out.Interface(), true
}

func convertMap(rv reflect.Value, typ reflect.Type) (any, bool) {
	if rv.Kind() != reflect.Map {
		return nil, false
	}
	out := reflect.MakeMapWithSize(typ, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k, ok := Convert(iter.Key().Interface(), typ.Key())
		if !ok {
			return nil, false
		}
		v, ok := Convert(iter.Value().Interface(), typ.Elem())
		if !ok {
			return nil, false
		}
		out.SetMapIndex(reflect.ValueOf(k), reflect.ValueOf(v))
	}
	return out.Interface(), true
}

func isInt(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUint(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}
