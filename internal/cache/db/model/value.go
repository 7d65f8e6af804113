package model

import "reflect"

// Value is a cached object together with its dynamic type.
type Value struct {
	v   any
	typ reflect.Type
}

func NewValue(v any) Value {
	return Value{v: v, typ: reflect.TypeOf(v)}
}

func (v Value) Any() any           { return v.v }
func (v Value) Type() reflect.Type { return v.typ }
func (v Value) IsNil() bool        { return v.v == nil }
