package ferry

import (
	"math"
	"reflect"
)

// Dynamic tags of the built-in bridgeable types. int and int64 share the
// "int" tag with int64 as the canonical tagged state, the way an interpreter
// normalizes all integer widths to one internal representation.
const (
	TagInt    = "int"
	TagBool   = "bool"
	TagByte   = "byte"
	TagDouble = "double"
	TagString = "string"
	TagList   = "list"
)

func (b *Bridge) registerBuiltins() {
	b.install(&typeInfo{
		tag:    TagInt,
		goType: reflect.TypeFor[int64](),
		lower:  func(v any) (any, error) { return v.(int64), nil },
		lift:   func(state any) (any, error) { return state.(int64), nil },
	})
	b.install(&typeInfo{
		tag:    TagInt,
		goType: reflect.TypeFor[int](),
		lower:  func(v any) (any, error) { return int64(v.(int)), nil },
		lift:   func(state any) (any, error) { return int(state.(int64)), nil },
	})
	b.install(&typeInfo{
		tag:    TagBool,
		goType: reflect.TypeFor[bool](),
		lower:  func(v any) (any, error) { return v.(bool), nil },
		lift:   func(state any) (any, error) { return state.(bool), nil },
	})
	b.install(&typeInfo{
		tag:    TagByte,
		goType: reflect.TypeFor[byte](),
		lower:  func(v any) (any, error) { return v.(byte), nil },
		lift:   func(state any) (any, error) { return state.(byte), nil },
	})
	b.install(&typeInfo{
		tag:    TagDouble,
		goType: reflect.TypeFor[float64](),
		lower:  func(v any) (any, error) { return v.(float64), nil },
		lift:   func(state any) (any, error) { return state.(float64), nil },
	})
	b.install(&typeInfo{
		tag:    TagString,
		goType: reflect.TypeFor[string](),
		lower:  func(v any) (any, error) { return v.(string), nil },
		lift:   func(state any) (any, error) { return state.(string), nil },
	})
}

// ToDynamic converts a native value into a handle in the bridge's runtime.
//
// Registered types allocate an object carrying their tag and lowered state.
// Slices of bridgeable element types convert structurally under the "list"
// tag, element by element, preserving order and length; the empty slice is a
// valid, empty sequence. An unknown type is an UNREGISTERED_TYPE error.
func (b *Bridge) ToDynamic(v any) (Handle, error) {
	if v == nil {
		return None, newError(CodeUnregisteredType, "cannot bridge nil")
	}
	t := reflect.TypeOf(v)
	if info := b.lookupType(t); info != nil {
		state, err := info.lower(v)
		if err != nil {
			return None, err
		}
		return b.rt.Alloc(info.tag, state), nil
	}
	if t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		rv := reflect.ValueOf(v)
		elems := make([]Handle, rv.Len())
		for i := range elems {
			h, err := b.ToDynamic(rv.Index(i).Interface())
			if err != nil {
				return None, err
			}
			elems[i] = h
		}
		return b.rt.Alloc(TagList, elems), nil
	}
	return None, newError(CodeUnregisteredType, "no registration for %T", v)
}

// FromDynamic reconstructs the canonical native value for a handle whose tag
// must match the expected tag. "int" lifts to int64, "list" to []any.
//
// Failure modes: UNREGISTERED_TYPE when the expected tag has no registration,
// INVALID_HANDLE when the runtime does not know the handle, TYPE_MISMATCH
// when the handle's tag disagrees with the expectation. The mismatching value
// is never coerced.
func (b *Bridge) FromDynamic(h Handle, tag string) (any, error) {
	info := b.lookupTag(tag)
	if info == nil && tag != TagList {
		return nil, newError(CodeUnregisteredType, "no registration for tag %q", tag)
	}
	got, ok := b.rt.Tag(h)
	if !ok {
		return nil, newError(CodeInvalidHandle, "runtime does not know handle %d", h)
	}
	if got != tag {
		return nil, newError(CodeTypeMismatch, "handle is %q, want %q", got, tag)
	}
	state, ok := b.rt.Data(h)
	if !ok {
		return nil, newError(CodeInvalidHandle, "runtime does not know handle %d", h)
	}
	if tag == TagList {
		elems, ok := state.([]Handle)
		if !ok {
			return nil, newError(CodeTypeMismatch, "list state is %T", state)
		}
		out := make([]any, len(elems))
		for i, eh := range elems {
			etag, ok := b.rt.Tag(eh)
			if !ok {
				return nil, newError(CodeInvalidHandle, "list element %d: unknown handle", i)
			}
			ev, err := b.FromDynamic(eh, etag)
			if err != nil {
				return nil, err
			}
			out[i] = ev
		}
		return out, nil
	}
	return info.lift(state)
}

// FromDynamicAs reconstructs a native value of type T from a handle. It is
// the statically typed counterpart of [Bridge.FromDynamic]: the handle's tag
// must match T's registered tag, and sequence element types are lifted
// recursively, so FromDynamicAs[[]int] turns a "list" of "int" objects back
// into a []int equal to the slice that produced it.
func FromDynamicAs[T any](b *Bridge, h Handle) (T, error) {
	var zero T
	v, err := b.fromDynamicTyped(h, reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

func (b *Bridge) fromDynamicTyped(h Handle, t reflect.Type) (any, error) {
	if info := b.lookupType(t); info != nil {
		got, ok := b.rt.Tag(h)
		if !ok {
			return nil, newError(CodeInvalidHandle, "runtime does not know handle %d", h)
		}
		if got != info.tag {
			return nil, newError(CodeTypeMismatch, "handle is %q, want %q (%s)", got, info.tag, t)
		}
		state, ok := b.rt.Data(h)
		if !ok {
			return nil, newError(CodeInvalidHandle, "runtime does not know handle %d", h)
		}
		return info.lift(state)
	}
	if t.Kind() == reflect.Slice {
		got, ok := b.rt.Tag(h)
		if !ok {
			return nil, newError(CodeInvalidHandle, "runtime does not know handle %d", h)
		}
		if got != TagList {
			return nil, newError(CodeTypeMismatch, "handle is %q, want %q (%s)", got, TagList, t)
		}
		state, ok := b.rt.Data(h)
		if !ok {
			return nil, newError(CodeInvalidHandle, "runtime does not know handle %d", h)
		}
		elems, ok := state.([]Handle)
		if !ok {
			return nil, newError(CodeTypeMismatch, "list state is %T", state)
		}
		out := reflect.MakeSlice(t, len(elems), len(elems))
		for i, eh := range elems {
			ev, err := b.fromDynamicTyped(eh, t.Elem())
			if err != nil {
				return nil, err
			}
			out.Index(i).Set(reflect.ValueOf(ev))
		}
		return out.Interface(), nil
	}
	return nil, newError(CodeUnregisteredType, "no registration for %s", t)
}

// coerce converts a dynamic argument to the native type a protocol method
// expects. Exact tag matches go through the typed lift; on top of that the
// usual numeric shimmering applies: an "int" argument widens to a float
// parameter, and a "double" with no fractional part narrows to an integer
// parameter.
func (b *Bridge) coerce(h Handle, t reflect.Type) (reflect.Value, error) {
	v, err := b.fromDynamicTyped(h, t)
	if err == nil {
		return reflect.ValueOf(v), nil
	}
	if !IsCode(err, CodeTypeMismatch) {
		return reflect.Value{}, err
	}

	tag, ok := b.rt.Tag(h)
	if !ok {
		return reflect.Value{}, err
	}
	state, _ := b.rt.Data(h)

	switch t.Kind() {
	case reflect.Float32, reflect.Float64:
		if tag == TagInt {
			return reflect.ValueOf(float64(state.(int64))).Convert(t), nil
		}
		if tag == TagByte {
			return reflect.ValueOf(float64(state.(byte))).Convert(t), nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if tag == TagDouble {
			f := state.(float64)
			if math.Mod(f, 1) == 0 {
				return reflect.ValueOf(int64(f)).Convert(t), nil
			}
		}
		if tag == TagByte {
			return reflect.ValueOf(int64(state.(byte))).Convert(t), nil
		}
	case reflect.Uint8:
		if tag == TagInt {
			n := state.(int64)
			if n >= 0 && n <= math.MaxUint8 {
				return reflect.ValueOf(byte(n)), nil
			}
		}
	}
	return reflect.Value{}, err
}
