package ferry

import (
	"reflect"
)

// Op names a dynamic object protocol operation. The set is closed: a runtime
// host dispatches exactly these five operations and nothing else.
type Op string

const (
	OpCopy    Op = "copy"
	OpGetItem Op = "getitem"
	OpSetItem Op = "setitem"
	OpLen     Op = "len"
	OpRepr    Op = "repr"
)

// Protocol declares which dynamic object protocol operations a type handles
// and the native method behind each one. Every field is optional; an
// operation left nil fails at invoke time with
// UNSUPPORTED_PROTOCOL_OPERATION rather than falling back to any default.
//
// Get and Set are typed as any because key and value types are the type's own
// choice. Their shapes are checked at Define:
//
//	Get: func(T, K) V        or  func(T, K) (V, error)
//	Set: func(T, K, V)       or  func(T, K, V) error
//
// Whether Copy aliases the receiver or clones it is also the type's choice;
// whichever it picks it must do on every call.
type Protocol[T any] struct {
	Copy func(T) T
	Get  any
	Set  any
	Len  func(T) int
	Repr func(T) string
}

// protocolTable is a Protocol resolved against its receiver type. Built once
// at Define, read-only afterwards.
type protocolTable struct {
	ops map[Op]reflect.Value
}

var errorType = reflect.TypeFor[error]()

// resolveProtocol validates the protocol functions and builds the dispatch
// table.
func resolveProtocol[T any](recv reflect.Type, p *Protocol[T]) (*protocolTable, error) {
	ops := make(map[Op]reflect.Value)
	if p.Copy != nil {
		ops[OpCopy] = reflect.ValueOf(p.Copy)
	}
	if p.Len != nil {
		ops[OpLen] = reflect.ValueOf(p.Len)
	}
	if p.Repr != nil {
		ops[OpRepr] = reflect.ValueOf(p.Repr)
	}
	if p.Get != nil {
		fn, err := checkProtocolFunc(recv, p.Get, OpGetItem, 2, true)
		if err != nil {
			return nil, err
		}
		ops[OpGetItem] = fn
	}
	if p.Set != nil {
		fn, err := checkProtocolFunc(recv, p.Set, OpSetItem, 3, false)
		if err != nil {
			return nil, err
		}
		ops[OpSetItem] = fn
	}
	if len(ops) == 0 {
		return nil, newError(CodeInvalidRegistration, "protocol for %s declares no operations", recv)
	}
	return &protocolTable{ops: ops}, nil
}

// checkProtocolFunc verifies that fn is a func, takes the receiver first with
// the expected arity, and returns either a value, a value and an error, just
// an error, or nothing, depending on whether the operation produces a result.
func checkProtocolFunc(recv reflect.Type, fn any, op Op, numIn int, wantResult bool) (reflect.Value, error) {
	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func {
		return reflect.Value{}, newError(CodeInvalidRegistration, "%s for %s is %s, not a func", op, recv, t.Kind())
	}
	if t.NumIn() != numIn || t.In(0) != recv {
		return reflect.Value{}, newError(CodeInvalidRegistration,
			"%s for %s must take the receiver and %d argument(s)", op, recv, numIn-1)
	}
	if t.IsVariadic() {
		return reflect.Value{}, newError(CodeInvalidRegistration, "%s for %s must not be variadic", op, recv)
	}
	switch {
	case wantResult && t.NumOut() == 1 && t.Out(0) != errorType:
	case wantResult && t.NumOut() == 2 && t.Out(1) == errorType:
	case !wantResult && t.NumOut() == 0:
	case !wantResult && t.NumOut() == 1 && t.Out(0) == errorType:
	default:
		return reflect.Value{}, newError(CodeInvalidRegistration, "%s for %s has an unsupported result shape", op, recv)
	}
	return v, nil
}

// Invoke dispatches a dynamic object protocol operation on the object behind
// h, coercing the dynamic arguments to the native method's parameter types
// and the native result back to a handle.
//
// The dispatch order matters for the receiver's integrity: the protocol table
// lookup and all argument coercion happen before the native method runs, so a
// failed invocation never half-mutates the receiver. Set-item produces no
// value and returns None on success. A native method that returns a non-nil
// error fails the invocation with that error untouched.
func (b *Bridge) Invoke(h Handle, op Op, args ...Handle) (Handle, error) {
	tag, ok := b.rt.Tag(h)
	if !ok {
		return None, newError(CodeInvalidHandle, "runtime does not know handle %d", h)
	}
	info := b.lookupTag(tag)
	if info == nil {
		return None, newError(CodeUnregisteredType, "no registration for tag %q", tag)
	}
	if info.proto == nil {
		return None, newError(CodeUnsupportedOp, "type %q has no protocol table", tag)
	}
	fn, ok := info.proto.ops[op]
	if !ok {
		return None, newError(CodeUnsupportedOp, "type %q does not support %s", tag, op)
	}

	state, ok := b.rt.Data(h)
	if !ok {
		return None, newError(CodeInvalidHandle, "runtime does not know handle %d", h)
	}
	recv, err := info.lift(state)
	if err != nil {
		return None, err
	}

	ft := fn.Type()
	if len(args) != ft.NumIn()-1 {
		code := CodeKeyType
		if op == OpSetItem && len(args) > 1 {
			code = CodeValueType
		}
		return None, newError(code, "%s on %q takes %d argument(s), got %d", op, tag, ft.NumIn()-1, len(args))
	}

	callArgs := make([]reflect.Value, ft.NumIn())
	callArgs[0] = reflect.ValueOf(recv)
	for i, arg := range args {
		v, err := b.coerce(arg, ft.In(i+1))
		if err != nil {
			code := CodeKeyType
			if op == OpSetItem && i == 1 {
				code = CodeValueType
			}
			return None, wrapError(code, err, "%s on %q: argument %d", op, tag, i+1)
		}
		callArgs[i+1] = v
	}

	results := fn.Call(callArgs)

	// Trailing error result, when declared.
	if n := len(results); n > 0 && ft.Out(n-1) == errorType {
		if errv := results[n-1]; !errv.IsNil() {
			return None, errv.Interface().(error)
		}
		results = results[:n-1]
	}
	if len(results) == 0 {
		return None, nil
	}
	return b.ToDynamic(results[0].Interface())
}
