// Package luart hosts ferry values in a Lua state.
//
// The package implements [ferry.Runtime] over github.com/Shopify/go-lua:
// bridged objects live in a Go-side object table, scalars and sequences
// materialize in Lua as native values, and protocol types materialize as
// userdata whose named metatable routes __index, __newindex, __len and
// __tostring back through the bridge's protocol dispatch.
package luart

import (
	"math"

	lua "github.com/Shopify/go-lua"

	"github.com/ferry-go/ferry"
)

// Runtime is a Lua-backed object space.
//
// A Runtime is bound to one lua.State and follows its threading model: all
// calls must come from the goroutine driving the state. Objects are kept
// alive on the Go side of the boundary, so a handle stays reconstructible
// even after the Lua collector has dropped the userdata that carried it.
type Runtime struct {
	state   *lua.State
	bridge  *ferry.Bridge
	next    ferry.Handle
	objects map[ferry.Handle]*object
	bound   map[string]bool // tags with an installed metatable
}

// object is the boxed value behind a handle. The same *object is what
// PushUserData wraps, so a metamethod can get from a Lua argument back to the
// handle without any registry lookups.
type object struct {
	h    ferry.Handle
	tag  string
	data any
}

// New creates a runtime over the given Lua state.
func New(state *lua.State) *Runtime {
	return &Runtime{
		state:   state,
		objects: make(map[ferry.Handle]*object),
		bound:   make(map[string]bool),
	}
}

// Alloc stores a tagged object and returns its handle.
func (r *Runtime) Alloc(tag string, data any) ferry.Handle {
	r.next++
	r.objects[r.next] = &object{h: r.next, tag: tag, data: data}
	return r.next
}

// Tag returns the dynamic type tag of the object behind h.
func (r *Runtime) Tag(h ferry.Handle) (string, bool) {
	obj, ok := r.objects[h]
	if !ok {
		return "", false
	}
	return obj.tag, true
}

// Data returns the tagged state stored at allocation.
func (r *Runtime) Data(h ferry.Handle) (any, bool) {
	obj, ok := r.objects[h]
	if !ok {
		return nil, false
	}
	return obj.data, true
}

// SizeOf approximates the byte count of the object's backing state. Opaque
// and informative only, like any collector's sizeof.
func (r *Runtime) SizeOf(h ferry.Handle) int {
	obj, ok := r.objects[h]
	if !ok {
		return 0
	}
	const header = 24
	switch v := obj.data.(type) {
	case bool, byte:
		return header + 1
	case string:
		return header + len(v)
	case []ferry.Handle:
		return header + 16*len(v)
	default:
		return header + 8
	}
}

// Push materializes the object behind h on top of the Lua stack. Scalars and
// sequences become native Lua values; protocol types become userdata carrying
// their tag's metatable.
func (r *Runtime) Push(h ferry.Handle) error {
	obj, ok := r.objects[h]
	if !ok {
		return &ferry.Error{Code: ferry.CodeInvalidHandle, Message: "runtime does not know handle"}
	}
	l := r.state
	switch obj.tag {
	case ferry.TagInt:
		l.PushInteger(int(obj.data.(int64)))
	case ferry.TagByte:
		l.PushInteger(int(obj.data.(byte)))
	case ferry.TagBool:
		l.PushBoolean(obj.data.(bool))
	case ferry.TagDouble:
		l.PushNumber(obj.data.(float64))
	case ferry.TagString:
		l.PushString(obj.data.(string))
	case ferry.TagList:
		elems := obj.data.([]ferry.Handle)
		l.CreateTable(len(elems), 0)
		for i, eh := range elems {
			if err := r.Push(eh); err != nil {
				l.Pop(1)
				return err
			}
			l.RawSetInt(-2, i+1)
		}
	default:
		l.PushUserData(obj)
		if r.bound[obj.tag] {
			lua.SetMetaTableNamed(l, obj.tag)
		}
	}
	return nil
}

// Pull converts the Lua value at the given stack index into a handle,
// allocating for native Lua values. Integral numbers come back as "int",
// fractional ones as "double"; array-shaped tables come back as "list";
// userdata minted by this runtime keeps its original handle.
func (r *Runtime) Pull(index int) (ferry.Handle, error) {
	l := r.state
	switch l.TypeOf(index) {
	case lua.TypeNumber:
		n, _ := l.ToNumber(index)
		if math.Mod(n, 1) == 0 {
			return r.Alloc(ferry.TagInt, int64(n)), nil
		}
		return r.Alloc(ferry.TagDouble, n), nil
	case lua.TypeString:
		s, _ := l.ToString(index)
		return r.Alloc(ferry.TagString, s), nil
	case lua.TypeBoolean:
		return r.Alloc(ferry.TagBool, l.ToBoolean(index)), nil
	case lua.TypeTable:
		return r.pullTable(index)
	case lua.TypeUserData:
		if obj, ok := l.ToUserData(index).(*object); ok && obj != nil {
			return obj.h, nil
		}
		return ferry.None, &ferry.Error{Code: ferry.CodeTypeMismatch, Message: "foreign userdata"}
	default:
		return ferry.None, &ferry.Error{Code: ferry.CodeTypeMismatch, Message: "unsupported Lua value"}
	}
}

// pullTable converts an array-shaped table (keys 1..n with no holes) into a
// "list" object. Record-shaped tables have no bridgeable tag.
func (r *Runtime) pullTable(index int) (ferry.Handle, error) {
	l := r.state
	index = l.AbsIndex(index)

	count, maxIndex := 0, 0
	l.PushNil()
	for l.Next(index) {
		l.Pop(1)
		if l.TypeOf(-1) != lua.TypeNumber {
			l.Pop(1)
			return ferry.None, &ferry.Error{Code: ferry.CodeTypeMismatch, Message: "table is not a sequence"}
		}
		idx, ok := l.ToInteger(-1)
		if !ok || idx < 1 {
			l.Pop(1)
			return ferry.None, &ferry.Error{Code: ferry.CodeTypeMismatch, Message: "table is not a sequence"}
		}
		count++
		if idx > maxIndex {
			maxIndex = idx
		}
	}
	if maxIndex != count {
		return ferry.None, &ferry.Error{Code: ferry.CodeTypeMismatch, Message: "table has holes"}
	}

	elems := make([]ferry.Handle, 0, maxIndex)
	for i := 1; i <= maxIndex; i++ {
		l.RawGetInt(index, i)
		eh, err := r.Pull(-1)
		l.Pop(1)
		if err != nil {
			return ferry.None, err
		}
		elems = append(elems, eh)
	}
	return r.Alloc(ferry.TagList, elems), nil
}

// Global publishes the object behind h as a Lua global.
func (r *Runtime) Global(name string, h ferry.Handle) error {
	if err := r.Push(h); err != nil {
		return err
	}
	r.state.SetGlobal(name)
	return nil
}
