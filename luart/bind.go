package luart

import (
	lua "github.com/Shopify/go-lua"

	"github.com/ferry-go/ferry"
)

// Bind installs a named metatable for every protocol type registered with the
// bridge and remembers the bridge for dispatch. Call it once, after all
// Define calls and before any Push of a protocol value.
//
// Each metatable wires the fixed protocol surface:
//
//	__index     method lookup ("copy"), then get-item
//	__newindex  set-item
//	__len       length
//	__tostring  repr
//
// An operation missing from the type's protocol table surfaces as a Lua
// error carrying the UNSUPPORTED_PROTOCOL_OPERATION code, never as a silent
// nil or default.
func (r *Runtime) Bind(b *ferry.Bridge) {
	r.bridge = b
	for _, tag := range b.ProtocolTags() {
		if r.bound[tag] {
			continue
		}
		lua.NewMetaTable(r.state, tag)
		lua.SetFunctions(r.state, []lua.RegistryFunction{
			{Name: "__index", Function: r.metaIndex(tag)},
			{Name: "__newindex", Function: r.metaNewIndex(tag)},
			{Name: "__len", Function: r.metaLen(tag)},
			{Name: "__tostring", Function: r.metaToString(tag)},
		}, 0)
		r.state.Pop(1)
		r.bound[tag] = true
	}
}

// checkObject validates the receiver userdata at the given argument index.
func (r *Runtime) checkObject(l *lua.State, index int, tag string) *object {
	ud := lua.CheckUserData(l, index, tag)
	if obj, ok := ud.(*object); ok && obj != nil {
		return obj
	}
	lua.ArgumentError(l, index, tag+" expected")
	return nil
}

// raise turns a bridge error into a Lua error. The structured code stays in
// the message so scripts can match on it with pcall.
func raise(l *lua.State, err error) int {
	lua.Errorf(l, "%s", err.Error())
	return 0
}

// pushResult pushes an invocation result, or nothing for valueless
// operations.
func (r *Runtime) pushResult(l *lua.State, h ferry.Handle) int {
	if h == ferry.None {
		return 0
	}
	if err := r.Push(h); err != nil {
		return raise(l, err)
	}
	return 1
}

func (r *Runtime) metaIndex(tag string) lua.Function {
	return func(l *lua.State) int {
		obj := r.checkObject(l, 1, tag)

		// Method names shadow item keys, the standard metatable trade-off
		// when attribute and item access collapse into one __index.
		if l.TypeOf(2) == lua.TypeString {
			if name, _ := l.ToString(2); name == "copy" && r.bridge.Supports(tag, ferry.OpCopy) {
				l.PushGoFunction(r.methodCopy(tag))
				return 1
			}
		}

		key, err := r.Pull(2)
		if err != nil {
			return raise(l, err)
		}
		res, err := r.bridge.Invoke(obj.h, ferry.OpGetItem, key)
		if err != nil {
			return raise(l, err)
		}
		return r.pushResult(l, res)
	}
}

func (r *Runtime) methodCopy(tag string) lua.Function {
	return func(l *lua.State) int {
		obj := r.checkObject(l, 1, tag)
		res, err := r.bridge.Invoke(obj.h, ferry.OpCopy)
		if err != nil {
			return raise(l, err)
		}
		return r.pushResult(l, res)
	}
}

func (r *Runtime) metaNewIndex(tag string) lua.Function {
	return func(l *lua.State) int {
		obj := r.checkObject(l, 1, tag)
		key, err := r.Pull(2)
		if err != nil {
			return raise(l, err)
		}
		val, err := r.Pull(3)
		if err != nil {
			return raise(l, err)
		}
		if _, err := r.bridge.Invoke(obj.h, ferry.OpSetItem, key, val); err != nil {
			return raise(l, err)
		}
		return 0
	}
}

func (r *Runtime) metaLen(tag string) lua.Function {
	return func(l *lua.State) int {
		obj := r.checkObject(l, 1, tag)
		res, err := r.bridge.Invoke(obj.h, ferry.OpLen)
		if err != nil {
			return raise(l, err)
		}
		return r.pushResult(l, res)
	}
}

func (r *Runtime) metaToString(tag string) lua.Function {
	return func(l *lua.State) int {
		obj := r.checkObject(l, 1, tag)
		res, err := r.bridge.Invoke(obj.h, ferry.OpRepr)
		if err != nil {
			return raise(l, err)
		}
		return r.pushResult(l, res)
	}
}
