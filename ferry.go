package ferry

import (
	"reflect"
	"sync"
)

// Bridge moves values between statically typed Go code and a dynamically
// typed Runtime.
//
// Create a Bridge with [New], register any custom types with [Define] during
// startup, and treat the registry as read-only afterwards. Registered
// conversions may then be exercised from any goroutine that the Runtime's own
// threading model permits; the Bridge takes no locks around value conversion
// or protocol dispatch.
//
//	rt := ferry.NewSpace()
//	b := ferry.New(rt)
//	h, _ := b.ToDynamic(42)
//	v, _ := ferry.FromDynamicAs[int](b, h) // 42
type Bridge struct {
	rt Runtime

	mu      sync.RWMutex
	tags    map[string]*typeInfo
	goTypes map[reflect.Type]*typeInfo
}

// typeInfo is the resolved registration for one bridgeable type.
type typeInfo struct {
	tag    string
	goType reflect.Type
	lower  func(any) (any, error) // native value -> tagged state
	lift   func(any) (any, error) // tagged state -> native value
	proto  *protocolTable         // nil when the type has no protocol table
}

// New creates a Bridge over the given runtime with the built-in scalar and
// sequence types already registered.
func New(rt Runtime) *Bridge {
	b := &Bridge{
		rt:      rt,
		tags:    make(map[string]*typeInfo),
		goTypes: make(map[reflect.Type]*typeInfo),
	}
	b.registerBuiltins()
	return b
}

// Runtime returns the foreign runtime this bridge allocates into.
func (b *Bridge) Runtime() Runtime { return b.rt }

// TypeDef describes a bridgeable type for [Define].
//
// Lower converts a native value to the tagged state stored in the runtime's
// object; Lift reconstructs a native value from that state. Both are optional:
// by default the native value itself is stored, which is the right choice for
// pointer types whose protocol operations mutate the receiver in place.
//
// Proto, when non-nil, opts the type into the dynamic object protocol.
type TypeDef[T any] struct {
	Lower func(T) any
	Lift  func(any) (T, error)
	Proto *Protocol[T]
}

// Define registers a bridgeable type under the given dynamic tag.
//
// Registration is meant to happen once, during program or module
// initialization; the first registration for a tag or a Go type wins and a
// duplicate is an INVALID_REGISTRATION error. Protocol functions are resolved
// and validated here, not at dispatch time.
func Define[T any](b *Bridge, tag string, def TypeDef[T]) error {
	goType := reflect.TypeFor[T]()
	if tag == "" {
		return newError(CodeInvalidRegistration, "empty tag for type %s", goType)
	}

	info := &typeInfo{tag: tag, goType: goType}

	if def.Lower != nil {
		lower := def.Lower
		info.lower = func(v any) (any, error) {
			tv, ok := v.(T)
			if !ok {
				return nil, newError(CodeTypeMismatch, "expected %s, got %T", goType, v)
			}
			return lower(tv), nil
		}
	} else {
		info.lower = func(v any) (any, error) {
			if _, ok := v.(T); !ok {
				return nil, newError(CodeTypeMismatch, "expected %s, got %T", goType, v)
			}
			return v, nil
		}
	}

	if def.Lift != nil {
		lift := def.Lift
		info.lift = func(state any) (any, error) {
			v, err := lift(state)
			if err != nil {
				return nil, err
			}
			return v, nil
		}
	} else {
		info.lift = func(state any) (any, error) {
			tv, ok := state.(T)
			if !ok {
				return nil, newError(CodeTypeMismatch, "tagged state is %T, not %s", state, goType)
			}
			return tv, nil
		}
	}

	if def.Proto != nil {
		proto, err := resolveProtocol(goType, def.Proto)
		if err != nil {
			return err
		}
		info.proto = proto
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.tags[tag]; exists {
		return newError(CodeInvalidRegistration, "tag %q already registered", tag)
	}
	if _, exists := b.goTypes[goType]; exists {
		return newError(CodeInvalidRegistration, "type %s already registered", goType)
	}
	b.tags[tag] = info
	b.goTypes[goType] = info
	return nil
}

// install registers a built-in typeInfo. Unlike Define it lets several Go
// types share one dynamic tag (int and int64 both carry the "int" tag); the
// first install for a tag becomes the canonical registration used by
// FromDynamic.
func (b *Bridge) install(info *typeInfo) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.tags[info.tag]; !exists {
		b.tags[info.tag] = info
	}
	b.goTypes[info.goType] = info
}

// lookupTag returns the canonical registration for a dynamic tag.
func (b *Bridge) lookupTag(tag string) *typeInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.tags[tag]
}

// lookupType returns the registration for a Go type.
func (b *Bridge) lookupType(t reflect.Type) *typeInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.goTypes[t]
}

// ProtocolTags returns the tags of every registered type that opted into the
// dynamic object protocol. Runtime hosts use this to install their dispatch
// glue (metatables, slot tables) once at startup.
func (b *Bridge) ProtocolTags() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var tags []string
	for tag, info := range b.tags {
		if info.proto != nil {
			tags = append(tags, tag)
		}
	}
	return tags
}

// Supports reports whether the type registered under tag handles the given
// protocol operation.
func (b *Bridge) Supports(tag string, op Op) bool {
	info := b.lookupTag(tag)
	if info == nil || info.proto == nil {
		return false
	}
	_, ok := info.proto.ops[op]
	return ok
}

// SizeOf converts v and queries the runtime's sizeof-style introspection for
// the resulting object. The result is an opaque, runtime-defined integer;
// repr implementations may fold it into their output, nothing else should
// depend on it.
func (b *Bridge) SizeOf(v any) (int, error) {
	h, err := b.ToDynamic(v)
	if err != nil {
		return 0, err
	}
	return b.rt.SizeOf(h), nil
}
