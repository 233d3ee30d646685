package ferry

// Handle is an opaque reference to an object living in a Runtime's object
// space. The zero Handle is never a valid object.
//
// A Handle does not own the object it refers to. The Runtime (and whatever
// garbage collection or arena discipline it implements) decides when the
// backing object goes away; the bridge never frees or invalidates storage
// behind a Handle.
type Handle uint64

// None is the invalid Handle. Operations that produce no value (set-item)
// return None.
const None Handle = 0

// Runtime is the surface the bridge needs from a foreign dynamic runtime.
//
// A Runtime owns an object space: Alloc materializes a dynamic object carrying
// a type tag and the tagged state needed to reconstruct the native value later.
// Tag and Data look an object up again; both report false for handles the
// runtime does not know (dangling, or minted by a different runtime).
//
// SizeOf is an introspection query in the spirit of a collector's sizeof: an
// approximate byte count for the object's backing state. The result is opaque
// and informative only; nothing in the bridge depends on it for correctness,
// and it is not stable across runtime implementations.
type Runtime interface {
	Alloc(tag string, data any) Handle
	Tag(h Handle) (string, bool)
	Data(h Handle) (any, bool)
	SizeOf(h Handle) int
}
