// Package ferry bridges statically typed Go values and a dynamically typed
// object runtime.
//
// # Overview
//
// ferry is built around two small contracts:
//
//   - A conversion bridge: every bridgeable type converts to a dynamic object
//     handle and back, losslessly. For any value v of a registered type,
//     FromDynamicAs[T](b, must(b.ToDynamic(v))) equals v under the type's own
//     equality.
//   - A protocol adapter: a native type can declare, at registration time,
//     how the fixed dynamic object protocol (copy, indexed get and set,
//     length, textual representation) maps onto its own methods, without
//     hand-writing dispatch glue for each runtime host.
//
// The foreign runtime is abstracted behind the four-method [Runtime]
// interface. [ObjectSpace] is an in-memory implementation suitable for tests
// and tools; the luart subpackage implements it over a Lua state and installs
// metatables so Lua code can index, mutate, measure, and print bridged
// values.
//
// # Quick Start
//
//	rt := ferry.NewSpace()
//	b := ferry.New(rt)
//
//	h, _ := b.ToDynamic([]int{11, 22, 33})
//	v, _ := ferry.FromDynamicAs[[]int](b, h) // []int{11, 22, 33}
//
// # Registering Types
//
// Define registers a type with its conversion pair and, optionally, a
// protocol table:
//
//	type Box struct{ value string }
//
//	ferry.Define[*Box](b, "box", ferry.TypeDef[*Box]{
//	    Proto: &ferry.Protocol[*Box]{
//	        Copy: func(x *Box) *Box { return &Box{value: x.value} },
//	        Get:  func(x *Box, key string) string { return x.value },
//	        Set:  func(x *Box, key, val string) { x.value = val },
//	        Len:  func(x *Box) int { return 1 },
//	        Repr: func(x *Box) string { return "Box:" + x.value },
//	    },
//	})
//
// Registration happens during startup; afterwards the registry is read-only
// and safe for concurrent readers. Errors carry structured codes (see [Code])
// and are always returned to the caller; the bridge neither substitutes
// defaults nor aborts.
package ferry
