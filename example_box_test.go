package ferry_test

import (
	"fmt"

	"github.com/ferry-go/ferry"
)

// Carton is a single-slot container used to show protocol registration.
type Carton struct {
	value string
}

// This example registers a container type with the full protocol table and
// drives it through the bridge the way a dynamic runtime host would.
func Example_protocolType() {
	b := ferry.New(ferry.NewSpace())

	ferry.Define[*Carton](b, "carton", ferry.TypeDef[*Carton]{
		Proto: &ferry.Protocol[*Carton]{
			Copy: func(c *Carton) *Carton { return &Carton{value: c.value} },
			Get:  func(c *Carton, key string) string { return c.value },
			Set:  func(c *Carton, key, val string) { c.value = val },
			Len:  func(c *Carton) int { return 1 },
			Repr: func(c *Carton) string { return "Carton:" + c.value },
		},
	})

	h, _ := b.ToDynamic(&Carton{value: "x"})

	length, _ := b.Invoke(h, ferry.OpLen)
	n, _ := ferry.FromDynamicAs[int](b, length)
	fmt.Println("len:", n)

	key, _ := b.ToDynamic("k")
	item, _ := b.Invoke(h, ferry.OpGetItem, key)
	s, _ := ferry.FromDynamicAs[string](b, item)
	fmt.Println("item:", s)

	repr, _ := b.Invoke(h, ferry.OpRepr)
	s, _ = ferry.FromDynamicAs[string](b, repr)
	fmt.Println("repr:", s)

	// Output:
	// len: 1
	// item: x
	// repr: Carton:x
}

// This example shows the round-trip law the bridge is built around.
func Example_roundTrip() {
	b := ferry.New(ferry.NewSpace())

	h, _ := b.ToDynamic(42)
	n, _ := ferry.FromDynamicAs[int](b, h)
	fmt.Println(n)

	lh, _ := b.ToDynamic([]string{"a", "b"})
	xs, _ := ferry.FromDynamicAs[[]string](b, lh)
	fmt.Println(xs)

	// A mismatched expectation is a typed error, never a coerced value.
	_, err := ferry.FromDynamicAs[string](b, h)
	fmt.Println(ferry.IsCode(err, ferry.CodeTypeMismatch))

	// Output:
	// 42
	// [a b]
	// true
}
