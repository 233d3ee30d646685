package luart_test

import (
	"testing"

	lua "github.com/Shopify/go-lua"
	"github.com/stretchr/testify/require"

	"github.com/ferry-go/ferry"
	"github.com/ferry-go/ferry/luart"
)

// Box mirrors the canonical protocol example from the root package tests.
type Box struct {
	value string
}

func newHost(t *testing.T) (*lua.State, *luart.Runtime, *ferry.Bridge) {
	t.Helper()
	state := lua.NewState()
	lua.OpenLibraries(state)
	rt := luart.New(state)
	b := ferry.New(rt)
	return state, rt, b
}

func defineBox(t *testing.T, b *ferry.Bridge) {
	t.Helper()
	err := ferry.Define[*Box](b, "box", ferry.TypeDef[*Box]{
		Proto: &ferry.Protocol[*Box]{
			Copy: func(x *Box) *Box { return &Box{value: x.value} },
			Get:  func(x *Box, key string) string { return x.value },
			Set:  func(x *Box, key, val string) { x.value = val },
			Len:  func(x *Box) int { return 1 },
			Repr: func(x *Box) string { return "Box:" + x.value },
		},
	})
	require.NoError(t, err)
}

func TestPushPullScalars(t *testing.T) {
	state, rt, b := newHost(t)

	for _, v := range []any{int64(42), int64(0), int64(-3), 2.5, true, false, "hello", ""} {
		h, err := b.ToDynamic(v)
		require.NoError(t, err)
		require.NoError(t, rt.Push(h))

		back, err := rt.Pull(-1)
		state.Pop(1)
		require.NoError(t, err)

		tag, ok := rt.Tag(h)
		require.True(t, ok)
		got, err := b.FromDynamic(back, tag)
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestPushPullByteLosesWidthNotValue(t *testing.T) {
	state, rt, b := newHost(t)

	// A byte renders as a plain Lua integer; crossing back it is an "int".
	h, err := b.ToDynamic(byte(99))
	require.NoError(t, err)
	require.NoError(t, rt.Push(h))
	back, err := rt.Pull(-1)
	state.Pop(1)
	require.NoError(t, err)

	n, err := ferry.FromDynamicAs[int](b, back)
	require.NoError(t, err)
	require.Equal(t, 99, n)
}

func TestPushPullSequences(t *testing.T) {
	state, rt, b := newHost(t)

	for _, v := range [][]int{{11, 22, 33}, {}} {
		h, err := b.ToDynamic(v)
		require.NoError(t, err)
		require.NoError(t, rt.Push(h))
		require.Equal(t, lua.TypeTable, state.TypeOf(-1))

		back, err := rt.Pull(-1)
		state.Pop(1)
		require.NoError(t, err)

		got, err := ferry.FromDynamicAs[[]int](b, back)
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestPullRejectsRecordTables(t *testing.T) {
	state, rt, _ := newHost(t)

	require.NoError(t, lua.DoString(state, `t = {a = 1, b = 2}`))
	state.Global("t")
	_, err := rt.Pull(-1)
	state.Pop(1)
	require.True(t, ferry.IsCode(err, ferry.CodeTypeMismatch))
}

func TestPullUserDataKeepsHandle(t *testing.T) {
	state, rt, b := newHost(t)
	defineBox(t, b)
	rt.Bind(b)

	h, err := b.ToDynamic(&Box{value: "x"})
	require.NoError(t, err)
	require.NoError(t, rt.Push(h))
	back, err := rt.Pull(-1)
	state.Pop(1)
	require.NoError(t, err)
	require.Equal(t, h, back)
}

func TestMetatableDispatch(t *testing.T) {
	state, rt, b := newHost(t)
	defineBox(t, b)
	rt.Bind(b)

	box := &Box{value: "x"}
	h, err := b.ToDynamic(box)
	require.NoError(t, err)
	require.NoError(t, rt.Global("b", h))

	require.NoError(t, lua.DoString(state, `
		assert(#b == 1)
		assert(b["k"] == "x")
		assert(tostring(b) == "Box:x")
		b["k"] = "y"
		assert(b["k"] == "y")
		local c = b:copy()
		assert(tostring(c) == "Box:y")
		c["k"] = "z"
		assert(tostring(c) == "Box:z")
		assert(tostring(b) == "Box:y")
	`))

	// Mutation through __newindex reached the native instance.
	require.Equal(t, "y", box.value)
}

func TestUnsupportedOperationSurfacesInLua(t *testing.T) {
	state, rt, b := newHost(t)

	type readOnly struct{ items []string }
	err := ferry.Define[*readOnly](b, "read-only", ferry.TypeDef[*readOnly]{
		Proto: &ferry.Protocol[*readOnly]{
			Get: func(r *readOnly, i int) string { return r.items[i-1] },
		},
	})
	require.NoError(t, err)
	rt.Bind(b)

	r := &readOnly{items: []string{"a", "b"}}
	h, err := b.ToDynamic(r)
	require.NoError(t, err)
	require.NoError(t, rt.Global("r", h))

	require.NoError(t, lua.DoString(state, `
		assert(r[1] == "a")
		local ok, err = pcall(function() r[1] = "z" end)
		assert(not ok)
		assert(string.find(tostring(err), "UNSUPPORTED_PROTOCOL_OPERATION", 1, true))
		local ok2, err2 = pcall(function() return #r end)
		assert(not ok2)
		assert(string.find(tostring(err2), "UNSUPPORTED_PROTOCOL_OPERATION", 1, true))
	`))

	// The rejected set-item never touched the receiver.
	require.Equal(t, []string{"a", "b"}, r.items)
}

func TestKeyCoercionErrorSurfacesInLua(t *testing.T) {
	state, rt, b := newHost(t)
	defineBox(t, b)
	rt.Bind(b)

	h, err := b.ToDynamic(&Box{value: "x"})
	require.NoError(t, err)
	require.NoError(t, rt.Global("b", h))

	require.NoError(t, lua.DoString(state, `
		local ok, err = pcall(function() return b[true] end)
		assert(not ok)
		assert(string.find(tostring(err), "KEY_TYPE_ERROR", 1, true))
	`))
}

func TestGlobalsCrossTheBoundary(t *testing.T) {
	state, rt, b := newHost(t)

	h, err := b.ToDynamic([]int{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, rt.Global("xs", h))

	require.NoError(t, lua.DoString(state, `
		total = 0
		for _, n in ipairs(xs) do total = total + n end
	`))

	state.Global("total")
	back, err := rt.Pull(-1)
	state.Pop(1)
	require.NoError(t, err)

	total, err := ferry.FromDynamicAs[int](b, back)
	require.NoError(t, err)
	require.Equal(t, 6, total)
}
