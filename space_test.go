package ferry_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ferry-go/ferry"
)

func TestSpaceAllocAndLookup(t *testing.T) {
	s := ferry.NewSpace()

	h1 := s.Alloc("int", int64(42))
	h2 := s.Alloc("string", "hi")
	require.NotEqual(t, h1, h2)
	require.NotEqual(t, ferry.None, h1)

	tag, ok := s.Tag(h1)
	require.True(t, ok)
	require.Equal(t, "int", tag)

	data, ok := s.Data(h2)
	require.True(t, ok)
	require.Equal(t, "hi", data)

	require.Equal(t, 2, s.Len())
}

func TestSpaceUnknownHandle(t *testing.T) {
	s := ferry.NewSpace()

	_, ok := s.Tag(ferry.None)
	require.False(t, ok)
	_, ok = s.Data(ferry.Handle(123))
	require.False(t, ok)
	require.Equal(t, 0, s.SizeOf(ferry.Handle(123)))
}

func TestSpaceSizeOf(t *testing.T) {
	s := ferry.NewSpace()

	empty := s.SizeOf(s.Alloc("string", ""))
	long := s.SizeOf(s.Alloc("string", "hhhhhh"))
	require.Greater(t, empty, 0)
	require.Greater(t, long, empty)

	require.Greater(t, s.SizeOf(s.Alloc("byte", byte(9))), 0)
	require.Greater(t, s.SizeOf(s.Alloc("list", []ferry.Handle{1, 2})), 0)
}
