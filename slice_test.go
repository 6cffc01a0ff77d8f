package voxtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceGeometry(t *testing.T) {
	s := mustSlice(t, 5, 8, 3*64, 0, 9, 500)
	assert.Equal(t, uint64(3*512), s.Begin())
	assert.Equal(t, uint64(3*512), s.Range().Begin)
	assert.Equal(t, uint64(4*512), s.Range().End)
	assert.Equal(t, uint8(2), s.CubeLevel())
	assert.Equal(t, uint64(3), s.CubeMorton())
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, uint64(3*512+9), s.Global(1))
	assert.Equal(t, []uint64{0, 9, 500}, s.Positions())

	require.NoError(t, s.AppendGlobal(4*512-1))
	assert.Equal(t, uint64(511), s.Positions()[3])
	assert.ErrorIs(t, s.AppendGlobal(4*512), ErrOutOfCube)
}

func TestSliceChildren(t *testing.T) {
	p := mustSlice(t, 2, 2, 0, 0, 1, 2)
	a := mustSlice(t, 3, 2, 0)
	b := mustSlice(t, 3, 2, 2)
	require.NoError(t, p.AddChild(a))
	require.NoError(t, p.AddChild(b))
	assert.Equal(t, []*Slice{a, b}, p.Children())
	assert.Same(t, p, b.Parent())

	assert.Error(t, p.AddChild(b), "already linked")
	assert.ErrorIs(t, p.AddChild(mustSlice(t, 3, 2, 1)), ErrOverlap)
	assert.Error(t, p.AddChild(mustSlice(t, 4, 2, 0)))
	assert.ErrorIs(t, p.AddChild(mustSlice(t, 3, 2, 8)), ErrOutOfCube)
	require.NoError(t, CheckSlice(p))

	p.Release()
	assert.Nil(t, a.Parent())
	assert.Empty(t, p.Children())
	assert.Zero(t, p.Len())
}

func TestSchema(t *testing.T) {
	good := Schema{
		{Name: "normal", Type: Float32, Semantic: "normal", Stride: 12},
		{Name: "label", Type: Uint16, Stride: 2},
	}
	require.NoError(t, good.Validate())
	assert.Equal(t, uint32(14), good.Stride())

	for _, bad := range []Schema{
		{{Name: "x", Type: 0, Stride: 1}},
		{{Name: "x", Type: Uint32, Stride: 6}},
		{{Name: "x", Type: Uint8, Stride: 0}},
		{{Name: "x", Type: Uint8, Stride: 1}, {Name: "x", Type: Uint8, Stride: 1}},
	} {
		assert.Error(t, bad.Validate())
	}
	assert.Equal(t, "f64", Float64.String())
	assert.Equal(t, uint32(8), Uint64.Size())
}

func TestAttributes(t *testing.T) {
	a := NewAttributes(Schema{
		{Name: "v", Type: Uint8, Stride: 1},
		{Name: "w", Type: Uint16, Stride: 2},
	})
	n, err := a.Count()
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, a.Append([]byte{1}, []byte{2, 3}))
	require.NoError(t, a.Append([]byte{4}, []byte{5, 6}))
	assert.Error(t, a.Append([]byte{1}))
	assert.Error(t, a.Append([]byte{1}, []byte{2}))

	n, err = a.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte{5, 6}, a.Value(1, 1))

	a.Buffers[1] = a.Buffers[1][:2]
	_, err = a.Count()
	assert.Error(t, err)

	packed := packRecords(&Attributes{Schema: a.Schema, Buffers: [][]byte{{1, 4}, {2, 3, 5, 6}}}, []int{1, 0})
	assert.Equal(t, []byte{4, 1, 5, 6, 2, 3}, packed)
	assert.Nil(t, packRecords(nil, []int{0}))
}

func TestCheckSlice(t *testing.T) {
	s := mustSlice(t, 2, 4, 0, 1, 2)
	require.NoError(t, CheckSlice(s))

	s.positions = []uint64{2, 1}
	assert.ErrorIs(t, CheckSlice(s), ErrUnordered)
	s.positions = []uint64{64}
	assert.ErrorIs(t, CheckSlice(s), ErrOutOfCube)

	s.positions = []uint64{1}
	a := NewAttributes(Schema{{Name: "v", Type: Uint8, Stride: 1}})
	s.SetAttributes(a)
	assert.Error(t, CheckSlice(s))
	require.NoError(t, a.Append([]byte{7}))
	require.NoError(t, CheckSlice(s))

	c := mustSlice(t, 3, 4, 0)
	require.NoError(t, s.AddChild(c))
	c.positions = []uint64{5, 5}
	assert.ErrorIs(t, CheckSlice(s), ErrUnordered)
}
