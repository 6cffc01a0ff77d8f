package vcurve

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	require.Equal(t, uint64(0), Encode(0, 0, 0))
	require.Equal(t, uint64(1), Encode(1, 0, 0))
	require.Equal(t, uint64(2), Encode(0, 1, 0))
	require.Equal(t, uint64(4), Encode(0, 0, 1))
	require.Equal(t, uint64(7), Encode(1, 1, 1))
	require.Equal(t, uint64(8), Encode(2, 0, 0))

	r := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		x, y, z := r.Uint32()&coordMask, r.Uint32()&coordMask, r.Uint32()&coordMask
		dx, dy, dz := Decode(Encode(x, y, z))
		require.Equal(t, x, dx)
		require.Equal(t, y, dy)
		require.Equal(t, z, dz)
	}
}

func TestParentChild(t *testing.T) {
	code := Encode(5, 3, 6)
	for i := 0; i < 8; i++ {
		c := Child(code, i)
		require.Equal(t, code, Parent(c))
		require.Equal(t, i, Octant(c))
	}
	require.Equal(t, code, Ancestor(Project(code, 3, 6), 6, 3))
}

func TestRanges(t *testing.T) {
	r := CellRange(1, 1, 3)
	require.Equal(t, Range{Begin: 64, End: 128}, r)
	require.Equal(t, uint64(64), r.Len())
	require.True(t, r.Contains(CellRange(9, 2, 3)))
	require.False(t, r.Contains(CellRange(2, 1, 3)))
	require.True(t, r.Overlaps(Range{Begin: 100, End: 200}))
	require.False(t, r.Overlaps(Range{Begin: 128, End: 200}))
	require.True(t, r.ContainsCode(127))
	require.False(t, r.ContainsCode(128))
}

func TestLog2(t *testing.T) {
	n, ok := Log2(1024)
	require.True(t, ok)
	require.Equal(t, uint8(10), n)
	_, ok = Log2(12)
	require.False(t, ok)
	_, ok = Log2(0)
	require.False(t, ok)
}
