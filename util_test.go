package voxtree

import (
	"context"
	"fmt"
	"testing"

	block "github.com/ipfs/go-block-format"
	cid "github.com/ipfs/go-cid"
	"github.com/stretchr/testify/require"
)

type mockBlocks struct {
	data               map[cid.Cid]block.Block
	getCount, putCount int
}

func newMockBlocks() *mockBlocks {
	return &mockBlocks{make(map[cid.Cid]block.Block), 0, 0}
}

func (mb *mockBlocks) Get(_ context.Context, c cid.Cid) (block.Block, error) {
	d, ok := mb.data[c]
	mb.getCount++
	if ok {
		return d, nil
	}
	return nil, fmt.Errorf("Not Found")
}

func (mb *mockBlocks) Put(_ context.Context, b block.Block) error {
	mb.putCount++
	mb.data[b.Cid()] = b
	return nil
}

func (mb *mockBlocks) report(b *testing.B) {
	b.ReportMetric(float64(mb.getCount)/float64(b.N), "gets/op")
	b.ReportMetric(float64(mb.putCount)/float64(b.N), "puts/op")
}

// smallTree keeps test address spaces a few MiB.
func smallTree(t testing.TB, opts ...Option) *Tree {
	t.Helper()
	opts = append([]Option{UseSpaceSize(8 << 20), UseTrunkSize(64 << 10), UseBlockSize(32 << 10)}, opts...)
	tr, err := NewTree(opts...)
	require.NoError(t, err)
	return tr
}

func mustSlice(t testing.TB, level uint8, side uint32, pvb uint64, positions ...uint64) *Slice {
	t.Helper()
	s, err := NewSlice(level, side, pvb)
	require.NoError(t, err)
	for _, p := range positions {
		require.NoError(t, s.Append(p))
	}
	return s
}

func mustAdd(t testing.TB, parent *Slice, children ...*Slice) *Slice {
	t.Helper()
	for _, c := range children {
		require.NoError(t, parent.AddChild(c))
	}
	return parent
}

func seq(from, to uint64) []uint64 {
	var out []uint64
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}

// splitHierarchy describes a tree that splits once below level 2:
//
//	level 1: all eight octants
//	level 2: two voxels under each of octants 0 and 1
//	level 3: one child Slice per occupied level 1 octant
//
// It holds 6 leaves at level 1 and a at + b leaves at level 3.
func splitHierarchy(t testing.TB, a, b []uint64) *Slice {
	t.Helper()
	l3a := mustSlice(t, 3, 4, 0, a...)
	l3b := mustSlice(t, 3, 4, 8, b...)
	l2 := mustAdd(t, mustSlice(t, 2, 4, 0, 0, 1, 8, 9), l3a, l3b)
	return mustAdd(t, mustSlice(t, 1, 2, 0, seq(0, 8)...), l2)
}

func checkTree(t testing.TB, tr *Tree) {
	t.Helper()
	require.NoError(t, CheckTree(context.Background(), tr))
}

func cells(level uint8, codes ...uint64) []Cell {
	out := make([]Cell, len(codes))
	for i, c := range codes {
		out[i] = Cell{Level: level, Morton: c}
	}
	return out
}
