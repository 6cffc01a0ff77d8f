package voxtree

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertSingleVoxel(t *testing.T) {
	tr := smallTree(t)
	trunk := tr.Trunk()
	require.NoError(t, trunk.AttachSlice(mustSlice(t, 1, 2, 0, 5)))

	dests, err := tr.Insert(trunk)
	require.NoError(t, err)
	require.Equal(t, []*Block{trunk}, dests)

	root := trunk.RootCD()
	assert.True(t, root.Valid(5))
	assert.True(t, root.Leaf(5))
	assert.Equal(t, uint8(1<<5), root.ValidMask())
	assert.Equal(t, uint64(1), trunk.LeafCount())
	assert.Equal(t, uint64(1), trunk.CDCount())
	assert.Equal(t, uint8(1), trunk.Height())
	assert.Nil(t, trunk.Slice())
	require.NoError(t, CheckBlock(tr, trunk))
}

func TestInsertFullOctants(t *testing.T) {
	tr := smallTree(t)
	trunk := tr.Trunk()
	require.NoError(t, trunk.AttachSlice(mustSlice(t, 1, 2, 0, seq(0, 8)...)))
	_, err := tr.Insert(trunk)
	require.NoError(t, err)

	root := trunk.RootCD()
	assert.Equal(t, uint8(0xff), root.ValidMask())
	assert.Equal(t, uint8(0xff), root.LeafMask())
	assert.Equal(t, uint64(1), trunk.CDCount())
	assert.Equal(t, uint64(8), trunk.LeafCount())
	require.NoError(t, CheckBlock(tr, trunk))
}

func TestInsertSingleChildKeepsBlock(t *testing.T) {
	tr := smallTree(t)
	trunk := tr.Trunk()
	l2 := mustSlice(t, 2, 2, 0, 1, 6)
	require.NoError(t, trunk.AttachSlice(mustAdd(t, mustSlice(t, 1, 2, 0, seq(0, 8)...), l2)))

	dests, err := tr.Insert(trunk)
	require.NoError(t, err)
	require.Equal(t, []*Block{trunk}, dests)
	assert.Same(t, l2, trunk.Slice())
	assert.Equal(t, 1, tr.Len())

	dests, err = tr.Insert(trunk)
	require.NoError(t, err)
	require.Equal(t, []*Block{trunk}, dests)
	assert.Nil(t, trunk.Slice())
	assert.Equal(t, uint8(2), trunk.Height())
	// octant 0 of the root became a CD holding the two new leaves
	assert.Equal(t, uint8(0xfe), trunk.RootCD().LeafMask())
	assert.Equal(t, uint64(2), trunk.CDCount())
	assert.Equal(t, uint64(7+2), trunk.LeafCount())
	assert.Equal(t, append(cells(2, 1, 6), cells(1, seq(1, 8)...)...), tr.Leaves())
	checkTree(t, tr)
}

func TestInsertSplit(t *testing.T) {
	tr := smallTree(t)
	trunk := tr.Trunk()
	require.NoError(t, trunk.AttachSlice(splitHierarchy(t, []uint64{0, 7, 8}, []uint64{3, 12})))

	_, err := tr.Insert(trunk)
	require.NoError(t, err)
	before := trunk.LeafCount()
	require.Equal(t, uint64(8), before)

	dests, err := tr.Insert(trunk)
	require.NoError(t, err)
	require.Len(t, dests, 3)
	assert.Same(t, trunk, dests[0])
	assert.Nil(t, trunk.Slice())
	require.Equal(t, dests[1:], trunk.Children())

	a, b := dests[1], dests[2]
	assert.Equal(t, uint8(1), a.RootLevel())
	assert.Equal(t, uint64(0), a.RootMorton())
	assert.Equal(t, uint8(1), b.RootLevel())
	assert.Equal(t, uint64(1), b.RootMorton())
	for _, c := range []*Block{a, b} {
		assert.Equal(t, uint8(1), c.Height())
		assert.Same(t, trunk, c.Parent())
		assert.NotNil(t, c.Slice())
		require.NoError(t, CheckBlock(tr, c))
	}
	require.NoError(t, CheckBlock(tr, trunk))

	// the designating CDs are far and lead to the new Blocks' first runs
	s := tr.Space()
	for _, c := range []*Block{a, b} {
		held := s.CD(c.ParentGoffset())
		require.True(t, held.Far())
		far, ok := s.Pointer(c.ParentGoffset()).(FarPointer)
		require.True(t, ok)
		assert.Equal(t, c.RootChildrenGoffset(), Goffset(int64(c.ParentGoffset())+int64(s.FarValue(far.Slot))))
		assert.Equal(t, held.ValidMask(), c.RootCD().ValidMask())
		assert.Equal(t, held.LeafMask(), c.RootCD().LeafMask())
	}

	// old leaves, minus the two converted octants, plus four new voxels,
	// counting the shared roots once
	shared := uint64(a.RootCD().LeafCount() + b.RootCD().LeafCount())
	total := trunk.LeafCount() + a.LeafCount() + b.LeafCount() - shared
	assert.Equal(t, before-2+4, total)
	assert.Equal(t, uint64(4), shared)

	for _, c := range []*Block{a, b} {
		dests, err := tr.Insert(c)
		require.NoError(t, err)
		assert.Equal(t, []*Block{c}, dests)
		assert.Equal(t, uint8(2), c.Height())
	}
	checkTree(t, tr)

	want := append(cells(3, 0, 7, 8, 67, 76), cells(1, seq(2, 8)...)...)
	assert.Equal(t, want, tr.Leaves())

	st := tr.Stats()
	assert.Equal(t, 3, st.Blocks)
	assert.Equal(t, 2, st.SharedRoots)
	assert.Equal(t, uint64(7), st.CDs)
	assert.Equal(t, uint64(11), st.Leaves)
	assert.Equal(t, uint64(2), st.FarPointers)
	assert.Equal(t, uint8(3), st.MaxLevel)
	assert.Equal(t, 0, st.PendingSlice)
}

func TestBuild(t *testing.T) {
	tr := smallTree(t)
	require.NoError(t, tr.Build(splitHierarchy(t, []uint64{0, 7, 8}, []uint64{3, 12})))
	checkTree(t, tr)
	assert.Equal(t, 3, tr.Len())
	assert.Equal(t, append(cells(3, 0, 7, 8, 67, 76), cells(1, seq(2, 8)...)...), tr.Leaves())

	found, leaf := tr.Lookup(3, 7)
	assert.True(t, found)
	assert.True(t, leaf)
	found, leaf = tr.Lookup(2, 0)
	assert.True(t, found)
	assert.False(t, leaf)
	found, leaf = tr.Lookup(1, 2)
	assert.True(t, found)
	assert.True(t, leaf)
	found, _ = tr.Lookup(3, 1)
	assert.False(t, found)
	// below a leaf nothing exists
	found, _ = tr.Lookup(2, 16)
	assert.False(t, found)
}

func TestInsertAttributes(t *testing.T) {
	schema := Schema{
		{Name: "density", Type: Uint8, Stride: 1},
		{Name: "color", Type: Uint16, Stride: 4},
	}
	record := func(i byte) [][]byte { return [][]byte{{i}, {i, i, i, i}} }
	withAttrs := func(s *Slice, base byte) *Slice {
		a := NewAttributes(schema)
		for i := 0; i < s.Len(); i++ {
			require.NoError(t, a.Append(record(base+byte(i))...))
		}
		s.SetAttributes(a)
		return s
	}

	tr := smallTree(t)
	trunk := tr.Trunk()
	l3a := withAttrs(mustSlice(t, 3, 4, 0, 0, 7, 8), 10)
	l3b := withAttrs(mustSlice(t, 3, 4, 8, 3, 12), 20)
	l2 := withAttrs(mustAdd(t, mustSlice(t, 2, 4, 0, 0, 1, 8, 9), l3a, l3b), 1)
	require.NoError(t, trunk.AttachSlice(mustAdd(t, mustSlice(t, 1, 2, 0, seq(0, 8)...), l2)))

	_, err := tr.Insert(trunk)
	require.NoError(t, err)
	assert.Empty(t, trunk.Attributes())
	assert.Nil(t, trunk.AttributeData(1))

	dests, err := tr.Insert(trunk)
	require.NoError(t, err)
	a, b := dests[1], dests[2]

	// voxels under the shared roots are stored on both sides
	got, err := trunk.DecodeAttributes(2, schema)
	require.NoError(t, err)
	assert.Equal(t, l2.Attributes().Buffers, got.Buffers)
	ref, ok := trunk.AttributesAt(2)
	require.True(t, ok)
	assert.Equal(t, uint32(4), ref.Count)

	got, err = a.DecodeAttributes(2, schema)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{1, 2}, {1, 1, 1, 1, 2, 2, 2, 2}}, got.Buffers)
	got, err = b.DecodeAttributes(2, schema)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{3, 4}, {3, 3, 3, 3, 4, 4, 4, 4}}, got.Buffers)

	for _, c := range []*Block{a, b} {
		_, err := tr.Insert(c)
		require.NoError(t, err)
	}
	got, err = a.DecodeAttributes(3, schema)
	require.NoError(t, err)
	assert.Equal(t, l3a.Attributes().Buffers, got.Buffers)
	got, err = b.DecodeAttributes(3, schema)
	require.NoError(t, err)
	assert.Equal(t, l3b.Attributes().Buffers, got.Buffers)

	// the level 2 records survive the rewrite
	got, err = a.DecodeAttributes(2, schema)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{1, 2}, {1, 1, 1, 1, 2, 2, 2, 2}}, got.Buffers)
	levels := func(b *Block) []uint8 {
		var out []uint8
		for _, r := range b.Attributes() {
			out = append(out, r.Level)
		}
		return out
	}
	assert.Equal(t, []uint8{2, 3}, levels(a))
	assert.Equal(t, []uint8{2, 3}, levels(b))

	got, err = a.DecodeAttributes(4, schema)
	require.NoError(t, err)
	n, err := got.Count()
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = a.DecodeAttributes(3, schema[:1])
	assert.ErrorIs(t, err, ErrMalformed)
	checkTree(t, tr)
}

func TestRefineKeepsCoarseAttributes(t *testing.T) {
	ctx := context.Background()
	schema := Schema{{Name: "v", Type: Uint8, Stride: 1}}
	withAttrs := func(s *Slice, vals ...byte) *Slice {
		a := NewAttributes(schema)
		for _, v := range vals {
			require.NoError(t, a.Append([]byte{v}))
		}
		s.SetAttributes(a)
		return s
	}

	// only octant 0 is refined, the other seven stay level 1 leaves
	l2 := withAttrs(mustSlice(t, 2, 4, 0, 0), 7)
	l1 := withAttrs(mustAdd(t, mustSlice(t, 1, 2, 0, seq(0, 8)...), l2), 100, 101, 102, 103, 104, 105, 106, 107)
	tr := smallTree(t)
	require.NoError(t, tr.Build(l1))
	checkTree(t, tr)

	assertRecords := func(trunk *Block) {
		got, err := trunk.DecodeAttributes(1, schema)
		require.NoError(t, err)
		assert.Equal(t, [][]byte{{100, 101, 102, 103, 104, 105, 106, 107}}, got.Buffers)
		got, err = trunk.DecodeAttributes(2, schema)
		require.NoError(t, err)
		assert.Equal(t, [][]byte{{7}}, got.Buffers)
	}
	assertRecords(tr.Trunk())
	assert.Equal(t, uint64(8), tr.Stats().Leaves)

	bs := newMockBlocks()
	c, err := tr.Flush(ctx, bs)
	require.NoError(t, err)
	loaded, err := LoadTree(ctx, bs, c)
	require.NoError(t, err)
	assertRecords(loaded.Trunk())
	assert.Equal(t, tr.Trunk().Attributes(), loaded.Trunk().Attributes())
}

func TestInsertBlockFull(t *testing.T) {
	schema := Schema{{Name: "blob", Type: Uint8, Stride: 1024}}
	tr := smallTree(t, UseTrunkSize(PageSize))
	trunk := tr.Trunk()
	require.NoError(t, trunk.AttachSlice(mustSlice(t, 1, 2, 0, seq(0, 8)...)))
	_, err := tr.Insert(trunk)
	require.NoError(t, err)

	l2 := mustSlice(t, 2, 4, 0, 0, 1, 2, 3, 4, 5, 6, 7)
	a := NewAttributes(schema)
	for i := 0; i < l2.Len(); i++ {
		require.NoError(t, a.Append(make([]byte, 1024)))
	}
	l2.SetAttributes(a)
	require.NoError(t, trunk.AttachSlice(l2))

	leaves, stats := tr.Leaves(), tr.Stats()
	_, err = tr.Insert(trunk)
	assert.ErrorIs(t, err, ErrBlockFull)

	// the Block is untouched and the Slice still pending
	assert.Equal(t, leaves, tr.Leaves())
	assert.Equal(t, stats, tr.Stats())
	assert.Same(t, l2, trunk.Slice())
	assert.Empty(t, trunk.Attributes())
	checkTree(t, tr)
}

// deepHierarchy extends splitHierarchy with a dense fourth level under
// octant 0, so the first child Block holds CDs with children of their own.
func deepHierarchy(t testing.TB) *Slice {
	t.Helper()
	l4 := mustSlice(t, 4, 8, 0, seq(0, 128)...)
	l3a := mustAdd(t, mustSlice(t, 3, 4, 0, seq(0, 16)...), l4)
	l3b := mustSlice(t, 3, 4, 8, 3, 12)
	l2 := mustAdd(t, mustSlice(t, 2, 4, 0, 0, 1, 8, 9), l3a, l3b)
	return mustAdd(t, mustSlice(t, 1, 2, 0, seq(0, 8)...), l2)
}

func TestInsertFarWhenOutOfReach(t *testing.T) {
	ctx := context.Background()
	near := smallTree(t)
	require.NoError(t, near.Build(deepHierarchy(t)))
	far := smallTree(t, useDirectReach(16))
	require.NoError(t, far.Build(deepHierarchy(t)))
	checkTree(t, near)
	checkTree(t, far)

	changes, err := Diff(ctx, near, far)
	require.NoError(t, err)
	assert.Empty(t, changes)
	assert.Len(t, far.Leaves(), 6+128+2)

	// Level 2 CDs in the first child Block reach their runs directly only
	// when the reach allows it.
	assert.Equal(t, uint64(2), near.Stats().FarPointers)
	assert.Equal(t, uint64(2+2), far.Stats().FarPointers)

	a := far.Trunk().Children()[0]
	s := far.Space()
	for _, oct := range []int{0, 1} {
		g := s.ChildGoffset(a.Root(), oct)
		require.True(t, s.CD(g).Far())
		first := s.ChildGoffset(g, 0)
		assert.True(t, a.IsValidCDGoffset(first))
		assert.Equal(t, uint8(0xff), s.CD(first).ValidMask())
	}
}

// A node with a large subtree pushes its sibling's children out of direct
// reach, however large the Block.
func TestLayoutBeyondDirectReach(t *testing.T) {
	tr := smallTree(t)
	nb, err := tr.allocateBlock(1 << 20)
	require.NoError(t, err)

	nodes := []node{{level: 0, morton: 0, valid: 0b11}}
	var dense func(level uint8, m uint64)
	dense = func(level uint8, m uint64) {
		if level == 6 {
			nodes = append(nodes, node{level: level, morton: m, valid: 1, leaf: 1})
			return
		}
		nodes = append(nodes, node{level: level, morton: m, valid: 0xff})
		for i := uint64(0); i < 8; i++ {
			dense(level+1, m<<3|i)
		}
	}
	dense(1, 0)
	nodes = append(nodes, node{level: 1, morton: 1, valid: 1}, node{level: 2, morton: 8, valid: 1, leaf: 1})
	marks := make([]int, len(nodes))
	for i := range marks {
		marks[i] = -1
	}

	sec, err := newSection(nodes, marks, false)
	require.NoError(t, err)
	sec.plan(MaxDirectReach)
	require.NoError(t, sec.check())
	require.LessOrEqual(t, sec.estimate(), nb.Size())

	inner, outer := &sec.entries[1], &sec.entries[2]
	require.Equal(t, uint64(1), outer.morton)
	assert.False(t, inner.far)
	assert.True(t, outer.far)

	require.NoError(t, sec.materialize(nb))
	s := tr.Space()
	assert.False(t, s.CD(inner.at).Far())
	assert.True(t, s.CD(outer.at).Far())
	target := sec.entries[outer.child].at
	assert.Greater(t, uint64(target-outer.at), uint64(MaxDirectReach))
	assert.Equal(t, target, s.ChildBase(outer.at))
	assert.Equal(t, target, s.ChildGoffset(outer.at, 0))
	assert.Equal(t, sec.entries[inner.child].at, s.ChildBase(inner.at))

	nb.height = 7
	nb.writeInfo()
	require.NoError(t, CheckBlock(tr, nb))
	assert.Equal(t, uint64(1+37449+2), nb.CDCount())
	assert.Equal(t, uint64(32768+1), nb.LeafCount())
}

// The first sibling's subtree comes before the second sibling's run, so runs
// follow layout order only if they are listed depth first.
func TestLayoutRunsFollowEntries(t *testing.T) {
	tr := smallTree(t)
	nb, err := tr.allocateBlock(PageSize)
	require.NoError(t, err)

	nodes := []node{
		{level: 0, morton: 0, valid: 0b11},
		{level: 1, morton: 0, valid: 1},
		{level: 2, morton: 0, valid: 1},
		{level: 3, morton: 0, valid: 1, leaf: 1},
		{level: 1, morton: 1, valid: 1},
		{level: 2, morton: 8, valid: 1, leaf: 1},
	}
	sec, err := newSection(nodes, []int{-1, -1, -1, -1, -1, -1}, false)
	require.NoError(t, err)
	sec.plan(MaxDirectReach)
	require.NoError(t, sec.check())
	assert.Equal(t, []run{
		{first: 1, n: 2, parent: 0},
		{first: 3, n: 1, parent: 1},
		{first: 4, n: 1, parent: 3},
		{first: 5, n: 1, parent: 2},
	}, sec.runs)

	require.NoError(t, sec.materialize(nb))
	s := tr.Space()
	second := sec.entries[2]
	require.Equal(t, uint64(1), second.morton)
	assert.Equal(t, sec.entries[5].at, s.ChildBase(second.at))
	assert.Greater(t, sec.entries[5].at, sec.entries[4].at)

	nb.height = 3
	nb.writeInfo()
	require.NoError(t, CheckBlock(tr, nb))
	assert.Equal(t, uint64(6), nb.CDCount())
	assert.Equal(t, uint64(2), nb.LeafCount())
}
