package voxtree

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	blocks "github.com/ipfs/go-block-format"
	cbor "github.com/ipfs/go-ipld-cbor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openvoxel/go-voxtree/internal"
	"github.com/openvoxel/go-voxtree/internal/fsstore"
)

var reloadOpts = []Option{UseTrunkSize(64 << 10), UseBlockSize(32 << 10)}

func assertSameTree(t *testing.T, want, got *Tree) {
	t.Helper()
	checkTree(t, got)
	assert.Equal(t, want.ID(), got.ID())
	assert.Equal(t, want.Leaves(), got.Leaves())
	assert.Equal(t, want.Stats(), got.Stats())
	assert.Equal(t, want.FreeExtents(), got.FreeExtents())
	require.Equal(t, want.Len(), got.Len())
	for i, b := range want.Blocks() {
		g := got.Blocks()[i]
		assert.Equal(t, b.ID(), g.ID())
		assert.Equal(t, b.Attributes(), g.Attributes())
		assert.Equal(t, b.ParentGoffset(), g.ParentGoffset())
	}
}

// drain inserts every pending Slice until none is left.
func drain(t *testing.T, tr *Tree) {
	t.Helper()
	for {
		var pending *Block
		for _, b := range tr.Blocks() {
			if b.Slice() != nil {
				pending = b
				break
			}
		}
		if pending == nil {
			return
		}
		_, err := tr.Insert(pending)
		require.NoError(t, err)
	}
}

func TestFlushLoad(t *testing.T) {
	ctx := context.Background()
	tr := smallTree(t)
	require.NoError(t, tr.Build(splitHierarchy(t, []uint64{0, 7, 8}, []uint64{3, 12})))

	bs := newMockBlocks()
	c, err := tr.Flush(ctx, bs)
	require.NoError(t, err)

	// zero pages are stored once
	pages := len(tr.Space()) / PageSize
	assert.Less(t, len(bs.data), pages/2)

	got, err := LoadTree(ctx, bs, c, reloadOpts...)
	require.NoError(t, err)
	assertSameTree(t, tr, got)
	assert.Equal(t, tr.Space(), got.Space())

	// flushing again is stable
	c2, err := got.Flush(ctx, bs)
	require.NoError(t, err)
	assert.Equal(t, c, c2)
}

func TestFlushPendingSlices(t *testing.T) {
	ctx := context.Background()
	tr := smallTree(t)
	require.NoError(t, tr.Trunk().AttachSlice(splitHierarchy(t, []uint64{0, 7, 8}, []uint64{3, 12})))
	for i := 0; i < 2; i++ {
		_, err := tr.Insert(tr.Trunk())
		require.NoError(t, err)
	}
	require.Equal(t, 2, tr.Stats().PendingSlice)

	bs := newMockBlocks()
	c, err := tr.Flush(ctx, bs)
	require.NoError(t, err)
	got, err := LoadTree(ctx, bs, c, reloadOpts...)
	require.NoError(t, err)
	assertSameTree(t, tr, got)

	drain(t, tr)
	drain(t, got)
	assertSameTree(t, tr, got)
	assert.Equal(t, append(cells(3, 0, 7, 8, 67, 76), cells(1, seq(2, 8)...)...), got.Leaves())
}

func TestFlushToDirectory(t *testing.T) {
	ctx := context.Background()
	tr := refinedTree(t)
	st, err := fsstore.Open(t.TempDir())
	require.NoError(t, err)
	c, err := tr.Flush(ctx, st)
	require.NoError(t, err)
	require.NoError(t, st.WriteRoot(c))

	root, err := st.ReadRoot()
	require.NoError(t, err)
	got, err := LoadTree(ctx, st, root)
	require.NoError(t, err)
	assertSameTree(t, tr, got)
}

func TestLoadMalformedTree(t *testing.T) {
	ctx := context.Background()
	tr := refinedTree(t)
	bs := newMockBlocks()
	c, err := tr.Flush(ctx, bs)
	require.NoError(t, err)

	garbage := blocks.NewBlock([]byte("garbage"))
	require.NoError(t, bs.Put(ctx, garbage))
	_, err = LoadTree(ctx, bs, garbage.Cid())
	assert.ErrorIs(t, err, ErrMalformed)

	store := cbor.NewCborStore(bs)
	for name, edit := range map[string]func(m *internal.Manifest){
		"format":     func(m *internal.Manifest) { m.Format = "nope" },
		"pages":      func(m *internal.Manifest) { m.Pages = m.Pages[:1] },
		"id":         func(m *internal.Manifest) { m.ID = m.ID[:3] },
		"trunk":      func(m *internal.Manifest) { m.Trunk = 99 },
		"free range": func(m *internal.Manifest) { m.Free[0].Begin++ },
		"overlap":    func(m *internal.Manifest) { m.Free = append(m.Free, m.Free[0]) },
		"block":      func(m *internal.Manifest) { m.Blocks[0].CDEnd = m.Blocks[0].End + 1 },
		"counter":    func(m *internal.Manifest) { m.Blocks[0].LeafCount++ },
	} {
		var m internal.Manifest
		require.NoError(t, store.Get(ctx, c, &m), name)
		edit(&m)
		bad, err := store.Put(ctx, &m)
		require.NoError(t, err, name)
		_, err = LoadTree(ctx, bs, bad)
		assert.ErrorIs(t, err, ErrMalformed, name)
	}
}

func TestLoadOversizedManifest(t *testing.T) {
	ctx := context.Background()
	bs := newMockBlocks()
	// a nine field tuple whose ID claims a 1 GiB byte string
	raw := []byte{0x89, 0x60, 0x5a, 0x40, 0x00, 0x00, 0x00}
	blk := blocks.NewBlock(raw)
	require.NoError(t, bs.Put(ctx, blk))
	_, err := LoadTree(ctx, bs, blk.Cid())
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestLoadCorruptPage(t *testing.T) {
	ctx := context.Background()
	tr := refinedTree(t)
	bs := newMockBlocks()
	c, err := tr.Flush(ctx, bs)
	require.NoError(t, err)

	store := cbor.NewCborStore(bs)
	var m internal.Manifest
	require.NoError(t, store.Get(ctx, c, &m))

	// the shadow root's far slot now points past the end of the space,
	// with every counter and info section left intact
	trunk := tr.Trunk()
	page := bytes.Clone(tr.Space()[trunk.Begin() : trunk.Begin()+PageSize])
	binary.LittleEndian.PutUint32(page[2*CDSize:], 0x7fffffff)
	blk := blocks.NewBlock(page)
	require.NoError(t, bs.Put(ctx, blk))
	m.Pages[trunk.Begin()/PageSize] = blk.Cid()

	bad, err := store.Put(ctx, &m)
	require.NoError(t, err)
	_, err = LoadTree(ctx, bs, bad)
	assert.ErrorIs(t, err, ErrMalformed)
}
