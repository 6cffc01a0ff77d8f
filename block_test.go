package voxtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreshBlock(t *testing.T) {
	tr := smallTree(t)
	b := tr.Trunk()
	assert.Equal(t, Goffset(PageSize), b.Begin())
	assert.Equal(t, uint64(64<<10), b.Size())
	assert.Equal(t, b.Begin()+PageHeaderSize, b.Root())
	assert.Equal(t, uint64(rootBytes+InfoSize), b.Used())
	assert.Equal(t, b.Size()-b.Used(), b.Free())
	assert.Equal(t, uint64(1), b.CDCount())
	assert.Equal(t, uint64(0), b.LeafCount())
	assert.True(t, b.IsTrunk())
	assert.Nil(t, b.Parent())
	assert.Equal(t, uint32(1), b.Side())

	// the root points through its slot at the first free CD slot
	assert.True(t, b.RootCD().Far())
	assert.True(t, b.HasRootChildrenGoffset())
	assert.Equal(t, b.Begin()+rootBytes, b.RootChildrenGoffset())
	assert.Equal(t, b.End()-InfoSize, b.info)
	require.NoError(t, CheckBlock(tr, b))
}

func TestAppendAcrossPages(t *testing.T) {
	tr := smallTree(t)
	b := tr.Trunk()
	var last Goffset
	for i := 0; i < PageSize/CDSize+4; i++ {
		g, err := b.AppendDummyCD()
		require.NoError(t, err)
		require.False(t, IsReserved(g))
		require.True(t, b.IsValidCDGoffset(g))
		if last != 0 && PageHeader(g) != PageHeader(last) {
			// one slot lost to the header
			assert.Equal(t, last+2*CDSize, g)
		}
		last = g
	}
	s := tr.Space()
	assert.Equal(t, b.info, s.InfoAddr(2*PageSize+CDSize))
	assert.Equal(t, b.info, s.InfoAddr(b.Root()))
}

func TestAppendData(t *testing.T) {
	tr := smallTree(t)
	b := tr.Trunk()
	g, err := b.AppendData([]byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, b.info-CDSize, g)
	assert.Equal(t, []byte{1, 2, 3}, []byte(tr.Space()[g:g+3]))

	_, err = b.AppendData(make([]byte, b.Free()+1))
	assert.ErrorIs(t, err, ErrBlockFull)

	_, err = b.AppendData(make([]byte, b.Free()))
	require.NoError(t, err)
	_, err = b.AppendDummyCD()
	assert.ErrorIs(t, err, ErrBlockFull)
}

func TestBlockInfoRoundTrip(t *testing.T) {
	tr := smallTree(t)
	b := tr.Trunk()
	b.rootLevel, b.height, b.rootMorton = 3, 4, 0o1234
	b.writeInfo()
	info, err := tr.Space().readInfo(b.info)
	require.NoError(t, err)
	assert.Equal(t, uint8(3), info.rootLevel)
	assert.Equal(t, uint8(4), info.height)
	assert.Equal(t, uint64(0o1234), info.rootMorton)
	assert.Equal(t, b.Root(), info.root)
	require.NoError(t, b.checkInfo())

	b.cdCount++
	assert.Error(t, b.checkInfo())

	_, err = tr.Space().readInfo(b.info - CDSize)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestBlockCube(t *testing.T) {
	tr := smallTree(t)
	b := tr.Trunk()
	b.rootLevel, b.rootMorton, b.height = 1, 5, 2
	assert.Equal(t, uint8(3), b.BottomLevel())
	assert.Equal(t, uint32(4), b.Side())
	assert.Equal(t, uint64(5*64), b.Cube(3).Begin)
	assert.Equal(t, uint64(6*64), b.Cube(3).End)

	// level 4 is the next one down, the slice must sit inside the cube
	assert.ErrorIs(t, b.AttachSlice(mustSlice(t, 4, 2, 0)), ErrOutOfCube)
	require.NoError(t, b.AttachSlice(mustSlice(t, 4, 2, 5*64+3)))
}
