package voxtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCDFields(t *testing.T) {
	c := NewCD(0b1011_0110, 0b0010_0100)
	assert.Equal(t, uint8(0b1011_0110), c.ValidMask())
	assert.Equal(t, uint8(0b0010_0100), c.LeafMask())
	assert.Equal(t, uint8(0b1001_0010), c.NonLeafMask())
	assert.Equal(t, 5, c.ValidCount())
	assert.Equal(t, 2, c.LeafCount())
	assert.Equal(t, 3, c.NonLeafCount())
	assert.False(t, c.Far())

	c = c.SetFar(true).SetChildPtr(MaxChildPtr).SetContourMask(0xff).SetContourPtr(1<<24 - 1)
	assert.True(t, c.Far())
	assert.Equal(t, uint16(MaxChildPtr), c.ChildPtr())
	assert.Equal(t, uint8(0xff), c.ContourMask())
	assert.Equal(t, uint32(1<<24-1), c.ContourPtr())
	// neighbouring fields are untouched
	assert.Equal(t, uint8(0b1011_0110), c.ValidMask())
	assert.Equal(t, uint8(0b0010_0100), c.LeafMask())

	c = c.SetFar(false).SetChildPtr(3)
	assert.False(t, c.Far())
	assert.Equal(t, uint16(3), c.ChildPtr())
}

func TestCDBitPositions(t *testing.T) {
	assert.Equal(t, CD(1)<<40, NewCD(1, 0))
	assert.Equal(t, CD(1)<<40|CD(1)<<32, NewCD(1, 1))
	assert.Equal(t, CD(1)<<48, CD(0).SetFar(true))
	assert.Equal(t, CD(1)<<49, CD(0).SetChildPtr(1))
	assert.Equal(t, CD(1)<<8, CD(0).SetContourPtr(1))
}

func TestCDRank(t *testing.T) {
	c := NewCD(0xff, 0b0101_0101)
	assert.Equal(t, 0, c.Rank(1))
	assert.Equal(t, 1, c.Rank(3))
	assert.Equal(t, 2, c.Rank(5))
	assert.Equal(t, 3, c.Rank(7))
	assert.Panics(t, func() { c.Rank(0) })
	assert.True(t, c.Leaf(0))
	assert.False(t, c.Leaf(1))
}

func TestCDInvariants(t *testing.T) {
	assert.Panics(t, func() { NewCD(0b0001, 0b0010) })
	assert.Panics(t, func() { NewCD(0b0011, 0b0010).SetValidMask(0b0001) })
	assert.Panics(t, func() { CD(0).SetChildPtr(MaxChildPtr + 1) })
	assert.Panics(t, func() { CD(0).SetContourPtr(1 << 24) })
	assert.Panics(t, func() { CD(0).Valid(8) })
	assert.Panics(t, func() { NewCD(1, 0).Leaf(1) })

	c := NewCD(0b0011, 0b0010).SetMasks(0b0100, 0b0100)
	assert.Equal(t, uint8(0b0100), c.ValidMask())
	assert.Equal(t, uint8(0b0100), c.LeafMask())
	require.Equal(t, MaxDirectReach, MaxChildPtr*ChildPtrUnit)
}
