package voxtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageHeaders(t *testing.T) {
	assert.True(t, IsReserved(0))
	assert.True(t, IsReserved(PageSize))
	assert.False(t, IsReserved(PageSize+CDSize))
	assert.Equal(t, Goffset(PageSize), PageHeader(2*PageSize-CDSize))
	assert.Equal(t, Goffset(2*PageSize), PageHeader(2*PageSize))

	assert.True(t, skipsReserved(PageSize-CDSize, PageSize))
	assert.True(t, skipsReserved(PageSize-CDSize, PageSize+CDSize))
	assert.False(t, skipsReserved(PageSize+CDSize, PageSize+4*CDSize))

	assert.Equal(t, uint64(0), roundUpPages(0))
	assert.Equal(t, uint64(PageSize), roundUpPages(1))
	assert.Equal(t, uint64(2*PageSize), roundUpPages(PageSize+1))
	assert.Equal(t, uint64(PageHeaderSize), headerBudget(0))
	assert.Equal(t, uint64(2*PageHeaderSize), headerBudget(PageSize))
}

func TestInfoOffset(t *testing.T) {
	s := make(Space, 4*PageSize)
	info := Goffset(4*PageSize - InfoSize)
	for h := Goffset(PageSize); h < 4*PageSize; h += PageSize {
		s.writePageHeader(h, info)
	}
	assert.Equal(t, uint32(info-2*PageSize), s.InfoOffset(2*PageSize+100))
	assert.Equal(t, info, s.InfoAddr(PageSize+16))
	assert.Equal(t, info, s.InfoAddr(3*PageSize+16))
	assert.Panics(t, func() { s.writePageHeader(PageSize+8, info) })
	assert.Panics(t, func() { s.writePageHeader(3*PageSize, PageSize) })
}

func TestChildAt(t *testing.T) {
	base := Goffset(PageSize - 2*CDSize)
	assert.Equal(t, base, childAt(base, 0))
	assert.Equal(t, base+CDSize, childAt(base, 1))
	// rank 2 would land on the header of the next page
	assert.Equal(t, Goffset(PageSize+CDSize), childAt(base, 2))
	assert.Equal(t, Goffset(PageSize+2*CDSize), childAt(base, 3))

	// a run starting right after a header does not shift
	base = PageSize + CDSize
	assert.Equal(t, base+7*CDSize, childAt(base, 7))
}

func TestPointers(t *testing.T) {
	s := make(Space, 2*PageSize)
	own := Goffset(PageSize + CDSize)

	s.SetCD(own, NewCD(0b11, 0b01).SetChildPtr(4))
	require.Equal(t, DirectPointer{Offset: 4}, s.Pointer(own))
	assert.Equal(t, own+16, s.ChildBase(own))
	assert.Equal(t, own+16, s.ChildGoffset(own, 1))

	slot := own + CDSize
	s.SetCD(own, NewCD(0b11, 0).SetFar(true).SetChildPtr(2))
	s.SetFarValue(slot, 800)
	require.Equal(t, FarPointer{Slot: slot}, s.Pointer(own))
	assert.Equal(t, int32(800), s.FarValue(slot))
	assert.Equal(t, own+800, s.ChildBase(own))
	assert.Equal(t, own+808, s.ChildGoffset(own, 1))

	// far offsets may point backwards
	s.SetFarValue(slot, -2*CDSize)
	assert.Equal(t, Goffset(PageSize-CDSize), s.ChildBase(own))
}

func TestPointerPanics(t *testing.T) {
	s := make(Space, 2*PageSize)
	assert.Panics(t, func() { s.CD(NoPointer) })
	assert.Panics(t, func() { s.CD(InvalidGoffset) })
	assert.Panics(t, func() { s.CD(PageSize) })
	assert.Panics(t, func() { s.CD(PageSize + 4) })
	assert.Panics(t, func() { s.CD(2 * PageSize) })

	own := Goffset(PageSize + CDSize)
	s.SetCD(own, NewCD(0b11, 0b11))
	assert.Panics(t, func() { s.ChildBase(own) })

	// a far slot resolving to address zero is never a real child
	s.SetCD(own, NewCD(0b1, 0).SetFar(true).SetChildPtr(2))
	s.SetFarValue(own+CDSize, -int32(own))
	assert.Panics(t, func() { s.ChildBase(own) })
}
