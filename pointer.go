package voxtree

import (
	"encoding/binary"
	"fmt"
)

// Space is the flat, page aligned byte buffer a Tree lays its Blocks out in.
type Space []byte

// ChildPointer is the decoded form of a CD's child pointer: either a direct
// offset to the first non-leaf child or an offset to a far pointer slot.
type ChildPointer interface {
	// Target resolves the pointer of the CD at own.
	Target(s Space, own Goffset) Goffset
}

// DirectPointer reaches the first child run in ChildPtrUnit steps.
type DirectPointer struct {
	Offset uint16
}

// FarPointer names the slot holding the real offset to the first child run.
type FarPointer struct {
	Slot Goffset
}

func (p DirectPointer) Target(_ Space, own Goffset) Goffset {
	return own + Goffset(p.Offset)*ChildPtrUnit
}

func (p FarPointer) Target(s Space, own Goffset) Goffset {
	return Goffset(int64(own) + int64(s.FarValue(p.Slot)))
}

// CD reads the descriptor stored at g.
func (s Space) CD(g Goffset) CD {
	s.checkCDAddr(g)
	return CD(binary.LittleEndian.Uint64(s[g:]))
}

// SetCD stores c at g.
func (s Space) SetCD(g Goffset, c CD) {
	s.checkCDAddr(g)
	binary.LittleEndian.PutUint64(s[g:], uint64(c))
}

// FarValue reads the signed byte offset stored in the far slot at slot.
func (s Space) FarValue(slot Goffset) int32 {
	s.checkCDAddr(slot)
	return int32(binary.LittleEndian.Uint32(s[slot:]))
}

// SetFarValue stores a signed byte offset in the far slot at slot.
func (s Space) SetFarValue(slot Goffset, v int32) {
	s.checkCDAddr(slot)
	binary.LittleEndian.PutUint32(s[slot:], uint32(v))
	binary.LittleEndian.PutUint32(s[slot+4:], 0)
}

func (s Space) checkCDAddr(g Goffset) {
	if g == NoPointer || g == InvalidGoffset {
		panic(fmt.Sprintf("dereferencing sentinel address %#x", uint32(g)))
	}
	if g%CDSize != 0 {
		panic(fmt.Sprintf("unaligned CD address %d", g))
	}
	if IsReserved(g) {
		panic(fmt.Sprintf("CD address %d is a page header", g))
	}
	if uint64(g)+CDSize > uint64(len(s)) {
		panic(fmt.Sprintf("CD address %d outside space of %d bytes", g, len(s)))
	}
}

// Pointer decodes the child pointer of the CD at g.
func (s Space) Pointer(g Goffset) ChildPointer {
	c := s.CD(g)
	if c.Far() {
		return FarPointer{Slot: g + Goffset(c.ChildPtr())*ChildPtrUnit}
	}
	return DirectPointer{Offset: c.ChildPtr()}
}

// ChildBase resolves the address of the first non-leaf child of the CD at g.
func (s Space) ChildBase(g Goffset) Goffset {
	c := s.CD(g)
	if c.NonLeafMask() == 0 && !c.Far() {
		panic(fmt.Sprintf("CD at %d has no children to resolve", g))
	}
	t := s.Pointer(g).Target(s, g)
	if t == NoPointer {
		panic(fmt.Sprintf("CD at %d resolves to the null address", g))
	}
	return t
}

// ChildGoffset resolves the address of non-leaf octant i of the CD at g.
func (s Space) ChildGoffset(g Goffset, i int) Goffset {
	c := s.CD(g)
	base := s.ChildBase(g)
	return childAt(base, c.Rank(i))
}

// childAt places the rank'th CD of a run starting at base, stepping over a
// page header if the run straddles one.
func childAt(base Goffset, rank int) Goffset {
	g := base + Goffset(rank)*CDSize
	if rank > 0 && skipsReserved(base, g) {
		g += CDSize
	}
	return g
}
