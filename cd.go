package voxtree

import (
	"fmt"
	"math/bits"
)

// CD is a child descriptor: the fixed 8 byte record describing one non-leaf
// node and its eight octants.
//
//	bits  0-7   contour mask
//	bits  8-31  contour pointer
//	bits 32-39  leaf mask
//	bits 40-47  valid mask
//	bit  48     far bit
//	bits 49-63  child pointer (4 byte units)
type CD uint64

const (
	CDSize = 8

	contourMaskShift = 0
	contourPtrShift  = 8
	leafMaskShift    = 32
	validMaskShift   = 40
	farBitShift      = 48
	childPtrShift    = 49

	contourPtrBits = 24
	childPtrBits   = 15

	// MaxChildPtr is the largest value the in-record child pointer holds.
	MaxChildPtr = 1<<childPtrBits - 1
	// ChildPtrUnit is the granularity of the child pointer in bytes.
	ChildPtrUnit = 4
	// MaxDirectReach is the farthest a direct child pointer can reach.
	MaxDirectReach = MaxChildPtr * ChildPtrUnit
)

// NewCD returns a descriptor with the given masks and no pointer.
func NewCD(valid, leaf uint8) CD {
	var c CD
	c = c.SetValidMask(valid)
	return c.SetLeafMask(leaf)
}

func (c CD) field(shift, width uint) uint64 {
	return (uint64(c) >> shift) & (1<<width - 1)
}

func (c CD) setField(shift, width uint, v uint64) CD {
	mask := uint64(1<<width-1) << shift
	return CD((uint64(c) &^ mask) | (v<<shift)&mask)
}

func (c CD) ContourMask() uint8 { return uint8(c.field(contourMaskShift, 8)) }

func (c CD) SetContourMask(m uint8) CD { return c.setField(contourMaskShift, 8, uint64(m)) }

func (c CD) ContourPtr() uint32 { return uint32(c.field(contourPtrShift, contourPtrBits)) }

func (c CD) SetContourPtr(p uint32) CD {
	if p >= 1<<contourPtrBits {
		panic(fmt.Sprintf("contour pointer %d out of range", p))
	}
	return c.setField(contourPtrShift, contourPtrBits, uint64(p))
}

func (c CD) LeafMask() uint8 { return uint8(c.field(leafMaskShift, 8)) }

// SetLeafMask panics if m names an octant that is not valid.
func (c CD) SetLeafMask(m uint8) CD {
	if m&^c.ValidMask() != 0 {
		panic(fmt.Sprintf("leaf mask %08b not covered by valid mask %08b", m, c.ValidMask()))
	}
	return c.setField(leafMaskShift, 8, uint64(m))
}

func (c CD) ValidMask() uint8 { return uint8(c.field(validMaskShift, 8)) }

// SetValidMask panics if clearing a valid bit would orphan a leaf bit.
func (c CD) SetValidMask(m uint8) CD {
	if c.LeafMask()&^m != 0 {
		panic(fmt.Sprintf("valid mask %08b drops leaf bits %08b", m, c.LeafMask()))
	}
	return c.setField(validMaskShift, 8, uint64(m))
}

// SetMasks replaces both masks at once.
func (c CD) SetMasks(valid, leaf uint8) CD {
	if leaf&^valid != 0 {
		panic(fmt.Sprintf("leaf mask %08b not covered by valid mask %08b", leaf, valid))
	}
	c = c.setField(leafMaskShift, 8, uint64(leaf))
	return c.setField(validMaskShift, 8, uint64(valid))
}

func (c CD) Far() bool { return c.field(farBitShift, 1) == 1 }

func (c CD) SetFar(far bool) CD {
	var v uint64
	if far {
		v = 1
	}
	return c.setField(farBitShift, 1, v)
}

func (c CD) ChildPtr() uint16 { return uint16(c.field(childPtrShift, childPtrBits)) }

func (c CD) SetChildPtr(p uint16) CD {
	if p > MaxChildPtr {
		panic(fmt.Sprintf("child pointer %d exceeds %d", p, MaxChildPtr))
	}
	return c.setField(childPtrShift, childPtrBits, uint64(p))
}

// Valid reports whether octant i exists.
func (c CD) Valid(i int) bool {
	checkOctant(i)
	return c.ValidMask()&(1<<i) != 0
}

// Leaf reports whether octant i is a leaf. Octant i must be valid.
func (c CD) Leaf(i int) bool {
	if !c.Valid(i) {
		panic(fmt.Sprintf("octant %d is not valid", i))
	}
	return c.LeafMask()&(1<<i) != 0
}

// NonLeafMask is the set of octants that carry a CD of their own.
func (c CD) NonLeafMask() uint8 { return c.ValidMask() &^ c.LeafMask() }

func (c CD) ValidCount() int { return bits.OnesCount8(c.ValidMask()) }

func (c CD) LeafCount() int { return bits.OnesCount8(c.LeafMask()) }

func (c CD) NonLeafCount() int { return bits.OnesCount8(c.NonLeafMask()) }

// Rank returns the position of non-leaf octant i within its sibling run.
func (c CD) Rank(i int) int {
	if c.Leaf(i) {
		panic(fmt.Sprintf("octant %d is a leaf", i))
	}
	return bits.OnesCount8(c.NonLeafMask() & (1<<i - 1))
}

func (c CD) String() string {
	return fmt.Sprintf("cd{valid=%08b leaf=%08b far=%t ptr=%d}", c.ValidMask(), c.LeafMask(), c.Far(), c.ChildPtr())
}

func checkOctant(i int) {
	if i < 0 || i > 7 {
		panic(fmt.Sprintf("octant %d out of range", i))
	}
}
