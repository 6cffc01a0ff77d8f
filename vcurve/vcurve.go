// Package vcurve implements the Morton (z-order) curve used to linearize
// voxel coordinates. A code at level l addresses one cell of a 2^l sided
// grid; the three low bits of a code are its octant within the parent cell,
// so the parent of a code is code >> 3.
package vcurve

// MaxLevel is the deepest level whose codes fit in 63 bits.
const MaxLevel = 21

const coordMask = (1 << MaxLevel) - 1

// Encode interleaves x, y and z (x in the lowest bit of each triple).
func Encode(x, y, z uint32) uint64 {
	return spread(uint64(x)&coordMask) | spread(uint64(y)&coordMask)<<1 | spread(uint64(z)&coordMask)<<2
}

// Decode is the inverse of Encode.
func Decode(code uint64) (x, y, z uint32) {
	return uint32(compact(code)), uint32(compact(code >> 1)), uint32(compact(code >> 2))
}

func spread(v uint64) uint64 {
	v = (v | v<<32) & 0x1f00000000ffff
	v = (v | v<<16) & 0x1f0000ff0000ff
	v = (v | v<<8) & 0x100f00f00f00f00f
	v = (v | v<<4) & 0x10c30c30c30c30c3
	v = (v | v<<2) & 0x1249249249249249
	return v
}

func compact(v uint64) uint64 {
	v &= 0x1249249249249249
	v = (v ^ v>>2) & 0x10c30c30c30c30c3
	v = (v ^ v>>4) & 0x100f00f00f00f00f
	v = (v ^ v>>8) & 0x1f0000ff0000ff
	v = (v ^ v>>16) & 0x1f00000000ffff
	v = (v ^ v>>32) & coordMask
	return v
}

// Parent returns the code of the cell containing code one level up.
func Parent(code uint64) uint64 { return code >> 3 }

// Octant returns the child index of code within its parent.
func Octant(code uint64) int { return int(code & 7) }

// Child returns the code of octant i of code one level down.
func Child(code uint64, i int) uint64 { return code<<3 | uint64(i&7) }

// Project moves code from level from to the deeper level to, returning the
// first code of the cell's range there.
func Project(code uint64, from, to uint8) uint64 {
	if to < from {
		panic("vcurve: projecting to a shallower level")
	}
	return code << (3 * uint64(to-from))
}

// Ancestor returns the code of the cell containing code at the shallower
// level to.
func Ancestor(code uint64, from, to uint8) uint64 {
	if to > from {
		panic("vcurve: ancestor at a deeper level")
	}
	return code >> (3 * uint64(from-to))
}

// Range is a half-open interval of codes at one level.
type Range struct {
	Begin, End uint64
}

// CellRange returns the range covered at level to by cell code at level
// from.
func CellRange(code uint64, from, to uint8) Range {
	b := Project(code, from, to)
	return Range{Begin: b, End: b + Volume(to-from)}
}

// Volume returns the number of cells in a cube of 2^depth side, i.e. the
// number of level l+depth codes under one level l cell.
func Volume(depth uint8) uint64 {
	return 1 << (3 * uint64(depth))
}

// Len returns the number of codes in r.
func (r Range) Len() uint64 { return r.End - r.Begin }

// Contains reports whether o lies inside r.
func (r Range) Contains(o Range) bool {
	return o.Begin >= r.Begin && o.End <= r.End
}

// ContainsCode reports whether code lies inside r.
func (r Range) ContainsCode(code uint64) bool {
	return code >= r.Begin && code < r.End
}

// Overlaps reports whether r and o share at least one code.
func (r Range) Overlaps(o Range) bool {
	return r.Begin < o.End && o.Begin < r.End
}

// Log2 returns log2 of a power of two side; ok is false for anything else.
func Log2(side uint32) (uint8, bool) {
	if side == 0 || side&(side-1) != 0 {
		return 0, false
	}
	var n uint8
	for side > 1 {
		side >>= 1
		n++
	}
	return n, true
}
