package voxtree

import (
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/openvoxel/go-voxtree/vcurve"
	"golang.org/x/xerrors"
)

// BlockID is a Tree-local handle to a Block. Blocks refer to their parent
// by handle so that the only owning edges run from parent to child.
type BlockID uint32

// NoBlock is the handle of the trunk's (absent) parent.
const NoBlock BlockID = 0

const (
	infoMagic = 0x4b425856 // "VXBK"
	// InfoSize is the size of the info section at the tail of every Block.
	InfoSize = 48
	// AttrEntrySize is the size of one attribute directory entry: level
	// (u8), pad (3 bytes), count, goffset and length (u32 each).
	AttrEntrySize = 16
)

// AttrRef locates the attribute record a Block holds for the voxels of one
// level inserted into it.
type AttrRef struct {
	Level  uint8
	Offset Goffset
	Len    uint32
	Count  uint32
}

// Block is a page aligned range of the address space holding one
// physically laid out subtree. CDs grow forward from the start, attribute
// data grows backward from the info section at the end.
type Block struct {
	tree *Tree
	id   BlockID

	begin, end Goffset
	cdEnd      Goffset
	dataBegin  Goffset
	info       Goffset
	root       Goffset
	rootSlot   Goffset

	parent        BlockID
	parentGoffset Goffset
	children      []BlockID
	slice         *Slice

	rootLevel  uint8
	rootMorton uint64
	height     uint8

	leafCount uint64
	cdCount   uint64

	// attrs holds one record per level, coarsest first. The info section
	// points at their directory in the data region.
	attrs   []AttrRef
	attrDir Goffset
}

func (b *Block) ID() BlockID { return b.id }

func (b *Block) Begin() Goffset { return b.begin }

func (b *Block) End() Goffset { return b.end }

// Size is the number of bytes the Block spans.
func (b *Block) Size() uint64 { return uint64(b.end - b.begin) }

// Used is the number of bytes taken by the CD and data regions and the info
// section.
func (b *Block) Used() uint64 {
	return uint64(b.cdEnd-b.begin) + uint64(b.end-b.dataBegin)
}

// Free is the gap between the CD and data regions.
func (b *Block) Free() uint64 { return uint64(b.dataBegin - b.cdEnd) }

// Root is the address of the shadow root CD.
func (b *Block) Root() Goffset { return b.root }

func (b *Block) RootCD() CD { return b.tree.space.CD(b.root) }

func (b *Block) RootLevel() uint8 { return b.rootLevel }

func (b *Block) RootMorton() uint64 { return b.rootMorton }

// Height is the number of levels stored below the root.
func (b *Block) Height() uint8 { return b.height }

// BottomLevel is the level of the Block's deepest nodes.
func (b *Block) BottomLevel() uint8 { return b.rootLevel + b.height }

// Side is the edge length of the Block's cube in bottom level voxels.
func (b *Block) Side() uint32 { return 1 << b.height }

// Cube returns the codes the Block covers at level l.
func (b *Block) Cube(l uint8) vcurve.Range {
	return vcurve.CellRange(b.rootMorton, b.rootLevel, l)
}

func (b *Block) LeafCount() uint64 { return b.leafCount }

func (b *Block) CDCount() uint64 { return b.cdCount }

// Attributes lists the Block's attribute records, coarsest level first.
func (b *Block) Attributes() []AttrRef { return slices.Clone(b.attrs) }

// AttributesAt returns the record held for level l.
func (b *Block) AttributesAt(l uint8) (AttrRef, bool) {
	for _, a := range b.attrs {
		if a.Level == l {
			return a, true
		}
	}
	return AttrRef{}, false
}

// IsTrunk reports whether b is the parent-less root Block.
func (b *Block) IsTrunk() bool { return b.parent == NoBlock }

// Parent returns the Block holding b's designating CD, or nil for the trunk.
func (b *Block) Parent() *Block {
	if b.parent == NoBlock {
		return nil
	}
	return b.tree.blocks[b.parent]
}

// ParentGoffset is the address of the CD in the parent that designates b.
func (b *Block) ParentGoffset() Goffset { return b.parentGoffset }

// Children returns the Blocks hanging off b in Morton order.
func (b *Block) Children() []*Block {
	out := make([]*Block, 0, len(b.children))
	for _, id := range b.children {
		out = append(out, b.tree.blocks[id])
	}
	return out
}

// Slice returns the pending Slice, if any.
func (b *Block) Slice() *Slice { return b.slice }

// AttachSlice hands s to b for the next insertion. s must hold the level
// directly below b's bottom and lie inside b's cube.
func (b *Block) AttachSlice(s *Slice) error {
	if b.slice != nil {
		return xerrors.Errorf("block %d: %w", b.id, errSliceAttached)
	}
	if len(b.children) > 0 {
		return xerrors.Errorf("block %d: %w", b.id, errBlockHasChildren)
	}
	if s.Level != b.BottomLevel()+1 {
		return xerrors.Errorf("block %d expects level %d, slice is at level %d: %w", b.id, b.BottomLevel()+1, s.Level, ErrOutOfCube)
	}
	if !b.Cube(s.Level).Contains(s.Range()) {
		return xerrors.Errorf("block %d: slice cube %v: %w", b.id, s.Range(), ErrOutOfCube)
	}
	b.slice = s
	return nil
}

// IsInBlock reports whether g lies inside b's range.
func (b *Block) IsInBlock(g Goffset) bool {
	return g >= b.begin && g < b.end
}

// IsValidCDGoffset reports whether g can hold one of b's CDs: inside the CD
// region, CD aligned and not a page header.
func (b *Block) IsValidCDGoffset(g Goffset) bool {
	return g >= b.begin && g < b.cdEnd && g%CDSize == 0 && !IsReserved(g)
}

// appendSlot reserves the next CD slot, writing a page header first when the
// cursor sits on a page start.
func (b *Block) appendSlot() (Goffset, error) {
	need := Goffset(CDSize)
	if IsReserved(b.cdEnd) {
		need += PageHeaderSize
	}
	if b.cdEnd+need > b.dataBegin {
		return InvalidGoffset, xerrors.Errorf("block %d at %d: %w", b.id, b.cdEnd, ErrBlockFull)
	}
	if IsReserved(b.cdEnd) {
		b.tree.space.writePageHeader(b.cdEnd, b.info)
		b.cdEnd += PageHeaderSize
	}
	g := b.cdEnd
	b.cdEnd += CDSize
	return g, nil
}

// AppendCD writes c into the next free slot and returns its address.
func (b *Block) AppendCD(c CD) (Goffset, error) {
	g, err := b.appendSlot()
	if err != nil {
		return g, err
	}
	b.tree.space.SetCD(g, c)
	return g, nil
}

// AppendDummyCD reserves a zeroed slot, used for placeholders and far
// pointers.
func (b *Block) AppendDummyCD() (Goffset, error) {
	return b.AppendCD(0)
}

// AppendData copies p into the data region and returns its address.
func (b *Block) AppendData(p []byte) (Goffset, error) {
	n := Goffset((len(p) + CDSize - 1) &^ (CDSize - 1))
	if uint64(n) > uint64(b.dataBegin-b.cdEnd) {
		return InvalidGoffset, xerrors.Errorf("block %d: %d data bytes: %w", b.id, len(p), ErrBlockFull)
	}
	b.dataBegin -= n
	copy(b.tree.space[b.dataBegin:b.dataBegin+n], p)
	return b.dataBegin, nil
}

// addCDCount accounts for the CD at g and its leaves.
func (b *Block) addCDCount(g Goffset) {
	c := b.tree.space.CD(g)
	b.cdCount++
	b.leafCount += uint64(c.LeafCount())
}

// clearCDCount reverses addCDCount for the CD at g as it is now.
func (b *Block) clearCDCount(g Goffset) {
	c := b.tree.space.CD(g)
	if b.cdCount == 0 || b.leafCount < uint64(c.LeafCount()) {
		panic(fmt.Sprintf("block %d: count underflow clearing CD at %d", b.id, g))
	}
	b.cdCount--
	b.leafCount -= uint64(c.LeafCount())
}

// setMasks rewrites the masks of the CD at g keeping its pointer, with the
// counters following along.
func (b *Block) setMasks(g Goffset, valid, leaf uint8) {
	s := b.tree.space
	b.clearCDCount(g)
	s.SetCD(g, s.CD(g).SetMasks(valid, leaf))
	b.addCDCount(g)
}

// RootChildrenGoffset resolves the shadow root's children base.
func (b *Block) RootChildrenGoffset() Goffset {
	return b.tree.space.ChildBase(b.root)
}

// HasRootChildrenGoffset reports whether the shadow root is linked through a
// far slot to an address inside b.
func (b *Block) HasRootChildrenGoffset() bool {
	s := b.tree.space
	c := s.CD(b.root)
	if !c.Far() {
		return false
	}
	return b.IsInBlock(s.Pointer(b.root).Target(s, b.root))
}

// CheckParentRootCD cross-checks the shadow root against the CD in the
// parent that designates b.
func (b *Block) CheckParentRootCD() error {
	p := b.Parent()
	if p == nil {
		return nil
	}
	s := b.tree.space
	if !p.IsValidCDGoffset(b.parentGoffset) {
		return xerrors.Errorf("block %d: parent CD %d outside block %d", b.id, b.parentGoffset, p.id)
	}
	shadow, held := s.CD(b.root), s.CD(b.parentGoffset)
	if shadow.ValidMask() != held.ValidMask() || shadow.LeafMask() != held.LeafMask() {
		return xerrors.Errorf("block %d: shadow root %v disagrees with parent CD %v", b.id, shadow, held)
	}
	if !shadow.Far() || !held.Far() {
		return xerrors.Errorf("block %d: root CDs must be far (shadow %v, parent %v)", b.id, shadow, held)
	}
	if sb, hb := s.ChildBase(b.root), s.ChildBase(b.parentGoffset); sb != hb {
		return xerrors.Errorf("block %d: shadow children at %d, parent children at %d", b.id, sb, hb)
	}
	return nil
}

// reset reinitializes b to a single dummy root: header, root CD and the
// root's far slot, which points at the first CD slot after it.
func (b *Block) reset() {
	s := b.tree.space
	clear(s[b.begin:b.end])
	b.cdEnd = b.begin
	b.info = b.end - InfoSize
	b.dataBegin = b.info
	b.cdCount, b.leafCount = 0, 0
	b.attrs, b.attrDir = nil, 0

	root, err := b.appendSlot()
	if err != nil {
		panic(fmt.Sprintf("block %d too small for a root: %v", b.id, err))
	}
	slot, err := b.appendSlot()
	if err != nil {
		panic(fmt.Sprintf("block %d too small for a root: %v", b.id, err))
	}
	b.root, b.rootSlot = root, slot
	linkFar(s, root, slot, b.cdEnd)
	b.addCDCount(root)
	b.writeInfo()
}

// linkFar points the CD at own through slot to target.
func linkFar(s Space, own, slot, target Goffset) {
	if slot <= own || (slot-own)/ChildPtrUnit > MaxChildPtr {
		panic(fmt.Sprintf("far slot %d unreachable from CD at %d", slot, own))
	}
	c := s.CD(own).SetFar(true).SetChildPtr(uint16((slot - own) / ChildPtrUnit))
	s.SetCD(own, c)
	s.SetFarValue(slot, int32(int64(target)-int64(own)))
}

// linkDirect points the CD at own straight at target.
func linkDirect(s Space, own, target Goffset) {
	if target <= own || (target-own)%ChildPtrUnit != 0 || (target-own)/ChildPtrUnit > MaxChildPtr {
		panic(fmt.Sprintf("child run at %d not directly reachable from CD at %d", target, own))
	}
	c := s.CD(own).SetFar(false).SetChildPtr(uint16((target - own) / ChildPtrUnit))
	s.SetCD(own, c)
}

// syncParentRootCD copies the shadow root's masks into the parent's
// designating CD and re-points that CD's far slot at b's first run.
func (b *Block) syncParentRootCD() {
	p := b.Parent()
	if p == nil {
		return
	}
	s := b.tree.space
	shadow := s.CD(b.root)
	p.setMasks(b.parentGoffset, shadow.ValidMask(), shadow.LeafMask())
	far, ok := s.Pointer(b.parentGoffset).(FarPointer)
	if !ok {
		panic(fmt.Sprintf("block %d: parent CD at %d is not far", b.id, b.parentGoffset))
	}
	linkFar(s, b.parentGoffset, far.Slot, b.RootChildrenGoffset())
	p.writeInfo()
}

type blockInfo struct {
	rootLevel     uint8
	height        uint8
	rootMorton    uint64
	cdCount       uint64
	leafCount     uint64
	attrOffset    Goffset
	attrLen       uint32
	root          Goffset
	parentGoffset Goffset
}

func (b *Block) writeInfo() {
	p := b.tree.space[b.info : b.info+InfoSize]
	binary.LittleEndian.PutUint32(p[0:], infoMagic)
	p[4], p[5] = b.rootLevel, b.height
	binary.LittleEndian.PutUint16(p[6:], 0)
	binary.LittleEndian.PutUint64(p[8:], b.rootMorton)
	binary.LittleEndian.PutUint64(p[16:], b.cdCount)
	binary.LittleEndian.PutUint64(p[24:], b.leafCount)
	binary.LittleEndian.PutUint32(p[32:], uint32(b.attrDir))
	binary.LittleEndian.PutUint32(p[36:], uint32(len(b.attrs)*AttrEntrySize))
	binary.LittleEndian.PutUint32(p[40:], uint32(b.root))
	binary.LittleEndian.PutUint32(p[44:], uint32(b.parentGoffset))
}

// readInfo decodes the info section at g.
func (s Space) readInfo(g Goffset) (blockInfo, error) {
	if uint64(g)+InfoSize > uint64(len(s)) {
		return blockInfo{}, xerrors.Errorf("info section at %d: %w", g, ErrMalformed)
	}
	p := s[g : g+InfoSize]
	if binary.LittleEndian.Uint32(p[0:]) != infoMagic {
		return blockInfo{}, xerrors.Errorf("info section at %d: bad magic: %w", g, ErrMalformed)
	}
	return blockInfo{
		rootLevel:     p[4],
		height:        p[5],
		rootMorton:    binary.LittleEndian.Uint64(p[8:]),
		cdCount:       binary.LittleEndian.Uint64(p[16:]),
		leafCount:     binary.LittleEndian.Uint64(p[24:]),
		attrOffset:    Goffset(binary.LittleEndian.Uint32(p[32:])),
		attrLen:       binary.LittleEndian.Uint32(p[36:]),
		root:          Goffset(binary.LittleEndian.Uint32(p[40:])),
		parentGoffset: Goffset(binary.LittleEndian.Uint32(p[44:])),
	}, nil
}

func (b *Block) String() string {
	return fmt.Sprintf("block %d [%d,%d) level=%d height=%d cds=%d leaves=%d", b.id, b.begin, b.end, b.rootLevel, b.height, b.cdCount, b.leafCount)
}
