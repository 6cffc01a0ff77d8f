package voxtree

import (
	"context"
	"fmt"
	"runtime"

	"github.com/openvoxel/go-voxtree/vcurve"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

// CheckBlock re-derives b's structure by traversal and reports the first
// inconsistency with its bookkeeping: region bounds, page headers, the info
// section, pointer resolution, counters, child Blocks and the parent-held
// root CD.
func CheckBlock(t *Tree, b *Block) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = xerrors.Errorf("block %d: %v", b.id, r)
		}
	}()
	s := t.space
	if t.blocks[b.id] != b {
		return xerrors.Errorf("block %d: %w", b.id, errUnknownBlock)
	}
	if b.begin%PageSize != 0 || b.end%PageSize != 0 || b.end <= b.begin || uint64(b.end) > uint64(len(s)) {
		return fmt.Errorf("block %d: range [%d,%d) not page aligned inside the space", b.id, b.begin, b.end)
	}
	if b.root != b.begin+PageHeaderSize || b.rootSlot != b.root+CDSize {
		return fmt.Errorf("block %d: root at %d, slot at %d", b.id, b.root, b.rootSlot)
	}
	if b.cdEnd < b.rootSlot+CDSize || b.cdEnd > b.dataBegin || b.dataBegin > b.info || b.info != b.end-InfoSize {
		return fmt.Errorf("block %d: regions out of order (cd end %d, data %d, info %d)", b.id, b.cdEnd, b.dataBegin, b.info)
	}
	for h := b.begin; h < b.cdEnd; h += PageSize {
		if got := s.InfoAddr(h); got != b.info {
			return fmt.Errorf("block %d: page header at %d points to %d, info is at %d", b.id, h, got, b.info)
		}
	}
	if err := b.checkInfo(); err != nil {
		return err
	}
	if b.slice != nil {
		if len(b.children) > 0 {
			return xerrors.Errorf("block %d: %w", b.id, errBlockHasChildren)
		}
		if b.slice.Level != b.BottomLevel()+1 {
			return fmt.Errorf("block %d: pending slice at level %d, bottom is %d", b.id, b.slice.Level, b.BottomLevel())
		}
	}
	if !s.CD(b.root).Far() || !b.HasRootChildrenGoffset() {
		return fmt.Errorf("block %d: shadow root %v is not linked into the block", b.id, s.CD(b.root))
	}

	kids := make(map[Goffset]*Block, len(b.children))
	var last *Block
	for _, c := range b.Children() {
		if c == nil || c.parent != b.id {
			return fmt.Errorf("block %d: child list names a block it does not own", b.id)
		}
		if last != nil && last.Cube(vcurve.MaxLevel).Begin >= c.Cube(vcurve.MaxLevel).Begin {
			return fmt.Errorf("block %d: children %d and %d out of order", b.id, last.id, c.id)
		}
		kids[c.parentGoffset] = c
		last = c
	}

	var cds, leaves uint64
	var seen int
	var walkErr error
	WalkDepthFirst(s, b.root, uint8(0), func(parent, g Goffset, _ int, depth uint8) (uint8, bool) {
		if walkErr != nil || g == NoPointer {
			return depth, false
		}
		if !b.IsValidCDGoffset(g) {
			walkErr = fmt.Errorf("block %d: child resolves to %d, outside the CD region", b.id, g)
			return depth, false
		}
		if g != b.root && g <= parent {
			walkErr = fmt.Errorf("block %d: CD at %d precedes its parent at %d", b.id, g, parent)
			return depth, false
		}
		c := s.CD(g)
		if c.LeafMask()&^c.ValidMask() != 0 {
			walkErr = fmt.Errorf("block %d: %v at %d has leaves that are not valid", b.id, c, g)
			return depth, false
		}
		if c.ValidMask() != 0 && depth >= b.height {
			walkErr = fmt.Errorf("block %d: %v at %d has children below the bottom level", b.id, c, g)
			return depth, false
		}
		cds++
		leaves += uint64(c.LeafCount())
		if kid, ok := kids[g]; ok {
			seen++
			if !c.Far() {
				walkErr = fmt.Errorf("block %d: CD at %d designating block %d is not far", b.id, g, kid.id)
			} else if got, want := s.ChildBase(g), kid.RootChildrenGoffset(); got != want {
				walkErr = fmt.Errorf("block %d: CD at %d resolves to %d, block %d starts at %d", b.id, g, got, kid.id, want)
			}
			return depth, false
		}
		return depth + 1, true
	})
	if walkErr != nil {
		return walkErr
	}
	if cds != b.cdCount || leaves != b.leafCount {
		return fmt.Errorf("block %d: traversal found %d CDs and %d leaves, counters say %d and %d", b.id, cds, leaves, b.cdCount, b.leafCount)
	}
	if seen != len(kids) {
		return fmt.Errorf("block %d: reached %d of %d child blocks", b.id, seen, len(kids))
	}
	return b.CheckParentRootCD()
}

func (b *Block) checkInfo() error {
	info, err := b.tree.space.readInfo(b.info)
	if err != nil {
		return xerrors.Errorf("block %d: %w", b.id, err)
	}
	want := blockInfo{
		rootLevel:     b.rootLevel,
		height:        b.height,
		rootMorton:    b.rootMorton,
		cdCount:       b.cdCount,
		leafCount:     b.leafCount,
		attrOffset:    b.attrDir,
		attrLen:       uint32(len(b.attrs) * AttrEntrySize),
		root:          b.root,
		parentGoffset: b.parentGoffset,
	}
	if info != want {
		return fmt.Errorf("block %d: info section %+v, expected %+v", b.id, info, want)
	}
	return b.checkAttributes()
}

// checkAttributes verifies the attribute records and their directory lie in
// the data region, one per level, coarsest first.
func (b *Block) checkAttributes() error {
	if len(b.attrs) == 0 {
		if b.attrDir != 0 {
			return fmt.Errorf("block %d: attribute directory at %d without records", b.id, b.attrDir)
		}
		return nil
	}
	inData := func(g Goffset, n uint32) bool {
		return g >= b.dataBegin && g <= b.info && uint64(n) <= uint64(b.info-g)
	}
	if !inData(b.attrDir, uint32(len(b.attrs)*AttrEntrySize)) {
		return fmt.Errorf("block %d: attribute directory at %d outside the data region", b.id, b.attrDir)
	}
	dir := b.tree.space.readAttrDir(b.attrDir, len(b.attrs))
	for i, a := range b.attrs {
		if dir[i] != a {
			return fmt.Errorf("block %d: attribute directory entry %d is %+v, expected %+v", b.id, i, dir[i], a)
		}
		if !inData(a.Offset, a.Len) {
			return fmt.Errorf("block %d: attributes of level %d outside the data region", b.id, a.Level)
		}
		if i > 0 && b.attrs[i-1].Level >= a.Level {
			return fmt.Errorf("block %d: attribute records out of level order at %d", b.id, i)
		}
	}
	return nil
}

// CheckSlice verifies s and its descendants: cube bounds, position order,
// attribute counts and child placement.
func CheckSlice(s *Slice) error {
	if err := s.checkCube(); err != nil {
		return err
	}
	vol := vcurve.Volume(s.depth())
	for i, p := range s.positions {
		if p >= vol {
			return xerrors.Errorf("%v: position %d: %w", s, p, ErrOutOfCube)
		}
		if i > 0 && s.positions[i-1] >= p {
			return xerrors.Errorf("%v: position %d after %d: %w", s, p, s.positions[i-1], ErrUnordered)
		}
	}
	if a := s.attrs; a != nil {
		if err := a.Schema.Validate(); err != nil {
			return xerrors.Errorf("%v: %w", s, err)
		}
		n, err := a.Count()
		if err != nil {
			return xerrors.Errorf("%v: %w", s, err)
		}
		if n != len(s.positions) {
			return fmt.Errorf("%v: %d attribute records", s, n)
		}
	}
	outer := vcurve.Range{Begin: s.Range().Begin << 3, End: s.Range().End << 3}
	for i, c := range s.children {
		if c.parent != s {
			return fmt.Errorf("%v: child %v has another parent", s, c)
		}
		if c.Level != s.Level+1 {
			return fmt.Errorf("%v: child %v at the wrong level", s, c)
		}
		if !outer.Contains(c.Range()) {
			return xerrors.Errorf("%v: child %v: %w", s, c, ErrOutOfCube)
		}
		if i > 0 && s.children[i-1].Range().End > c.Range().Begin {
			return xerrors.Errorf("%v: child %v: %w", s, c, ErrOverlap)
		}
		if err := CheckSlice(c); err != nil {
			return err
		}
	}
	return nil
}

// CheckTree verifies every Block concurrently, then that Blocks and free
// ranges partition the space and that the Block hierarchy is consistent.
func CheckTree(ctx context.Context, t *Tree) error {
	grp, ctx := errgroup.WithContext(ctx)
	work := make(chan *Block)
	for i := 0; i < runtime.GOMAXPROCS(0); i++ {
		grp.Go(func() error {
			for b := range work {
				if err := CheckBlock(t, b); err != nil {
					return err
				}
			}
			return nil
		})
	}
	grp.Go(func() error {
		defer close(work)
		for _, b := range t.order {
			select {
			case work <- b:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	if err := grp.Wait(); err != nil {
		return err
	}
	return t.checkPartition()
}

func (t *Tree) checkPartition() error {
	if t.trunk == nil || t.blocks[t.trunk.id] != t.trunk || !t.trunk.IsTrunk() {
		return fmt.Errorf("tree %s: trunk is not registered", t.id)
	}
	cursor := Goffset(PageSize)
	free := t.ranges.extents()
	blocks := t.order
	for len(free) > 0 || len(blocks) > 0 {
		var e Extent
		if len(blocks) > 0 && (len(free) == 0 || blocks[0].begin < free[0].Begin) {
			b := blocks[0]
			blocks = blocks[1:]
			if b != t.trunk {
				if b.IsTrunk() {
					return fmt.Errorf("tree %s: block %d has no parent", t.id, b.id)
				}
				if p := b.Parent(); p == nil || !containsID(p.children, b.id) {
					return fmt.Errorf("tree %s: block %d is not listed by its parent", t.id, b.id)
				}
			}
			e = Extent{Begin: b.begin, End: b.end}
		} else {
			e = free[0]
			free = free[1:]
		}
		if e.Begin != cursor {
			return fmt.Errorf("tree %s: range [%d,%d) found at %d", t.id, e.Begin, e.End, cursor)
		}
		cursor = e.End
	}
	if uint64(cursor) != uint64(len(t.space)) {
		return fmt.Errorf("tree %s: ranges end at %d, space is %d bytes", t.id, cursor, len(t.space))
	}
	if n := len(t.ranges.byBegin); n != len(t.ranges.bySize) {
		return fmt.Errorf("tree %s: free indices hold %d and %d ranges", t.id, n, len(t.ranges.bySize))
	}
	if len(t.used.entries) != len(t.order) || len(t.free.entries) != len(t.order) {
		return fmt.Errorf("tree %s: block indices out of sync", t.id)
	}
	return nil
}

func containsID(ids []BlockID, id BlockID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

// checkPreorder verifies a node list is a rooted pre-order walk of b's
// cube with consistent masks.
func checkPreorder(nodes []node, b *Block) error {
	if len(nodes) == 0 || nodes[0].level != b.rootLevel || nodes[0].morton != b.rootMorton {
		return fmt.Errorf("node list does not start at the root of block %d", b.id)
	}
	key := func(n node) uint64 { return n.morton << (3 * uint64(vcurve.MaxLevel-n.level)) }
	for i, n := range nodes {
		if n.leaf&^n.valid != 0 {
			return fmt.Errorf("%v: leaves not covered by valid octants", n)
		}
		if i == 0 {
			continue
		}
		p := nodes[i-1]
		if key(p) > key(n) || (key(p) == key(n) && p.level >= n.level) {
			return fmt.Errorf("%v follows %v out of order", n, p)
		}
	}
	return nil
}

func mustCheck(stage string, err error) {
	if err != nil {
		panic(fmt.Sprintf("sanity check after %s: %v", stage, err))
	}
}
