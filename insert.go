package voxtree

import (
	"errors"
	"fmt"

	"golang.org/x/xerrors"

	"github.com/openvoxel/go-voxtree/vcurve"
)

var (
	errNoSlice       = errors.New("block has no pending slice")
	errChildTooSmall = errors.New("child slice too small to root a block")
)

// node is one CD of the graph being rebuilt, identified by level and code.
type node struct {
	level  uint8
	morton uint64
	valid  uint8
	leaf   uint8
}

func (n node) String() string {
	return fmt.Sprintf("node{l=%d m=%d valid=%08b leaf=%08b}", n.level, n.morton, n.valid, n.leaf)
}

// inserter compiles a Block's pending Slice into the address space.
type inserter struct {
	t *Tree
	b *Block
	s *Slice

	nodes     []node
	converted int
	cuts      []cut
	bin       []int // per node: cut index or -1
	boundary  []int // per node: cut index or -1
}

// Build attaches root to the trunk and inserts pending Slices until every
// Block is settled.
func (t *Tree) Build(root *Slice) error {
	if err := t.trunk.AttachSlice(root); err != nil {
		return err
	}
	queue := []*Block{t.trunk}
	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		if b.slice == nil {
			continue
		}
		dests, err := t.Insert(b)
		if err != nil {
			return xerrors.Errorf("inserting level %d into block %d: %w", b.slice.Level, b.id, err)
		}
		queue = append(queue, dests...)
	}
	log.Infow("built tree", "id", t.id, "blocks", len(t.order), "free", t.ranges.total())
	return nil
}

// Insert consumes b's pending Slice: the new voxels become leaves under the
// existing graph, and if the Slice has several children the graph is split
// with one new Block per child. It returns every Block written, in the order
// they should be visited next. Attribute records of coarser levels stay in
// b. ErrOutOfSpace, and ErrBlockFull when b cannot hold the rewritten
// content, leave b and its Slice as they were; any other failure leaves the
// Tree unusable.
func (t *Tree) Insert(b *Block) ([]*Block, error) {
	if t.blocks[b.id] != b {
		return nil, xerrors.Errorf("block %d: %w", b.id, errUnknownBlock)
	}
	if b.slice == nil {
		return nil, xerrors.Errorf("block %d: %w", b.id, errNoSlice)
	}
	in := &inserter{t: t, b: b, s: b.slice}
	return in.run()
}

func (in *inserter) run() ([]*Block, error) {
	b, s := in.b, in.s
	if a := s.Attributes(); a != nil {
		n, err := a.Count()
		if err != nil {
			return nil, xerrors.Errorf("slice attributes: %w", err)
		}
		if n != s.Len() {
			return nil, fmt.Errorf("slice has %d attribute records for %d voxels", n, s.Len())
		}
	}
	oldLeaves, oldCDs := b.leafCount, b.cdCount

	nodes, err := in.extend(in.gather())
	if err != nil {
		return nil, err
	}
	in.nodes = nodes
	if sanityChecks {
		mustCheck("merge", checkPreorder(nodes, b))
	}

	if err := in.classify(); err != nil {
		return nil, err
	}

	secs, err := in.sections()
	if err != nil {
		return nil, err
	}
	for _, sec := range secs {
		sec.plan(in.t.cfg.directReach)
		if sanityChecks {
			mustCheck("layout", sec.check())
		}
	}

	held := b.heldAttributes(s.Level)
	owners := in.owners()
	records := make([][]byte, len(secs))
	for i, sec := range secs {
		records[i] = packRecords(s.Attributes(), owners[i])
		var keep []heldRecord
		if i == 0 {
			keep = held
		}
		sec.attrBytes = attrFootprint(keep, len(records[i]))
	}
	if need := secs[0].estimate(); need > b.Size() {
		return nil, xerrors.Errorf("block %d needs %d bytes, spans %d: %w", b.id, need, b.Size(), ErrBlockFull)
	}

	// New Blocks are carved before b is touched so running out of space
	// leaves b as it was.
	for k := range in.cuts {
		sec := secs[k+1]
		size := max(in.t.cfg.blockSize, roundUpPages(uint64(float64(sec.estimate())*in.t.cfg.blockSlack)))
		nb, err := in.t.allocateBlock(size)
		if err != nil {
			for _, c := range in.cuts[:k] {
				in.t.release(c.block)
			}
			return nil, err
		}
		in.cuts[k].block = nb
	}

	if err := in.commit(secs, records, owners, held); err != nil {
		return nil, err
	}

	dests := []*Block{b}
	switch kids := s.Children(); {
	case len(kids) == 0:
		b.slice = nil
	case len(kids) == 1:
		b.slice = kids[0]
	default:
		b.slice = nil
		for _, c := range in.cuts {
			dests = append(dests, c.block)
		}
	}
	if sanityChecks {
		for _, d := range dests {
			mustCheck("commit", CheckBlock(in.t, d))
		}
	}

	log.Debugw("inserted slice",
		"block", b.id, "level", s.Level, "voxels", s.Len(), "converted", in.converted,
		"split", len(in.cuts), "leaves", b.leafCount, "leavesBefore", oldLeaves,
		"cds", b.cdCount, "cdsBefore", oldCDs)
	return dests, nil
}

// gather lists b's CDs in pre-order.
func (in *inserter) gather() []node {
	s := in.t.space
	var out []node
	root := Cell{Level: in.b.rootLevel, Morton: in.b.rootMorton}
	WalkDepthFirst(s, in.b.root, root, func(parent, g Goffset, child int, m Cell) (Cell, bool) {
		c := cellOf(parent, g, child, m)
		if g == NoPointer {
			return c, false
		}
		cd := s.CD(g)
		out = append(out, node{level: c.Level, morton: c.Morton, valid: cd.ValidMask(), leaf: cd.LeafMask()})
		return c, true
	})
	return out
}

// extend turns the parent cell of every new voxel into a CD holding it as a
// leaf, and merges those CDs into the pre-order list.
func (in *inserter) extend(old []node) ([]node, error) {
	s := in.s
	qLevel := s.Level - 1
	if old[0].level == qLevel {
		root := old[0]
		for i := 0; i < s.Len(); i++ {
			code := s.Global(i)
			if vcurve.Ancestor(code, s.Level, qLevel) != root.morton {
				return nil, xerrors.Errorf("voxel %d at level %d: %w", code, s.Level, ErrOutOfCube)
			}
			bit := uint8(1) << (code & 7)
			root.valid |= bit
			root.leaf |= bit
		}
		return []node{root}, nil
	}

	parents := make(map[uint64]int)
	for i, n := range old {
		if n.level == qLevel-1 {
			parents[n.morton] = i
		}
	}
	var fresh []node
	for i := 0; i < s.Len(); i++ {
		code := s.Global(i)
		q := vcurve.Ancestor(code, s.Level, qLevel)
		if n := len(fresh); n == 0 || fresh[n-1].morton != q {
			p, ok := parents[vcurve.Ancestor(q, qLevel, qLevel-1)]
			oct := uint8(1) << (q & 7)
			if !ok || old[p].leaf&oct == 0 {
				return nil, xerrors.Errorf("voxel %d at level %d: %w", code, s.Level, ErrOrphanVoxel)
			}
			old[p].leaf &^= oct
			fresh = append(fresh, node{level: qLevel, morton: q})
		}
		bit := uint8(1) << (code & 7)
		f := &fresh[len(fresh)-1]
		f.valid |= bit
		f.leaf |= bit
	}
	in.converted = len(fresh)

	out := make([]node, 0, len(old)+len(fresh))
	j := 0
	for _, n := range old {
		key := n.morton << (3 * uint64(qLevel-n.level))
		for j < len(fresh) && fresh[j].morton < key {
			out = append(out, fresh[j])
			j++
		}
		out = append(out, n)
	}
	return append(out, fresh[j:]...), nil
}

// owners lists, per section, the indices of the new voxels the section's
// Block stores attributes for. Voxels under a shared root go to both sides.
func (in *inserter) owners() [][]int {
	out := make([][]int, len(in.cuts)+1)
	s := in.s
	if s.Len() == 0 {
		return out
	}
	qLevel := s.Level - 1
	index := make(map[uint64]int)
	for i, n := range in.nodes {
		if n.level == qLevel {
			index[n.morton] = i
		}
	}
	for i := 0; i < s.Len(); i++ {
		n := index[vcurve.Ancestor(s.Global(i), s.Level, qLevel)]
		switch {
		case in.boundary != nil && in.boundary[n] >= 0:
			out[0] = append(out[0], i)
			out[in.boundary[n]+1] = append(out[in.boundary[n]+1], i)
		case in.bin != nil && in.bin[n] >= 0:
			out[in.bin[n]+1] = append(out[in.bin[n]+1], i)
		default:
			out[0] = append(out[0], i)
		}
	}
	return out
}
