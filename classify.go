package voxtree

import (
	"sort"

	"github.com/openvoxel/go-voxtree/vcurve"
	"golang.org/x/xerrors"
)

// cut is the part of the graph a child Slice takes into a new Block.
type cut struct {
	slice *Slice
	// level and morton name the new Block's root node.
	level  uint8
	morton uint64
	// span is the child's cube at the level of the new voxels.
	span vcurve.Range
	// boundary is the node shared between the split Block and the new one.
	boundary int
	block    *Block
}

// classify assigns every node to a child bin when it lies strictly inside a
// child's cube, and records the node whose cell is exactly that cube as the
// child's boundary. Nothing is assigned when there are fewer than two
// children: a single child keeps growing the same Block.
func (in *inserter) classify() error {
	kids := in.s.Children()
	if len(kids) < 2 {
		return nil
	}
	leaf := in.s.Level
	cuts := make([]cut, 0, len(kids))
	for _, c := range kids {
		if c.Side < 4 {
			return xerrors.Errorf("%v: %w", c, errChildTooSmall)
		}
		h := c.depth() - 1
		if leaf-h <= in.b.rootLevel {
			return xerrors.Errorf("%v covers the whole block: %w", c, errChildTooSmall)
		}
		cuts = append(cuts, cut{
			slice:    c,
			level:    leaf - h,
			morton:   vcurve.Ancestor(c.ParentVcurveBegin, leaf, leaf-h),
			span:     vcurve.Range{Begin: c.ParentVcurveBegin, End: c.ParentVcurveBegin + vcurve.Volume(h)},
			boundary: -1,
		})
	}

	bin := make([]int, len(in.nodes))
	boundary := make([]int, len(in.nodes))
	for i, n := range in.nodes {
		bin[i], boundary[i] = -1, -1
		r := vcurve.CellRange(n.morton, n.level, leaf)
		k := sort.Search(len(cuts), func(k int) bool { return cuts[k].span.Begin > r.Begin }) - 1
		if k < 0 || !cuts[k].span.Contains(r) {
			continue
		}
		if cuts[k].span == r {
			boundary[i] = k
			cuts[k].boundary = i
		} else {
			bin[i] = k
		}
	}

	// A child whose cube has no CD in the graph has nothing to hang from.
	// It is dropped if it is empty; voxels in it are orphans.
	kept := make([]int, len(cuts))
	out := cuts[:0]
	for k, c := range cuts {
		if c.boundary < 0 {
			if c.slice.Len() > 0 || len(c.slice.Children()) > 0 {
				return xerrors.Errorf("%v has no parent cell: %w", c.slice, ErrOrphanVoxel)
			}
			log.Debugw("dropping empty child slice", "level", c.slice.Level, "begin", c.slice.Begin())
			kept[k] = -1
			continue
		}
		kept[k] = len(out)
		out = append(out, c)
	}
	for i := range in.nodes {
		if bin[i] >= 0 {
			bin[i] = kept[bin[i]]
		}
		if boundary[i] >= 0 {
			boundary[i] = kept[boundary[i]]
		}
	}
	in.cuts, in.bin, in.boundary = out, bin, boundary
	return nil
}

// sections splits the node list into the part staying in the Block being
// written and one part per cut, each in pre-order and rooted. A cut's
// section is rooted at a copy of its boundary node.
func (in *inserter) sections() ([]*section, error) {
	lists := make([][]node, len(in.cuts)+1)
	marks := make([][]int, len(in.cuts)+1)
	for k, c := range in.cuts {
		lists[k+1] = append(lists[k+1], in.nodes[c.boundary])
		marks[k+1] = append(marks[k+1], -1)
	}
	for i, n := range in.nodes {
		k := -1
		if in.bin != nil {
			k = in.bin[i]
		}
		mark := -1
		if in.boundary != nil {
			mark = in.boundary[i]
		}
		lists[k+1] = append(lists[k+1], n)
		marks[k+1] = append(marks[k+1], mark)
	}

	secs := make([]*section, len(lists))
	for k := range lists {
		sec, err := newSection(lists[k], marks[k], k == 0 && in.b.IsTrunk())
		if err != nil {
			return nil, err
		}
		secs[k] = sec
	}
	return secs, nil
}
