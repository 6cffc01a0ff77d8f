package voxtree

// Visitor is called once per valid node reached by a walk. parent is the
// address of the CD holding the node, node is the node's own CD address or
// NoPointer for a leaf, child is the node's octant in its parent (-1 for the
// walk root). The returned metadata is handed to the node's children; the
// walk descends into node only if the visitor returns true.
//
// Consumers resolving offsets themselves must reproduce the page header skip
// of Space.ChildGoffset: a run crossing a page start is displaced by one CD
// from the header on.
type Visitor[M any] func(parent, node Goffset, child int, meta M) (M, bool)

type frame[M any] struct {
	parent, node Goffset
	child        int
	meta         M
}

// expand queues the valid children of the CD at g in octant order.
func expand[M any](s Space, g Goffset, meta M, push func(frame[M])) {
	c := s.CD(g)
	for i := 0; i < 8; i++ {
		if !c.Valid(i) {
			continue
		}
		n := NoPointer
		if !c.Leaf(i) {
			n = s.ChildGoffset(g, i)
		}
		push(frame[M]{parent: g, node: n, child: i, meta: meta})
	}
}

// WalkDepthFirst visits the graph below root in pre-order, each node before
// its descendants and siblings in octant order.
func WalkDepthFirst[M any](s Space, root Goffset, meta M, visit Visitor[M]) {
	stack := []frame[M]{{parent: NoPointer, node: root, child: -1, meta: meta}}
	var kids []frame[M]
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		m, descend := visit(f.parent, f.node, f.child, f.meta)
		if !descend || f.node == NoPointer {
			continue
		}
		kids = kids[:0]
		expand(s, f.node, m, func(k frame[M]) { kids = append(kids, k) })
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
}

// WalkLevels visits the graph below root one level at a time.
func WalkLevels[M any](s Space, root Goffset, meta M, visit Visitor[M]) {
	queue := []frame[M]{{parent: NoPointer, node: root, child: -1, meta: meta}}
	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		m, descend := visit(f.parent, f.node, f.child, f.meta)
		if !descend || f.node == NoPointer {
			continue
		}
		expand(s, f.node, m, func(k frame[M]) { queue = append(queue, k) })
	}
}

// Cell names a node by its level and Morton code.
type Cell struct {
	Level  uint8
	Morton uint64
}

// Child returns octant i of c.
func (c Cell) Child(i int) Cell {
	return Cell{Level: c.Level + 1, Morton: c.Morton<<3 | uint64(i)}
}

// cellOf is the metadata step used by walks that track positions.
func cellOf(_, _ Goffset, child int, parent Cell) Cell {
	if child < 0 {
		return parent
	}
	return parent.Child(child)
}

// Leaves returns every leaf reachable from the trunk, in pre-order.
func (t *Tree) Leaves() []Cell {
	var out []Cell
	WalkDepthFirst(t.space, t.trunk.root, Cell{}, func(parent, node Goffset, child int, meta Cell) (Cell, bool) {
		c := cellOf(parent, node, child, meta)
		if node == NoPointer {
			out = append(out, c)
		}
		return c, true
	})
	return out
}

// Lookup reports whether the tree holds a node at level with the given code,
// and whether that node is a leaf.
func (t *Tree) Lookup(level uint8, code uint64) (found, leaf bool) {
	s := t.space
	g := t.trunk.root
	for l := uint8(1); l <= level; l++ {
		oct := int(code>>(3*uint64(level-l))) & 7
		c := s.CD(g)
		if !c.Valid(oct) {
			return false, false
		}
		if c.Leaf(oct) {
			return l == level, l == level
		}
		g = s.ChildGoffset(g, oct)
	}
	return true, false
}
