package voxtree

import (
	"fmt"
	"math/bits"
)

// entry is a node placed in a section.
type entry struct {
	node
	parent int // layout index, -1 for the root
	child  int // layout index of the first child in the section, -1 if none
	// boundary is the cut this node is the shared root of, or -1. Its
	// children live in the cut's Block.
	boundary int
	far      bool
	// rev is the distance from the entry to the end of the section.
	rev      uint64
	at, slot Goffset
}

// run is a group of siblings laid out contiguously.
type run struct {
	first, n int
	parent   int
}

// section is a rooted list of nodes destined for one Block, in layout order:
// the root, then for every node in pre-order, the run of its children. Runs
// are listed in the same order, so their entries tile [1, len(entries)).
type section struct {
	trunk   bool
	entries []entry
	runs    []run

	// size covers the root, the runs and their far slots.
	size      uint64
	attrBytes uint64
}

const rootBytes = PageHeaderSize + 2*CDSize

// newSection orders a pre-order node list into runs. marks holds the
// boundary cut per node.
func newSection(nodes []node, marks []int, trunk bool) (*section, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("empty section")
	}
	parent := make([]int, len(nodes))
	kids := make([][]int, len(nodes))
	var stack []int
	for i, n := range nodes {
		for len(stack) > 0 && nodes[stack[len(stack)-1]].level >= n.level {
			stack = stack[:len(stack)-1]
		}
		parent[i] = -1
		if i > 0 {
			if len(stack) == 0 {
				return nil, fmt.Errorf("%v has no ancestor in section", n)
			}
			p := stack[len(stack)-1]
			if nodes[p].level+1 != n.level || nodes[p].morton != n.morton>>3 {
				return nil, fmt.Errorf("%v does not follow its parent %v", n, nodes[p])
			}
			parent[i] = p
			kids[p] = append(kids[p], i)
		}
		stack = append(stack, i)
	}

	// Runs are emitted depth first: a node's run of children, then the runs
	// below each child in turn. Layout indices follow the same order.
	order := []int{0}
	pos := make([]int, len(nodes))
	var runs []run
	var emit func(p int)
	emit = func(p int) {
		if len(kids[p]) == 0 {
			return
		}
		runs = append(runs, run{first: len(order), n: len(kids[p]), parent: pos[p]})
		for _, c := range kids[p] {
			pos[c] = len(order)
			order = append(order, c)
		}
		for _, c := range kids[p] {
			emit(c)
		}
	}
	emit(0)

	sec := &section{trunk: trunk, entries: make([]entry, len(nodes)), runs: runs}
	for li, pi := range order {
		e := entry{node: nodes[pi], parent: -1, child: -1, boundary: marks[pi]}
		if parent[pi] >= 0 {
			e.parent = pos[parent[pi]]
		}
		if len(kids[pi]) > 0 {
			e.child = pos[kids[pi][0]]
		}
		sec.entries[li] = e
	}
	return sec, nil
}

// slots is the number of CD slots a run of n siblings occupies.
func (sec *section) slots(n int) int {
	if sec.trunk {
		return 8
	}
	return n
}

// plan decides the far pointers and places every entry relative to the
// section's end. Runs are visited tail first so a parent's children already
// have their final offsets. A direct pointer is kept only if the distance,
// padded for every page header it could cross, stays within reach.
func (sec *section) plan(reach uint64) {
	var tail uint64
	for r := len(sec.runs) - 1; r >= 0; r-- {
		rn := sec.runs[r]
		slots := sec.slots(rn.n)
		// Assume every member needs a slot while the real count is unknown.
		bound := 0
		for k := 0; k < rn.n; k++ {
			if e := sec.entries[rn.first+k]; e.child >= 0 || e.boundary >= 0 {
				bound++
			}
		}
		nFar := 0
		for k := 0; k < rn.n; k++ {
			e := &sec.entries[rn.first+k]
			switch {
			case e.boundary >= 0:
				e.far = true
			case e.child < 0:
				e.far = false
			case sec.trunk:
				e.far = true
			default:
				rev := tail + uint64(bound+slots-k)*CDSize
				d := rev - sec.entries[e.child].rev
				e.far = d+headerBudget(d) > reach
			}
			if e.far {
				nFar++
			}
		}
		for k := 0; k < rn.n; k++ {
			sec.entries[rn.first+k].rev = tail + uint64(nFar+slots-k)*CDSize
		}
		tail += uint64(nFar+slots) * CDSize
	}
	sec.entries[0].far = true
	sec.size = rootBytes + tail + headerBudget(tail)
}

// estimate bounds the bytes a Block needs to hold the section.
func (sec *section) estimate() uint64 {
	return sec.size + (sec.attrBytes+CDSize-1)&^(CDSize-1) + InfoSize
}

// check verifies the run structure and the planned offsets.
func (sec *section) check() error {
	next := 1
	for _, rn := range sec.runs {
		if rn.first != next {
			return fmt.Errorf("run of %d at %d, expected %d", rn.parent, rn.first, next)
		}
		for k := 0; k < rn.n; k++ {
			e := sec.entries[rn.first+k]
			if e.parent != rn.parent {
				return fmt.Errorf("entry %d in run of %d has parent %d", rn.first+k, rn.parent, e.parent)
			}
			if k > 0 && sec.entries[rn.first+k-1].morton >= e.morton {
				return fmt.Errorf("run of %d out of order at %d", rn.parent, rn.first+k)
			}
		}
		p := sec.entries[rn.parent]
		if p.boundary >= 0 {
			return fmt.Errorf("boundary entry %d has children in section", rn.parent)
		}
		if n := bits.OnesCount8(p.valid &^ p.leaf); n != rn.n {
			return fmt.Errorf("entry %d has %d non-leaf octants, run holds %d", rn.parent, n, rn.n)
		}
		next += rn.n
	}
	if next != len(sec.entries) {
		return fmt.Errorf("runs cover %d of %d entries", next, len(sec.entries))
	}
	for i, e := range sec.entries {
		if e.boundary < 0 && e.child < 0 && e.valid&^e.leaf != 0 {
			return fmt.Errorf("entry %d has non-leaf octants but no run", i)
		}
		if i > 0 && e.child >= 0 && !e.far && e.rev <= sec.entries[e.child].rev {
			return fmt.Errorf("entry %d precedes its children", i)
		}
	}
	return nil
}
