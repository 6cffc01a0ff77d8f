package voxtree

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// Stats summarizes a Tree's occupancy.
type Stats struct {
	Blocks int
	// CDs and Leaves count each shared root once.
	CDs         uint64
	Leaves      uint64
	SharedRoots int
	FarPointers uint64
	MaxLevel    uint8

	SpaceBytes   uint64
	BlockBytes   uint64
	UsedBytes    uint64
	FreeRanges   int
	FreeBytes    uint64
	LargestFree  uint64
	AttrBytes    uint64
	PendingSlice int
}

// Stats walks every Block once.
func (t *Tree) Stats() *Stats {
	st := &Stats{
		Blocks:      len(t.order),
		SpaceBytes:  uint64(len(t.space)),
		FreeRanges:  len(t.ranges.byBegin),
		FreeBytes:   t.ranges.total(),
		LargestFree: t.ranges.largest(),
	}
	for _, b := range t.order {
		st.CDs += b.cdCount
		st.Leaves += b.leafCount
		if !b.IsTrunk() {
			// The parent counts the shared root too.
			st.CDs--
			st.Leaves -= uint64(t.space.CD(b.root).LeafCount())
			st.SharedRoots++
		}
		st.BlockBytes += b.Size()
		st.UsedBytes += b.Used()
		for _, a := range b.attrs {
			st.AttrBytes += uint64(a.Len)
		}
		st.MaxLevel = max(st.MaxLevel, b.BottomLevel())
		if b.slice != nil {
			st.PendingSlice++
		}
		st.FarPointers += t.countFar(b)
	}
	return st
}

// countFar counts the far CDs of b other than its shadow root.
func (t *Tree) countFar(b *Block) uint64 {
	var n uint64
	WalkDepthFirst(t.space, b.root, struct{}{}, func(_, g Goffset, _ int, m struct{}) (struct{}, bool) {
		if g == NoPointer {
			return m, false
		}
		if g != b.root && t.space.CD(g).Far() {
			n++
		}
		return m, !b.designates(g)
	})
	return n
}

// designates reports whether the CD at g roots one of b's child Blocks.
func (b *Block) designates(g Goffset) bool {
	for _, c := range b.Children() {
		if c.parentGoffset == g {
			return true
		}
	}
	return false
}

func (st *Stats) String() string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', tabwriter.AlignRight)
	row := func(k string, v any) { fmt.Fprintf(w, "%s\t%v\t\n", k, v) }
	row("blocks", st.Blocks)
	row("shared roots", st.SharedRoots)
	row("pending slices", st.PendingSlice)
	row("cds", st.CDs)
	row("leaves", st.Leaves)
	row("far pointers", st.FarPointers)
	row("deepest level", st.MaxLevel)
	row("space bytes", st.SpaceBytes)
	row("block bytes", st.BlockBytes)
	row("used bytes", st.UsedBytes)
	row("attribute bytes", st.AttrBytes)
	row("free bytes", st.FreeBytes)
	row("free ranges", st.FreeRanges)
	row("largest free", st.LargestFree)
	w.Flush()
	return sb.String()
}
