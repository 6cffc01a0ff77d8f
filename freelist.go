package voxtree

import (
	"cmp"
	"slices"
)

// Extent is a half-open, page aligned byte range of the address space.
type Extent struct {
	Begin, End Goffset
}

func (e Extent) Size() uint64 { return uint64(e.End - e.Begin) }

func byBegin(a, b Extent) int { return cmp.Compare(a.Begin, b.Begin) }

func bySize(a, b Extent) int {
	if c := cmp.Compare(a.Size(), b.Size()); c != 0 {
		return c
	}
	return cmp.Compare(a.Begin, b.Begin)
}

// freeList tracks the unallocated ranges of a Tree twice: by address for
// coalescing and by (size, address) for best fit lookups.
type freeList struct {
	byBegin []Extent
	bySize  []Extent
}

func (f *freeList) insert(e Extent) {
	i, _ := slices.BinarySearchFunc(f.byBegin, e, byBegin)
	f.byBegin = slices.Insert(f.byBegin, i, e)
	j, _ := slices.BinarySearchFunc(f.bySize, e, bySize)
	f.bySize = slices.Insert(f.bySize, j, e)
}

func (f *freeList) remove(e Extent) {
	i, ok := slices.BinarySearchFunc(f.byBegin, e, byBegin)
	if !ok {
		panic("freelist: removing unknown extent")
	}
	f.byBegin = slices.Delete(f.byBegin, i, i+1)
	j, ok := slices.BinarySearchFunc(f.bySize, e, bySize)
	if !ok {
		panic("freelist: size index out of sync")
	}
	f.bySize = slices.Delete(f.bySize, j, j+1)
}

// add returns e to the list, merging it with free neighbours on either side.
func (f *freeList) add(e Extent) {
	if e.End <= e.Begin {
		return
	}
	i, _ := slices.BinarySearchFunc(f.byBegin, e, byBegin)
	if i < len(f.byBegin) {
		if next := f.byBegin[i]; next.Begin < e.End {
			panic("freelist: overlapping extents")
		} else if next.Begin == e.End {
			f.remove(next)
			e.End = next.End
		}
	}
	if i > 0 {
		if prev := f.byBegin[i-1]; prev.End > e.Begin {
			panic("freelist: overlapping extents")
		} else if prev.End == e.Begin {
			f.remove(prev)
			e.Begin = prev.Begin
		}
	}
	f.insert(e)
}

// take carves size bytes from the front of the smallest range that fits.
func (f *freeList) take(size uint64) (Extent, bool) {
	i, _ := slices.BinarySearchFunc(f.bySize, Extent{End: Goffset(min(size, uint64(^Goffset(0))))}, func(a, b Extent) int {
		return cmp.Compare(a.Size(), b.Size())
	})
	if i == len(f.bySize) || f.bySize[i].Size() < size {
		return Extent{}, false
	}
	e := f.bySize[i]
	f.remove(e)
	got := Extent{Begin: e.Begin, End: e.Begin + Goffset(size)}
	if rest := (Extent{Begin: got.End, End: e.End}); rest.Size() > 0 {
		f.insert(rest)
	}
	return got, true
}

func (f *freeList) total() uint64 {
	var n uint64
	for _, e := range f.byBegin {
		n += e.Size()
	}
	return n
}

func (f *freeList) largest() uint64 {
	if len(f.bySize) == 0 {
		return 0
	}
	return f.bySize[len(f.bySize)-1].Size()
}

// extents returns the free ranges in address order.
func (f *freeList) extents() []Extent {
	return slices.Clone(f.byBegin)
}
