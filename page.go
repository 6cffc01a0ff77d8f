package voxtree

import (
	"encoding/binary"
	"fmt"
)

// PageSize is the framing unit of the address space. Every page starts with
// an 8 byte header; its low 32 bits hold the distance from the header to the
// info section of the Block owning the page.
const (
	PageSize       = 8192
	PageHeaderSize = CDSize
)

// Goffset is a byte offset into a Tree's address space.
type Goffset uint32

const (
	// NoPointer is never a valid address: page 0 is reserved.
	NoPointer Goffset = 0
	// InvalidGoffset marks an unresolved or corrupt address.
	InvalidGoffset Goffset = ^Goffset(0)
)

// PageHeader returns the address of the header of the page holding g.
func PageHeader(g Goffset) Goffset {
	return g &^ (PageSize - 1)
}

// IsReserved reports whether g is a page header slot. This is the one
// predicate both the codec and the Block append path use to avoid headers.
func IsReserved(g Goffset) bool {
	return g%PageSize == 0
}

// skipsReserved reports whether contiguous placement of CDs from base up to
// g (base < g) steps over a page header, in which case everything from the
// header on sits one CD further along.
func skipsReserved(base, g Goffset) bool {
	return PageHeader(g) > base
}

// headerBudget bounds the number of header bytes a forward span of n bytes
// can absorb.
func headerBudget(n uint64) uint64 {
	return (n/(PageSize-PageHeaderSize) + 1) * PageHeaderSize
}

func roundUpPages(n uint64) uint64 {
	return (n + PageSize - 1) &^ (PageSize - 1)
}

// InfoOffset returns the info offset stored in the header of g's page.
func (s Space) InfoOffset(g Goffset) uint32 {
	h := PageHeader(g)
	return binary.LittleEndian.Uint32(s[h:])
}

// InfoAddr returns the address of the info section of the Block that owns
// g's page.
func (s Space) InfoAddr(g Goffset) Goffset {
	h := PageHeader(g)
	return h + Goffset(s.InfoOffset(h))
}

func (s Space) writePageHeader(h Goffset, info Goffset) {
	if !IsReserved(h) {
		panic(fmt.Sprintf("page header at unaligned address %d", h))
	}
	if info < h {
		panic(fmt.Sprintf("info section %d precedes header %d", info, h))
	}
	binary.LittleEndian.PutUint64(s[h:], uint64(info-h))
}
