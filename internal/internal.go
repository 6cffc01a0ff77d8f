// Package internal holds the wire forms of persisted trees and slices.
package internal

import (
	cid "github.com/ipfs/go-cid"
)

// Manifest describes a flushed Tree: the pages of its address space and the
// bookkeeping needed to rebuild its Blocks. A Block spans at least one
// page, so no list is longer than the largest space has pages.
type Manifest struct {
	Format    string
	ID        []byte
	PageSize  uint64
	SpaceSize uint64
	Trunk     uint64
	NextID    uint64
	Pages     []cid.Cid     `cborgen:"maxlen=262144"`
	Blocks    []BlockRecord `cborgen:"maxlen=262144"`
	Free      []Extent      `cborgen:"maxlen=262144"`
}

type BlockRecord struct {
	ID            uint64
	Begin         uint64
	End           uint64
	CDEnd         uint64
	DataBegin     uint64
	Parent        uint64
	ParentGoffset uint64
	RootLevel     uint64
	Height        uint64
	RootMorton    uint64
	CDCount       uint64
	LeafCount     uint64
	Attrs         []AttrRecord
	Children      []uint64 `cborgen:"maxlen=262144"`
	// Slice links the pending Slice, if any: zero or one entries.
	Slice []cid.Cid
}

// AttrRecord locates one level's attribute record in a Block.
type AttrRecord struct {
	Level  uint64
	Offset uint64
	Len    uint64
	Count  uint64
}

type Extent struct {
	Begin uint64
	End   uint64
}

// Slice is one level of a Slice hierarchy. Child Slices are linked by CID.
type Slice struct {
	Format            string
	Level             uint64
	Side              uint64
	ParentVcurveBegin uint64
	Children          []ChildLink `cborgen:"maxlen=262144"`
	Count             uint64
	// Positions holds Count little-endian uint64 relative codes, split into
	// chunks no longer than a CBOR byte string may be.
	Positions [][]byte
	Schema    []Element
	// Data holds the attribute buffers back to back, chunked like
	// Positions.
	Data [][]byte
}

type ChildLink struct {
	Side  uint64
	Begin uint64
	Link  cid.Cid
}

type Element struct {
	Name     string
	Type     uint64
	Semantic string
	Stride   uint64
}
