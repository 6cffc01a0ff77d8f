package voxtree

import (
	"context"
	"encoding/binary"

	cid "github.com/ipfs/go-cid"
	cbor "github.com/ipfs/go-ipld-cbor"
	cbg "github.com/whyrusleeping/cbor-gen"
	"golang.org/x/xerrors"

	"github.com/openvoxel/go-voxtree/internal"
)

const sliceFormat = "voxtree/slice/1"

// SaveSlice stores s and its descendants, one block per Slice, children
// first, and returns the CID of s.
func SaveSlice(ctx context.Context, store cbor.IpldStore, s *Slice) (cid.Cid, error) {
	w := internal.Slice{
		Format:            sliceFormat,
		Level:             uint64(s.Level),
		Side:              uint64(s.Side),
		ParentVcurveBegin: s.ParentVcurveBegin,
		Count:             uint64(len(s.positions)),
	}
	pos := make([]byte, 8*len(s.positions))
	for i, p := range s.positions {
		binary.LittleEndian.PutUint64(pos[8*i:], p)
	}
	w.Positions = chunk(pos)
	for _, c := range s.children {
		link, err := SaveSlice(ctx, store, c)
		if err != nil {
			return cid.Undef, err
		}
		w.Children = append(w.Children, internal.ChildLink{Side: uint64(c.Side), Begin: c.ParentVcurveBegin, Link: link})
	}
	if a := s.attrs; a != nil {
		for _, e := range a.Schema {
			w.Schema = append(w.Schema, internal.Element{Name: e.Name, Type: uint64(e.Type), Semantic: e.Semantic, Stride: uint64(e.Stride)})
		}
		var data []byte
		for _, buf := range a.Buffers {
			data = append(data, buf...)
		}
		w.Data = chunk(data)
	}
	c, err := store.Put(ctx, &w)
	if err != nil {
		return cid.Undef, xerrors.Errorf("storing slice at level %d: %w", s.Level, err)
	}
	return c, nil
}

// LoadSlice reads back a Slice hierarchy stored with SaveSlice.
func LoadSlice(ctx context.Context, store cbor.IpldStore, c cid.Cid) (*Slice, error) {
	var w internal.Slice
	if err := store.Get(ctx, c, &w); err != nil {
		return nil, xerrors.Errorf("loading slice %s: %w", c, err)
	}
	if w.Format != sliceFormat {
		return nil, xerrors.Errorf("slice %s has format %q: %w", c, w.Format, ErrMalformed)
	}
	if w.Level > 255 || w.Side > MaxSliceSide {
		return nil, xerrors.Errorf("slice %s: level %d side %d: %w", c, w.Level, w.Side, ErrMalformed)
	}
	s, err := NewSlice(uint8(w.Level), uint32(w.Side), w.ParentVcurveBegin)
	if err != nil {
		return nil, xerrors.Errorf("slice %s: %v: %w", c, err, ErrMalformed)
	}
	pos := join(w.Positions)
	if uint64(len(pos)) != 8*w.Count {
		return nil, xerrors.Errorf("slice %s: %d position bytes for %d voxels: %w", c, len(pos), w.Count, ErrMalformed)
	}
	s.positions = make([]uint64, 0, w.Count)
	for i := uint64(0); i < w.Count; i++ {
		if err := s.Append(binary.LittleEndian.Uint64(pos[8*i:])); err != nil {
			return nil, xerrors.Errorf("slice %s: %v: %w", c, err, ErrMalformed)
		}
	}
	if len(w.Schema) > 0 {
		var schema Schema
		for _, e := range w.Schema {
			if e.Type > 255 || e.Stride > 1<<31 {
				return nil, xerrors.Errorf("slice %s: element %q: %w", c, e.Name, ErrMalformed)
			}
			schema = append(schema, Element{Name: e.Name, Type: ElementType(e.Type), Semantic: e.Semantic, Stride: uint32(e.Stride)})
		}
		if err := schema.Validate(); err != nil {
			return nil, xerrors.Errorf("slice %s: %v: %w", c, err, ErrMalformed)
		}
		var stride uint64
		for _, e := range schema {
			stride += uint64(e.Stride)
		}
		data := join(w.Data)
		if uint64(len(data)) != w.Count*stride {
			return nil, xerrors.Errorf("slice %s: %d attribute bytes for %d voxels: %w", c, len(data), w.Count, ErrMalformed)
		}
		a := NewAttributes(schema)
		for i, e := range schema {
			n := int(w.Count) * int(e.Stride)
			a.Buffers[i], data = data[:n:n], data[n:]
		}
		s.attrs = a
	} else if len(w.Data) > 0 {
		return nil, xerrors.Errorf("slice %s: attribute data without a schema: %w", c, ErrMalformed)
	}
	for _, l := range w.Children {
		child, err := LoadSlice(ctx, store, l.Link)
		if err != nil {
			return nil, err
		}
		if uint64(child.Side) != l.Side || child.ParentVcurveBegin != l.Begin {
			return nil, xerrors.Errorf("slice %s: child %s does not match its link: %w", c, l.Link, ErrMalformed)
		}
		if err := s.AddChild(child); err != nil {
			return nil, xerrors.Errorf("slice %s: %v: %w", c, err, ErrMalformed)
		}
	}
	return s, nil
}

// chunk splits b into pieces no longer than a CBOR byte string may be.
func chunk(b []byte) [][]byte {
	var out [][]byte
	for len(b) > cbg.ByteArrayMaxLen {
		out = append(out, b[:cbg.ByteArrayMaxLen])
		b = b[cbg.ByteArrayMaxLen:]
	}
	if len(b) > 0 {
		out = append(out, b)
	}
	return out
}

func join(chunks [][]byte) []byte {
	if len(chunks) == 1 {
		return chunks[0]
	}
	var out []byte
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}
