package voxtree

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"golang.org/x/xerrors"
)

// materialize writes sec into the freshly reset Block b: the section root
// goes into b's shadow root, then every run followed by its padding and far
// slots. Once all entries have addresses the child pointers are patched.
// Boundary entries keep an unpatched far slot for the caller.
func (sec *section) materialize(b *Block) error {
	s := b.tree.space
	root := &sec.entries[0]
	root.at, root.slot = b.root, b.rootSlot
	b.setMasks(b.root, root.valid, root.leaf)

	for _, rn := range sec.runs {
		for k := 0; k < rn.n; k++ {
			e := &sec.entries[rn.first+k]
			g, err := b.AppendCD(NewCD(e.valid, e.leaf))
			if err != nil {
				return err
			}
			e.at = g
			b.addCDCount(g)
		}
		for pad := rn.n; pad < sec.slots(rn.n); pad++ {
			if _, err := b.AppendDummyCD(); err != nil {
				return err
			}
		}
		for k := 0; k < rn.n; k++ {
			e := &sec.entries[rn.first+k]
			if !e.far {
				continue
			}
			g, err := b.AppendDummyCD()
			if err != nil {
				return err
			}
			e.slot = g
		}
	}

	for i := range sec.entries {
		e := &sec.entries[i]
		if e.child < 0 {
			continue
		}
		target := sec.entries[e.child].at
		if e.far {
			linkFar(s, e.at, e.slot, target)
		} else {
			linkDirect(s, e.at, target)
		}
	}
	return nil
}

// boundaryEntry returns the entry that is the shared root of cut k.
func (sec *section) boundaryEntry(k int) *entry {
	for i := range sec.entries {
		if sec.entries[i].boundary == k {
			return &sec.entries[i]
		}
	}
	panic(fmt.Sprintf("no boundary entry for cut %d", k))
}

// commit rewrites the Block being inserted into, fills the Blocks allocated
// for the cuts and links them in. The split Block is written first, the
// far slots leading into the new Blocks last.
func (in *inserter) commit(secs []*section, records [][]byte, owners [][]int, held []heldRecord) error {
	b, s := in.b, in.t.space
	b.reset()
	b.height = in.s.Level - b.rootLevel
	if err := secs[0].materialize(b); err != nil {
		return err
	}

	for k := range in.cuts {
		c := &in.cuts[k]
		nb := c.block
		nb.parent = b.id
		nb.parentGoffset = secs[0].boundaryEntry(k).at
		nb.rootLevel, nb.rootMorton = c.level, c.morton
		nb.height = in.s.Level - c.level
		nb.slice = c.slice
		if err := secs[k+1].materialize(nb); err != nil {
			return xerrors.Errorf("child block %d: %w", nb.id, err)
		}
		b.children = append(b.children, nb.id)
	}

	for k, c := range in.cuts {
		e := secs[0].boundaryEntry(k)
		linkFar(s, e.at, e.slot, c.block.RootChildrenGoffset())
	}
	b.syncParentRootCD()

	for i, rec := range records {
		d, keep := b, held
		if i > 0 {
			d, keep = in.cuts[i-1].block, nil
		}
		if err := d.storeAttributes(keep, in.s.Level, rec, len(owners[i])); err != nil {
			return err
		}
		d.writeInfo()
		in.t.touch(d)
	}
	return nil
}

// heldRecord is a copy of an attribute record kept while its Block is
// rewritten.
type heldRecord struct {
	ref  AttrRef
	data []byte
}

// heldAttributes copies out the records of levels coarser than l. They
// survive the Block being rewritten for level l.
func (b *Block) heldAttributes(l uint8) []heldRecord {
	var out []heldRecord
	for _, a := range b.attrs {
		if a.Level < l {
			out = append(out, heldRecord{ref: a, data: bytes.Clone(b.recordData(a))})
		}
	}
	return out
}

// attrFootprint is the data region taken by held, a new record of n bytes
// and the directory of both.
func attrFootprint(held []heldRecord, n int) uint64 {
	entries, total := len(held), uint64(0)
	for _, h := range held {
		total += (uint64(len(h.data)) + CDSize - 1) &^ (CDSize - 1)
	}
	if n > 0 {
		entries++
		total += (uint64(n) + CDSize - 1) &^ (CDSize - 1)
	}
	return total + uint64(entries)*AttrEntrySize
}

// storeAttributes fills the data region of a freshly reset Block: the held
// records, rec for level, then the directory the info section points at.
func (b *Block) storeAttributes(held []heldRecord, level uint8, rec []byte, count int) error {
	b.attrs = nil
	for _, h := range held {
		g, err := b.AppendData(h.data)
		if err != nil {
			return err
		}
		b.attrs = append(b.attrs, AttrRef{Level: h.ref.Level, Offset: g, Len: h.ref.Len, Count: h.ref.Count})
	}
	if len(rec) > 0 {
		g, err := b.AppendData(rec)
		if err != nil {
			return err
		}
		b.attrs = append(b.attrs, AttrRef{Level: level, Offset: g, Len: uint32(len(rec)), Count: uint32(count)})
	}
	if len(b.attrs) == 0 {
		return nil
	}
	dir := make([]byte, len(b.attrs)*AttrEntrySize)
	for i, a := range b.attrs {
		e := dir[i*AttrEntrySize:]
		e[0] = a.Level
		binary.LittleEndian.PutUint32(e[4:], a.Count)
		binary.LittleEndian.PutUint32(e[8:], uint32(a.Offset))
		binary.LittleEndian.PutUint32(e[12:], a.Len)
	}
	g, err := b.AppendData(dir)
	if err != nil {
		return err
	}
	b.attrDir = g
	return nil
}

// readAttrDir decodes the n directory entries at g.
func (s Space) readAttrDir(g Goffset, n int) []AttrRef {
	out := make([]AttrRef, n)
	for i := range out {
		e := s[g+Goffset(i*AttrEntrySize):]
		out[i] = AttrRef{
			Level:  e[0],
			Count:  binary.LittleEndian.Uint32(e[4:]),
			Offset: Goffset(binary.LittleEndian.Uint32(e[8:])),
			Len:    binary.LittleEndian.Uint32(e[12:]),
		}
	}
	return out
}

func (b *Block) recordData(a AttrRef) []byte {
	return b.tree.space[a.Offset : a.Offset+Goffset(a.Len)]
}

// AttributeData returns the raw attribute record held for level l.
func (b *Block) AttributeData(l uint8) []byte {
	a, ok := b.AttributesAt(l)
	if !ok {
		return nil
	}
	return b.recordData(a)
}

// DecodeAttributes splits the record held for level l along schema. The
// record holds one buffer per element, each covering every voxel. A level
// without a record decodes to no voxels.
func (b *Block) DecodeAttributes(l uint8, schema Schema) (*Attributes, error) {
	a := NewAttributes(schema)
	ref, _ := b.AttributesAt(l)
	data := b.AttributeData(l)
	n := int(ref.Count)
	if uint64(len(data)) != uint64(n)*uint64(schema.Stride()) {
		return nil, xerrors.Errorf("block %d level %d: %d attribute bytes for %d voxels of stride %d: %w", b.id, l, len(data), n, schema.Stride(), ErrMalformed)
	}
	for i, e := range schema {
		sz := n * int(e.Stride)
		a.Buffers[i] = append([]byte(nil), data[:sz]...)
		data = data[sz:]
	}
	return a, nil
}
