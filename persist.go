package voxtree

import (
	"bytes"
	"context"
	"slices"

	"github.com/google/uuid"
	blocks "github.com/ipfs/go-block-format"
	cid "github.com/ipfs/go-cid"
	cbor "github.com/ipfs/go-ipld-cbor"
	mh "github.com/multiformats/go-multihash"
	"golang.org/x/xerrors"

	"github.com/openvoxel/go-voxtree/internal"
	"github.com/openvoxel/go-voxtree/vcurve"
)

const manifestFormat = "voxtree/tree/1"

// Pages are stored as raw blocks so identical pages, most of all empty
// ones, share one CID.
var pagePrefix = cid.Prefix{
	Version:  1,
	Codec:    cid.Raw,
	MhType:   mh.BLAKE2B_MIN + 31,
	MhLength: -1,
}

// Blockstore is the storage a Tree is flushed to and loaded from.
type Blockstore interface {
	Get(context.Context, cid.Cid) (blocks.Block, error)
	Put(context.Context, blocks.Block) error
}

// Flush writes every page of the address space and a manifest describing
// the Blocks, free ranges and pending Slices. It returns the manifest's CID.
func (t *Tree) Flush(ctx context.Context, bs Blockstore) (cid.Cid, error) {
	store := cbor.NewCborStore(bs)
	m := internal.Manifest{
		Format:    manifestFormat,
		ID:        t.id[:],
		PageSize:  PageSize,
		SpaceSize: uint64(len(t.space)),
		Trunk:     uint64(t.trunk.id),
		NextID:    uint64(t.nextID),
	}

	written := make(map[cid.Cid]struct{})
	for off := 0; off < len(t.space); off += PageSize {
		page := t.space[off : off+PageSize]
		c, err := pagePrefix.Sum(page)
		if err != nil {
			return cid.Undef, err
		}
		if _, ok := written[c]; !ok {
			blk, err := blocks.NewBlockWithCid(bytes.Clone(page), c)
			if err != nil {
				return cid.Undef, err
			}
			if err := bs.Put(ctx, blk); err != nil {
				return cid.Undef, xerrors.Errorf("storing page at %d: %w", off, err)
			}
			written[c] = struct{}{}
		}
		m.Pages = append(m.Pages, c)
	}

	for _, b := range t.order {
		rec := internal.BlockRecord{
			ID:            uint64(b.id),
			Begin:         uint64(b.begin),
			End:           uint64(b.end),
			CDEnd:         uint64(b.cdEnd),
			DataBegin:     uint64(b.dataBegin),
			Parent:        uint64(b.parent),
			ParentGoffset: uint64(b.parentGoffset),
			RootLevel:     uint64(b.rootLevel),
			Height:        uint64(b.height),
			RootMorton:    b.rootMorton,
			CDCount:       b.cdCount,
			LeafCount:     b.leafCount,
		}
		for _, a := range b.attrs {
			rec.Attrs = append(rec.Attrs, internal.AttrRecord{
				Level:  uint64(a.Level),
				Offset: uint64(a.Offset),
				Len:    uint64(a.Len),
				Count:  uint64(a.Count),
			})
		}
		for _, id := range b.children {
			rec.Children = append(rec.Children, uint64(id))
		}
		if b.slice != nil {
			c, err := SaveSlice(ctx, store, b.slice)
			if err != nil {
				return cid.Undef, err
			}
			rec.Slice = []cid.Cid{c}
		}
		m.Blocks = append(m.Blocks, rec)
	}
	for _, e := range t.ranges.extents() {
		m.Free = append(m.Free, internal.Extent{Begin: uint64(e.Begin), End: uint64(e.End)})
	}

	c, err := store.Put(ctx, &m)
	if err != nil {
		return cid.Undef, xerrors.Errorf("storing manifest: %w", err)
	}
	log.Infow("flushed tree", "id", t.id, "root", c, "pages", len(m.Pages), "distinct", len(written), "blocks", len(m.Blocks))
	return c, nil
}

// LoadTree rebuilds a Tree flushed with Flush. Options apply to Blocks
// allocated after loading; the space and trunk sizes come from the manifest.
func LoadTree(ctx context.Context, bs Blockstore, c cid.Cid, opts ...Option) (*Tree, error) {
	blk, err := bs.Get(ctx, c)
	if err != nil {
		return nil, xerrors.Errorf("loading manifest %s: %w", c, err)
	}
	var m internal.Manifest
	if err := m.UnmarshalCBOR(bytes.NewReader(blk.RawData())); err != nil {
		return nil, xerrors.Errorf("decoding manifest %s: %v: %w", c, err, ErrMalformed)
	}
	if m.Format != manifestFormat || m.PageSize != PageSize {
		return nil, xerrors.Errorf("manifest %s: format %q, page size %d: %w", c, m.Format, m.PageSize, ErrMalformed)
	}
	if m.SpaceSize%PageSize != 0 || m.SpaceSize < 2*PageSize || m.SpaceSize > maxSpaceSize || uint64(len(m.Pages))*PageSize != m.SpaceSize {
		return nil, xerrors.Errorf("manifest %s: %d pages for a space of %d bytes: %w", c, len(m.Pages), m.SpaceSize, ErrMalformed)
	}
	id, err := uuid.FromBytes(m.ID)
	if err != nil {
		return nil, xerrors.Errorf("manifest %s: tree id: %v: %w", c, err, ErrMalformed)
	}

	cfg := defaultConfig()
	for _, o := range opts {
		if err := o(cfg); err != nil {
			return nil, err
		}
	}
	cfg.spaceSize = m.SpaceSize

	space := make(Space, m.SpaceSize)
	pages := make(map[cid.Cid][]byte)
	for i, pc := range m.Pages {
		data, ok := pages[pc]
		if !ok {
			pb, err := bs.Get(ctx, pc)
			if err != nil {
				return nil, xerrors.Errorf("loading page %d: %w", i, err)
			}
			data = pb.RawData()
			if len(data) != PageSize {
				return nil, xerrors.Errorf("page %d holds %d bytes: %w", i, len(data), ErrMalformed)
			}
			pages[pc] = data
		}
		copy(space[i*PageSize:], data)
	}

	t := newTree(cfg, id, space)
	store := cbor.NewCborStore(bs)
	for _, rec := range m.Blocks {
		b, err := t.restoreBlock(rec)
		if err != nil {
			return nil, xerrors.Errorf("manifest %s: %w", c, err)
		}
		if len(rec.Slice) == 1 {
			if b.slice, err = LoadSlice(ctx, store, rec.Slice[0]); err != nil {
				return nil, err
			}
		}
	}
	t.trunk = t.blocks[BlockID(m.Trunk)]
	var maxID BlockID
	for id := range t.blocks {
		maxID = max(maxID, id)
	}
	if t.trunk == nil || m.NextID < uint64(maxID) || m.NextID > uint64(^BlockID(0)) {
		return nil, xerrors.Errorf("manifest %s: trunk %d, next id %d: %w", c, m.Trunk, m.NextID, ErrMalformed)
	}
	cfg.trunkSize = t.trunk.Size()
	t.nextID = BlockID(m.NextID)

	free := make([]Extent, 0, len(m.Free))
	for _, e := range m.Free {
		if e.Begin%PageSize != 0 || e.End%PageSize != 0 || e.End <= e.Begin || e.End > m.SpaceSize {
			return nil, xerrors.Errorf("manifest %s: free range [%d,%d): %w", c, e.Begin, e.End, ErrMalformed)
		}
		free = append(free, Extent{Begin: Goffset(e.Begin), End: Goffset(e.End)})
	}
	slices.SortFunc(free, byBegin)
	for i, e := range free {
		if i > 0 && free[i-1].End > e.Begin {
			return nil, xerrors.Errorf("manifest %s: free ranges overlap at %d: %w", c, e.Begin, ErrMalformed)
		}
		t.ranges.add(e)
	}

	if err := t.checkStructure(); err != nil {
		return nil, xerrors.Errorf("manifest %s: %v: %w", c, err, ErrMalformed)
	}
	log.Infow("loaded tree", "id", t.id, "root", c, "blocks", len(t.order))
	return t, nil
}

func (t *Tree) restoreBlock(rec internal.BlockRecord) (*Block, error) {
	size := uint64(len(t.space))
	if rec.ID == 0 || rec.ID > uint64(^BlockID(0)) || t.blocks[BlockID(rec.ID)] != nil {
		return nil, xerrors.Errorf("block id %d: %w", rec.ID, ErrMalformed)
	}
	if rec.Begin%PageSize != 0 || rec.End%PageSize != 0 || rec.Begin < PageSize || rec.End <= rec.Begin || rec.End > size {
		return nil, xerrors.Errorf("block %d: range [%d,%d): %w", rec.ID, rec.Begin, rec.End, ErrMalformed)
	}
	if rec.CDEnd < rec.Begin+rootBytes || rec.CDEnd > rec.DataBegin || rec.DataBegin > rec.End-InfoSize {
		return nil, xerrors.Errorf("block %d: regions: %w", rec.ID, ErrMalformed)
	}
	if rec.RootLevel+rec.Height > vcurve.MaxLevel || rec.ParentGoffset > size || rec.Parent > uint64(^BlockID(0)) {
		return nil, xerrors.Errorf("block %d: geometry: %w", rec.ID, ErrMalformed)
	}
	info, err := t.space.readInfo(Goffset(rec.End - InfoSize))
	if err != nil {
		return nil, xerrors.Errorf("block %d: %w", rec.ID, err)
	}
	b := &Block{
		tree:          t,
		id:            BlockID(rec.ID),
		begin:         Goffset(rec.Begin),
		end:           Goffset(rec.End),
		cdEnd:         Goffset(rec.CDEnd),
		dataBegin:     Goffset(rec.DataBegin),
		info:          Goffset(rec.End - InfoSize),
		root:          Goffset(rec.Begin + PageHeaderSize),
		rootSlot:      Goffset(rec.Begin + PageHeaderSize + CDSize),
		parent:        BlockID(rec.Parent),
		parentGoffset: Goffset(rec.ParentGoffset),
		rootLevel:     uint8(rec.RootLevel),
		rootMorton:    rec.RootMorton,
		height:        uint8(rec.Height),
		cdCount:       rec.CDCount,
		leafCount:     rec.LeafCount,
		attrDir:       info.attrOffset,
	}
	for _, a := range rec.Attrs {
		if a.Level > vcurve.MaxLevel || a.Offset < rec.DataBegin || a.Offset > rec.End || a.Len > rec.End || a.Offset+a.Len > rec.End-InfoSize || a.Count > a.Len {
			return nil, xerrors.Errorf("block %d: attributes of level %d: %w", rec.ID, a.Level, ErrMalformed)
		}
		b.attrs = append(b.attrs, AttrRef{Level: uint8(a.Level), Offset: Goffset(a.Offset), Len: uint32(a.Len), Count: uint32(a.Count)})
	}
	for _, id := range rec.Children {
		if id == 0 || id > uint64(^BlockID(0)) {
			return nil, xerrors.Errorf("block %d: child %d: %w", rec.ID, id, ErrMalformed)
		}
		b.children = append(b.children, BlockID(id))
	}
	t.register(b)
	return b, nil
}

// checkStructure cross-checks restored bookkeeping before anything trusts
// it: the hierarchy links, the partition and every Block's CD graph.
func (t *Tree) checkStructure() error {
	for _, b := range t.order {
		if b.parent != NoBlock {
			p := t.blocks[b.parent]
			if p == nil || !containsID(p.children, b.id) || !p.IsValidCDGoffset(b.parentGoffset) {
				return xerrors.Errorf("block %d: parent %d does not hold it", b.id, b.parent)
			}
		} else if b != t.trunk {
			return xerrors.Errorf("block %d: second parentless block", b.id)
		}
		for _, id := range b.children {
			if c := t.blocks[id]; c == nil || c.parent != b.id {
				return xerrors.Errorf("block %d: child %d not linked back", b.id, id)
			}
		}
		if b.slice != nil {
			if len(b.children) > 0 {
				return xerrors.Errorf("block %d: %w", b.id, errBlockHasChildren)
			}
			if b.slice.Level != b.BottomLevel()+1 || !b.Cube(b.slice.Level).Contains(b.slice.Range()) {
				return xerrors.Errorf("block %d: pending slice does not fit: %w", b.id, ErrOutOfCube)
			}
		}
	}
	if err := t.checkPartition(); err != nil {
		return err
	}
	// Readers trust the CD graph from here on.
	for _, b := range t.order {
		if err := CheckBlock(t, b); err != nil {
			return err
		}
	}
	return nil
}
