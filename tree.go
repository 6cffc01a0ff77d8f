package voxtree

import (
	"cmp"
	"errors"
	"slices"

	"github.com/google/uuid"
	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/xerrors"
)

var log = logging.Logger("voxtree")

var (
	// ErrBlockFull is returned when the CD and data regions of a Block would
	// collide. It is fatal to the insertion that hit it.
	ErrBlockFull = errors.New("block full")
	// ErrOutOfSpace is returned when no free range can hold a new Block.
	ErrOutOfSpace = errors.New("no free range large enough")
	// ErrMalformed is returned for persisted trees and slices that do not
	// decode to a consistent structure.
	ErrMalformed = errors.New("malformed input")
	// ErrUnordered is returned when positions are not strictly increasing.
	ErrUnordered = errors.New("positions not strictly increasing")
	// ErrOutOfCube is returned when a position or child cube falls outside
	// the cube that should contain it.
	ErrOutOfCube = errors.New("outside of cube")
	// ErrOverlap is returned when child slices overlap or are out of order.
	ErrOverlap = errors.New("child slices overlap")
	// ErrOrphanVoxel is returned when a new voxel's parent cell is not a
	// leaf of the existing tree.
	ErrOrphanVoxel = errors.New("voxel parent is not an existing leaf")

	errSliceAttached    = errors.New("block already has a pending slice")
	errBlockHasChildren = errors.New("block already has child blocks")
	errTrunkDealloc     = errors.New("trunk cannot be deallocated")
	errUnknownBlock     = errors.New("block not owned by tree")
)

// Tree owns an address space and the Blocks laid out in it. Blocks and free
// ranges partition the space past the reserved first page.
type Tree struct {
	id    uuid.UUID
	cfg   *config
	space Space

	trunk  *Block
	blocks map[BlockID]*Block
	order  []*Block // by begin
	used   blockIndex
	free   blockIndex
	ranges freeList
	nextID BlockID
}

// NewTree allocates an address space and its trunk Block.
func NewTree(opts ...Option) (*Tree, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		if err := o(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.trunkSize+PageSize > cfg.spaceSize {
		return nil, xerrors.Errorf("trunk of %d bytes does not fit a space of %d bytes: %w", cfg.trunkSize, cfg.spaceSize, ErrOutOfSpace)
	}

	t := newTree(cfg, uuid.New(), make(Space, cfg.spaceSize))
	t.ranges.add(Extent{Begin: PageSize, End: Goffset(cfg.spaceSize)})
	trunk, err := t.allocateBlock(cfg.trunkSize)
	if err != nil {
		return nil, err
	}
	t.trunk = trunk
	log.Debugw("new tree", "id", t.id, "space", cfg.spaceSize, "trunk", cfg.trunkSize)
	return t, nil
}

func newTree(cfg *config, id uuid.UUID, space Space) *Tree {
	return &Tree{
		id:     id,
		cfg:    cfg,
		space:  space,
		blocks: make(map[BlockID]*Block),
		used:   newBlockIndex(),
		free:   newBlockIndex(),
	}
}

func (t *Tree) ID() uuid.UUID { return t.id }

// Space exposes the raw address space for read-only traversal.
func (t *Tree) Space() Space { return t.space }

func (t *Tree) Trunk() *Block { return t.trunk }

// Block returns the live Block with the given handle, or nil.
func (t *Tree) Block(id BlockID) *Block { return t.blocks[id] }

// Len is the number of live Blocks.
func (t *Tree) Len() int { return len(t.order) }

// Blocks returns the live Blocks in address order.
func (t *Tree) Blocks() []*Block { return slices.Clone(t.order) }

// BlockAt returns the Block whose range contains g, or nil.
func (t *Tree) BlockAt(g Goffset) *Block {
	i, found := slices.BinarySearchFunc(t.order, g, func(b *Block, g Goffset) int {
		return cmp.Compare(b.begin, g)
	})
	if found {
		return t.order[i]
	}
	if i == 0 {
		return nil
	}
	if b := t.order[i-1]; b.IsInBlock(g) {
		return b
	}
	return nil
}

// BlocksByUsed returns the live Blocks ordered by occupied bytes.
func (t *Tree) BlocksByUsed() []*Block { return t.resolve(t.used.ids()) }

// BlocksByFree returns the live Blocks ordered by their unused gap.
func (t *Tree) BlocksByFree() []*Block { return t.resolve(t.free.ids()) }

// BlockWithFree returns the Block with the smallest gap of at least n bytes,
// or nil.
func (t *Tree) BlockWithFree(n uint64) *Block {
	id, ok := t.free.ceil(n)
	if !ok {
		return nil
	}
	return t.blocks[id]
}

// FreeExtents returns the unallocated ranges in address order.
func (t *Tree) FreeExtents() []Extent { return t.ranges.extents() }

// FreeBytes is the total size of the unallocated ranges.
func (t *Tree) FreeBytes() uint64 { return t.ranges.total() }

func (t *Tree) resolve(ids []BlockID) []*Block {
	out := make([]*Block, len(ids))
	for i, id := range ids {
		out[i] = t.blocks[id]
	}
	return out
}

// allocateBlock carves a best fit range of at least size bytes and
// initializes it as an empty Block.
func (t *Tree) allocateBlock(size uint64) (*Block, error) {
	size = roundUpPages(size)
	e, ok := t.ranges.take(size)
	if !ok {
		return nil, xerrors.Errorf("allocating %d bytes, largest free range is %d: %w", size, t.ranges.largest(), ErrOutOfSpace)
	}
	t.nextID++
	b := &Block{tree: t, id: t.nextID, begin: e.Begin, end: e.End}
	b.reset()
	t.register(b)
	log.Debugw("allocated block", "id", b.id, "begin", b.begin, "size", size)
	return b, nil
}

// DeallocateBlock releases b and all Blocks below it. The CD in b's parent
// that designated b is emptied and unlinked, its far slot zeroed, so the
// parent stays consistent.
func (t *Tree) DeallocateBlock(b *Block) error {
	if t.blocks[b.id] != b {
		return xerrors.Errorf("block %d: %w", b.id, errUnknownBlock)
	}
	if b.IsTrunk() {
		return errTrunkDealloc
	}
	p := b.Parent()
	p.children = slices.DeleteFunc(p.children, func(id BlockID) bool { return id == b.id })
	p.setMasks(b.parentGoffset, 0, 0)
	if far, ok := t.space.Pointer(b.parentGoffset).(FarPointer); ok {
		t.space.SetFarValue(far.Slot, 0)
	}
	t.space.SetCD(b.parentGoffset, t.space.CD(b.parentGoffset).SetFar(false).SetChildPtr(0))
	p.writeInfo()
	t.touch(p)
	t.release(b)
	return nil
}

func (t *Tree) release(b *Block) {
	for _, c := range b.Children() {
		t.release(c)
	}
	clear(t.space[b.begin:b.end])
	t.unregister(b)
	t.ranges.add(Extent{Begin: b.begin, End: b.end})
	b.children, b.slice = nil, nil
	log.Debugw("released block", "id", b.id, "begin", b.begin, "size", b.Size())
}

func (t *Tree) register(b *Block) {
	t.blocks[b.id] = b
	i, _ := slices.BinarySearchFunc(t.order, b, func(x, y *Block) int {
		return cmp.Compare(x.begin, y.begin)
	})
	t.order = slices.Insert(t.order, i, b)
	t.touch(b)
}

func (t *Tree) unregister(b *Block) {
	delete(t.blocks, b.id)
	t.order = slices.DeleteFunc(t.order, func(x *Block) bool { return x == b })
	t.used.delete(b.id)
	t.free.delete(b.id)
}

// touch refreshes b's position in the size indices after its regions moved.
func (t *Tree) touch(b *Block) {
	t.used.set(b.id, b.Used())
	t.free.set(b.id, b.Free())
}

type indexEntry struct {
	key uint64
	id  BlockID
}

func compareEntries(a, b indexEntry) int {
	if c := cmp.Compare(a.key, b.key); c != 0 {
		return c
	}
	return cmp.Compare(a.id, b.id)
}

// blockIndex orders Block handles by a size key.
type blockIndex struct {
	keys    map[BlockID]uint64
	entries []indexEntry
}

func newBlockIndex() blockIndex {
	return blockIndex{keys: make(map[BlockID]uint64)}
}

func (x *blockIndex) set(id BlockID, key uint64) {
	x.delete(id)
	e := indexEntry{key: key, id: id}
	i, _ := slices.BinarySearchFunc(x.entries, e, compareEntries)
	x.entries = slices.Insert(x.entries, i, e)
	x.keys[id] = key
}

func (x *blockIndex) delete(id BlockID) {
	key, ok := x.keys[id]
	if !ok {
		return
	}
	i, found := slices.BinarySearchFunc(x.entries, indexEntry{key: key, id: id}, compareEntries)
	if !found {
		panic("block index out of sync")
	}
	x.entries = slices.Delete(x.entries, i, i+1)
	delete(x.keys, id)
}

func (x *blockIndex) ids() []BlockID {
	out := make([]BlockID, len(x.entries))
	for i, e := range x.entries {
		out[i] = e.id
	}
	return out
}

// ceil returns the handle with the smallest key of at least key.
func (x *blockIndex) ceil(key uint64) (BlockID, bool) {
	i, _ := slices.BinarySearchFunc(x.entries, indexEntry{key: key}, compareEntries)
	if i == len(x.entries) {
		return NoBlock, false
	}
	return x.entries[i].id, true
}
