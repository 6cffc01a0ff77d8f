package fuzzer

import (
	"context"
	"fmt"
	"math/rand"
	"slices"

	"github.com/openvoxel/go-voxtree"
	"github.com/openvoxel/go-voxtree/ingest"
	"github.com/openvoxel/go-voxtree/vcurve"
)

const (
	depth    = 4
	gridSide = 1 << depth
)

var schema = voxtree.Schema{{Name: "value", Type: voxtree.Uint8, Stride: 1}}

// checkedTree rebuilds a Tree from a model point set and cross-checks it.
type checkedTree struct {
	tree  *voxtree.Tree
	built map[uint64]byte // model the tree was built from
	step  uint64
	bs    *mockBlocks
	chunk uint8

	voxels   map[uint64]byte
	keyCache []uint64
	seen     map[uint64]struct{}
}

func newCheckedTree(chunk uint8) *checkedTree {
	c := &checkedTree{
		bs:     newMockBlocks(),
		chunk:  chunk,
		voxels: make(map[uint64]byte),
		seen:   make(map[uint64]struct{}),
	}
	c.build()
	return c
}

func (c *checkedTree) randKey(key uint32) uint64 {
	if len(c.keyCache) == 0 {
		return uint64(key)
	}
	return c.keyCache[int(key)%len(c.keyCache)]
}

func (c *checkedTree) cache(code uint64) {
	if _, ok := c.seen[code]; !ok {
		c.seen[code] = struct{}{}
		c.keyCache = append(c.keyCache, code)
	}
}

func (c *checkedTree) add(x, y, z uint32, value byte) {
	c.trace("add (%d,%d,%d) = %d", x, y, z, value)
	code := vcurve.Encode(x, y, z)
	c.voxels[code] = value
	c.cache(code)
}

func (c *checkedTree) addSeen(key uint32, value byte) {
	x, y, z := vcurve.Decode(c.randKey(key))
	c.add(x, y, z, value)
}

func (c *checkedTree) remove(x, y, z uint32) {
	c.trace("remove (%d,%d,%d)", x, y, z)
	delete(c.voxels, vcurve.Encode(x, y, z))
}

func (c *checkedTree) removeSeen(key uint32) {
	x, y, z := vcurve.Decode(c.randKey(key))
	c.remove(x, y, z)
}

func (c *checkedTree) lookup(x, y, z uint32) {
	c.trace("lookup (%d,%d,%d)", x, y, z)
	code := vcurve.Encode(x, y, z)
	_, want := c.built[code]
	found, leaf := c.tree.Lookup(depth, code)
	if found != want || leaf != want {
		c.fail("lookup (%d,%d,%d): found=%v leaf=%v, expected %v", x, y, z, found, leaf, want)
	}
	c.cache(code)
}

func (c *checkedTree) lookupSeen(key uint32) {
	x, y, z := vcurve.Decode(c.randKey(key))
	c.lookup(x, y, z)
}

func (c *checkedTree) points() []ingest.Point {
	pts := make([]ingest.Point, 0, len(c.voxels))
	for code, v := range c.voxels {
		x, y, z := vcurve.Decode(code)
		pts = append(pts, ingest.Point{X: x, Y: y, Z: z, Values: [][]byte{{v}}})
	}
	return pts
}

func (c *checkedTree) newTree() *voxtree.Tree {
	tr, err := voxtree.NewTree(voxtree.UseSpaceSize(8<<20), voxtree.UseTrunkSize(64<<10), voxtree.UseBlockSize(32<<10))
	c.checkErr(err)
	if len(c.voxels) == 0 {
		return tr
	}
	root, err := ingest.Build(context.Background(), c.points(), ingest.UseDepth(depth), ingest.UseChunkLevel(c.chunk), ingest.UseSchema(schema), ingest.UseWorkers(2))
	c.checkErr(err)
	c.checkErr(tr.Build(root))
	return tr
}

// build replaces the tree and checks the diff against the previous one.
func (c *checkedTree) build() {
	c.trace("build %d voxels", len(c.voxels))
	prev, prevModel := c.tree, c.built
	c.tree = c.newTree()
	c.built = make(map[uint64]byte, len(c.voxels))
	for k, v := range c.voxels {
		c.built[k] = v
	}
	if prev == nil {
		return
	}
	changes, err := voxtree.Diff(context.Background(), prev, c.tree)
	c.checkErr(err)
	var adds, removes int
	for _, ch := range changes {
		if ch.Level != depth {
			c.fail("change %v above the finest level", ch)
		}
		_, before := prevModel[ch.Morton]
		_, after := c.built[ch.Morton]
		switch {
		case ch.Type == voxtree.Add && !before && after:
			adds++
		case ch.Type == voxtree.Remove && before && !after:
			removes++
		default:
			c.fail("unexpected change %v", ch)
		}
	}
	for k := range c.built {
		if _, ok := prevModel[k]; !ok {
			adds--
		}
	}
	for k := range prevModel {
		if _, ok := c.built[k]; !ok {
			removes--
		}
	}
	if adds != 0 || removes != 0 {
		c.fail("diff missed %d additions and %d removals", -adds, -removes)
	}
}

func (c *checkedTree) flush() {
	c.trace("flush")
	c1, err := c.tree.Flush(context.Background(), c.bs)
	c.checkErr(err)
	puts, stored := c.bs.putCount, c.bs.stored()
	c2, err := c.tree.Flush(context.Background(), c.bs)
	c.checkErr(err)
	if c1 != c2 {
		c.fail("cids don't match %s != %s", c1, c2)
	}
	if c.bs.putCount == puts {
		c.fail("second flush wrote nothing")
	}
	if c.bs.stored() != stored {
		c.fail("second flush stored %d new blocks", c.bs.stored()-stored)
	}
}

func (c *checkedTree) reload() {
	c.trace("reload")
	root, err := c.tree.Flush(context.Background(), c.bs)
	c.checkErr(err)
	gets := c.bs.getCount
	c.tree, err = voxtree.LoadTree(context.Background(), c.bs, root)
	c.checkErr(err)
	if c.bs.getCount == gets {
		c.fail("reload read no blocks")
	}
}

func (c *checkedTree) trace(msg string, args ...interface{}) {
	c.step++
	if Debug {
		fmt.Printf("step %d: "+msg+"\n", append([]interface{}{c.step}, args...)...)
	}
}

func (c *checkedTree) check() {
	c.build()
	c.checkErr(voxtree.CheckTree(context.Background(), c.tree))
	c.checkByLeaves(c.tree)
	c.checkByLookup(c.tree)
	c.checkByAttributes(c.tree)

	root, err := c.tree.Flush(context.Background(), c.bs)
	c.checkErr(err)
	loaded, err := voxtree.LoadTree(context.Background(), c.bs, root)
	c.checkErr(err)
	c.checkErr(voxtree.CheckTree(context.Background(), loaded))
	c.checkByLeaves(loaded)
	c.checkByLookup(loaded)

	// Check by reproducing.
	fresh := c.newTree()
	c.checkByLeaves(fresh)
	changes, err := voxtree.Diff(context.Background(), loaded, fresh)
	c.checkErr(err)
	if len(changes) != 0 {
		c.fail("expected to reconstruct an identical tree, diff has %d changes", len(changes))
	}
}

func (c *checkedTree) checkErr(e error) {
	if e != nil {
		c.fail(e.Error())
	}
}

func (c *checkedTree) checkByLeaves(tr *voxtree.Tree) {
	want := make([]uint64, 0, len(c.built))
	for k := range c.built {
		want = append(want, k)
	}
	slices.Sort(want)
	leaves := tr.Leaves()
	if len(leaves) != len(want) {
		c.fail("expected %d leaves, found %d", len(want), len(leaves))
	}
	for i, l := range leaves {
		if l.Level != depth || l.Morton != want[i] {
			c.fail("leaf %d is %+v, expected code %d", i, l, want[i])
		}
	}
}

func (c *checkedTree) checkByLookup(tr *voxtree.Tree) {
	keys := make([]uint64, 0, len(c.built))
	for k := range c.built {
		keys = append(keys, k)
	}
	rand.Shuffle(len(keys), func(i, j int) {
		keys[i], keys[j] = keys[j], keys[i]
	})
	for _, k := range keys {
		if found, leaf := tr.Lookup(depth, k); !found || !leaf {
			c.fail("expected to find voxel %d", k)
		}
	}
}

func (c *checkedTree) checkByAttributes(tr *voxtree.Tree) {
	var want, got []byte
	for _, v := range c.built {
		want = append(want, v)
	}
	for _, b := range tr.Blocks() {
		a, err := b.DecodeAttributes(depth, schema)
		c.checkErr(err)
		got = append(got, a.Buffers[0]...)
	}
	slices.Sort(want)
	slices.Sort(got)
	if !slices.Equal(want, got) {
		c.fail("attribute values %v, expected %v", got, want)
	}
}

func (c *checkedTree) fail(msg string, args ...interface{}) {
	panic(fmt.Sprintf("step %d: "+msg, append([]interface{}{c.step}, args...)...))
}
