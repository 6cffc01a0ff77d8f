package fuzzer

import (
	"context"
	"fmt"

	block "github.com/ipfs/go-block-format"
	cid "github.com/ipfs/go-cid"
)

// mockBlocks counts traffic so a step can tell a no-op flush from a rewrite.
type mockBlocks struct {
	data               map[cid.Cid]block.Block
	getCount, putCount int
}

func newMockBlocks() *mockBlocks {
	return &mockBlocks{data: make(map[cid.Cid]block.Block)}
}

func (mb *mockBlocks) Get(_ context.Context, c cid.Cid) (block.Block, error) {
	mb.getCount++
	if d, ok := mb.data[c]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("block %s not found", c)
}

func (mb *mockBlocks) Put(_ context.Context, b block.Block) error {
	mb.putCount++
	mb.data[b.Cid()] = b
	return nil
}

// stored is the number of distinct blocks held.
func (mb *mockBlocks) stored() int { return len(mb.data) }
