package ingest

import (
	"fmt"
	"runtime"

	"github.com/openvoxel/go-voxtree"
	"github.com/openvoxel/go-voxtree/vcurve"
)

type config struct {
	depth      uint8
	chunkLevel uint8
	workers    int
	schema     voxtree.Schema
}

type Option func(*config) error

// UseDepth sets the level of the finest voxels.
func UseDepth(depth uint8) Option {
	return func(c *config) error {
		if depth < 1 || depth > vcurve.MaxLevel {
			return fmt.Errorf("depth must be in [1, %d], is %d", vcurve.MaxLevel, depth)
		}
		c.depth = depth
		return nil
	}
}

// UseChunkLevel sets the level of the nodes work is split by. Zero builds a
// single chain without splitting.
func UseChunkLevel(level uint8) Option {
	return func(c *config) error {
		c.chunkLevel = level
		return nil
	}
}

// UseWorkers sets the number of goroutines building chunks.
func UseWorkers(n int) Option {
	return func(c *config) error {
		if n < 1 {
			return fmt.Errorf("need at least one worker, got %d", n)
		}
		c.workers = n
		return nil
	}
}

// UseSchema declares the attributes every point carries.
func UseSchema(s voxtree.Schema) Option {
	return func(c *config) error {
		if err := s.Validate(); err != nil {
			return err
		}
		c.schema = s
		return nil
	}
}

func defaultConfig() *config {
	return &config{
		depth:      8,
		chunkLevel: 2,
		workers:    runtime.NumCPU(),
	}
}

// validate checks the depth and chunk level combine into slices of legal
// sides.
func (c *config) validate() error {
	if c.chunkLevel == 0 {
		if c.depth > voxtreeMaxSideLog {
			return fmt.Errorf("depth %d needs chunking, a single chain reaches at most level %d", c.depth, voxtreeMaxSideLog)
		}
		return nil
	}
	if c.chunkLevel+2 > c.depth {
		return fmt.Errorf("chunk level %d leaves no room below it at depth %d", c.chunkLevel, c.depth)
	}
	if c.chunkLevel+1 > voxtreeMaxSideLog || c.depth-c.chunkLevel > voxtreeMaxSideLog {
		return fmt.Errorf("chunk level %d at depth %d makes slices wider than %d", c.chunkLevel, c.depth, voxtree.MaxSliceSide)
	}
	return nil
}

// voxtreeMaxSideLog is log2 of voxtree.MaxSliceSide.
const voxtreeMaxSideLog = 10
