// Package ingest turns point clouds into Slice hierarchies ready to be
// built into a voxtree.Tree.
//
// Points are bucketed into chunks, one per occupied node at the chunk level.
// The levels down to just below the chunk level form one shared chain of
// Slices; every chunk gets its own chain from there to the finest level,
// built by a pool of workers. Chunk chains become the children of the shared
// chain's last Slice, so each chunk ends up in a Block of its own.
package ingest

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/openvoxel/go-voxtree"
	"github.com/openvoxel/go-voxtree/vcurve"
)

var log = logging.Logger("voxtree/ingest")

// Point is one occupied voxel at the finest level, with one value per
// schema element.
type Point struct {
	X, Y, Z uint32
	Values  [][]byte
}

type voxel struct {
	code uint64
	idx  int
}

// Build returns the root Slice of the hierarchy describing points. Points
// falling into the same finest voxel keep the first one's values.
func Build(ctx context.Context, points []Point, opts ...Option) (*voxtree.Slice, error) {
	start := time.Now()
	cfg := defaultConfig()
	for _, o := range opts {
		if err := o(cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	lim := uint32(1) << cfg.depth
	vox := make([]voxel, 0, len(points))
	for i, p := range points {
		if p.X >= lim || p.Y >= lim || p.Z >= lim {
			return nil, xerrors.Errorf("point %d (%d,%d,%d) outside a grid of %d: %w", i, p.X, p.Y, p.Z, lim, voxtree.ErrOutOfCube)
		}
		vox = append(vox, voxel{code: vcurve.Encode(p.X, p.Y, p.Z), idx: i})
	}
	slices.SortStableFunc(vox, func(a, b voxel) int { return cmp.Compare(a.code, b.code) })
	vox = slices.CompactFunc(vox, func(a, b voxel) bool { return a.code == b.code })

	b := &builder{cfg: cfg, points: points}
	if cfg.chunkLevel == 0 {
		root, _, err := b.chain(vox, 0, 0, 1, cfg.depth)
		return root, err
	}

	top, last, err := b.chain(vox, 0, 0, 1, cfg.chunkLevel+1)
	if err != nil {
		return nil, err
	}

	shift := 3 * uint64(cfg.depth-cfg.chunkLevel)
	var chunks [][]voxel
	for i := 0; i < len(vox); {
		j := i + 1
		for j < len(vox) && vox[j].code>>shift == vox[i].code>>shift {
			j++
		}
		chunks = append(chunks, vox[i:j])
		i = j
	}

	results := make([]*voxtree.Slice, len(chunks))
	grp, ctx := errgroup.WithContext(ctx)
	tasks := make(chan int)
	for w := 0; w < cfg.workers; w++ {
		grp.Go(func() error {
			for i := range tasks {
				chunk := chunks[i]
				s, _, err := b.chain(chunk, cfg.chunkLevel, chunk[0].code>>shift, cfg.chunkLevel+2, cfg.depth)
				if err != nil {
					return xerrors.Errorf("chunk %d: %w", chunk[0].code>>shift, err)
				}
				results[i] = s
			}
			return nil
		})
	}
	grp.Go(func() error {
		defer close(tasks)
		for i := range chunks {
			select {
			case tasks <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	for _, s := range results {
		if err := last.AddChild(s); err != nil {
			return nil, err
		}
	}
	log.Infow("ingested points", "points", len(points), "voxels", len(vox), "chunks", len(chunks), "depth", cfg.depth, "duration", time.Since(start))
	return top, nil
}

type builder struct {
	cfg    *config
	points []Point
}

// chain builds one Slice per level in [from, to] covering the cube of node
// cubeMorton at cubeLevel, each the only child of the one above. Only the
// finest level carries attributes. It returns the first and last Slice.
func (b *builder) chain(vox []voxel, cubeLevel uint8, cubeMorton uint64, from, to uint8) (*voxtree.Slice, *voxtree.Slice, error) {
	var head, prev *voxtree.Slice
	for l := from; l <= to; l++ {
		side := uint32(1) << (l - cubeLevel)
		begin := vcurve.Project(cubeMorton, cubeLevel, l)
		s, err := voxtree.NewSlice(l, side, begin>>3)
		if err != nil {
			return nil, nil, err
		}
		shift := 3 * uint64(b.cfg.depth-l)
		for _, v := range vox {
			code := v.code >> shift
			if n := s.Len(); n > 0 && s.Global(n-1) == code {
				continue
			}
			if err := s.AppendGlobal(code); err != nil {
				return nil, nil, err
			}
		}
		if l == b.cfg.depth && len(b.cfg.schema) > 0 {
			a := voxtree.NewAttributes(b.cfg.schema)
			for _, v := range vox {
				if err := a.Append(b.points[v.idx].Values...); err != nil {
					return nil, nil, fmt.Errorf("point %d: %w", v.idx, err)
				}
			}
			s.SetAttributes(a)
		}
		if prev == nil {
			head = s
		} else if err := prev.AddChild(s); err != nil {
			return nil, nil, err
		}
		prev = s
	}
	return head, prev, nil
}
