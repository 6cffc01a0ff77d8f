package voxtree

import (
	"cmp"
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openvoxel/go-voxtree/vcurve"
)

// ChangeType denotes type of change in Change
type ChangeType int

// These constants define the changes between two trees.
const (
	Add ChangeType = iota
	Remove
)

// Change is a leaf present in only one of two trees.
type Change struct {
	Type   ChangeType
	Level  uint8
	Morton uint64
}

func (ch Change) String() string {
	b, _ := json.Marshal(ch)
	return string(b)
}

// leafOrder sorts cells by where they start at the deepest level, coarser
// cells first.
func leafOrder(a, b Cell) int {
	ka := vcurve.Project(a.Morton, a.Level, vcurve.MaxLevel)
	kb := vcurve.Project(b.Morton, b.Level, vcurve.MaxLevel)
	if c := cmp.Compare(ka, kb); c != 0 {
		return c
	}
	return cmp.Compare(a.Level, b.Level)
}

// Diff returns the leaves that must be removed from prev and added to cur's
// shape to turn one into the other, in Morton order. A leaf refined into
// finer leaves shows up as one removal and the finer additions. The two
// trees are walked concurrently; neither may be mutated meanwhile.
func Diff(ctx context.Context, prev, cur *Tree) ([]*Change, error) {
	start := time.Now()
	var prevLeaves, curLeaves []Cell
	grp, _ := errgroup.WithContext(ctx)
	grp.Go(func() error {
		prevLeaves = prev.Leaves()
		return nil
	})
	grp.Go(func() error {
		curLeaves = cur.Leaves()
		return nil
	})
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var changes []*Change
	i, j := 0, 0
	for i < len(prevLeaves) || j < len(curLeaves) {
		switch {
		case j == len(curLeaves) || (i < len(prevLeaves) && leafOrder(prevLeaves[i], curLeaves[j]) < 0):
			changes = append(changes, &Change{Type: Remove, Level: prevLeaves[i].Level, Morton: prevLeaves[i].Morton})
			i++
		case i == len(prevLeaves) || leafOrder(prevLeaves[i], curLeaves[j]) > 0:
			changes = append(changes, &Change{Type: Add, Level: curLeaves[j].Level, Morton: curLeaves[j].Morton})
			j++
		default:
			i++
			j++
		}
	}
	log.Infow("diff", "duration", time.Since(start), "prev", len(prevLeaves), "cur", len(curLeaves), "changes", len(changes))
	return changes, nil
}
