package cmd

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openvoxel/go-voxtree"
	"github.com/openvoxel/go-voxtree/ingest"
	"github.com/openvoxel/go-voxtree/internal/fsstore"
)

// Every point carries one intensity byte.
var intensitySchema = voxtree.Schema{
	{Name: "intensity", Type: voxtree.Uint8, Semantic: "intensity", Stride: 1},
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Voxelize points and flush the resulting tree",
	Long: `Build reads points from an XYZ file, or generates a synthetic shape,
compiles them into a tree, verifies it and flushes it to the store.

An XYZ file has one point per line: three integer coordinates and an
optional intensity in [0, 255]. Blank lines and lines starting with # are
skipped.

Examples:
  # A sphere shell at depth 8
  voxtree build --shape sphere --depth 8

  # Points from a file, finer chunks
  voxtree build --input scan.xyz --depth 10 --chunk-level 3`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBuild(cmd)
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringP("input", "i", "", "XYZ point file")
	buildCmd.Flags().String("shape", "sphere", "synthetic shape when no input is given (sphere, cube)")
	buildCmd.Flags().Uint("depth", 8, "level of the finest voxels")
	buildCmd.Flags().Uint("chunk-level", 2, "level work is split by, 0 for none")
	buildCmd.Flags().Int("workers", runtime.NumCPU(), "ingestion workers")
	buildCmd.Flags().Uint64("space-size", 64<<20, "address space bytes")
	buildCmd.Flags().Uint64("block-size", 256<<10, "minimum block bytes")
	buildCmd.Flags().Uint64("trunk-size", 1<<20, "trunk block bytes")
	buildCmd.Flags().Float64("slack", 2.0, "block size over estimated need")
	buildCmd.MarkFlagsMutuallyExclusive("input", "shape")
	bindFlags(buildCmd)
}

func runBuild(cmd *cobra.Command) error {
	ctx := cmd.Context()
	depth := viper.GetUint("depth")
	if depth == 0 || depth > 21 {
		return fmt.Errorf("depth must be in [1, 21], is %d", depth)
	}

	var pts []ingest.Point
	var err error
	if in := viper.GetString("input"); in != "" {
		pts, err = readXYZ(in)
	} else {
		pts, err = shape(viper.GetString("shape"), uint8(depth))
	}
	if err != nil {
		return err
	}
	log.Infow("points loaded", "points", len(pts))

	start := time.Now()
	root, err := ingest.Build(ctx, pts,
		ingest.UseDepth(uint8(depth)),
		ingest.UseChunkLevel(uint8(viper.GetUint("chunk-level"))),
		ingest.UseWorkers(viper.GetInt("workers")),
		ingest.UseSchema(intensitySchema),
	)
	if err != nil {
		return err
	}
	tree, err := voxtree.NewTree(
		voxtree.UseSpaceSize(viper.GetUint64("space-size")),
		voxtree.UseBlockSize(viper.GetUint64("block-size")),
		voxtree.UseTrunkSize(viper.GetUint64("trunk-size")),
		voxtree.UseBlockSlack(viper.GetFloat64("slack")),
	)
	if err != nil {
		return err
	}
	if err := tree.Build(root); err != nil {
		return err
	}
	if err := voxtree.CheckTree(ctx, tree); err != nil {
		return fmt.Errorf("built tree fails verification: %w", err)
	}
	built := time.Since(start)

	store, err := fsstore.Open(viper.GetString("store"))
	if err != nil {
		return err
	}
	c, err := tree.Flush(ctx, store)
	if err != nil {
		return err
	}
	if err := store.WriteRoot(c); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "tree %s built in %s\nroot %s\n\n", tree.ID(), built.Round(time.Millisecond), c)
	fmt.Fprint(out, tree.Stats())
	return nil
}

func readXYZ(path string) ([]ingest.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pts []ingest.Point
	sc := bufio.NewScanner(f)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 && len(fields) != 4 {
			return nil, fmt.Errorf("%s:%d: want 3 or 4 fields, got %d", path, n, len(fields))
		}
		var xyz [3]uint32
		for i := range xyz {
			v, err := strconv.ParseUint(fields[i], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", path, n, err)
			}
			xyz[i] = uint32(v)
		}
		var intensity uint64
		if len(fields) == 4 {
			if intensity, err = strconv.ParseUint(fields[3], 10, 8); err != nil {
				return nil, fmt.Errorf("%s:%d: %w", path, n, err)
			}
		}
		pts = append(pts, ingest.Point{X: xyz[0], Y: xyz[1], Z: xyz[2], Values: [][]byte{{byte(intensity)}}})
	}
	return pts, sc.Err()
}

// shape generates the surface of a synthetic solid filling a grid of side
// 2^depth, shaded by height.
func shape(name string, depth uint8) ([]ingest.Point, error) {
	n := uint32(1) << depth
	shade := func(z uint32) [][]byte { return [][]byte{{byte(uint64(z) * 255 / uint64(n))}} }
	var pts []ingest.Point
	switch name {
	case "sphere":
		c := float64(n-1) / 2
		r := c
		// Project from all three axes so the shell has no gaps.
		for a := uint32(0); a < n; a++ {
			for b := uint32(0); b < n; b++ {
				da, db := float64(a)-c, float64(b)-c
				h := r*r - da*da - db*db
				if h < 0 {
					continue
				}
				for _, w := range []float64{c - math.Sqrt(h), c + math.Sqrt(h)} {
					k := uint32(math.Round(w))
					pts = append(pts,
						ingest.Point{X: a, Y: b, Z: k, Values: shade(k)},
						ingest.Point{X: a, Y: k, Z: b, Values: shade(b)},
						ingest.Point{X: k, Y: a, Z: b, Values: shade(b)},
					)
				}
			}
		}
	case "cube":
		for a := uint32(0); a < n; a++ {
			for b := uint32(0); b < n; b++ {
				for _, k := range []uint32{0, n - 1} {
					pts = append(pts,
						ingest.Point{X: a, Y: b, Z: k, Values: shade(k)},
						ingest.Point{X: a, Y: k, Z: b, Values: shade(b)},
						ingest.Point{X: k, Y: a, Z: b, Values: shade(b)},
					)
				}
			}
		}
	default:
		return nil, fmt.Errorf("unknown shape %q", name)
	}
	return pts, nil
}
