package cmd

import (
	"fmt"

	cid "github.com/ipfs/go-cid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openvoxel/go-voxtree"
	"github.com/openvoxel/go-voxtree/internal/fsstore"
)

var (
	inspectBlocks bool
	inspectDiff   string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [root-cid]",
	Short: "Load a flushed tree, verify it and print statistics",
	Long: `Inspect loads the tree rooted at root-cid, or the store's last root,
checks every block and prints statistics.

Examples:
  voxtree inspect --blocks
  voxtree inspect bafy... --diff bafy...`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInspect(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().BoolVar(&inspectBlocks, "blocks", false, "list every block")
	inspectCmd.Flags().StringVar(&inspectDiff, "diff", "", "list leaves that differ from the tree rooted at this cid")
}

func runInspect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := fsstore.Open(viper.GetString("store"))
	if err != nil {
		return err
	}
	var root cid.Cid
	if len(args) == 1 {
		root, err = cid.Decode(args[0])
	} else {
		root, err = store.ReadRoot()
	}
	if err != nil {
		return err
	}

	tree, err := voxtree.LoadTree(ctx, store, root)
	if err != nil {
		return err
	}
	if err := voxtree.CheckTree(ctx, tree); err != nil {
		return fmt.Errorf("tree %s fails verification: %w", root, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "tree %s\nroot %s\n\n%s", tree.ID(), root, tree.Stats())
	if inspectBlocks {
		fmt.Fprintln(out)
		for _, b := range tree.Blocks() {
			fmt.Fprintln(out, b)
		}
	}
	if inspectDiff != "" {
		oc, err := cid.Decode(inspectDiff)
		if err != nil {
			return err
		}
		other, err := voxtree.LoadTree(ctx, store, oc)
		if err != nil {
			return err
		}
		changes, err := voxtree.Diff(ctx, other, tree)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%d changes\n", len(changes))
		for _, ch := range changes {
			fmt.Fprintln(out, ch)
		}
	}
	return nil
}
