package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vantage/pkg/graph/algo"
)

// newTraverseCmd walks the dependency graph from a component.
func newTraverseCmd() *cobra.Command {
	var (
		direction string
		maxDepth  int
		edgeTypes []string
	)

	cmd := &cobra.Command{
		Use:   "traverse <snapshot.json> <component>",
		Short: "Walk dependencies outward, inward or both from a component",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, _, err := loadGraph(args[0])
			if err != nil {
				return err
			}

			dir, err := algo.ParseDirection(direction)
			if err != nil {
				return err
			}

			trav, err := algo.Traverse(g, args[1], dir, maxDepth, typesOrNil(edgeTypes))
			if err != nil {
				return err
			}

			fmt.Println(StyleTitle.Render(fmt.Sprintf("Traversal from %s (%s)", trav.Start, dir)))
			printNewline()
			if len(trav.Levels) == 0 {
				printInfo("no reachable components")
				return nil
			}
			for _, level := range trav.Levels {
				fmt.Printf("  %s %s\n",
					StyleDim.Render(fmt.Sprintf("depth %d:", level.Depth)),
					StyleValue.Render(strings.Join(level.Keys, ", ")))
			}
			printNewline()
			printDetail("%d components reachable", len(trav.All()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&direction, "direction", "d", "out", "traversal direction: out, in or both")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "depth limit (0 = unbounded)")
	cmd.Flags().StringSliceVar(&edgeTypes, "type", nil, "restrict to dependency types (repeatable)")
	return cmd
}
