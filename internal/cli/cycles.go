package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"vantage/pkg/graph/algo"
)

// newCyclesCmd finds strongly connected components and reports cycles.
func newCyclesCmd() *cobra.Command {
	var edgeTypes []string

	cmd := &cobra.Command{
		Use:   "cycles <snapshot.json>",
		Short: "Detect dependency cycles via strongly connected components",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			prog := newProgress(logger)

			g, _, err := loadGraph(args[0])
			if err != nil {
				return err
			}

			sccs := algo.StronglyConnected(g, typesOrNil(edgeTypes))
			prog.done(fmt.Sprintf("Computed %d strongly connected components", len(sccs)))

			var cycles []algo.SCC
			for _, scc := range sccs {
				if scc.Size() > 1 {
					cycles = append(cycles, scc)
				}
			}

			printNewline()
			if len(cycles) == 0 {
				printSuccess("No cycles: the dependency graph is acyclic")
				return nil
			}

			printError("%d cycle(s) found", len(cycles))
			printNewline()
			for i, scc := range cycles {
				fmt.Println(StyleError.Render(fmt.Sprintf("  cycle %d (%d components)", i+1, scc.Size())))
				printDetail("members: %s", strings.Join(scc.Members, ", "))
				printDetail("external edges: %d in, %d out", scc.ExternalIn, scc.ExternalOut)
			}
			printNewline()
			printNextStep("Visualize the condensation", "vantage render --condensed "+args[0])
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&edgeTypes, "type", nil, "restrict to dependency types (repeatable)")
	return cmd
}

// newToposortCmd prints a deterministic topological order, or the edges
// lying on cycles when there is none.
func newToposortCmd() *cobra.Command {
	var edgeTypes []string

	cmd := &cobra.Command{
		Use:   "toposort <snapshot.json>",
		Short: "Print a topological order of the components",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, _, err := loadGraph(args[0])
			if err != nil {
				return err
			}

			res := algo.TopologicalOrder(g, typesOrNil(edgeTypes))
			if !res.IsDAG {
				printError("graph has cycles; partial order covers %d of %d components", len(res.Order), g.NodeCount())
				for _, e := range res.CycleEdges {
					printDetail("%s %s %s", e.Source, iconArrow, e.Target)
				}
				return nil
			}

			printSuccess("Topological order (%d components)", len(res.Order))
			for i, key := range res.Order {
				fmt.Printf("  %3d. %s\n", i+1, StyleValue.Render(key))
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&edgeTypes, "type", nil, "restrict to dependency types (repeatable)")
	return cmd
}

// newCommunitiesCmd runs Louvain community detection.
func newCommunitiesCmd() *cobra.Command {
	var (
		seed      int64
		edgeTypes []string
	)

	cmd := &cobra.Command{
		Use:   "communities <snapshot.json>",
		Short: "Detect communities with seeded Louvain clustering",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			prog := newProgress(logger)

			g, _, err := loadGraph(args[0])
			if err != nil {
				return err
			}

			res := algo.Communities(g, seed, typesOrNil(edgeTypes))
			prog.done(fmt.Sprintf("Detected %d communities", len(res.Communities)))

			printNewline()
			fmt.Println(StyleTitle.Render("Communities"))
			printDetail("modularity: %.4f  seed: %d", res.Modularity, seed)
			printNewline()
			for _, c := range res.Communities {
				fmt.Printf("  %s %s\n",
					StyleHighlight.Render(fmt.Sprintf("#%d", c.ID)),
					strings.Join(c.Members, ", "))
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", algo.DefaultSeed, "random seed for deterministic clustering")
	cmd.Flags().StringSliceVar(&edgeTypes, "type", nil, "restrict to dependency types (repeatable)")
	return cmd
}
