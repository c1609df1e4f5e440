package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"vantage/pkg/errors"
	"vantage/pkg/render"
)

// newRenderCmd exports the dependency graph as a DOT or SVG diagram.
func newRenderCmd() *cobra.Command {
	var (
		output    string
		condensed bool
		edgeTypes []string
	)

	cmd := &cobra.Command{
		Use:   "render <snapshot.json>",
		Short: "Export the dependency graph as a DOT or SVG diagram",
		Long: `Render converts a snapshot to Graphviz DOT or SVG. With --condensed,
strongly connected components are collapsed into single nodes so cycles
stand out in an otherwise acyclic picture. The output format follows the
file extension (.dot or .svg).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			prog := newProgress(logger)

			g, _, err := loadGraph(args[0])
			if err != nil {
				return err
			}

			dot := render.ToDOT(g, render.Options{
				Condensed: condensed,
				EdgeTypes: typesOrNil(edgeTypes),
			})

			var data []byte
			switch strings.ToLower(filepath.Ext(output)) {
			case ".dot":
				data = []byte(dot)
			case ".svg":
				data, err = render.RenderSVG(cmd.Context(), dot)
				if err != nil {
					return err
				}
			default:
				return errors.New(errors.ErrCodeUnsupported, "unsupported output extension %q (use .dot or .svg)", filepath.Ext(output))
			}

			if err := os.WriteFile(output, data, 0o644); err != nil {
				return errors.Wrap(errors.ErrCodeInternal, err, "write output file")
			}

			prog.done("Rendered diagram")
			printSuccess("Diagram written")
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "graph.svg", "output file (.dot or .svg)")
	cmd.Flags().BoolVar(&condensed, "condensed", false, "collapse strongly connected components")
	cmd.Flags().StringSliceVar(&edgeTypes, "type", nil, "restrict to dependency types (repeatable)")
	return cmd
}
