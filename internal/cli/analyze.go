package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"vantage/pkg/graph/algo"
)

// newAnalyzeCmd reports structural metrics per component.
func newAnalyzeCmd() *cobra.Command {
	var edgeTypes []string

	cmd := &cobra.Command{
		Use:   "analyze <snapshot.json>",
		Short: "Report structural metrics for every component",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			prog := newProgress(logger)

			g, _, err := loadGraph(args[0])
			if err != nil {
				return err
			}

			metrics := algo.Metrics(g, typesOrNil(edgeTypes))
			prog.done(fmt.Sprintf("Analyzed %d components", g.NodeCount()))

			printNewline()
			fmt.Println(StyleTitle.Render("Component Metrics"))
			printStats(g.NodeCount(), g.EdgeCount())
			printNewline()

			rows := make([][]string, 0, len(metrics))
			for _, key := range g.ComponentKeys() {
				m := metrics[key]
				rows = append(rows, []string{
					key,
					fmt.Sprintf("%d", m.FanIn),
					fmt.Sprintf("%d", m.FanOut),
					fmt.Sprintf("%.2f", m.Instability),
					fmt.Sprintf("%.3f", m.DegreeCentrality),
					fmt.Sprintf("%.3f", m.Betweenness),
					fmt.Sprintf("%.3f", m.Closeness),
					fmt.Sprintf("%.3f", m.Eigenvector),
				})
			}

			fmt.Println(metricsTable(rows))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&edgeTypes, "type", nil, "restrict to dependency types (repeatable)")
	return cmd
}

func metricsTable(rows [][]string) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Component", "In", "Out", "Instab", "Degree", "Between", "Close", "Eigen").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 0 {
				return StyleValue
			}
			return StyleDim
		}).
		Render()
}

func typesOrNil(types []string) []string {
	if len(types) == 0 {
		return nil
	}
	return types
}
