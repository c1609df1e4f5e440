// Package render exports dependency graphs and their SCC condensations as
// Graphviz DOT text and SVG images.
package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"

	"vantage/pkg/graph"
	"vantage/pkg/graph/algo"
)

// Options configures diagram generation.
type Options struct {
	// Condensed collapses strongly connected components into single
	// nodes, labelled with their members. Cycles stand out as multi-member
	// boxes in an otherwise acyclic picture.
	Condensed bool
	// EdgeTypes restricts the rendered edges; nil keeps all types.
	EdgeTypes []string
}

// ToDOT converts a graph to Graphviz DOT format. The resulting DOT string
// can be rendered with [RenderSVG] or external Graphviz tools.
func ToDOT(g *graph.Graph, opts Options) string {
	if opts.Condensed {
		return condensedDOT(g, opts)
	}

	var buf bytes.Buffer
	writeHeader(&buf)

	for _, key := range g.ComponentKeys() {
		c, _ := g.Component(key)
		fmt.Fprintf(&buf, "  %q [label=%q];\n", key, c.DisplayName())
	}

	buf.WriteString("\n")
	out, _ := g.Adjacency(opts.EdgeTypes)
	for _, src := range g.ComponentKeys() {
		for _, dst := range out[src] {
			fmt.Fprintf(&buf, "  %q -> %q;\n", src, dst)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func condensedDOT(g *graph.Graph, opts Options) string {
	cond := algo.Condense(g, opts.EdgeTypes)

	var buf bytes.Buffer
	writeHeader(&buf)

	for i, scc := range cond.Components {
		label := strings.Join(scc.Members, "\n")
		attrs := fmt.Sprintf("label=%q", label)
		if scc.Size() > 1 {
			// cycles get a visual warning
			attrs += `, fillcolor=mistyrose, color=red`
		}
		fmt.Fprintf(&buf, "  scc%d [%s];\n", i, attrs)
	}

	buf.WriteString("\n")
	for _, e := range cond.Edges {
		fmt.Fprintf(&buf, "  scc%d -> scc%d;\n", e[0], e[1])
	}

	buf.WriteString("}\n")
	return buf.String()
}

func writeHeader(buf *bytes.Buffer) {
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")
}

// RenderSVG renders a DOT graph to SVG using Graphviz in-process.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
