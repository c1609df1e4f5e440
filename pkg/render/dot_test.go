package render

import (
	"strings"
	"testing"

	"vantage/pkg/graph"
)

func testGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.New(graph.Snapshot{
		Components: []graph.Component{
			{Key: "a", Name: "Service A"}, {Key: "b"}, {Key: "c"},
		},
		Dependencies: []graph.Dependency{
			{Source: "a", Target: "b"},
			{Source: "b", Target: "a"},
			{Source: "b", Target: "c"},
		},
	})
	if err != nil {
		t.Fatalf("graph.New: %v", err)
	}
	return g
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(testGraph(t), Options{})
	for _, want := range []string{
		"digraph G {",
		`"a" [label="Service A"];`,
		`"a" -> "b";`,
		`"b" -> "c";`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
}

func TestToDOTCondensed(t *testing.T) {
	dot := ToDOT(testGraph(t), Options{Condensed: true})
	if !strings.Contains(dot, `a\nb`) {
		t.Errorf("condensed DOT should merge the a/b cycle:\n%s", dot)
	}
	if !strings.Contains(dot, "scc0 -> scc1;") {
		t.Errorf("condensed DOT missing SCC edge:\n%s", dot)
	}
	if !strings.Contains(dot, "mistyrose") {
		t.Errorf("multi-member SCC should be highlighted:\n%s", dot)
	}
}
