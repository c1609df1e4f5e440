package cli

import (
	"encoding/json"
	"os"

	"vantage/pkg/errors"
	"vantage/pkg/graph"
	"vantage/pkg/refs"
)

// loadGraph reads a snapshot file and builds the graph.
func loadGraph(path string) (*graph.Graph, graph.Snapshot, error) {
	snap, err := graph.ReadSnapshotFile(path)
	if err != nil {
		return nil, graph.Snapshot{}, err
	}
	g, err := graph.New(snap)
	if err != nil {
		return nil, graph.Snapshot{}, err
	}
	return g, snap, nil
}

// loadReferences reads a JSON array of reference definitions. An empty path
// yields no references.
func loadReferences(path string) ([]refs.Reference, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read references file")
	}
	var out []refs.Reference
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDefinition, err, "parse references file")
	}
	for _, ref := range out {
		if err := ref.Validate(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// loadResolutionContext combines a snapshot file and an optional references
// file into a resolution context.
func loadResolutionContext(snapshotPath, refsPath string) (refs.Context, error) {
	g, _, err := loadGraph(snapshotPath)
	if err != nil {
		return refs.Context{}, err
	}
	references, err := loadReferences(refsPath)
	if err != nil {
		return refs.Context{}, err
	}
	return refs.NewContext(g, references), nil
}
