package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/OFFIS-RIT/stakegraph/pkg/common"
	"github.com/OFFIS-RIT/stakegraph/pkg/graph"

	"gopkg.in/yaml.v3"
)

// loadSnapshot reads a snapshot file. YAML is chosen by extension, anything
// else is read as JSON.
func loadSnapshot(path string) (common.Snapshot, error) {
	var snapshot common.Snapshot
	data, err := os.ReadFile(path)
	if err != nil {
		return snapshot, fmt.Errorf("reading snapshot: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &snapshot)
	default:
		err = json.Unmarshal(data, &snapshot)
	}
	if err != nil {
		return snapshot, fmt.Errorf("parsing snapshot %s: %w", path, err)
	}
	return snapshot, nil
}

func loadGraph(path string) (*graph.OwnershipGraph, []graph.SkippedEdge, error) {
	snapshot, err := loadSnapshot(path)
	if err != nil {
		return nil, nil, err
	}
	return graph.FromSnapshot(snapshot)
}

type skippedLabel struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label"`
	Reason string `json:"reason"`
}

func skippedLabels(skipped []graph.SkippedEdge) []skippedLabel {
	out := make([]skippedLabel, 0, len(skipped))
	for _, s := range skipped {
		out = append(out, skippedLabel{
			Source: s.Edge.Source,
			Target: s.Edge.Target,
			Label:  s.Edge.Label,
			Reason: s.Err.Error(),
		})
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
