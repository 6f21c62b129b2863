package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/matzehuels/provgraph/pkg/errors"
	"github.com/matzehuels/provgraph/pkg/manifest"
)

// LayoutVersion is the current layout file format.
const LayoutVersion = 1

// Layout is a set of laid-out workflow graphs in their own coordinates,
// before they are aligned and stacked into a shared space.
type Layout struct {
	Version   int              `json:"version"`
	Digest    string           `json:"digest,omitempty"`
	Workflows []LayoutWorkflow `json:"workflows"`
}

// LayoutWorkflow is one workflow of a [Layout].
type LayoutWorkflow struct {
	ID           string                `json:"id"`
	Relationship manifest.Relationship `json:"relationship"`
	Parent       string                `json:"parent,omitempty"`
	BranchPoint  string                `json:"branch_point,omitempty"`
	Graph        *Graph                `json:"graph"`
}

// Graphs returns the workflow graphs in order.
func (l *Layout) Graphs() []*Graph {
	out := make([]*Graph, 0, len(l.Workflows))
	for _, w := range l.Workflows {
		out = append(out, w.Graph)
	}
	return out
}

// NodeCount returns the total number of nodes across workflows.
func (l *Layout) NodeCount() int {
	n := 0
	for _, w := range l.Workflows {
		n += len(w.Graph.Nodes)
	}
	return n
}

// MarshalLayout encodes l as indented JSON.
func MarshalLayout(l *Layout) ([]byte, error) {
	return json.MarshalIndent(l, "", "  ")
}

// UnmarshalLayout decodes a layout and rebuilds each graph's node index.
func UnmarshalLayout(data []byte) (*Layout, error) {
	var l Layout
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&l); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode layout")
	}
	if l.Version != LayoutVersion {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported layout version %d", l.Version)
	}
	for i, w := range l.Workflows {
		if w.Graph == nil {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "workflow %d (%s) has no graph", i, w.ID)
		}
		w.Graph.reindex()
	}
	return &l, nil
}

// WriteLayoutFile writes l to path.
func WriteLayoutFile(l *Layout, path string) error {
	data, err := MarshalLayout(l)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadLayoutFile reads a layout written by [WriteLayoutFile].
func ReadLayoutFile(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read %s", path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return UnmarshalLayout(data)
}
