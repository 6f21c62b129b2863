package compose

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/provgraph/pkg/visual"
)

// NodeFactory builds node visuals for every registered workflow.
type NodeFactory struct {
	Builder     *visual.Builder
	Scale       float64
	Concurrency int
}

// Populate builds the visuals of every positioned node of every workflow
// concurrently, waits for all of them, and only then populates the
// registry. On error nothing is populated.
func (f *NodeFactory) Populate(ctx context.Context, reg *Registry) error {
	workflows := reg.Workflows()
	maps := make([]map[string]*visual.NodeVisual, len(workflows))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	if f.Concurrency > 0 {
		g.SetLimit(f.Concurrency)
	}
	for i, w := range workflows {
		maps[i] = make(map[string]*visual.NodeVisual, len(w.Graph.Nodes))
		for _, n := range w.Graph.Nodes {
			if !n.Positioned {
				continue
			}
			g.Go(func() error {
				v, err := f.Builder.Node(ctx, n, f.Scale)
				if err != nil {
					return err
				}
				mu.Lock()
				maps[i][n.ID] = v
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, w := range workflows {
		if err := reg.Populate(w.ID, maps[i]); err != nil {
			return err
		}
	}
	return nil
}
