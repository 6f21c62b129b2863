package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/provgraph/pkg/config"
	"github.com/matzehuels/provgraph/pkg/graph"
	"github.com/matzehuels/provgraph/pkg/layout"
	"github.com/matzehuels/provgraph/pkg/manifest"
	"github.com/matzehuels/provgraph/pkg/observability"
)

// BuildLayout builds and places the graph of every workflow in b. Workflows
// are laid out concurrently; the result keeps the root first and related
// workflows in declaration order. Any contract violation fails the whole
// layout.
func BuildLayout(ctx context.Context, b *manifest.Bundle, cfg *config.Config, logger *log.Logger) (*graph.Layout, error) {
	if logger == nil {
		logger = log.Default()
	}
	out := &graph.Layout{
		Version:   graph.LayoutVersion,
		Digest:    b.Digest,
		Workflows: make([]graph.LayoutWorkflow, 1+len(b.Related)),
	}
	out.Workflows[0] = graph.LayoutWorkflow{ID: b.Root.ID, Relationship: manifest.RelMain}
	for i, rel := range b.Related {
		id := rel.Ref.Workflow
		if id == "" {
			id = rel.Manifest.ID
		}
		out.Workflows[i+1] = graph.LayoutWorkflow{
			ID:           id,
			Relationship: rel.Ref.Relationship,
			Parent:       rel.Ref.Parent,
			BranchPoint:  rel.Ref.BranchPoint,
		}
	}
	manifests := make([]*manifest.Manifest, 0, len(out.Workflows))
	manifests = append(manifests, b.Root)
	for _, rel := range b.Related {
		manifests = append(manifests, rel.Manifest)
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Fetch.Concurrency > 0 {
		g.SetLimit(cfg.Fetch.Concurrency)
	}
	for i, m := range manifests {
		g.Go(func() error {
			gr, err := layoutWorkflow(gctx, m, cfg, logger)
			if err != nil {
				return err
			}
			setWorkflow(gr, out.Workflows[i].ID)
			out.Workflows[i].Graph = gr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	warnSharedIDs(out, logger)
	return out, nil
}

// warnSharedIDs logs node ids declared by more than one workflow. Each
// copy is drawn and addressed by its workflow-scoped key; lookups by bare
// id resolve to the first workflow's node.
func warnSharedIDs(l *graph.Layout, logger *log.Logger) {
	owner := make(map[string]string)
	for _, w := range l.Workflows {
		for _, n := range w.Graph.Nodes {
			if first, ok := owner[n.ID]; ok && first != w.ID {
				logger.Warn("node id shared across workflows", "id", n.ID, "first", first, "also", w.ID)
				continue
			}
			owner[n.ID] = w.ID
		}
	}
}

func layoutWorkflow(ctx context.Context, m *manifest.Manifest, cfg *config.Config, logger *log.Logger) (*graph.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	observability.Pipeline().OnLayoutStart(ctx, m.ID, len(m.Assets)+len(m.Computations)+len(m.Attestations))

	g, err := graph.Build(m, cfg)
	if err != nil {
		observability.Pipeline().OnLayoutComplete(ctx, m.ID, 0, time.Since(start), err)
		return nil, err
	}
	res := layout.Compute(m, cfg.Layout)
	g.ApplyLayout(res, cfg.Layout.WorldScale, cfg.Layout.BoundsPadding)
	for _, err := range g.Skipped {
		logger.Debug("edge skipped", "workflow", m.ID, "err", err)
	}
	for _, id := range res.Dropped {
		logger.Debug("attestation target not positioned", "workflow", m.ID, "attestation", id)
	}

	observability.Pipeline().OnLayoutComplete(ctx, m.ID, len(res.Positions), time.Since(start), nil)
	return g, nil
}

// setWorkflow renames a graph to the id it is registered under, which may
// differ from the manifest's own id.
func setWorkflow(g *graph.Graph, id string) {
	if g.Workflow == id {
		return
	}
	g.Workflow = id
	for _, n := range g.Nodes {
		n.Workflow = id
	}
}
