package cli

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/provgraph/pkg/compose"
	"github.com/matzehuels/provgraph/pkg/config"
	"github.com/matzehuels/provgraph/pkg/graph"
	"github.com/matzehuels/provgraph/pkg/manifest"
	"github.com/matzehuels/provgraph/pkg/scene"
	"github.com/matzehuels/provgraph/pkg/visual"
)

func testNode(id string, kind graph.Kind, step string, x float64) *graph.Node {
	return &graph.Node{ID: id, Label: id, Kind: kind, Step: step, Phase: "train", X: x, Positioned: true}
}

func testWorkflow(wf string, nodes ...*graph.Node) *graph.Graph {
	g := &graph.Graph{Workflow: wf, Title: wf}
	seen := map[string]bool{}
	for _, n := range nodes {
		n.Workflow = wf
		g.Nodes = append(g.Nodes, n)
		if !seen[n.Step] {
			seen[n.Step] = true
			g.StepDefs = append(g.StepDefs, manifest.Step{ID: n.Step, Label: n.Step, Phase: "train"})
		}
	}
	g.RecomputeSteps(50)
	return g
}

// newTestScene builds a main workflow with a child branching off "o".
func newTestScene(t *testing.T, dispatch func(func())) *scene.Scene {
	t.Helper()
	cfg := config.Default()

	main := testWorkflow("main",
		testNode("a", graph.KindAsset, "s1", 0),
		testNode("c", graph.KindAction, "s1", 200),
		testNode("o", graph.KindAsset, "s2", 400),
	)
	main.Edges = []graph.Edge{
		{ID: "a->c", Source: "a", Target: "c", Canonical: true},
		{ID: "c->o", Source: "c", Target: "o", Canonical: true},
	}
	child := testWorkflow("child", testNode("x", graph.KindAsset, "s2", 400))

	reg := compose.NewRegistry()
	_, err := reg.Register(compose.Workflow{ID: "main"}, main)
	require.NoError(t, err)
	_, err = reg.Register(compose.Workflow{ID: "child", Relationship: manifest.RelChild, Parent: "main", BranchPoint: "o"}, child)
	require.NoError(t, err)

	quiet := log.New(io.Discard)
	b := visual.NewBuilder(cfg, nil, quiet)
	comp, err := compose.Compose(context.Background(), reg, compose.Options{
		Factory:   &compose.NodeFactory{Builder: b, Scale: 1},
		Layout:    cfg.Layout,
		Theme:     cfg.Theme,
		RouteCell: 20,
	})
	require.NoError(t, err)

	sc, err := scene.New(comp, scene.Options{
		Config:   cfg,
		Logger:   quiet,
		Builder:  b,
		Width:    800,
		Height:   600,
		Dispatch: dispatch,
	})
	require.NoError(t, err)
	return sc
}
