package scene

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/provgraph/pkg/compose"
	"github.com/matzehuels/provgraph/pkg/config"
	"github.com/matzehuels/provgraph/pkg/geom"
	"github.com/matzehuels/provgraph/pkg/graph"
	"github.com/matzehuels/provgraph/pkg/lod"
	"github.com/matzehuels/provgraph/pkg/manifest"
	"github.com/matzehuels/provgraph/pkg/selection"
	"github.com/matzehuels/provgraph/pkg/visual"
)

func testGraph(wf string, nodes []*graph.Node, edges []graph.Edge) *graph.Graph {
	g := &graph.Graph{Workflow: wf, Title: wf, Edges: edges}
	seen := map[string]bool{}
	for _, n := range nodes {
		n.Workflow = wf
		n.Positioned = true
		n.Phase = "train"
		g.Nodes = append(g.Nodes, n)
		if !seen[n.Step] {
			seen[n.Step] = true
			g.StepDefs = append(g.StepDefs, manifest.Step{ID: n.Step, Label: n.Step, Phase: "train"})
		}
	}
	g.RecomputeSteps(50)
	return g
}

func newTestScene(t *testing.T, cfg *config.Config, dispatch func(func())) *Scene {
	t.Helper()
	main := testGraph("main", []*graph.Node{
		{ID: "a", Label: "a", Kind: graph.KindAsset, Step: "s1", X: 0, Y: 0},
		{ID: "c", Label: "c", Kind: graph.KindAction, Step: "s1", X: 200, Y: 0},
		{ID: "o", Label: "o", Kind: graph.KindAsset, Step: "s2", X: 400, Y: 0},
	}, []graph.Edge{
		{ID: "a->c", Source: "a", Target: "c", Canonical: true},
		{ID: "c->o", Source: "c", Target: "o", Canonical: true},
	})
	child := testGraph("child", []*graph.Node{
		{ID: "x", Label: "x", Kind: graph.KindAsset, Step: "s2", X: 400, Y: 0},
	}, nil)

	reg := compose.NewRegistry()
	_, err := reg.Register(compose.Workflow{ID: "main"}, main)
	require.NoError(t, err)
	_, err = reg.Register(compose.Workflow{ID: "child", Relationship: manifest.RelChild, Parent: "main", BranchPoint: "o"}, child)
	require.NoError(t, err)

	b := visual.NewBuilder(cfg, nil, nil)
	comp, err := compose.Compose(context.Background(), reg, compose.Options{
		Factory:   &compose.NodeFactory{Builder: b, Scale: 1},
		Layout:    cfg.Layout,
		Theme:     cfg.Theme,
		RouteCell: 20,
	})
	require.NoError(t, err)

	s, err := New(comp, Options{Config: cfg, Builder: b, Width: 1000, Height: 800, Dispatch: dispatch})
	require.NoError(t, err)
	return s
}

func settle(t *testing.T, s *Scene) {
	t.Helper()
	for i := 0; s.Tick(time.Second); i++ {
		require.Less(t, i, 20, "animations never settled")
	}
}

func TestNewFitsComposition(t *testing.T) {
	s := newTestScene(t, config.Default(), nil)

	assert.Equal(t, lod.WorkflowDetail, s.Level())
	assert.InDelta(t, 1000.0/560, s.Viewport().Scale, 1e-9)

	f := s.Frame()
	assert.Equal(t, s.ID.String(), f.Session)
	assert.Equal(t, 1.0, f.Alpha)
	ids := []string{}
	for _, n := range f.Nodes {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"a", "c", "o", "x"}, ids)
	assert.Len(t, f.Edges, 2)
	assert.Len(t, f.Connectors, 1)
	assert.False(t, f.LOD.TextMode)
}

func TestZoomWalksLevels(t *testing.T) {
	s := newTestScene(t, config.Default(), nil)

	s.ZoomAt(0.2, 500, 400)
	assert.True(t, s.Frame().LOD.Transitioning)
	settle(t, s)
	assert.Equal(t, lod.WorkflowOverview, s.Level())

	f := s.Frame()
	require.Len(t, f.Steps, 3)
	assert.Equal(t, "main/s1", f.Steps[0].ID)
	assert.Equal(t, 2, f.Steps[0].Nodes)
	assert.Empty(t, f.Nodes)
	assert.True(t, f.LOD.TextMode, "text mode follows scale, not level")

	s.ZoomAt(0.3, 500, 400)
	settle(t, s)
	assert.Equal(t, lod.ContentSession, s.Level())
	f = s.Frame()
	assert.Len(t, f.Cards, 2)
	require.Len(t, f.Connectors, 1)
	assert.Empty(t, f.Steps)

	s.ZoomAt(100, 500, 400)
	settle(t, s)
	assert.Equal(t, lod.WorkflowOverview, s.Level(), "one level per transition")
}

func TestOpenWorkflowLocksUntilArrived(t *testing.T) {
	s := newTestScene(t, config.Default(), nil)
	s.ZoomAt(0.2, 500, 400)
	settle(t, s)
	s.ZoomAt(0.3, 500, 400)
	settle(t, s)
	require.Equal(t, lod.ContentSession, s.Level())

	require.NoError(t, s.OpenWorkflow("main"))
	s.Tick(time.Second)
	s.ZoomAt(0.01, 500, 400)

	settle(t, s)
	assert.Equal(t, lod.WorkflowDetail, s.Level())
	assert.Equal(t, lod.Idle, s.levels.Phase())
	assert.InDelta(t, 1000.0/560, s.Viewport().Scale, 1e-9)

	assert.ErrorIs(t, s.OpenWorkflow("ghost"), compose.ErrUnknownWorkflow)
}

func screenCenter(s *Scene, id string) geom.Point {
	return s.Viewport().WorldToScreen(mustNode(s, id).Bounds().Center())
}

func TestExpandAndCollapse(t *testing.T) {
	cfg := config.Default()
	s := newTestScene(t, cfg, nil)

	require.True(t, s.Expand("o"))
	settle(t, s)
	p := screenCenter(s, "o")
	assert.InDelta(t, (1000-cfg.Viewport.PanelWidth)/2, p.X, 1e-6)
	assert.InDelta(t, 400, p.Y, 1e-6)

	f := s.Frame()
	assert.Equal(t, selection.NodeExpanded, f.Selection.Mode)
	for _, n := range f.Nodes {
		if n.ID == "o" {
			assert.True(t, n.Flags.Selected)
		} else {
			assert.True(t, n.Flags.Blurred, n.ID)
		}
	}
	assert.False(t, s.Expand("o"), "expanding twice is a no-op")

	assert.Equal(t, selection.CollapsedExpansion, s.Collapse())
	settle(t, s)
	p = screenCenter(s, "o")
	assert.InDelta(t, 500, p.X, 1e-6)
	assert.Equal(t, selection.ClearedSelection, s.Collapse())
	assert.Equal(t, selection.None, s.Selection().Mode)
}

func TestTransitionBlocksViewChanges(t *testing.T) {
	s := newTestScene(t, config.Default(), nil)
	require.True(t, s.Select("a"))

	s.ZoomAt(0.2, 500, 400)
	require.True(t, s.levels.IsTransitioning())
	before := *s.Viewport()

	assert.Equal(t, selection.NothingToCollapse, s.Collapse())
	assert.Equal(t, selection.NodeSelected, s.Selection().Mode)
	s.Pan(300, 300)
	assert.ErrorIs(t, s.Fit(), lod.ErrTransitioning)
	assert.Equal(t, before, *s.Viewport())

	settle(t, s)
	assert.Equal(t, lod.WorkflowOverview, s.Level())
	require.NoError(t, s.Fit())
	assert.Equal(t, lod.WorkflowDetail, s.Level())
	assert.Equal(t, selection.ClearedSelection, s.Collapse())
}

func TestNavigateSkipsActions(t *testing.T) {
	s := newTestScene(t, config.Default(), nil)
	require.True(t, s.Select("a"))
	id, ok := s.Navigate(selection.Right)
	require.True(t, ok)
	assert.Equal(t, "o", id)
	settle(t, s)
	assert.InDelta(t, 500, screenCenter(s, "o").X, 1e-6)

	s.Hover("o")
	for _, n := range s.Frame().Nodes {
		assert.Equal(t, n.ID == "o", n.Hovered, n.ID)
	}
}

func TestPanCulls(t *testing.T) {
	s := newTestScene(t, config.Default(), nil)
	s.Pan(1e6, 0)
	assert.Empty(t, s.Frame().Nodes)
	assert.Empty(t, s.Frame().Edges)
	s.Pan(-1e6, 0)
	assert.Len(t, s.Frame().Nodes, 4)
}

func TestShowAllEdges(t *testing.T) {
	s := newTestScene(t, config.Default(), nil)
	s.comp.Workflows()[0].Graph.Edges = append(s.comp.Workflows()[0].Graph.Edges,
		graph.Edge{ID: "o->a", Source: "o", Target: "a", IsGate: true})
	assert.Len(t, s.Frame().Edges, 2)
	s.SetShowAllEdges(true)
	edges := s.Frame().Edges
	require.Len(t, edges, 3)
	assert.True(t, edges[2].Dashed)
}

func TestResizeDispatched(t *testing.T) {
	cfg := config.Default()
	cfg.Viewport.ResizeDebounce = 20 * time.Millisecond
	calls := make(chan func(), 2)
	s := newTestScene(t, cfg, func(f func()) { calls <- f })

	s.Resize(1200, 900)
	select {
	case f := <-calls:
		f()
	case <-time.After(2 * time.Second):
		t.Fatal("resize never dispatched")
	}
	assert.Equal(t, 1200.0, s.Viewport().Width)
	assert.False(t, math.IsNaN(s.Viewport().Scale))
}

func TestLookAtPicksLevel(t *testing.T) {
	s := newTestScene(t, config.Default(), nil)
	b, ok := s.Composition().Bounds()
	require.True(t, ok)

	s.LookAt(b.Center(), 0.1, 640, 480)
	assert.Equal(t, lod.ContentSession, s.Level())
	assert.False(t, s.Animating())
	f := s.Frame()
	assert.Equal(t, 640.0, f.Viewport.Width)
	assert.InDelta(t, 0.1, f.Viewport.Scale, 1e-9)
	assert.Len(t, f.Cards, 2)

	s.LookAt(b.Center(), 0.4, 0, 0)
	assert.Equal(t, lod.WorkflowOverview, s.Level())
	assert.Equal(t, 640.0, s.Viewport().Width, "zero size keeps the screen")

	s.LookAt(geom.Point{X: 1e7, Y: 1e7}, 1, 640, 480)
	assert.Equal(t, lod.WorkflowDetail, s.Level())
	assert.Empty(t, s.Frame().Nodes)
}

func mustNode(s *Scene, ref string) *visual.NodeVisual {
	_, v, ok := s.node(ref)
	if !ok {
		panic("unknown node " + ref)
	}
	return v
}

func TestSharedNodeIDsAcrossWorkflows(t *testing.T) {
	cfg := config.Default()
	main := testGraph("main", []*graph.Node{
		{ID: "data", Label: "data", Kind: graph.KindAsset, Step: "s1", X: 0, Y: 0},
		{ID: "c", Label: "c", Kind: graph.KindAction, Step: "s1", X: 200, Y: 0},
		{ID: "out", Label: "out", Kind: graph.KindAsset, Step: "s2", X: 400, Y: 0},
	}, []graph.Edge{
		{ID: "data->c", Source: "data", Target: "c", Canonical: true},
		{ID: "c->out", Source: "c", Target: "out", Canonical: true},
	})
	replay := testGraph("rerun", []*graph.Node{
		{ID: "data", Label: "data", Kind: graph.KindAsset, Step: "s1", X: 0, Y: 0},
		{ID: "r", Label: "r", Kind: graph.KindAction, Step: "s1", X: 200, Y: 0},
	}, []graph.Edge{
		{ID: "data->r", Source: "data", Target: "r", Canonical: true},
	})

	reg := compose.NewRegistry()
	_, err := reg.Register(compose.Workflow{ID: "main"}, main)
	require.NoError(t, err)
	_, err = reg.Register(compose.Workflow{ID: "rerun", Relationship: manifest.RelReplay, Parent: "main"}, replay)
	require.NoError(t, err)
	b := visual.NewBuilder(cfg, nil, nil)
	comp, err := compose.Compose(context.Background(), reg, compose.Options{
		Factory:   &compose.NodeFactory{Builder: b, Scale: 1},
		Layout:    cfg.Layout,
		Theme:     cfg.Theme,
		RouteCell: 20,
	})
	require.NoError(t, err)
	s, err := New(comp, Options{Config: cfg, Builder: b, Width: 1000, Height: 800})
	require.NoError(t, err)

	bounds, ok := comp.Bounds()
	require.True(t, ok)
	s.LookAt(bounds.Center(), 1, 1e5, 1e5)
	require.Equal(t, lod.WorkflowDetail, s.Level())

	f := s.Frame()
	keys := []string{}
	byKey := map[string]NodeFrame{}
	for _, n := range f.Nodes {
		keys = append(keys, n.Key)
		byKey[n.Key] = n
	}
	assert.Equal(t, []string{"main/data", "main/c", "main/out", "rerun/data", "rerun/r"}, keys)
	assert.Equal(t, "data", byKey["rerun/data"].ID)
	assert.Equal(t, "rerun", byKey["rerun/data"].Workflow)

	require.Len(t, f.Edges, 3)
	for _, e := range f.Edges {
		if e.ID != "data->c" {
			continue
		}
		src := byKey["main/data"].Screen
		assert.InDelta(t, src.Right, e.Points[0].X, 1e-6)
		assert.InDelta(t, src.CenterY(), e.Points[0].Y, 1e-6, "main's edge starts at main's copy")
	}

	require.True(t, s.Select("data"))
	assert.Equal(t, "main/data", s.Selection().Key, "a bare id resolves to the first workflow")
	require.True(t, s.Select(graph.Key("rerun", "data")))
	assert.Equal(t, "rerun", s.Selection().Workflow)
	for _, n := range s.Frame().Nodes {
		assert.Equal(t, n.Key == "rerun/data", n.Flags.Selected, n.Key)
	}
}
