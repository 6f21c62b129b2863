// Package scene is the single application state of an interactive view: it
// owns the viewport, the view-level controller, the selection controller and
// one spatial index per view level, and turns them into [Frame]s.
//
// A Scene is not safe for concurrent use. Every method is meant to run on the
// host's event loop; debounced resize callbacks are routed back to it through
// Options.Dispatch.
package scene

import (
	"math"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/provgraph/pkg/anim"
	"github.com/matzehuels/provgraph/pkg/compose"
	"github.com/matzehuels/provgraph/pkg/config"
	"github.com/matzehuels/provgraph/pkg/geom"
	"github.com/matzehuels/provgraph/pkg/graph"
	"github.com/matzehuels/provgraph/pkg/lod"
	"github.com/matzehuels/provgraph/pkg/selection"
	"github.com/matzehuels/provgraph/pkg/spatial"
	"github.com/matzehuels/provgraph/pkg/viewport"
	"github.com/matzehuels/provgraph/pkg/visual"
)

// Options configure a Scene.
type Options struct {
	Config *config.Config
	Logger *log.Logger
	// Builder routes edges; nil uses a builder without icons.
	Builder *visual.Builder
	Width   float64
	Height  float64
	// Dispatch runs debounced callbacks on the host's event loop.
	Dispatch func(func())
}

// Summary is a step band of one workflow at the overview level.
type Summary struct {
	ID       string    `json:"id"`
	Workflow string    `json:"workflow"`
	Step     string    `json:"step"`
	Label    string    `json:"label"`
	Phase    string    `json:"phase,omitempty"`
	Color    string    `json:"color"`
	Bounds   geom.Rect `json:"bounds"`
	Nodes    int       `json:"nodes"`
}

// Scene ties a composition to its interactive state.
type Scene struct {
	ID uuid.UUID

	cfg     *config.Config
	logger  *log.Logger
	comp    *compose.Composition
	builder *visual.Builder
	index   *graph.Indices

	timeline *anim.Timeline
	view     *viewport.State
	viewCtl  *viewport.Controller
	levels   *lod.Controller
	policy   lod.Threshold
	sel      *selection.Controller

	// nodes are keyed by graph.Key; order lists the keys workflow by
	// workflow in declaration order.
	nodes     map[string]*visual.NodeVisual
	order     []string
	summaries []Summary
	cards     []compose.Card
	cardLinks []compose.Connector
	grids     map[lod.Level]*spatial.Grid
	cullers   map[lod.Level]*spatial.Culler

	hover   string
	showAll bool
}

// New builds a scene over comp and fits the whole composition on screen.
func New(comp *compose.Composition, opts Options) (*Scene, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	builder := opts.Builder
	if builder == nil {
		builder = visual.NewBuilder(cfg, nil, logger)
	}

	s := &Scene{
		ID:       uuid.New(),
		cfg:      cfg,
		logger:   logger.WithPrefix("scene"),
		comp:     comp,
		builder:  builder,
		timeline: anim.NewTimeline(),
		view:     viewport.NewState(opts.Width, opts.Height),
		policy:   lod.ThresholdFrom(cfg.LOD),
		nodes:    make(map[string]*visual.NodeVisual),
		grids:    make(map[lod.Level]*spatial.Grid),
		cullers:  make(map[lod.Level]*spatial.Culler),
	}

	var graphs, drawn []*graph.Graph
	for _, w := range comp.Workflows() {
		graphs = append(graphs, w.Graph)
		g := &graph.Graph{Workflow: w.ID, Edges: w.Graph.Edges}
		for _, v := range w.Visuals() {
			k := v.Node.Key()
			s.nodes[k] = v
			s.order = append(s.order, k)
			g.Nodes = append(g.Nodes, v.Node)
		}
		drawn = append(drawn, g)
	}
	s.index = graph.NewIndices(graphs...)

	s.viewCtl = viewport.NewController(s.view, cfg.Viewport, s.timeline, viewport.LocatorFunc(s.nodeBounds))
	s.viewCtl.SetDispatcher(opts.Dispatch)
	s.viewCtl.OnResize = func() { s.Settle() }

	s.sel = selection.NewController(nil, selection.Hooks{
		Expanded:  s.onExpanded,
		Collapsed: s.onCollapsed,
		Changed:   s.onSelectionChanged,
	})
	s.sel.SetGraph(drawn...)

	s.levels = lod.NewController(cfg.LOD, s.timeline, lod.WorkflowDetail, lod.Hooks{
		Reposition: s.reposition,
		Render:     func() { s.Settle() },
		Changed: func(from, to lod.Level) {
			s.logger.Debug("view level changed", "from", from, "to", to, "scale", s.view.Scale)
		},
	}, logger)

	if err := s.buildIndex(); err != nil {
		return nil, err
	}
	if err := s.Fit(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scene) buildIndex() error {
	for _, l := range lod.Levels {
		g := spatial.NewGrid(s.cfg.Spatial.CellSize)
		s.grids[l] = g
		s.cullers[l] = spatial.NewCuller(g, s.cfg.Spatial.CullMargin)
	}

	for _, k := range s.order {
		if err := s.grids[lod.WorkflowDetail].Insert(k, s.nodes[k].Bounds()); err != nil {
			return err
		}
	}

	s.summaries = s.buildSummaries()
	for _, sm := range s.summaries {
		if err := s.grids[lod.WorkflowOverview].Insert(sm.ID, sm.Bounds); err != nil {
			return err
		}
	}

	s.cards = s.comp.Cards()
	s.cardLinks = s.comp.CardConnectors()
	for _, c := range s.cards {
		if err := s.grids[lod.ContentSession].Insert(c.Workflow, c.Bounds); err != nil {
			return err
		}
	}
	return nil
}

// buildSummaries spans each step band horizontally and its node visuals
// vertically. Steps whose band has no visuals are skipped.
func (s *Scene) buildSummaries() []Summary {
	var out []Summary
	for _, w := range s.comp.Workflows() {
		for _, band := range w.Graph.Steps {
			top, bottom := math.Inf(1), math.Inf(-1)
			count := 0
			for _, n := range s.index.NodesInStep(w.ID, band.ID) {
				v, ok := s.nodes[n.Key()]
				if !ok {
					continue
				}
				b := v.Bounds()
				top, bottom = math.Min(top, b.Top), math.Max(bottom, b.Bottom)
				count++
			}
			if count == 0 {
				continue
			}
			color, ok := s.cfg.Theme.PhaseColor(band.Phase)
			if !ok {
				color = s.cfg.Theme.EdgeColor
			}
			label := band.Label
			if label == "" {
				label = band.ID
			}
			out = append(out, Summary{
				ID:       w.ID + "/" + band.ID,
				Workflow: w.ID,
				Step:     band.ID,
				Label:    label,
				Phase:    band.Phase,
				Color:    color,
				Bounds:   geom.Rect{Left: band.XStart, Right: band.XEnd, Top: top, Bottom: bottom},
				Nodes:    count,
			})
		}
	}
	return out
}

// node resolves ref as a node key, or as a bare id of the first workflow
// declaring it.
func (s *Scene) node(ref string) (string, *visual.NodeVisual, bool) {
	if v, ok := s.nodes[ref]; ok {
		return ref, v, true
	}
	n, ok := s.index.Lookup(ref)
	if !ok {
		return "", nil, false
	}
	v, ok := s.nodes[n.Key()]
	return n.Key(), v, ok
}

func (s *Scene) nodeBounds(ref string) (geom.Rect, bool) {
	_, v, ok := s.node(ref)
	if !ok {
		return geom.Rect{}, false
	}
	return v.Bounds(), true
}

// Viewport returns the shared viewport state.
func (s *Scene) Viewport() *viewport.State { return s.view }

// Level returns the active view level.
func (s *Scene) Level() lod.Level { return s.levels.Level() }

// Selection returns the current selection record.
func (s *Scene) Selection() selection.Record { return s.sel.Record() }

// Composition returns the composed workflows.
func (s *Scene) Composition() *compose.Composition { return s.comp }

// Summaries returns the overview step summaries.
func (s *Scene) Summaries() []Summary { return s.summaries }

// Tick advances animations by dt and reports whether any are still running.
func (s *Scene) Tick(dt time.Duration) bool {
	s.timeline.Advance(dt)
	return s.timeline.Active() > 0
}

// Animating reports whether any animation is running.
func (s *Scene) Animating() bool { return s.timeline.Active() > 0 }

// Fit zooms to the whole composition without animation and selects the
// view level matching the resulting scale. It leaves the view untouched
// and returns [lod.ErrTransitioning] while a crossfade runs.
func (s *Scene) Fit() error {
	if s.levels.IsTransitioning() {
		return lod.ErrTransitioning
	}
	if b, ok := s.comp.Bounds(); ok {
		if err := s.viewCtl.ZoomToBounds(b, "", viewport.Options{Immediate: true}); err != nil {
			return err
		}
	}
	if err := s.levels.SetLevel(s.policy.LevelFor(s.view.Scale)); err != nil {
		return err
	}
	s.Settle()
	return nil
}

// LookAt places the view immediately: world point center at the middle of
// a w×h screen at scale, with the view level the scale calls for. It is
// meant for hosts that request frames without interaction.
func (s *Scene) LookAt(center geom.Point, scale, w, h float64) {
	s.timeline.CancelOwner(viewport.Owner)
	if w > 0 && h > 0 {
		s.view.Width, s.view.Height = w, h
	}
	s.viewCtl.CenterOn(center, viewport.Options{Zoom: scale, Immediate: true})
	if !s.levels.IsTransitioning() {
		_ = s.levels.SetLevel(s.policy.LevelFor(s.view.Scale))
	}
	s.Settle()
}

// Settle runs a culling pass for the active level against the current
// viewport and returns the visibility change.
func (s *Scene) Settle() spatial.Diff {
	return s.cullers[s.levels.Level()].Cull(s.view.WorldRect())
}

// Pan moves the view by screen pixels and culls. It is ignored during a
// view-level transition.
func (s *Scene) Pan(dx, dy float64) {
	if s.levels.IsTransitioning() {
		return
	}
	s.viewCtl.Pan(dx, dy)
	s.Settle()
}

// ZoomAt zooms by factor around screen point (sx, sy), lets the view-level
// controller react to the new scale, and culls.
func (s *Scene) ZoomAt(factor, sx, sy float64) {
	if s.levels.IsTransitioning() {
		return
	}
	scale := s.viewCtl.ZoomAt(factor, sx, sy)
	s.levels.Update(scale)
	s.Settle()
}

// Resize schedules a debounced resize of the screen.
func (s *Scene) Resize(w, h float64) { s.viewCtl.Resize(w, h) }

// SetShowAllEdges toggles between all edges and canonical edges only.
func (s *Scene) SetShowAllEdges(all bool) { s.showAll = all }

// ShowAllEdges reports the edge toggle.
func (s *Scene) ShowAllEdges() bool { return s.showAll }

// Hover marks node ref as hovered; an empty ref clears it. Node references
// are workflow-scoped keys (see [graph.Key]) or bare ids, which resolve to
// the first workflow declaring them.
func (s *Scene) Hover(ref string) {
	if ref == "" {
		s.hover = ""
		return
	}
	if k, _, ok := s.node(ref); ok {
		s.hover = k
	}
}

// Select selects node id.
func (s *Scene) Select(id string) bool {
	if s.levels.IsTransitioning() {
		return false
	}
	return s.sel.Select(id)
}

// SelectStep selects a step of a workflow.
func (s *Scene) SelectStep(workflow, step string) bool {
	if s.levels.IsTransitioning() {
		return false
	}
	return s.sel.SelectStep(workflow, step)
}

// Expand selects and expands node id, centering on it.
func (s *Scene) Expand(id string) bool {
	if s.levels.IsTransitioning() {
		return false
	}
	return s.sel.Expand(id)
}

// Collapse leaves an expansion or clears the selection. Nothing collapses
// during a view-level transition.
func (s *Scene) Collapse() selection.CollapseResult {
	if s.levels.IsTransitioning() {
		return selection.NothingToCollapse
	}
	return s.sel.Collapse()
}

// Navigate moves the selection in direction d and brings it into view.
func (s *Scene) Navigate(d selection.Direction) (string, bool) {
	if s.levels.IsTransitioning() || s.levels.Level() != lod.WorkflowDetail {
		return "", false
	}
	id, ok := s.sel.Navigate(d)
	if r := s.sel.Record(); ok && r.Mode != selection.NodeExpanded {
		_ = s.viewCtl.CenterOnNode(r.Key, viewport.Options{OnComplete: func() { s.Settle() }})
	}
	return id, ok
}

// OpenWorkflow crossfades into the detail level focused on workflow id,
// holding off scale-driven level changes until the view has arrived.
func (s *Scene) OpenWorkflow(id string) error {
	w, ok := s.comp.Registry.Get(id)
	if !ok {
		return compose.ErrUnknownWorkflow
	}
	b, ok := compose.Extent(w)
	if !ok {
		return compose.ErrUnknownWorkflow
	}
	s.levels.Lock()
	err := s.levels.Transition(lod.WorkflowDetail, func() {
		scale := math.Max(s.viewCtl.FitScale(b), s.cfg.LOD.DetailThreshold)
		s.viewCtl.CenterOn(b.Center(), viewport.Options{Zoom: scale, OnComplete: func() {
			s.levels.Unlock()
			s.Settle()
		}})
	})
	if err != nil {
		s.levels.Unlock()
	}
	return err
}

func (s *Scene) onExpanded(key string) {
	s.viewCtl.PanelOpen = true
	zoom := math.Max(s.view.Scale, s.cfg.LOD.DetailThreshold)
	_ = s.viewCtl.CenterOnNode(key, viewport.Options{Zoom: zoom, OnComplete: func() { s.Settle() }})
}

func (s *Scene) onCollapsed(key string) {
	s.viewCtl.PanelOpen = false
	v, ok := s.nodes[key]
	if !ok {
		return
	}
	w, ok := s.comp.Registry.Get(v.Node.Workflow)
	if !ok {
		return
	}
	if b, ok := compose.Extent(w); ok {
		zoom := math.Max(s.viewCtl.FitScale(b), s.cfg.LOD.DetailThreshold)
		_ = s.viewCtl.CenterOnNode(key, viewport.Options{Zoom: zoom, OnComplete: func() { s.Settle() }})
	}
}

func (s *Scene) onSelectionChanged(r selection.Record) {
	s.viewCtl.Selected = r.Key
	if r.Mode != selection.NodeExpanded {
		s.viewCtl.PanelOpen = false
	}
}

// reposition moves the view into the scale band of the new level while it
// is invisible, keeping the current world center.
func (s *Scene) reposition(_, to lod.Level) {
	if s.policy.LevelFor(s.view.Scale) == to {
		return
	}
	center := s.view.ScreenToWorld(geom.Point{X: s.view.Width / 2, Y: s.view.Height / 2})
	s.viewCtl.CenterOn(center, viewport.Options{Zoom: s.bandScale(to), Immediate: true})
}

// bandScale returns a representative scale inside the band of l.
func (s *Scene) bandScale(l lod.Level) float64 {
	lc := s.cfg.LOD
	switch l {
	case lod.ContentSession:
		fit := s.view.Scale
		if b, ok := s.comp.Bounds(); ok {
			fit = s.viewCtl.FitScale(b)
		}
		return math.Min(fit, lc.OverviewThreshold*0.9)
	case lod.WorkflowOverview:
		return (lc.OverviewThreshold + lc.DetailThreshold) / 2
	}
	return lc.DetailThreshold
}
