package compose

import (
	"context"
	"fmt"

	"github.com/matzehuels/provgraph/pkg/config"
	"github.com/matzehuels/provgraph/pkg/geom"
	"github.com/matzehuels/provgraph/pkg/graph"
	"github.com/matzehuels/provgraph/pkg/manifest"
	"github.com/matzehuels/provgraph/pkg/visual"
)

// cardPadding surrounds a workflow's nodes to form its overview card.
const cardPadding = 40

// Options configure [Compose].
type Options struct {
	Factory *NodeFactory
	Layout  config.Layout
	Theme   config.Theme
	// RouteCell is the A* grid cell size for card connectors.
	RouteCell float64
}

// Composition is a set of workflows placed in one coordinate space.
type Composition struct {
	Registry   *Registry
	Connectors []Connector

	routeCell float64
}

// Card is the content-session summary of one workflow.
type Card struct {
	Workflow     string                `json:"workflow"`
	Title        string                `json:"title,omitempty"`
	Relationship manifest.Relationship `json:"relationship"`
	Bounds       geom.Rect             `json:"bounds"`
	Opacity      float64               `json:"opacity"`
	Nodes        int                   `json:"nodes"`
}

// Compose validates the registry, builds every workflow's visuals behind a
// barrier, aligns shared step columns to main, stacks the workflows and
// computes the branch connectors.
func Compose(ctx context.Context, reg *Registry, opts Options) (*Composition, error) {
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	if opts.Factory != nil {
		if err := opts.Factory.Populate(ctx, reg); err != nil {
			return nil, fmt.Errorf("build node visuals: %w", err)
		}
	}
	if !reg.AllPopulated() {
		return nil, ErrNotPopulated
	}

	main, _ := reg.Main()
	padding := opts.Layout.BoundsPadding * opts.Layout.WorldScale
	var others []*Workflow
	for _, w := range reg.Workflows() {
		if w != main {
			others = append(others, w)
		}
	}
	graphs := make([]*graph.Graph, 0, len(others))
	for _, w := range others {
		graphs = append(graphs, w.Graph)
	}
	AlignNodesToStepColumns(main.Graph, graphs, padding)

	if err := Stack(reg, opts.Layout.BranchSpacing); err != nil {
		return nil, err
	}

	c := &Composition{Registry: reg, routeCell: opts.RouteCell}
	for _, w := range others {
		if w.BranchPoint == "" {
			continue
		}
		parent, ok := reg.Get(w.Parent)
		if !ok {
			continue
		}
		if conn, ok := ConnectorFor(parent, w, opts.Layout.LabelReserve, opts.Theme); ok {
			c.Connectors = append(c.Connectors, conn)
		}
	}
	return c, nil
}

// Workflows returns the composed workflows in registration order.
func (c *Composition) Workflows() []*Workflow { return c.Registry.Workflows() }

// Nodes returns every node visual, workflow by workflow.
func (c *Composition) Nodes() []*visual.NodeVisual {
	var out []*visual.NodeVisual
	for _, w := range c.Registry.Workflows() {
		out = append(out, w.Visuals()...)
	}
	return out
}

// Node returns the visual of node id in any workflow.
func (c *Composition) Node(id string) (*visual.NodeVisual, *Workflow, bool) {
	for _, w := range c.Registry.Workflows() {
		if v, ok := w.Nodes[id]; ok {
			return v, w, true
		}
	}
	return nil, nil, false
}

// Bounds returns the world bounds of all node visuals.
func (c *Composition) Bounds() (geom.Rect, bool) {
	var rs []geom.Rect
	for _, w := range c.Registry.Workflows() {
		if b, ok := Extent(w); ok {
			rs = append(rs, b)
		}
	}
	return geom.Bounds(rs)
}

// Cards returns one card per workflow with at least one node visual.
func (c *Composition) Cards() []Card {
	var out []Card
	for _, w := range c.Registry.Workflows() {
		b, ok := Extent(w)
		if !ok {
			continue
		}
		out = append(out, Card{
			Workflow:     w.ID,
			Title:        w.Graph.Title,
			Relationship: w.Relationship,
			Bounds:       b.Inset(cardPadding),
			Opacity:      w.Opacity,
			Nodes:        len(w.Nodes),
		})
	}
	return out
}

// CardConnectors routes the branch connectors between workflow cards,
// avoiding every other card.
func (c *Composition) CardConnectors() []Connector {
	cards := c.Cards()
	byID := make(map[string]Card, len(cards))
	for _, card := range cards {
		byID[card.Workflow] = card
	}

	out := make([]Connector, 0, len(c.Connectors))
	for _, conn := range c.Connectors {
		pc, ok1 := byID[conn.Parent]
		cc, ok2 := byID[conn.Child]
		if !ok1 || !ok2 {
			continue
		}
		upper, lower := pc, cc
		if cc.Bounds.Top < pc.Bounds.Top {
			upper, lower = cc, pc
		}
		x := conn.From().X
		from := geom.Point{X: x, Y: upper.Bounds.Bottom}
		to := geom.Point{X: clamp(x, lower.Bounds.Left, lower.Bounds.Right), Y: lower.Bounds.Top}

		var obstacles []geom.Rect
		for _, card := range cards {
			if card.Workflow != pc.Workflow && card.Workflow != cc.Workflow {
				obstacles = append(obstacles, card.Bounds)
			}
		}
		routed := conn
		routed.Points = Route(from, to, obstacles, c.routeCell)
		out = append(out, routed)
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
