package compose

import (
	"github.com/matzehuels/provgraph/pkg/config"
	"github.com/matzehuels/provgraph/pkg/geom"
	"github.com/matzehuels/provgraph/pkg/graph"
)

// Connector is the drawn link between a parent and a related workflow.
type Connector struct {
	Parent      string       `json:"parent"`
	Child       string       `json:"child"`
	BranchPoint string       `json:"branch_point"`
	Step        string       `json:"step,omitempty"`
	Color       string       `json:"color"`
	Points      []geom.Point `json:"points"`
}

// From returns the first point.
func (c Connector) From() geom.Point { return c.Points[0] }

// To returns the last point.
func (c Connector) To() geom.Point { return c.Points[len(c.Points)-1] }

// AnchorX returns the x where connectors leave step in g: the first action
// node of the step, else its first positioned node.
func AnchorX(g *graph.Graph, step string) (float64, bool) {
	var fallback *graph.Node
	for _, n := range g.Nodes {
		if !n.Positioned || n.Step != step {
			continue
		}
		if n.Kind == graph.KindAction {
			return n.X, true
		}
		if fallback == nil {
			fallback = n
		}
	}
	if fallback == nil {
		return 0, false
	}
	return fallback.X, true
}

// ConnectorFor computes the vertical connector between parent and child at
// the anchor of the branch point's step. It runs from the bottom edge of the
// upper workflow's lowest node to the top edge of the lower workflow's
// highest node, raised by labelReserve. It reports false when the branch
// point or either workflow's extent is missing.
func ConnectorFor(parent, child *Workflow, labelReserve float64, theme config.Theme) (Connector, bool) {
	bp, ok := parent.Graph.Node(child.BranchPoint)
	if !ok || !bp.Positioned {
		return Connector{}, false
	}
	x := bp.X
	if bp.Step != "" {
		if ax, ok := AnchorX(parent.Graph, bp.Step); ok {
			x = ax
		}
	}

	ub, ok1 := Extent(parent)
	lb, ok2 := Extent(child)
	if !ok1 || !ok2 {
		return Connector{}, false
	}
	if lb.Top < ub.Top {
		ub, lb = lb, ub
	}

	color := theme.EdgeColor
	phase := bp.Phase
	if s, ok := parent.Graph.Step(bp.Step); ok && s.Phase != "" {
		phase = s.Phase
	}
	if c, ok := theme.PhaseColor(phase); ok {
		color = c
	}

	return Connector{
		Parent:      parent.ID,
		Child:       child.ID,
		BranchPoint: bp.ID,
		Step:        bp.Step,
		Color:       color,
		Points: []geom.Point{
			{X: x, Y: ub.Bottom},
			{X: x, Y: lb.Top - labelReserve},
		},
	}, true
}
