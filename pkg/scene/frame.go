package scene

import (
	"github.com/matzehuels/provgraph/pkg/compose"
	"github.com/matzehuels/provgraph/pkg/geom"
	"github.com/matzehuels/provgraph/pkg/graph"
	"github.com/matzehuels/provgraph/pkg/lod"
	"github.com/matzehuels/provgraph/pkg/selection"
	"github.com/matzehuels/provgraph/pkg/viewport"
)

// Frame is everything a renderer needs to draw the current view, in screen
// coordinates. Only the active level's visible items are included.
type Frame struct {
	Session    string           `json:"session"`
	Viewport   viewport.State   `json:"viewport"`
	LOD        lod.Status       `json:"lod"`
	Alpha      float64          `json:"alpha"`
	Selection  selection.Record `json:"selection"`
	Nodes      []NodeFrame      `json:"nodes,omitempty"`
	Edges      []EdgeFrame      `json:"edges,omitempty"`
	Steps      []StepFrame      `json:"steps,omitempty"`
	Cards      []CardFrame      `json:"cards,omitempty"`
	Connectors []EdgeFrame      `json:"connectors,omitempty"`
}

// NodeFrame is one visible node. Key is the workflow-scoped node key.
type NodeFrame struct {
	ID       string          `json:"id"`
	Key      string          `json:"key"`
	Workflow string          `json:"workflow"`
	Kind     graph.Kind      `json:"kind"`
	Text     []string        `json:"text"`
	Shape    string          `json:"shape"`
	Fill     string          `json:"fill"`
	Stroke   string          `json:"stroke"`
	Screen   geom.Rect       `json:"screen"`
	Flags    selection.Flags `json:"flags"`
	Hovered  bool            `json:"hovered,omitempty"`
}

// EdgeFrame is one visible edge or connector polyline.
type EdgeFrame struct {
	ID     string       `json:"id"`
	Points []geom.Point `json:"points"`
	Dashed bool         `json:"dashed,omitempty"`
	Color  string       `json:"color"`
}

// StepFrame is one visible overview step summary.
type StepFrame struct {
	Summary
	Screen geom.Rect `json:"screen"`
}

// CardFrame is one visible workflow card.
type CardFrame struct {
	compose.Card
	Screen geom.Rect `json:"screen"`
}

// Frame returns the current view.
func (s *Scene) Frame() Frame {
	lv := s.levels.Level()
	f := Frame{
		Session:   s.ID.String(),
		Viewport:  s.view.Snapshot(),
		LOD:       s.levels.Status(s.view.Scale),
		Alpha:     s.levels.Alpha(lv),
		Selection: s.sel.Record(),
	}
	visible := s.cullers[lv]

	switch lv {
	case lod.WorkflowDetail:
		for _, k := range s.order {
			if !visible.Visible(k) {
				continue
			}
			v := s.nodes[k]
			f.Nodes = append(f.Nodes, NodeFrame{
				ID:       v.ID,
				Key:      k,
				Workflow: v.Node.Workflow,
				Kind:     v.Node.Kind,
				Text:     v.Text(f.LOD.TextMode),
				Shape:    string(v.Shape),
				Fill:     v.Fill,
				Stroke:   v.Stroke,
				Screen:   s.view.RectToScreen(v.Bounds()),
				Flags:    s.sel.Flags(k),
				Hovered:  k == s.hover,
			})
		}
		for _, w := range s.comp.Workflows() {
			for _, e := range w.Graph.VisibleEdges(s.showAll) {
				sk, tk := graph.Key(w.ID, e.Source), graph.Key(w.ID, e.Target)
				if !visible.Visible(sk) && !visible.Visible(tk) {
					continue
				}
				src, ok1 := s.nodes[sk]
				dst, ok2 := s.nodes[tk]
				if !ok1 || !ok2 {
					continue
				}
				ev := s.builder.Edge(e, src, dst)
				f.Edges = append(f.Edges, EdgeFrame{ID: e.ID, Points: s.toScreen(ev.Points), Dashed: ev.Dashed, Color: ev.Color})
			}
		}
		f.Connectors = s.connectorFrames(s.comp.Connectors)

	case lod.WorkflowOverview:
		for _, sm := range s.summaries {
			if visible.Visible(sm.ID) {
				f.Steps = append(f.Steps, StepFrame{Summary: sm, Screen: s.view.RectToScreen(sm.Bounds)})
			}
		}
		f.Connectors = s.connectorFrames(s.comp.Connectors)

	case lod.ContentSession:
		for _, c := range s.cards {
			if visible.Visible(c.Workflow) {
				f.Cards = append(f.Cards, CardFrame{Card: c, Screen: s.view.RectToScreen(c.Bounds)})
			}
		}
		f.Connectors = s.connectorFrames(s.cardLinks)
	}
	return f
}

func (s *Scene) toScreen(pts []geom.Point) []geom.Point {
	out := make([]geom.Point, len(pts))
	for i, p := range pts {
		out[i] = s.view.WorldToScreen(p)
	}
	return out
}

func (s *Scene) connectorFrames(conns []compose.Connector) []EdgeFrame {
	out := make([]EdgeFrame, 0, len(conns))
	for _, c := range conns {
		out = append(out, EdgeFrame{ID: c.Parent + "=>" + c.Child, Points: s.toScreen(c.Points), Color: c.Color})
	}
	return out
}
