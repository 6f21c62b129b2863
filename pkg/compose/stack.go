package compose

import (
	"github.com/matzehuels/provgraph/pkg/geom"
	"github.com/matzehuels/provgraph/pkg/manifest"
)

// Extent returns the world bounds of w's node visuals, or of its positioned
// node centers before visuals exist.
func Extent(w *Workflow) (geom.Rect, bool) {
	var rs []geom.Rect
	if w.Populated() {
		for _, v := range w.Visuals() {
			rs = append(rs, v.Bounds())
		}
	} else {
		for _, n := range w.Graph.Nodes {
			if n.Positioned {
				rs = append(rs, geom.Rect{Left: n.X, Right: n.X, Top: n.Y, Bottom: n.Y})
			}
		}
	}
	return geom.Bounds(rs)
}

// Stack offsets every related workflow vertically, spacing apart: ancestors
// stack upward above main, children and replays downward below it, each in
// registration order. The applied offset is stored in YOffset.
func Stack(reg *Registry, spacing float64) error {
	main, ok := reg.Main()
	if !ok {
		return ErrUnknownWorkflow
	}
	mb, ok := Extent(main)
	if !ok {
		mb = geom.Rect{}
	}
	above, below := mb.Top, mb.Bottom

	for _, w := range reg.Workflows() {
		if w == main {
			continue
		}
		b, ok := Extent(w)
		if !ok {
			continue
		}
		var dy float64
		if w.Relationship == manifest.RelAncestor {
			dy = above - spacing - b.Bottom
			above = b.Top + dy
		} else {
			dy = below + spacing - b.Top
			below = b.Bottom + dy
		}
		if dy != 0 {
			w.Graph.Translate(0, dy)
		}
		w.YOffset += dy
	}
	return nil
}
