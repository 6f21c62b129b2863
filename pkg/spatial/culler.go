package spatial

import (
	"slices"
	"time"

	"github.com/matzehuels/provgraph/pkg/geom"
	"github.com/matzehuels/provgraph/pkg/observability"
)

// Diff is the outcome of one culling pass.
type Diff struct {
	Shown   []string // became visible, sorted
	Hidden  []string // became hidden, sorted
	Visible int      // visible after the pass
}

// Changed reports whether any object changed visibility.
func (d Diff) Changed() bool { return len(d.Shown) > 0 || len(d.Hidden) > 0 }

// Culler keeps the visible set of a [Grid] in sync with a view rectangle.
// Only objects whose visibility changes are reported, so a pass costs
// O(visible) rather than O(all).
type Culler struct {
	grid     *Grid
	margin   float64
	visible  map[string]struct{}
	onChange func(id string, visible bool)
}

// NewCuller culls grid, padding every view rectangle by margin world units.
func NewCuller(grid *Grid, margin float64) *Culler {
	return &Culler{
		grid:    grid,
		margin:  margin,
		visible: make(map[string]struct{}),
	}
}

// OnChange registers fn to be called for every visibility flip.
func (c *Culler) OnChange(fn func(id string, visible bool)) { c.onChange = fn }

// Cull updates the visible set for the world-space view rectangle.
func (c *Culler) Cull(view geom.Rect) Diff {
	start := time.Now()
	next := make(map[string]struct{}, len(c.visible))
	c.grid.QueryFunc(view.Inset(c.margin), func(id string, _ geom.Rect) bool {
		next[id] = struct{}{}
		return true
	})

	var d Diff
	for id := range c.visible {
		if _, ok := next[id]; !ok {
			d.Hidden = append(d.Hidden, id)
		}
	}
	for id := range next {
		if _, ok := c.visible[id]; !ok {
			d.Shown = append(d.Shown, id)
		}
	}
	slices.Sort(d.Hidden)
	slices.Sort(d.Shown)
	d.Visible = len(next)
	c.visible = next

	if c.onChange != nil {
		for _, id := range d.Hidden {
			c.onChange(id, false)
		}
		for _, id := range d.Shown {
			c.onChange(id, true)
		}
	}
	observability.Cull().OnCull(len(d.Shown), len(d.Hidden), d.Visible, time.Since(start))
	return d
}

// Visible reports whether id was visible after the last pass.
func (c *Culler) Visible(id string) bool {
	_, ok := c.visible[id]
	return ok
}

// VisibleIDs returns the current visible set, sorted.
func (c *Culler) VisibleIDs() []string {
	out := make([]string, 0, len(c.visible))
	for id := range c.visible {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Reset forgets the visible set without reporting changes.
func (c *Culler) Reset() {
	c.visible = make(map[string]struct{})
}
