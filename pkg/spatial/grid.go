// Package spatial provides a uniform-grid spatial hash over axis-aligned
// bounding boxes and a culler that diffs visibility between passes.
//
// Each object is registered in every cell its box overlaps, so a range query
// touches only the cells under the query rectangle. Query cost is bounded by
// cell occupancy, not by the total number of objects.
package spatial

import (
	"errors"
	"math"
	"slices"

	"github.com/matzehuels/provgraph/pkg/geom"
)

var (
	// ErrEmptyID is returned when inserting an object without an id.
	ErrEmptyID = errors.New("spatial: empty id")

	// ErrInvalidBounds is returned for boxes with NaN or inverted edges.
	ErrInvalidBounds = errors.New("spatial: invalid bounds")
)

type cell struct{ x, y int }

type entry struct {
	bounds geom.Rect
	cells  []cell
}

// Grid is a uniform spatial hash. The zero value is not usable; call [NewGrid].
// Grid is not safe for concurrent use.
type Grid struct {
	size  float64
	items map[string]*entry
	cells map[cell]map[string]struct{}
}

// NewGrid creates a grid with square cells of the given size.
// Non-positive sizes fall back to 512.
func NewGrid(cellSize float64) *Grid {
	if cellSize <= 0 || math.IsNaN(cellSize) {
		cellSize = 512
	}
	return &Grid{
		size:  cellSize,
		items: make(map[string]*entry),
		cells: make(map[cell]map[string]struct{}),
	}
}

// CellSize returns the edge length of a cell.
func (g *Grid) CellSize() float64 { return g.size }

// Len returns the number of objects in the grid.
func (g *Grid) Len() int { return len(g.items) }

// Insert adds id with bounds b, replacing any previous bounds for id.
func (g *Grid) Insert(id string, b geom.Rect) error {
	if id == "" {
		return ErrEmptyID
	}
	if !valid(b) {
		return ErrInvalidBounds
	}
	g.Remove(id)

	e := &entry{bounds: b}
	g.span(b, func(c cell) {
		set, ok := g.cells[c]
		if !ok {
			set = make(map[string]struct{})
			g.cells[c] = set
		}
		set[id] = struct{}{}
		e.cells = append(e.cells, c)
	})
	g.items[id] = e
	return nil
}

// Remove deletes id and reports whether it was present.
func (g *Grid) Remove(id string) bool {
	e, ok := g.items[id]
	if !ok {
		return false
	}
	for _, c := range e.cells {
		set := g.cells[c]
		delete(set, id)
		if len(set) == 0 {
			delete(g.cells, c)
		}
	}
	delete(g.items, id)
	return true
}

// Bounds returns the registered bounds of id.
func (g *Grid) Bounds(id string) (geom.Rect, bool) {
	e, ok := g.items[id]
	if !ok {
		return geom.Rect{}, false
	}
	return e.bounds, true
}

// Query returns the ids of all objects whose bounds intersect r, sorted.
func (g *Grid) Query(r geom.Rect) []string {
	var out []string
	g.QueryFunc(r, func(id string, _ geom.Rect) bool {
		out = append(out, id)
		return true
	})
	slices.Sort(out)
	return out
}

// QueryFunc calls fn once per object intersecting r, in no particular
// order, until fn returns false.
func (g *Grid) QueryFunc(r geom.Rect, fn func(id string, b geom.Rect) bool) {
	if !valid(r) {
		return
	}
	seen := make(map[string]struct{})
	stop := false
	g.spanOccupied(r, func(c cell) {
		if stop {
			return
		}
		for id := range g.cells[c] {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			b := g.items[id].bounds
			if !b.Intersects(r) {
				continue
			}
			if !fn(id, b) {
				stop = true
				return
			}
		}
	})
}

// span visits every cell overlapped by r.
func (g *Grid) span(r geom.Rect, fn func(cell)) {
	x0, x1 := g.index(r.Left), g.index(r.Right)
	y0, y1 := g.index(r.Top), g.index(r.Bottom)
	for x := x0; x <= x1; x++ {
		for y := y0; y <= y1; y++ {
			fn(cell{x, y})
		}
	}
}

// spanOccupied is span restricted to non-empty cells. When r covers far
// more cells than are occupied it walks the occupied set instead.
func (g *Grid) spanOccupied(r geom.Rect, fn func(cell)) {
	fx0, fx1 := math.Floor(r.Left/g.size), math.Floor(r.Right/g.size)
	fy0, fy1 := math.Floor(r.Top/g.size), math.Floor(r.Bottom/g.size)
	if (fx1-fx0+1)*(fy1-fy0+1) <= float64(4*len(g.cells)+16) {
		g.span(r, func(c cell) {
			if _, ok := g.cells[c]; ok {
				fn(c)
			}
		})
		return
	}
	for c := range g.cells {
		x, y := float64(c.x), float64(c.y)
		if x >= fx0 && x <= fx1 && y >= fy0 && y <= fy1 {
			fn(c)
		}
	}
}

func (g *Grid) index(v float64) int {
	return int(math.Floor(v / g.size))
}

func valid(r geom.Rect) bool {
	for _, v := range []float64{r.Left, r.Right, r.Top, r.Bottom} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return r.Left <= r.Right && r.Top <= r.Bottom
}
