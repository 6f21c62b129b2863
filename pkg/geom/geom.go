// Package geom provides the 2D primitives shared by layout, spatial indexing,
// viewport math and rendering.
//
// World space uses a y-down convention: Y grows towards the bottom of the
// screen, so a rectangle's Top is numerically smaller than its Bottom.
package geom

import "math"

// Point is a position in world or screen space.
type Point struct {
	X, Y float64
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns the vector from q to p.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

// Rect is an axis-aligned bounding box.
// All coordinates are in user units (world units or screen pixels).
type Rect struct {
	Left, Right float64
	Top, Bottom float64
}

// RectFromCenter builds a rectangle of size w×h centered on c.
func RectFromCenter(c Point, w, h float64) Rect {
	return Rect{Left: c.X - w/2, Right: c.X + w/2, Top: c.Y - h/2, Bottom: c.Y + h/2}
}

// RectXYWH builds a rectangle from its top-left corner and size.
func RectXYWH(x, y, w, h float64) Rect {
	return Rect{Left: x, Right: x + w, Top: y, Bottom: y + h}
}

// Width returns the horizontal span of the rectangle.
func (r Rect) Width() float64 { return r.Right - r.Left }

// Height returns the vertical span of the rectangle.
func (r Rect) Height() float64 { return r.Bottom - r.Top }

// CenterX returns the horizontal center point of the rectangle.
func (r Rect) CenterX() float64 { return (r.Left + r.Right) / 2 }

// CenterY returns the vertical center point of the rectangle.
func (r Rect) CenterY() float64 { return (r.Top + r.Bottom) / 2 }

// Center returns the center point of the rectangle.
func (r Rect) Center() Point { return Point{r.CenterX(), r.CenterY()} }

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool { return r.Right <= r.Left || r.Bottom <= r.Top }

// Intersects reports whether r and o overlap. Touching edges count as
// overlapping so that zero-width boxes on a cell border are still found.
func (r Rect) Intersects(o Rect) bool {
	return r.Left <= o.Right && o.Left <= r.Right && r.Top <= o.Bottom && o.Top <= r.Bottom
}

// Contains reports whether p lies inside r (inclusive).
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left && p.X <= r.Right && p.Y >= r.Top && p.Y <= r.Bottom
}

// Union returns the smallest rectangle covering r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		Left:   math.Min(r.Left, o.Left),
		Right:  math.Max(r.Right, o.Right),
		Top:    math.Min(r.Top, o.Top),
		Bottom: math.Max(r.Bottom, o.Bottom),
	}
}

// Inset grows r by d on every side (shrinks for negative d).
func (r Rect) Inset(d float64) Rect {
	return Rect{Left: r.Left - d, Right: r.Right + d, Top: r.Top - d, Bottom: r.Bottom + d}
}

// Translate returns r moved by (dx, dy).
func (r Rect) Translate(dx, dy float64) Rect {
	return Rect{Left: r.Left + dx, Right: r.Right + dx, Top: r.Top + dy, Bottom: r.Bottom + dy}
}

// Bounds returns the union of all rects and false when rs is empty.
func Bounds(rs []Rect) (Rect, bool) {
	if len(rs) == 0 {
		return Rect{}, false
	}
	out := rs[0]
	for _, r := range rs[1:] {
		out = out.Union(r)
	}
	return out, true
}
