// Package viewport owns the pan/zoom transform shared by every consumer of
// the scene.
//
// There is exactly one [State] per scene. It is mutated in place, by direct
// input or by tweens, and never replaced, so observers can hold a pointer
// and always read the current transform.
//
// Screen coordinates relate to world coordinates as
//
//	screen = world*Scale + (X, Y)
package viewport

import "github.com/matzehuels/provgraph/pkg/geom"

// State is the mutable viewport transform and screen size.
type State struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Scale  float64 `json:"scale"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NewState returns an identity transform for a screen of w×h.
func NewState(w, h float64) *State {
	return &State{Scale: 1, Width: w, Height: h}
}

// WorldToScreen maps a world point to screen space.
func (s *State) WorldToScreen(p geom.Point) geom.Point {
	return geom.Point{X: p.X*s.Scale + s.X, Y: p.Y*s.Scale + s.Y}
}

// ScreenToWorld maps a screen point to world space.
func (s *State) ScreenToWorld(p geom.Point) geom.Point {
	return geom.Point{X: (p.X - s.X) / s.Scale, Y: (p.Y - s.Y) / s.Scale}
}

// RectToScreen maps a world rectangle to screen space.
func (s *State) RectToScreen(r geom.Rect) geom.Rect {
	tl := s.WorldToScreen(geom.Point{X: r.Left, Y: r.Top})
	br := s.WorldToScreen(geom.Point{X: r.Right, Y: r.Bottom})
	return geom.Rect{Left: tl.X, Top: tl.Y, Right: br.X, Bottom: br.Y}
}

// WorldRect returns the part of world space currently on screen.
func (s *State) WorldRect() geom.Rect {
	tl := s.ScreenToWorld(geom.Point{})
	br := s.ScreenToWorld(geom.Point{X: s.Width, Y: s.Height})
	return geom.Rect{Left: tl.X, Top: tl.Y, Right: br.X, Bottom: br.Y}
}

// Snapshot returns a copy of the current values.
func (s *State) Snapshot() State { return *s }
