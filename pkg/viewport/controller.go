package viewport

import (
	"errors"
	"math"
	"sync"

	"github.com/bep/debounce"

	"github.com/matzehuels/provgraph/pkg/anim"
	"github.com/matzehuels/provgraph/pkg/config"
	"github.com/matzehuels/provgraph/pkg/geom"
)

// Owner is the tween owner used for viewport animations.
const Owner = "viewport"

// ErrUnknownNode is returned when centering on a node without bounds.
var ErrUnknownNode = errors.New("viewport: unknown node")

// Locator resolves a node id to its world bounds.
type Locator interface {
	NodeBounds(id string) (geom.Rect, bool)
}

// LocatorFunc adapts a function to [Locator].
type LocatorFunc func(id string) (geom.Rect, bool)

func (f LocatorFunc) NodeBounds(id string) (geom.Rect, bool) { return f(id) }

// Options tune a centering animation.
type Options struct {
	// Zoom is the target scale; zero keeps the current scale.
	Zoom float64
	// Immediate skips the animation.
	Immediate  bool
	OnComplete func()
}

// Controller drives the shared [State]: centering, fitting, direct pan and
// zoom input, and debounced resize handling.
type Controller struct {
	state   *State
	cfg     config.Viewport
	sched   anim.Scheduler
	locator Locator

	// PanelOpen reserves PanelWidth on the right of the screen.
	PanelOpen bool
	// Selected is re-centered after a resize while the panel is open.
	Selected string
	// OnUpdate runs after every state mutation, including tween frames.
	OnUpdate func()
	// OnResize runs after a debounced resize has been applied.
	OnResize func()

	mu        sync.Mutex
	pendingW  float64
	pendingH  float64
	debounced func(f func())
	dispatch  func(f func())
}

// NewController returns a controller for state.
func NewController(state *State, cfg config.Viewport, sched anim.Scheduler, loc Locator) *Controller {
	return &Controller{
		state:     state,
		cfg:       cfg,
		sched:     sched,
		locator:   loc,
		debounced: debounce.New(cfg.ResizeDebounce),
		dispatch:  func(f func()) { f() },
	}
}

// SetDispatcher routes debounced callbacks through dispatch, typically to
// hop back onto the host's event loop.
func (c *Controller) SetDispatcher(dispatch func(f func())) {
	if dispatch != nil {
		c.dispatch = dispatch
	}
}

// State returns the shared state.
func (c *Controller) State() *State { return c.state }

// ClampScale limits s to the configured zoom range.
func (c *Controller) ClampScale(s float64) float64 {
	return math.Max(c.cfg.MinZoom, math.Min(c.cfg.MaxZoom, s))
}

// focus returns the screen point that centering aims at. With margins the
// point is the middle of the area between the top and bottom margins.
func (c *Controller) focus(margins bool) geom.Point {
	w := c.state.Width
	if c.PanelOpen {
		w = math.Max(0, w-c.cfg.PanelWidth)
	}
	if !margins {
		return geom.Point{X: w / 2, Y: c.state.Height / 2}
	}
	avail := math.Max(0, c.state.Height-c.cfg.MarginTop-c.cfg.MarginBottom)
	return geom.Point{X: w / 2, Y: c.cfg.MarginTop + avail/2}
}

// CenterOnNode animates the viewport so the node's center lands on the
// screen focus point. Any in-flight viewport animation is cancelled first.
func (c *Controller) CenterOnNode(id string, opts Options) error {
	b, ok := c.locator.NodeBounds(id)
	if !ok {
		return ErrUnknownNode
	}
	c.CenterOn(b.Center(), opts)
	return nil
}

// CenterOn animates the viewport so world point p lands on the focus point.
func (c *Controller) CenterOn(p geom.Point, opts Options) {
	scale := c.state.Scale
	if opts.Zoom > 0 {
		scale = c.ClampScale(opts.Zoom)
	}
	c.animateTo(p, scale, c.focus(false), opts)
}

// ZoomToBounds fits content into the screen area between the margins,
// clamped to the zoom range. When focus names a node, that node is
// centered at the fitted scale; otherwise content is centered.
func (c *Controller) ZoomToBounds(content geom.Rect, focus string, opts Options) error {
	target := content.Center()
	if focus != "" {
		b, ok := c.locator.NodeBounds(focus)
		if !ok {
			return ErrUnknownNode
		}
		target = b.Center()
	}
	c.animateTo(target, c.FitScale(content), c.focus(true), opts)
	return nil
}

// FitScale returns the scale that fits content into the area between the
// margins. Degenerate content keeps the current scale.
func (c *Controller) FitScale(content geom.Rect) float64 {
	w := c.state.Width
	if c.PanelOpen {
		w -= c.cfg.PanelWidth
	}
	h := c.state.Height - c.cfg.MarginTop - c.cfg.MarginBottom
	if content.Width() <= 0 || content.Height() <= 0 || w <= 0 || h <= 0 {
		return c.state.Scale
	}
	return c.ClampScale(math.Min(w/content.Width(), h/content.Height()))
}

func (c *Controller) animateTo(world geom.Point, scale float64, screen geom.Point, opts Options) {
	from := c.state.Snapshot()
	toX := screen.X - world.X*scale
	toY := screen.Y - world.Y*scale

	duration := c.cfg.CenterDuration
	if opts.Immediate {
		duration = 0
	}
	c.sched.Animate(anim.Tween{
		Owner:    Owner,
		Duration: duration,
		Ease:     anim.EaseInOutCubic,
		Step: func(t float64) {
			c.state.X = anim.Lerp(from.X, toX, t)
			c.state.Y = anim.Lerp(from.Y, toY, t)
			c.state.Scale = anim.Lerp(from.Scale, scale, t)
			c.updated()
		},
		Done: opts.OnComplete,
	})
}

// Pan moves the view by (dx, dy) screen pixels, cancelling any animation.
func (c *Controller) Pan(dx, dy float64) {
	c.sched.CancelOwner(Owner)
	c.state.X += dx
	c.state.Y += dy
	c.updated()
}

// ZoomAt multiplies the scale by factor keeping screen point (sx, sy)
// fixed, cancelling any animation. It returns the resulting scale.
func (c *Controller) ZoomAt(factor, sx, sy float64) float64 {
	c.sched.CancelOwner(Owner)
	anchor := c.state.ScreenToWorld(geom.Point{X: sx, Y: sy})
	c.state.Scale = c.ClampScale(c.state.Scale * factor)
	c.state.X = sx - anchor.X*c.state.Scale
	c.state.Y = sy - anchor.Y*c.state.Scale
	c.updated()
	return c.state.Scale
}

// Resize records a new container size and applies it after the debounce
// interval. Bursts of resizes apply once, with the last size.
func (c *Controller) Resize(w, h float64) {
	c.mu.Lock()
	c.pendingW, c.pendingH = w, h
	c.mu.Unlock()
	c.debounced(func() { c.dispatch(c.applyResize) })
}

func (c *Controller) applyResize() {
	c.mu.Lock()
	w, h := c.pendingW, c.pendingH
	c.mu.Unlock()

	c.state.Width, c.state.Height = w, h
	if c.PanelOpen && c.Selected != "" {
		_ = c.CenterOnNode(c.Selected, Options{Immediate: true})
	}
	c.updated()
	if c.OnResize != nil {
		c.OnResize()
	}
}

func (c *Controller) updated() {
	if c.OnUpdate != nil {
		c.OnUpdate()
	}
}
