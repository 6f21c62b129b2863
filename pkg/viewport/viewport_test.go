package viewport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/provgraph/pkg/anim"
	"github.com/matzehuels/provgraph/pkg/config"
	"github.com/matzehuels/provgraph/pkg/geom"
)

func testNodes() LocatorFunc {
	nodes := map[string]geom.Rect{
		"a": geom.RectFromCenter(geom.Point{X: 100, Y: 50}, 40, 20),
		"b": geom.RectFromCenter(geom.Point{X: 900, Y: 700}, 40, 20),
	}
	return func(id string) (geom.Rect, bool) {
		r, ok := nodes[id]
		return r, ok
	}
}

func newTestController(t *testing.T) (*Controller, *anim.Timeline) {
	t.Helper()
	cfg := config.Default().Viewport
	cfg.ResizeDebounce = 50 * time.Millisecond
	tl := anim.NewTimeline()
	return NewController(NewState(1000, 800), cfg, tl, testNodes()), tl
}

func TestStateTransforms(t *testing.T) {
	s := &State{X: 30, Y: -20, Scale: 2, Width: 400, Height: 200}

	p := geom.Point{X: 12.5, Y: -7}
	assert.InDelta(t, p.X, s.ScreenToWorld(s.WorldToScreen(p)).X, 1e-9)
	assert.InDelta(t, p.Y, s.ScreenToWorld(s.WorldToScreen(p)).Y, 1e-9)

	assert.Equal(t, geom.Rect{Left: -15, Top: 10, Right: 185, Bottom: 110}, s.WorldRect())
	assert.Equal(t, geom.Rect{Left: 30, Top: -20, Right: 50, Bottom: 0},
		s.RectToScreen(geom.Rect{Left: 0, Top: 0, Right: 10, Bottom: 10}))
}

func TestCenterOnNode(t *testing.T) {
	c, tl := newTestController(t)
	done := false

	require.NoError(t, c.CenterOnNode("a", Options{Zoom: 2, OnComplete: func() { done = true }}))
	assert.False(t, done)
	tl.Advance(c.cfg.CenterDuration)

	assert.True(t, done)
	s := c.State()
	assert.InDelta(t, 2, s.Scale, 1e-9)
	assert.InDelta(t, 300, s.X, 1e-9)
	assert.InDelta(t, 300, s.Y, 1e-9)
}

func TestCenterOnNodeWithPanel(t *testing.T) {
	c, _ := newTestController(t)
	c.PanelOpen = true

	require.NoError(t, c.CenterOnNode("a", Options{Zoom: 2, Immediate: true}))
	assert.InDelta(t, 120, c.State().X, 1e-9)
}

func TestCenterOnNodeUnknown(t *testing.T) {
	c, tl := newTestController(t)
	assert.ErrorIs(t, c.CenterOnNode("zzz", Options{}), ErrUnknownNode)
	assert.Equal(t, 0, tl.Active())
}

func TestCenterSupersedesInFlight(t *testing.T) {
	c, tl := newTestController(t)
	var completed []string

	require.NoError(t, c.CenterOnNode("a", Options{OnComplete: func() { completed = append(completed, "a") }}))
	tl.Advance(c.cfg.CenterDuration / 2)
	require.NoError(t, c.CenterOnNode("b", Options{OnComplete: func() { completed = append(completed, "b") }}))
	assert.Equal(t, 1, tl.Active())
	tl.Advance(c.cfg.CenterDuration)

	assert.Equal(t, []string{"b"}, completed)
	assert.InDelta(t, 500-900, c.State().X, 1e-9)
	assert.InDelta(t, 400-700, c.State().Y, 1e-9)
}

func TestZoomToBounds(t *testing.T) {
	c, _ := newTestController(t)
	content := geom.Rect{Left: 0, Top: 0, Right: 2000, Bottom: 340}

	require.NoError(t, c.ZoomToBounds(content, "", Options{Immediate: true}))
	s := c.State()
	assert.InDelta(t, 0.5, s.Scale, 1e-9)
	assert.InDelta(t, 0, s.X, 1e-9)
	assert.InDelta(t, 335, s.Y, 1e-9)

	require.NoError(t, c.ZoomToBounds(content, "a", Options{Immediate: true}))
	assert.InDelta(t, 500-100*0.5, s.X, 1e-9)
	assert.InDelta(t, 420-50*0.5, s.Y, 1e-9)

	assert.ErrorIs(t, c.ZoomToBounds(content, "zzz", Options{}), ErrUnknownNode)
}

func TestZoomToBoundsClamps(t *testing.T) {
	c, _ := newTestController(t)

	require.NoError(t, c.ZoomToBounds(geom.RectXYWH(0, 0, 10, 10), "", Options{Immediate: true}))
	assert.Equal(t, c.cfg.MaxZoom, c.State().Scale)

	require.NoError(t, c.ZoomToBounds(geom.RectXYWH(0, 0, 1e7, 1e7), "", Options{Immediate: true}))
	assert.Equal(t, c.cfg.MinZoom, c.State().Scale)
}

func TestPanCancelsAnimation(t *testing.T) {
	c, tl := newTestController(t)
	require.NoError(t, c.CenterOnNode("b", Options{}))
	require.True(t, tl.Busy(Owner))

	c.Pan(10, -5)
	assert.False(t, tl.Busy(Owner))
	assert.Equal(t, 10.0, c.State().X)
	assert.Equal(t, -5.0, c.State().Y)
}

func TestZoomAtKeepsAnchor(t *testing.T) {
	c, _ := newTestController(t)
	c.Pan(40, 25)
	anchor := geom.Point{X: 200, Y: 100}
	before := c.State().ScreenToWorld(anchor)

	scale := c.ZoomAt(1.5, anchor.X, anchor.Y)
	assert.InDelta(t, 1.5, scale, 1e-9)
	after := c.State().ScreenToWorld(anchor)
	assert.InDelta(t, before.X, after.X, 1e-9)
	assert.InDelta(t, before.Y, after.Y, 1e-9)

	assert.Equal(t, c.cfg.MaxZoom, c.ZoomAt(1000, 0, 0))
}

func TestResizeDebounced(t *testing.T) {
	c, _ := newTestController(t)
	calls := make(chan func(), 4)
	c.SetDispatcher(func(f func()) { calls <- f })
	c.PanelOpen = true
	c.Selected = "a"
	resized := 0
	c.OnResize = func() { resized++ }

	c.Resize(600, 400)
	c.Resize(700, 500)
	c.Resize(1200, 900)

	select {
	case f := <-calls:
		f()
	case <-time.After(2 * time.Second):
		t.Fatal("resize was never applied")
	}
	select {
	case <-calls:
		t.Fatal("resize applied more than once")
	case <-time.After(200 * time.Millisecond):
	}

	s := c.State()
	assert.Equal(t, 1200.0, s.Width)
	assert.Equal(t, 900.0, s.Height)
	assert.Equal(t, 1, resized)
	// Re-centered on the selection with the panel reserved.
	assert.InDelta(t, (1200-c.cfg.PanelWidth)/2-100, s.X, 1e-9)
	assert.InDelta(t, 450-50, s.Y, 1e-9)
}
