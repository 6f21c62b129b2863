package cli

import (
	"strings"
	"testing"

	"github.com/matzehuels/provgraph/pkg/geom"
)

func plain(c *canvas) string {
	rows := make([]string, len(c.glyphs))
	for i, r := range c.glyphs {
		rows[i] = string(r)
	}
	return strings.Join(rows, "\n")
}

func TestCanvasBox(t *testing.T) {
	c := newCanvas(12, 4)
	c.box(geom.Rect{Left: 0, Top: 0, Right: 11 * cellWidth, Bottom: 2 * cellHeight}, "train", inkNormal)

	want := "┌─ train ──┐\n" +
		"│          │\n" +
		"└──────────┘\n" +
		"            "
	if got := plain(c); got != want {
		t.Errorf("box =\n%s\nwant\n%s", got, want)
	}
}

func TestCanvasSmallBoxIsMarker(t *testing.T) {
	c := newCanvas(4, 2)
	c.box(geom.Rect{Left: 8, Top: 0, Right: 12, Bottom: 4}, "x", inkNormal)
	if got := plain(c); got != " ▪  \n    " {
		t.Errorf("marker = %q", got)
	}
}

func TestCanvasLineKeepsGlyphs(t *testing.T) {
	c := newCanvas(6, 1)
	c.set(2, 0, '■', inkNormal)
	c.line([]geom.Point{{X: 0, Y: 0}, {X: 5 * cellWidth, Y: 0}}, inkDim)
	if got := plain(c); got != "··■···" {
		t.Errorf("line = %q", got)
	}
}

func TestCanvasClips(t *testing.T) {
	c := newCanvas(3, 1)
	c.set(-1, 0, 'x', inkNormal)
	c.set(3, 0, 'x', inkNormal)
	c.text(1, 0, "abcdef", 10, inkNormal)
	if got := plain(c); got != " ab" {
		t.Errorf("clipped = %q", got)
	}
}

func TestCanvasStringUnstyledRuns(t *testing.T) {
	c := newCanvas(5, 2)
	c.text(0, 1, "hello", 5, inkNone)
	if got := c.String(); got != "     \nhello" {
		t.Errorf("String() = %q", got)
	}
}
