package cli

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/provgraph/pkg/geom"
)

// Screen pixels per terminal cell.
const (
	cellWidth  = 8
	cellHeight = 16
)

// ink selects the style of a canvas cell.
type ink uint8

const (
	inkNone ink = iota
	inkDim
	inkNormal
	inkAccent
	inkSelected
	inkWarning
)

var inkStyles = map[ink]lipgloss.Style{
	inkNone:     lipgloss.NewStyle(),
	inkDim:      lipgloss.NewStyle().Foreground(colorDim),
	inkNormal:   lipgloss.NewStyle().Foreground(colorWhite),
	inkAccent:   lipgloss.NewStyle().Foreground(colorCyan),
	inkSelected: lipgloss.NewStyle().Bold(true).Foreground(colorGreen),
	inkWarning:  lipgloss.NewStyle().Foreground(colorYellow),
}

// canvas is a character grid that screen-space frames are drawn onto.
type canvas struct {
	cols, rows int
	glyphs     [][]rune
	inks       [][]ink
}

func newCanvas(cols, rows int) *canvas {
	c := &canvas{cols: max(cols, 0), rows: max(rows, 0)}
	c.glyphs = make([][]rune, c.rows)
	c.inks = make([][]ink, c.rows)
	for r := range c.glyphs {
		c.glyphs[r] = []rune(strings.Repeat(" ", c.cols))
		c.inks[r] = make([]ink, c.cols)
	}
	return c
}

// cell maps a screen point to a cell.
func cell(p geom.Point) (col, row int) {
	return int(math.Floor(p.X / cellWidth)), int(math.Floor(p.Y / cellHeight))
}

func (c *canvas) set(col, row int, g rune, k ink) {
	if col < 0 || row < 0 || col >= c.cols || row >= c.rows {
		return
	}
	c.glyphs[row][col] = g
	c.inks[row][col] = k
}

// text writes s starting at (col, row), clipped to limit cells.
func (c *canvas) text(col, row int, s string, limit int, k ink) {
	for i, g := range []rune(s) {
		if i >= limit {
			return
		}
		c.set(col+i, row, g, k)
	}
}

// line plots a dotted polyline without overwriting non-blank cells.
func (c *canvas) line(pts []geom.Point, k ink) {
	for i := 1; i < len(pts); i++ {
		c0, r0 := cell(pts[i-1])
		c1, r1 := cell(pts[i])
		steps := max(abs(c1-c0), abs(r1-r0))
		for s := 0; s <= steps; s++ {
			t := 0.0
			if steps > 0 {
				t = float64(s) / float64(steps)
			}
			col := c0 + int(math.Round(float64(c1-c0)*t))
			row := r0 + int(math.Round(float64(r1-r0)*t))
			if col >= 0 && row >= 0 && col < c.cols && row < c.rows && c.glyphs[row][col] == ' ' {
				c.set(col, row, '·', k)
			}
		}
	}
}

// box outlines r with label on its top border. Rects smaller than two cells
// collapse to a marker.
func (c *canvas) box(r geom.Rect, label string, k ink) {
	c0, r0 := cell(geom.Point{X: r.Left, Y: r.Top})
	c1, r1 := cell(geom.Point{X: r.Right, Y: r.Bottom})
	if c1-c0 < 2 || r1-r0 < 1 {
		c.set(c0, r0, '▪', k)
		return
	}
	for col := c0 + 1; col < c1; col++ {
		c.set(col, r0, '─', k)
		c.set(col, r1, '─', k)
	}
	for row := r0 + 1; row < r1; row++ {
		c.set(c0, row, '│', k)
		c.set(c1, row, '│', k)
	}
	c.set(c0, r0, '┌', k)
	c.set(c1, r0, '┐', k)
	c.set(c0, r1, '└', k)
	c.set(c1, r1, '┘', k)
	if label != "" {
		c.text(c0+2, r0, " "+label+" ", c1-c0-3, k)
	}
}

// String renders the grid, styling runs of equal ink together.
func (c *canvas) String() string {
	var b strings.Builder
	for r := range c.glyphs {
		if r > 0 {
			b.WriteByte('\n')
		}
		start := 0
		for col := 1; col <= c.cols; col++ {
			if col < c.cols && c.inks[r][col] == c.inks[r][start] {
				continue
			}
			run := string(c.glyphs[r][start:col])
			if k := c.inks[r][start]; k == inkNone {
				b.WriteString(run)
			} else {
				b.WriteString(inkStyles[k].Render(run))
			}
			start = col
		}
	}
	return b.String()
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
