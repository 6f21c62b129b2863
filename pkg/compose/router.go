package compose

import (
	"container/heap"
	"math"

	"github.com/matzehuels/provgraph/pkg/geom"
)

const (
	// bendCost is the extra cost of a turn, in cells.
	bendCost = 2
	// maxRouteCells bounds the routing grid; the cell grows to fit.
	maxRouteCells = 250_000
)

type gridPt struct{ c, r int }

var steps = [4]gridPt{{1, 0}, {0, 1}, {-1, 0}, {0, -1}}

type routeState struct {
	p   gridPt
	dir int // index into steps, 4 before the first move
}

type routeItem struct {
	s     routeState
	g, f  float64
	seq   int
	index int
}

type routeQueue []*routeItem

func (q routeQueue) Len() int { return len(q) }
func (q routeQueue) Less(i, j int) bool {
	if q[i].f != q[j].f {
		return q[i].f < q[j].f
	}
	return q[i].seq < q[j].seq
}
func (q routeQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index, q[j].index = i, j
}
func (q *routeQueue) Push(x any) {
	it := x.(*routeItem)
	it.index = len(*q)
	*q = append(*q, it)
}
func (q *routeQueue) Pop() any {
	old := *q
	it := old[len(old)-1]
	old[len(old)-1] = nil
	*q = old[:len(old)-1]
	return it
}

// Route finds an orthogonal polyline from from to to that avoids the
// interiors of obstacles, using A* over a grid of the given cell size with a
// penalty per bend. When no path exists it falls back to a three-segment
// elbow through the vertical midpoint.
func Route(from, to geom.Point, obstacles []geom.Rect, cell float64) []geom.Point {
	if cell <= 0 {
		cell = 16
	}
	area := geom.Rect{Left: from.X, Right: from.X, Top: from.Y, Bottom: from.Y}
	area = area.Union(geom.Rect{Left: to.X, Right: to.X, Top: to.Y, Bottom: to.Y})
	for _, o := range obstacles {
		area = area.Union(o)
	}
	area = area.Inset(2 * cell)
	for (area.Width()/cell+2)*(area.Height()/cell+2) > maxRouteCells {
		cell *= 2
	}

	// Align the grid on from so the path starts exactly there.
	ox := from.X - math.Ceil((from.X-area.Left)/cell)*cell
	oy := from.Y - math.Ceil((from.Y-area.Top)/cell)*cell
	cols := int(math.Ceil((area.Right-ox)/cell)) + 1
	rows := int(math.Ceil((area.Bottom-oy)/cell)) + 1

	snap := func(p geom.Point) gridPt {
		return gridPt{int(math.Round((p.X - ox) / cell)), int(math.Round((p.Y - oy) / cell))}
	}
	start, goal := snap(from), snap(to)
	// Relative to from so that points sharing its row or column match it exactly.
	at := func(p gridPt) geom.Point {
		return geom.Point{X: from.X + float64(p.c-start.c)*cell, Y: from.Y + float64(p.r-start.r)*cell}
	}

	blocked := func(p gridPt) bool {
		if p == start || p == goal {
			return false
		}
		pt := at(p)
		for _, o := range obstacles {
			if pt.X > o.Left && pt.X < o.Right && pt.Y > o.Top && pt.Y < o.Bottom {
				return true
			}
		}
		return false
	}
	h := func(p gridPt) float64 { return math.Abs(float64(p.c-goal.c)) + math.Abs(float64(p.r-goal.r)) }

	best := map[routeState]float64{}
	prev := map[routeState]routeState{}
	blockedMemo := map[gridPt]bool{}
	isBlocked := func(p gridPt) bool {
		b, ok := blockedMemo[p]
		if !ok {
			b = blocked(p)
			blockedMemo[p] = b
		}
		return b
	}

	q := &routeQueue{}
	seq := 0
	first := routeState{p: start, dir: 4}
	best[first] = 0
	heap.Push(q, &routeItem{s: first, f: h(start)})

	var end *routeState
	for q.Len() > 0 {
		it := heap.Pop(q).(*routeItem)
		if it.g > best[it.s] {
			continue
		}
		if it.s.p == goal {
			s := it.s
			end = &s
			break
		}
		for d, st := range steps {
			np := gridPt{it.s.p.c + st.c, it.s.p.r + st.r}
			if np.c < 0 || np.r < 0 || np.c >= cols || np.r >= rows || isBlocked(np) {
				continue
			}
			g := it.g + 1
			if it.s.dir != 4 && it.s.dir != d {
				g += bendCost
			}
			ns := routeState{p: np, dir: d}
			if old, ok := best[ns]; ok && old <= g {
				continue
			}
			best[ns] = g
			prev[ns] = it.s
			seq++
			heap.Push(q, &routeItem{s: ns, g: g, f: g + h(np), seq: seq})
		}
	}

	if end == nil {
		mid := (from.Y + to.Y) / 2
		return simplify([]geom.Point{from, {X: from.X, Y: mid}, {X: to.X, Y: mid}, to})
	}

	var cells []gridPt
	for s := *end; ; s = prev[s] {
		cells = append(cells, s.p)
		if s == first {
			break
		}
	}
	pts := make([]geom.Point, 0, len(cells)+2)
	for i := len(cells) - 1; i >= 0; i-- {
		pts = append(pts, at(cells[i]))
	}
	pts[0] = from
	if last := pts[len(pts)-1]; last != to {
		pts = append(pts, geom.Point{X: to.X, Y: last.Y}, to)
	}
	return simplify(pts)
}

// simplify drops repeated and collinear interior points.
func simplify(pts []geom.Point) []geom.Point {
	out := make([]geom.Point, 0, len(pts))
	for _, p := range pts {
		if n := len(out); n > 0 && out[n-1] == p {
			continue
		}
		if n := len(out); n >= 2 {
			a, b := out[n-2], out[n-1]
			if (a.X == b.X && b.X == p.X) || (a.Y == b.Y && b.Y == p.Y) {
				out[n-1] = p
				continue
			}
		}
		out = append(out, p)
	}
	return out
}
