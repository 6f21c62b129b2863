package spatial

import (
	"math"
	"math/rand"
	"slices"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/provgraph/pkg/geom"
)

func TestGridInsertQueryRemove(t *testing.T) {
	g := NewGrid(100)
	require.NoError(t, g.Insert("a", geom.RectXYWH(10, 10, 20, 20)))
	require.NoError(t, g.Insert("b", geom.RectXYWH(90, 90, 30, 30))) // spans four cells
	require.NoError(t, g.Insert("c", geom.RectXYWH(500, 500, 10, 10)))

	assert.Equal(t, []string{"a", "b"}, g.Query(geom.Rect{Left: 0, Top: 0, Right: 100, Bottom: 100}))
	assert.Equal(t, []string{"b"}, g.Query(geom.Rect{Left: 110, Top: 110, Right: 115, Bottom: 115}))
	assert.Empty(t, g.Query(geom.Rect{Left: 200, Top: 200, Right: 300, Bottom: 300}))

	assert.True(t, g.Remove("b"))
	assert.False(t, g.Remove("b"))
	assert.Equal(t, []string{"a"}, g.Query(geom.Rect{Left: 0, Top: 0, Right: 150, Bottom: 150}))
	assert.Equal(t, 2, g.Len())
}

func TestGridReinsertMoves(t *testing.T) {
	g := NewGrid(50)
	require.NoError(t, g.Insert("n", geom.RectXYWH(0, 0, 10, 10)))
	require.NoError(t, g.Insert("n", geom.RectXYWH(1000, 1000, 10, 10)))

	assert.Empty(t, g.Query(geom.RectXYWH(0, 0, 20, 20)))
	assert.Equal(t, []string{"n"}, g.Query(geom.RectXYWH(995, 995, 20, 20)))
	b, ok := g.Bounds("n")
	assert.True(t, ok)
	assert.Equal(t, 1000.0, b.Left)
	assert.Equal(t, 1, g.Len())
}

func TestGridErrors(t *testing.T) {
	g := NewGrid(0)
	assert.Equal(t, 512.0, g.CellSize())
	assert.ErrorIs(t, g.Insert("", geom.RectXYWH(0, 0, 1, 1)), ErrEmptyID)
	assert.ErrorIs(t, g.Insert("x", geom.Rect{Left: 5, Right: 1}), ErrInvalidBounds)
	assert.ErrorIs(t, g.Insert("x", geom.Rect{Left: math.NaN()}), ErrInvalidBounds)
}

func TestGridNegativeCoordinates(t *testing.T) {
	g := NewGrid(64)
	require.NoError(t, g.Insert("neg", geom.RectXYWH(-130, -70, 10, 10)))
	assert.Equal(t, []string{"neg"}, g.Query(geom.RectXYWH(-125, -65, 1, 1)))
	assert.Empty(t, g.Query(geom.RectXYWH(0, 0, 64, 64)))
}

func TestGridHugeQuery(t *testing.T) {
	g := NewGrid(10)
	require.NoError(t, g.Insert("a", geom.RectXYWH(0, 0, 1, 1)))
	require.NoError(t, g.Insert("b", geom.RectXYWH(1e6, 1e6, 1, 1)))

	got := g.Query(geom.Rect{Left: -1e12, Top: -1e12, Right: 1e12, Bottom: 1e12})
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestGridMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	const n, m = 2000, 300

	boxes := make(map[string]geom.Rect, n)
	g := NewGrid(512)
	for i := 0; i < n; i++ {
		id := "n" + strconv.Itoa(i)
		r := geom.RectXYWH(rng.Float64()*20000-10000, rng.Float64()*20000-10000, rng.Float64()*400, rng.Float64()*120)
		boxes[id] = r
		require.NoError(t, g.Insert(id, r))
	}
	// remove a tenth to exercise cell cleanup
	removed := 0
	for id := range boxes {
		if removed == n/10 {
			break
		}
		g.Remove(id)
		delete(boxes, id)
		removed++
	}

	for j := 0; j < m; j++ {
		q := geom.RectXYWH(rng.Float64()*24000-12000, rng.Float64()*24000-12000, rng.Float64()*3000, rng.Float64()*3000)
		var want []string
		for id, b := range boxes {
			if b.Intersects(q) {
				want = append(want, id)
			}
		}
		slices.Sort(want)
		got := g.Query(q)
		if !slices.Equal(got, want) {
			t.Fatalf("query %d %+v: got %d ids, want %d", j, q, len(got), len(want))
		}
	}
}
