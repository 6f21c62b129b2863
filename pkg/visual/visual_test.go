package visual

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/provgraph/pkg/cache"
	"github.com/matzehuels/provgraph/pkg/config"
	"github.com/matzehuels/provgraph/pkg/geom"
	"github.com/matzehuels/provgraph/pkg/graph"
)

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.data[key]
	return d, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) Close() error { return nil }

var _ cache.Cache = (*memCache)(nil)

type fakeFetcher struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	fail    map[string]bool
}

func (f *fakeFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	f.calls.Add(1)
	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
		<-f.release
	}
	if f.fail[source] {
		return nil, errors.New("boom")
	}
	return []byte(`<svg viewBox="0 0 10 10"><rect width="10" height="10"/></svg>`), nil
}

func TestTextureCacheLRU(t *testing.T) {
	c := NewTextureCache(2)
	k := func(p string) TextureKey { return TextureKey{Path: p, Color: "#000", Size: 16} }

	c.Put(&Texture{Key: k("a")})
	c.Put(&Texture{Key: k("b")})
	if _, ok := c.Get(k("a")); !ok {
		t.Fatal("a missing")
	}
	c.Put(&Texture{Key: k("c")})

	if _, ok := c.Get(k("b")); ok {
		t.Error("b should have been evicted as least recently used")
	}
	for _, p := range []string{"a", "c"} {
		if _, ok := c.Get(k(p)); !ok {
			t.Errorf("%s evicted", p)
		}
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}

	other := TextureKey{Path: "a", Color: "#fff", Size: 16}
	if _, ok := c.Get(other); ok {
		t.Error("key with different color must not hit")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d", c.Len())
	}
}

func TestIconLoaderDeduplicates(t *testing.T) {
	f := &fakeFetcher{started: make(chan struct{}, 1), release: make(chan struct{})}
	l := NewIconLoader(f, newMemCache(), nil)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Load(context.Background(), "icons/model.svg"); err != nil {
				t.Error(err)
			}
		}()
	}
	<-f.started
	time.Sleep(50 * time.Millisecond)
	close(f.release)
	wg.Wait()

	if _, err := l.Load(context.Background(), "icons/model.svg"); err != nil {
		t.Fatal(err)
	}
	if n := f.calls.Load(); n != 1 {
		t.Errorf("fetches = %d, want 1", n)
	}
}

func testNodes() (*graph.Node, *graph.Node, *graph.Node) {
	in := &graph.Node{ID: "IN1", Label: "Raw data", Kind: graph.KindAsset, AssetType: "Data",
		Phase: "train", Icon: "icons/data.svg", X: 0, Y: 500, Positioned: true}
	c1 := &graph.Node{ID: "C1", Kind: graph.KindAction, Title: "Train", Phase: "train",
		X: 200, Y: 620, Positioned: true}
	att := &graph.Node{ID: "ATT1", Kind: graph.KindAttestation, Icon: "icons/broken.svg",
		X: 0, Y: 620, Positioned: true}
	return in, c1, att
}

func TestBuilderNode(t *testing.T) {
	cfg := config.Default()
	f := &fakeFetcher{fail: map[string]bool{"icons/broken.svg": true}}
	b := NewBuilder(cfg, NewIconLoader(f, nil, nil), nil)
	in, c1, att := testNodes()
	ctx := context.Background()

	v, err := b.Node(ctx, in, 1)
	if err != nil {
		t.Fatal(err)
	}
	if v.Shape != ShapeCard || v.Stroke != cfg.Theme.PhaseColors["train"] || v.Fill != cfg.Theme.KindColors["asset"] {
		t.Errorf("asset visual = %+v", v)
	}
	if got := v.Text(false); len(got) != 2 || got[1] != "Data" {
		t.Errorf("Text(false) = %v", got)
	}
	if got := v.Text(true); len(got) != 1 {
		t.Errorf("Text(true) = %v", got)
	}
	if v.Icon == nil || v.Icon.Placeholder || !strings.Contains(string(v.Icon.SVG), cfg.Theme.PhaseColors["train"]) {
		t.Errorf("icon = %+v", v.Icon)
	}
	if want := geom.RectFromCenter(geom.Point{X: 0, Y: 500}, 160, 56); v.Bounds() != want {
		t.Errorf("Bounds() = %v, want %v", v.Bounds(), want)
	}
	in.X = 100
	if v.Bounds().CenterX() != 100 {
		t.Error("bounds do not follow node position")
	}

	again, _ := b.Node(ctx, in, 1)
	if again.Icon != v.Icon {
		t.Error("texture was not reused")
	}
	if f.calls.Load() != 1 {
		t.Errorf("fetches = %d, want 1", f.calls.Load())
	}

	big, _ := b.Node(ctx, in, 2)
	if big.Width != 320 || big.Icon.Key.Size != 56 {
		t.Errorf("scaled visual width=%v icon=%d", big.Width, big.Icon.Key.Size)
	}

	cv, _ := b.Node(ctx, c1, 1)
	if cv.Shape != ShapePill || cv.Label != "C1" || cv.Sublabel != "Train" {
		t.Errorf("action visual = %+v", cv)
	}

	av, err := b.Node(ctx, att, 1)
	if err != nil {
		t.Fatalf("failed icon returned error: %v", err)
	}
	if av.Shape != ShapeBadge || av.Width != av.Height || av.Icon == nil || !av.Icon.Placeholder {
		t.Errorf("attestation visual = %+v", av)
	}
}

func TestSetThemeClearsTextures(t *testing.T) {
	cfg := config.Default()
	b := NewBuilder(cfg, NewIconLoader(&fakeFetcher{}, nil, nil), nil)
	in, _, _ := testNodes()
	if _, err := b.Node(context.Background(), in, 1); err != nil {
		t.Fatal(err)
	}
	if b.Textures().Len() != 1 {
		t.Fatalf("Len() = %d, want 1", b.Textures().Len())
	}
	dark := cfg.Theme
	dark.PhaseColors = map[string]string{"train": "#ffaa00"}
	b.SetTheme(dark)
	if b.Textures().Len() != 0 {
		t.Error("theme change kept stale textures")
	}
	v, _ := b.Node(context.Background(), in, 1)
	if v.Icon.Key.Color != "#ffaa00" {
		t.Errorf("icon color = %q", v.Icon.Key.Color)
	}
}

func TestBuilderEdge(t *testing.T) {
	b := NewBuilder(config.Default(), nil, nil)
	in, c1, att := testNodes()
	ctx := context.Background()
	iv, _ := b.Node(ctx, in, 1)
	cv, _ := b.Node(ctx, c1, 1)
	av, _ := b.Node(ctx, att, 1)

	e := b.Edge(graph.Edge{ID: "IN1->C1", Source: "IN1", Target: "C1"}, iv, cv)
	want := []geom.Point{{X: 80, Y: 500}, {X: 100, Y: 500}, {X: 100, Y: 620}, {X: 120, Y: 620}}
	if len(e.Points) != len(want) {
		t.Fatalf("Points = %v", e.Points)
	}
	for i := range want {
		if e.Points[i] != want[i] {
			t.Errorf("Points[%d] = %v, want %v", i, e.Points[i], want[i])
		}
	}
	if e.Dashed {
		t.Error("data edge is dashed")
	}

	g := b.Edge(graph.Edge{ID: "ATT1->IN1", Source: "ATT1", Target: "IN1", IsGate: true}, av, iv)
	if !g.Dashed || len(g.Points) != 2 || g.Color != config.Default().Theme.GateColor {
		t.Errorf("gate edge = %+v", g)
	}
}
