package visual

import (
	"context"
	"math"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/provgraph/pkg/config"
	"github.com/matzehuels/provgraph/pkg/geom"
	"github.com/matzehuels/provgraph/pkg/graph"
)

// Shape is the outline drawn for a node.
type Shape string

const (
	ShapeCard  Shape = "card"  // assets
	ShapePill  Shape = "pill"  // actions
	ShapeBadge Shape = "badge" // attestations
)

// iconRatio is the icon edge length relative to node height.
const iconRatio = 0.5

// NodeVisual is the drawable form of one node.
type NodeVisual struct {
	Node     *graph.Node `json:"-"`
	ID       string      `json:"id"`
	Shape    Shape       `json:"shape"`
	Label    string      `json:"label"`
	Sublabel string      `json:"sublabel,omitempty"`
	Fill     string      `json:"fill"`
	Stroke   string      `json:"stroke"`
	Width    float64     `json:"width"`
	Height   float64     `json:"height"`
	Icon     *Texture    `json:"-"`
}

// Bounds returns the world rectangle around the node's current position.
func (v *NodeVisual) Bounds() geom.Rect {
	return geom.RectFromCenter(geom.Point{X: v.Node.X, Y: v.Node.Y}, v.Width, v.Height)
}

// Text returns the label lines to draw. Compact mode keeps a single line.
func (v *NodeVisual) Text(compact bool) []string {
	if compact || v.Sublabel == "" {
		return []string{v.Label}
	}
	return []string{v.Label, v.Sublabel}
}

// EdgeVisual is the drawable form of one edge.
type EdgeVisual struct {
	Edge   graph.Edge   `json:"edge"`
	Points []geom.Point `json:"points"`
	Dashed bool         `json:"dashed,omitempty"`
	Color  string       `json:"color"`
}

// Builder constructs node and edge visuals.
type Builder struct {
	layout   config.Layout
	theme    config.Theme
	textures *TextureCache
	icons    *IconLoader
	logger   *log.Logger
}

// NewBuilder returns a builder for cfg. icons may be nil, in which case no
// icons are drawn.
func NewBuilder(cfg *config.Config, icons *IconLoader, logger *log.Logger) *Builder {
	if logger == nil {
		logger = log.Default()
	}
	return &Builder{
		layout:   cfg.Layout,
		theme:    cfg.Theme,
		textures: NewTextureCache(cfg.Theme.TextureCacheSize),
		icons:    icons,
		logger:   logger,
	}
}

// Textures returns the texture cache.
func (b *Builder) Textures() *TextureCache { return b.textures }

// SetTheme switches the color theme and invalidates every cached texture.
func (b *Builder) SetTheme(t config.Theme) {
	b.theme = t
	b.textures.Clear()
}

// Node builds the visual for n at the shared size factor scale. A failed
// icon load yields a placeholder; only context cancellation is returned.
func (b *Builder) Node(ctx context.Context, n *graph.Node, scale float64) (*NodeVisual, error) {
	if scale <= 0 {
		scale = 1
	}
	v := &NodeVisual{
		Node:   n,
		ID:     n.ID,
		Label:  n.Label,
		Fill:   b.theme.KindColors[string(n.Kind)],
		Stroke: b.stroke(n),
		Width:  b.layout.NodeWidth * scale,
		Height: b.layout.NodeHeight * scale,
	}
	switch n.Kind {
	case graph.KindAction:
		v.Shape = ShapePill
		v.Sublabel = n.Title
	case graph.KindAttestation:
		v.Shape = ShapeBadge
		v.Width, v.Height = v.Height, v.Height
	default:
		v.Shape = ShapeCard
		v.Sublabel = string(n.AssetType)
	}
	if v.Label == "" {
		v.Label = n.ID
	}

	if n.Icon != "" && b.icons != nil {
		tex, err := b.icon(ctx, n.Icon, v.Stroke, int(math.Round(v.Height*iconRatio)))
		if err != nil {
			return nil, err
		}
		v.Icon = tex
	}
	return v, nil
}

func (b *Builder) stroke(n *graph.Node) string {
	if c, ok := b.theme.PhaseColor(n.Phase); ok {
		return c
	}
	return b.theme.EdgeColor
}

func (b *Builder) icon(ctx context.Context, url, color string, size int) (*Texture, error) {
	key := TextureKey{Path: url, Color: color, Size: size}
	if t, ok := b.textures.Get(key); ok {
		return t, nil
	}
	payload, err := b.icons.Load(ctx, url)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		b.logger.Warn("icon load failed", "url", url, "err", err)
		// Placeholders are not cached so a later build can retry.
		return Placeholder(key), nil
	}
	t := Rasterize(key, payload)
	b.textures.Put(t)
	return t, nil
}

// Edge routes e between two node visuals: out of the source's right side,
// into the target's left side, with an elbow halfway. Gate edges are dashed
// and run from the attestation's top to the verified node's bottom.
func (b *Builder) Edge(e graph.Edge, src, dst *NodeVisual) EdgeVisual {
	sb, db := src.Bounds(), dst.Bounds()
	ev := EdgeVisual{Edge: e, Color: b.theme.EdgeColor}
	if e.IsGate {
		ev.Dashed = true
		ev.Color = b.theme.GateColor
		ev.Points = []geom.Point{{X: sb.CenterX(), Y: sb.Top}, {X: db.CenterX(), Y: db.Bottom}}
		return ev
	}

	from := geom.Point{X: sb.Right, Y: sb.CenterY()}
	to := geom.Point{X: db.Left, Y: db.CenterY()}
	if from.Y == to.Y {
		ev.Points = []geom.Point{from, to}
		return ev
	}
	mid := (from.X + to.X) / 2
	ev.Points = []geom.Point{from, {X: mid, Y: from.Y}, {X: mid, Y: to.Y}, to}
	return ev
}
