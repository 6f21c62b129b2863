package render

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/matzehuels/provgraph/pkg/compose"
	"github.com/matzehuels/provgraph/pkg/config"
	"github.com/matzehuels/provgraph/pkg/graph"
)

// pointsPerInch converts world units, treated as points, to Graphviz inches.
const pointsPerInch = 72

// Options configures DOT generation.
type Options struct {
	Theme      config.Theme
	NodeWidth  float64 // world units
	NodeHeight float64 // world units
	// ShowAllEdges includes non-canonical edges.
	ShowAllEdges bool
	// Detailed adds the asset type or title as a second label line.
	Detailed bool
}

// OptionsFrom builds options from configuration.
func OptionsFrom(cfg *config.Config) Options {
	return Options{Theme: cfg.Theme, NodeWidth: cfg.Layout.NodeWidth, NodeHeight: cfg.Layout.NodeHeight}
}

// ToDOT converts positioned graphs and their connectors to DOT with every
// node pinned at its world position. Unpositioned nodes and edges touching
// them are omitted. A node id declared by several graphs is written as its
// workflow-scoped [graph.Key] so each copy stays a distinct DOT node.
func ToDOT(graphs []*graph.Graph, connectors []compose.Connector, opts Options) string {
	if opts.NodeWidth <= 0 {
		opts.NodeWidth = 160
	}
	if opts.NodeHeight <= 0 {
		opts.NodeHeight = 56
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  layout=neato;\n")
	fmt.Fprintf(&buf, "  bgcolor=%q;\n", orDefault(opts.Theme.Background, "transparent"))
	buf.WriteString("  outputorder=edgesfirst;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fixedsize=true, fontsize=12, fontname=\"Helvetica\"];\n")
	buf.WriteString("  edge [arrowsize=0.6];\n")

	for _, g := range graphs {
		writeBands(&buf, g, opts)
	}
	names := newNamer(graphs)
	for _, g := range graphs {
		writeNodes(&buf, g, names, opts)
	}
	for _, g := range graphs {
		writeEdges(&buf, g, names, opts)
	}
	for i, c := range connectors {
		writeConnector(&buf, i, c)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func writeBands(buf *bytes.Buffer, g *graph.Graph, opts Options) {
	top, bottom := math.Inf(1), math.Inf(-1)
	for _, n := range g.Nodes {
		if n.Positioned {
			top = math.Min(top, n.Y-opts.NodeHeight)
			bottom = math.Max(bottom, n.Y+opts.NodeHeight)
		}
	}
	if math.IsInf(top, 1) {
		return
	}
	for _, s := range g.Steps {
		color, ok := opts.Theme.PhaseColor(s.Phase)
		if !ok {
			color = orDefault(opts.Theme.EdgeColor, "#9aa0a6")
		}
		label := s.Label
		if label == "" {
			label = s.ID
		}
		w := s.XEnd - s.XStart + opts.NodeWidth
		fmt.Fprintf(buf, "  %q [label=%q, labelloc=t, shape=box, style=filled, color=%q, fillcolor=%q, fontcolor=%q, width=%s, height=%s, pos=%s];\n",
			"band:"+g.Workflow+"/"+s.ID, label, color, translucent(color), color,
			inches(w), inches(bottom-top), pos(s.Center(), (top+bottom)/2))
	}
}

// namer maps node ids to DOT node names.
type namer map[string]int

func newNamer(graphs []*graph.Graph) namer {
	seen := make(namer)
	for _, g := range graphs {
		for _, n := range g.Nodes {
			seen[n.ID]++
		}
	}
	return seen
}

func (nm namer) name(g *graph.Graph, id string) string {
	if nm[id] > 1 {
		return graph.Key(g.Workflow, id)
	}
	return id
}

func writeNodes(buf *bytes.Buffer, g *graph.Graph, names namer, opts Options) {
	for _, n := range g.Nodes {
		if !n.Positioned {
			continue
		}
		attrs := []string{
			fmt.Sprintf("label=%q", nodeLabel(n, opts.Detailed)),
			fmt.Sprintf("pos=%s", pos(n.X, n.Y)),
			fmt.Sprintf("fillcolor=%q", orDefault(opts.Theme.KindColors[string(n.Kind)], "white")),
		}
		if c, ok := opts.Theme.PhaseColor(n.Phase); ok {
			attrs = append(attrs, fmt.Sprintf("color=%q", c))
		}
		w, h := opts.NodeWidth, opts.NodeHeight
		switch n.Kind {
		case graph.KindAction:
			attrs = append(attrs, "shape=box", "style=\"rounded,filled,bold\"")
		case graph.KindAttestation:
			w = h
			attrs = append(attrs, "shape=octagon", "style=filled")
		}
		attrs = append(attrs, "width="+inches(w), "height="+inches(h))
		fmt.Fprintf(buf, "  %q [%s];\n", names.name(g, n.ID), strings.Join(attrs, ", "))
	}
}

func writeEdges(buf *bytes.Buffer, g *graph.Graph, names namer, opts Options) {
	for _, e := range g.VisibleEdges(opts.ShowAllEdges) {
		src, ok1 := g.Node(e.Source)
		dst, ok2 := g.Node(e.Target)
		if !ok1 || !ok2 || !src.Positioned || !dst.Positioned {
			continue
		}
		from, to := names.name(g, e.Source), names.name(g, e.Target)
		if e.IsGate {
			fmt.Fprintf(buf, "  %q -> %q [style=dashed, color=%q, arrowhead=none];\n",
				from, to, orDefault(opts.Theme.GateColor, "#c99700"))
			continue
		}
		fmt.Fprintf(buf, "  %q -> %q [color=%q];\n", from, to, orDefault(opts.Theme.EdgeColor, "#9aa0a6"))
	}
}

func writeConnector(buf *bytes.Buffer, i int, c compose.Connector) {
	if len(c.Points) < 2 {
		return
	}
	from, to := c.From(), c.To()
	a := fmt.Sprintf("conn:%d:from", i)
	b := fmt.Sprintf("conn:%d:to", i)
	fmt.Fprintf(buf, "  %q [shape=point, width=0.05, color=%q, pos=%s];\n", a, c.Color, pos(from.X, from.Y))
	fmt.Fprintf(buf, "  %q [shape=point, width=0.05, color=%q, pos=%s];\n", b, c.Color, pos(to.X, to.Y))
	fmt.Fprintf(buf, "  %q -> %q [color=%q, penwidth=2, tooltip=%q];\n", a, b, c.Color, c.Parent+" → "+c.Child)
}

func nodeLabel(n *graph.Node, detailed bool) string {
	label := n.Label
	if label == "" {
		label = n.ID
	}
	if !detailed {
		return label
	}
	switch {
	case n.Kind == graph.KindAsset && n.AssetType != "":
		return label + "\n" + string(n.AssetType)
	case n.Title != "" && n.Title != label:
		return label + "\n" + n.Title
	}
	return label
}

// pos pins a world point, flipping y since Graphviz y grows upward.
// Adding and subtracting from zero normalizes negative zero.
func pos(x, y float64) string {
	return fmt.Sprintf("%q", fmt.Sprintf("%.2f,%.2f!", x/pointsPerInch+0, 0-y/pointsPerInch))
}

func inches(v float64) string { return fmt.Sprintf("%.3f", v/pointsPerInch) }

// translucent returns a #rrggbb color with a low alpha channel.
func translucent(c string) string {
	if len(c) == 7 && c[0] == '#' {
		return c + "22"
	}
	return c
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
