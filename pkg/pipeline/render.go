package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/matzehuels/provgraph/pkg/compose"
	"github.com/matzehuels/provgraph/pkg/graph"
	"github.com/matzehuels/provgraph/pkg/observability"
	"github.com/matzehuels/provgraph/pkg/render"
)

// Render generates output artifacts in the requested formats. SVG is
// rendered at most once and reused for PNG and PDF.
func (r *Runner) Render(ctx context.Context, comp *compose.Composition, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}
	cfg := opts.Config

	graphs := make([]*graph.Graph, 0, len(comp.Workflows()))
	for _, w := range comp.Workflows() {
		graphs = append(graphs, w.Graph)
	}
	dot := render.ToDOT(graphs, comp.Connectors, render.Options{
		Theme:        cfg.Theme,
		NodeWidth:    cfg.Layout.NodeWidth,
		NodeHeight:   cfg.Layout.NodeHeight,
		ShowAllEdges: opts.ShowAllEdges,
		Detailed:     opts.Detailed,
	})

	var svg []byte
	svgOnce := func() ([]byte, error) {
		if svg != nil {
			return svg, nil
		}
		var err error
		svg, err = render.RenderSVG(ctx, dot)
		return svg, err
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		start := time.Now()
		observability.Pipeline().OnRenderStart(ctx, format)

		var data []byte
		var err error
		switch format {
		case FormatDOT:
			data = []byte(dot)
		case FormatSVG:
			data, err = svgOnce()
		case FormatPNG:
			if data, err = svgOnce(); err == nil {
				data, err = render.ToPNG(ctx, data, opts.PNGScale)
			}
		case FormatPDF:
			if data, err = svgOnce(); err == nil {
				data, err = render.ToPDF(ctx, data)
			}
		case FormatJSON:
			data, err = graph.MarshalLayout(ComposedLayout(comp))
		default:
			err = fmt.Errorf("unsupported format: %s", format)
		}

		observability.Pipeline().OnRenderComplete(ctx, format, len(data), time.Since(start), err)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

// ComposedLayout exports a composition's graphs, in their shared
// coordinate space, as a layout.
func ComposedLayout(comp *compose.Composition) *graph.Layout {
	l := &graph.Layout{Version: graph.LayoutVersion}
	for _, w := range comp.Workflows() {
		l.Workflows = append(l.Workflows, graph.LayoutWorkflow{
			ID:           w.ID,
			Relationship: w.Relationship,
			Parent:       w.Parent,
			BranchPoint:  w.BranchPoint,
			Graph:        w.Graph,
		})
	}
	return l
}
