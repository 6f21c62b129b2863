// Package render exports positioned provenance graphs as Graphviz DOT and
// renders them to SVG, PDF and PNG.
//
// Positions come from the layout and composition passes, so the DOT output
// pins every node with pos="x,y!" and is laid out with neato, which keeps
// pinned nodes where they are:
//
//	dot := render.ToDOT(graphs, connectors, render.Options{Theme: cfg.Theme})
//	svg, err := render.RenderSVG(ctx, dot)
//	pdf, err := render.ToPDF(ctx, svg)
//
// Step bands are drawn as translucent phase-colored boxes behind the nodes.
// Gate edges (attestation to verified node) are dashed.
//
// PDF and PNG conversion shells out to rsvg-convert from librsvg.
package render
