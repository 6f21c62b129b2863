// Package pkg holds the provgraph libraries: the layout and composition core
// for provenance graphs and the interactive view state built on top of it.
//
// # Overview
//
// A provenance manifest declares assets, the computations that consumed and
// produced them, and attestations that vouch for them. Manifests may point
// at related workflows (ancestors, children, replays). The packages are
// organized by the stage they serve:
//
//  1. Input: [manifest] (model, decoding, bundle loader), [config], [cache]
//  2. Placement: [graph] (nodes, edges, roles, indices, layout files) and
//     [layout] (grouped left-to-right engine)
//  3. Composition: [visual] (node visuals, icons, routed edges) and
//     [compose] (registry, alignment, stacking, connectors)
//  4. Viewing: [spatial], [anim], [viewport], [lod], [selection], tied
//     together by [scene]
//  5. Output: [render] (DOT, SVG, PDF, PNG) and [pipeline] (orchestration)
//
// # Data flow
//
//	manifest bundle (root + related)
//	         ↓
//	    [graph.Build] + [layout.Compute]    one positioned graph per workflow
//	         ↓
//	    [compose.Compose]                   aligned, stacked, connected
//	         ↓
//	    [scene.Scene]  or  [render.ToDOT]   interactive frames or static output
//
// # Quick Start
//
//	runner := pipeline.NewRunner(cache.NewNullCache(), nil, logger)
//	res, err := runner.Execute(ctx, pipeline.Options{
//	    Source:  "bundle/main.json",
//	    Formats: []string{pipeline.FormatSVG},
//	})
//
//	sc, err := scene.New(res.Composition, scene.Options{Width: 1280, Height: 800})
//	sc.ZoomAt(0.5, 640, 400)
//	frame := sc.Frame()
//
// [errors] carries the coded errors shared by every stage and
// [observability] the hooks through which they report progress.
package pkg
