// Package visual turns graph nodes and edges into positioned drawable
// primitives.
//
// A [NodeVisual] keeps a pointer to its [graph.Node], so its world bounds
// always follow the node's current position: alignment and stacking passes
// mutate nodes, never visuals.
//
// Icons are fetched through an [IconLoader], which deduplicates concurrent
// requests for the same URL and stores payloads in a [cache.Cache]. Tinted,
// sized icon textures live in a [TextureCache] keyed by (path, color, size)
// that must be cleared when the theme changes. A failed icon load never fails
// the node; the visual gets a placeholder texture instead.
package visual
