// Package graph holds the normalized provenance graph: nodes, edges and step
// bands built from a manifest, plus the lookup indices shared by the
// rendering, culling and selection layers.
//
// # Construction
//
// [Build] creates one node per asset, computation and attestation in
// declaration order and connects them:
//
//	input asset  -> computation     (data flow)
//	computation  -> output asset    (data flow)
//	attestation  -> verified node   (gate)
//
// Data-flow edges that touch a supporting asset (code, model, config) are
// not canonical; the simple edge view ([Graph.VisibleEdges] with showAll
// false) shows only canonical edges. Gate edges never count towards roles.
//
// Build fails with UNKNOWN_STEP when a computation or asset names a step the
// manifest does not declare, and with UNKNOWN_PHASE when a step's phase has no
// color in the theme. Edges whose endpoints do not exist are skipped.
//
// # Positions
//
// Node positions are written once by [Graph.ApplyLayout] and afterwards only
// by alignment passes, which must call [Graph.RecomputeSteps] so that step
// bands never go stale.
//
// # Serialization
//
//	data, _ := graph.MarshalGraph(g)
//	g2, _ := graph.UnmarshalGraph(data)
//	graph.WriteGraphFile(g, "train.graph.json")
package graph
