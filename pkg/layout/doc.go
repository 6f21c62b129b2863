// Package layout computes deterministic 2D positions for a provenance
// manifest without an external graph-layout library.
//
// # Algorithm
//
// Assets are partitioned into node groups (see [Partition]): a computation
// with its produced outputs and supporting inputs, an ingest group holding a
// computation's unproduced data inputs, or a standalone asset. Groups are
// walked left to right in declaration order with a monotonically increasing
// cursor:
//
//   - Action groups place the computation on the timeline, its outputs one
//     horizontal gap to the right (fanned symmetrically around the timeline),
//     and its supporting inputs in the previous output column, stacked below
//     what is already there. The first action group has no previous output
//     column, so its supporting inputs go to the left of the action instead.
//   - Ingest groups place their assets directly on the timeline.
//   - Groups holding only supporting assets are deferred and merged into the
//     next action group's supporting stack. Anything still pending at the end
//     is attached below the last output column.
//
// Attestations are placed a fixed offset below the node they verify and are
// dropped (listed in [Result.Dropped]) when that node has no position.
//
// Finally [ComputeStepBounds] derives each step band from the positions of
// its nodes. Steps without nodes are omitted.
//
// All iteration is over declaration-ordered slices, so the same manifest
// always yields byte-identical output.
package layout
