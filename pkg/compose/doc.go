// Package compose merges independently laid-out workflows into one shared
// world coordinate space.
//
// Composition runs in two phases. A [Registry] records workflow metadata
// synchronously and in order; a [NodeFactory] then builds the node visuals
// of every workflow concurrently and populates the registry only after all
// of them finished. Only then do the geometric passes run:
//
//  1. [AlignNodesToStepColumns] shifts every secondary workflow step by step
//     so shared steps line up with the main workflow's step centers.
//  2. [Stack] offsets workflows vertically: ancestors above main, children
//     and replays below.
//  3. [ConnectorFor] computes the vertical connector from a parent's branch
//     point to its child, and [Route] draws orthogonal connectors between
//     workflow cards at the content-session level.
package compose
