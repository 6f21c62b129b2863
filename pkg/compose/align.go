package compose

import (
	"math"

	"github.com/matzehuels/provgraph/pkg/graph"
)

// StepCenters returns the center x of every step of g with at least one
// positioned node, from the min and max node x in that step.
func StepCenters(g *graph.Graph) map[string]float64 {
	lo := make(map[string]float64)
	hi := make(map[string]float64)
	for _, n := range g.Nodes {
		if !n.Positioned || n.Step == "" {
			continue
		}
		if _, ok := lo[n.Step]; !ok {
			lo[n.Step], hi[n.Step] = n.X, n.X
			continue
		}
		lo[n.Step] = math.Min(lo[n.Step], n.X)
		hi[n.Step] = math.Max(hi[n.Step], n.X)
	}
	out := make(map[string]float64, len(lo))
	for s := range lo {
		out[s] = (lo[s] + hi[s]) / 2
	}
	return out
}

// AlignNodesToStepColumns moves every node of each secondary graph by the
// offset between its step's center and the same step's center in main.
// All nodes of a step move together, so vertical order inside a step is
// preserved. Steps main does not have stay where they are. Step bands are
// recomputed with padding afterwards. The applied offsets are returned per
// workflow and step.
func AlignNodesToStepColumns(main *graph.Graph, others []*graph.Graph, padding float64) map[string]map[string]float64 {
	target := StepCenters(main)
	applied := make(map[string]map[string]float64, len(others))
	for _, g := range others {
		offsets := make(map[string]float64)
		for step, c := range StepCenters(g) {
			if t, ok := target[step]; ok {
				offsets[step] = t - c
			}
		}
		for _, n := range g.Nodes {
			if d, ok := offsets[n.Step]; ok && n.Positioned {
				n.X += d
			}
		}
		g.RecomputeSteps(padding)
		applied[g.Workflow] = offsets
	}
	return applied
}
