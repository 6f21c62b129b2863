package graph

// Indices are lookup tables over one or more graphs, built once in
// O(nodes + edges). Step keys are scoped by workflow, since related
// workflows reuse step ids.
type Indices struct {
	byID        map[string]*Node
	byKey       map[string]*Node
	byStep      map[stepKey][]*Node
	byWorkflow  map[string][]*Node
	edgesByStep map[stepKey][]Edge
	edgeByID    map[string]Edge
}

type stepKey struct{ workflow, step string }

// NewIndices indexes the given graphs. When two graphs contain the same
// node id, the first one wins in [Indices.Node].
func NewIndices(graphs ...*Graph) *Indices {
	idx := &Indices{
		byID:        make(map[string]*Node),
		byKey:       make(map[string]*Node),
		byStep:      make(map[stepKey][]*Node),
		byWorkflow:  make(map[string][]*Node),
		edgesByStep: make(map[stepKey][]Edge),
		edgeByID:    make(map[string]Edge),
	}
	for _, g := range graphs {
		local := make(map[string]*Node, len(g.Nodes))
		for _, n := range g.Nodes {
			local[n.ID] = n
			idx.byKey[n.Key()] = n
			if _, dup := idx.byID[n.ID]; !dup {
				idx.byID[n.ID] = n
			}
			idx.byWorkflow[g.Workflow] = append(idx.byWorkflow[g.Workflow], n)
			if n.Step != "" {
				k := stepKey{g.Workflow, n.Step}
				idx.byStep[k] = append(idx.byStep[k], n)
			}
		}
		for _, e := range g.Edges {
			if _, dup := idx.edgeByID[e.ID]; !dup {
				idx.edgeByID[e.ID] = e
			}
			src, dst := local[e.Source], local[e.Target]
			if src != nil && src.Step != "" {
				k := stepKey{g.Workflow, src.Step}
				idx.edgesByStep[k] = append(idx.edgesByStep[k], e)
			}
			if dst != nil && dst.Step != "" && (src == nil || dst.Step != src.Step) {
				k := stepKey{g.Workflow, dst.Step}
				idx.edgesByStep[k] = append(idx.edgesByStep[k], e)
			}
		}
	}
	return idx
}

// Node returns the node with id.
func (idx *Indices) Node(id string) (*Node, bool) {
	n, ok := idx.byID[id]
	return n, ok
}

// Lookup resolves ref as a workflow-scoped [Key] first and as a bare node
// id second.
func (idx *Indices) Lookup(ref string) (*Node, bool) {
	if n, ok := idx.byKey[ref]; ok {
		return n, true
	}
	return idx.Node(ref)
}

// Edge returns the edge with id.
func (idx *Indices) Edge(id string) (Edge, bool) {
	e, ok := idx.edgeByID[id]
	return e, ok
}

// NodesInStep returns the nodes of workflow assigned to step, in
// declaration order.
func (idx *Indices) NodesInStep(workflow, step string) []*Node {
	return idx.byStep[stepKey{workflow, step}]
}

// NodesInWorkflow returns every node of workflow in declaration order.
func (idx *Indices) NodesInWorkflow(workflow string) []*Node {
	return idx.byWorkflow[workflow]
}

// EdgesInStep returns the edges with at least one endpoint in step. An edge
// spanning two steps is listed under both.
func (idx *Indices) EdgesInStep(workflow, step string) []Edge {
	return idx.edgesByStep[stepKey{workflow, step}]
}

// Len returns the number of distinct node ids indexed.
func (idx *Indices) Len() int { return len(idx.byID) }
