package graph

// DeriveRoles assigns each node's role from its non-gate edges: a node with
// outgoing but no incoming edges is a source, the reverse is a sink, and
// everything else is intermediate.
func (g *Graph) DeriveRoles() {
	in := make(map[string]int, len(g.Nodes))
	out := make(map[string]int, len(g.Nodes))
	for _, e := range g.Edges {
		if e.IsGate {
			continue
		}
		out[e.Source]++
		in[e.Target]++
	}
	for _, n := range g.Nodes {
		n.Role = roleOf(in[n.ID], out[n.ID])
	}
}

func roleOf(in, out int) Role {
	switch {
	case in == 0 && out > 0:
		return RoleSource
	case out == 0 && in > 0:
		return RoleSink
	default:
		return RoleIntermediate
	}
}
