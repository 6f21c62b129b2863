package graph

import (
	"github.com/matzehuels/provgraph/pkg/config"
	"github.com/matzehuels/provgraph/pkg/errors"
	"github.com/matzehuels/provgraph/pkg/layout"
	"github.com/matzehuels/provgraph/pkg/manifest"
)

// Kind distinguishes the three node families.
type Kind string

const (
	KindAsset       Kind = "asset"
	KindAction      Kind = "action"
	KindAttestation Kind = "attestation"
)

// Role is derived from non-gate connectivity.
type Role string

const (
	RoleSource       Role = "source"
	RoleSink         Role = "sink"
	RoleIntermediate Role = "intermediate"
)

// Node is one asset, computation or attestation.
type Node struct {
	ID         string             `json:"id"`
	Label      string             `json:"label"`
	Title      string             `json:"title,omitempty"`
	Kind       Kind               `json:"kind"`
	AssetType  manifest.AssetType `json:"asset_type,omitempty"`
	Step       string             `json:"step,omitempty"`
	Workflow   string             `json:"workflow"`
	Phase      string             `json:"phase,omitempty"`
	Icon       string             `json:"icon,omitempty"`
	X          float64            `json:"x"`
	Y          float64            `json:"y"`
	Positioned bool               `json:"positioned"`
	Role       Role               `json:"role"`
}

// Edge is a directed connection. Edges are immutable once built.
type Edge struct {
	ID        string `json:"id"`
	Source    string `json:"source"`
	Target    string `json:"target"`
	IsGate    bool   `json:"is_gate,omitempty"`
	Canonical bool   `json:"canonical,omitempty"`
}

// EdgeID returns the identifier of the edge from src to dst.
func EdgeID(src, dst string) string { return src + "->" + dst }

// Key scopes a node id to its workflow. Related workflows may reuse node
// ids, so anything holding nodes of several workflows keys them this way.
func Key(workflow, id string) string { return workflow + "/" + id }

// Key returns the workflow-scoped key of n.
func (n *Node) Key() string { return Key(n.Workflow, n.ID) }

// Graph is the provenance graph of one workflow.
type Graph struct {
	Workflow string               `json:"workflow"`
	Title    string               `json:"title,omitempty"`
	Nodes    []*Node              `json:"nodes"`
	Edges    []Edge               `json:"edges"`
	StepDefs []manifest.Step      `json:"step_defs,omitempty"`
	Steps    []layout.GroupBounds `json:"steps,omitempty"`

	// Skipped holds a MISSING_REFERENCE error for each edge Build dropped
	// because an endpoint was not declared.
	Skipped []error `json:"-"`

	byID map[string]*Node
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (*Node, bool) {
	if g.byID == nil {
		g.reindex()
	}
	n, ok := g.byID[id]
	return n, ok
}

func (g *Graph) reindex() {
	g.byID = make(map[string]*Node, len(g.Nodes))
	for _, n := range g.Nodes {
		g.byID[n.ID] = n
	}
}

// Step returns the band of the given step, if it has nodes.
func (g *Graph) Step(id string) (layout.GroupBounds, bool) {
	for _, s := range g.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return layout.GroupBounds{}, false
}

// Build constructs the graph of m. Roles are derived before returning.
func Build(m *manifest.Manifest, cfg *config.Config) (*Graph, error) {
	phases := make(map[string]string, len(m.Steps))
	for _, s := range m.Steps {
		if _, ok := cfg.Theme.PhaseColor(s.Phase); !ok {
			return nil, errors.New(errors.ErrCodeUnknownPhase, "step %q: phase %q has no color token", s.ID, s.Phase)
		}
		phases[s.ID] = s.Phase
	}
	checkStep := func(kind, id, step string) error {
		if step == "" {
			return nil
		}
		if _, ok := phases[step]; !ok {
			return errors.New(errors.ErrCodeUnknownStep, "%s %q references unknown step %q", kind, id, step)
		}
		return nil
	}

	g := &Graph{
		Workflow: m.ID,
		Title:    m.Title,
		StepDefs: m.Steps,
		byID:     make(map[string]*Node),
	}
	add := func(n *Node) {
		n.Workflow = m.ID
		n.Phase = phases[n.Step]
		g.Nodes = append(g.Nodes, n)
		g.byID[n.ID] = n
	}

	for _, a := range m.Assets {
		if err := checkStep("asset", a.ID, a.Step); err != nil {
			return nil, err
		}
		add(&Node{ID: a.ID, Label: a.DisplayLabel(), Title: a.Title, Kind: KindAsset, AssetType: a.Type, Step: a.Step, Icon: a.Icon})
	}
	for _, c := range m.Computations {
		if err := checkStep("computation", c.ID, c.Step); err != nil {
			return nil, err
		}
		add(&Node{ID: c.ID, Label: c.DisplayLabel(), Title: c.Title, Kind: KindAction, Step: c.Step, Icon: c.Icon})
	}
	for _, a := range m.Attestations {
		add(&Node{ID: a.ID, Label: a.DisplayLabel(), Title: a.Issuer, Kind: KindAttestation})
	}

	cls := layout.NewClassifier(cfg.Layout.SupportingPriority)
	seen := make(map[string]bool)
	connect := func(src, dst string, gate bool) {
		from, ok1 := g.byID[src]
		to, ok2 := g.byID[dst]
		id := EdgeID(src, dst)
		if !ok1 || !ok2 {
			missing := src
			if ok1 {
				missing = dst
			}
			g.Skipped = append(g.Skipped, errors.New(errors.ErrCodeMissingReference, "edge %s: node %q is not declared", id, missing))
			return
		}
		if seen[id] {
			return
		}
		seen[id] = true
		canonical := !gate && !cls.Supporting(from.AssetType) && !cls.Supporting(to.AssetType)
		g.Edges = append(g.Edges, Edge{ID: id, Source: src, Target: dst, IsGate: gate, Canonical: canonical})
	}
	for _, c := range m.Computations {
		for _, in := range c.Inputs {
			connect(in, c.ID, false)
		}
		for _, out := range c.Outputs {
			connect(c.ID, out, false)
		}
	}
	for _, a := range m.Attestations {
		for _, target := range a.Verifies {
			connect(a.ID, target, true)
		}
	}

	g.DeriveRoles()
	return g, nil
}

// ApplyLayout copies positions and derived steps from res, converting layout
// units to world units with scale, and recomputes step bands.
// Nodes absent from res keep Positioned false.
func (g *Graph) ApplyLayout(res *layout.Result, scale, padding float64) {
	phases := make(map[string]string, len(g.StepDefs))
	for _, s := range g.StepDefs {
		phases[s.ID] = s.Phase
	}
	for _, n := range g.Nodes {
		if n.Step == "" {
			if step, ok := res.Steps[n.ID]; ok {
				n.Step = step
				n.Phase = phases[step]
			}
		}
		p, ok := res.Positions[n.ID]
		n.Positioned = ok
		if ok {
			n.X, n.Y = p.X*scale, p.Y*scale
		}
	}
	g.RecomputeSteps(padding * scale)
}

// RecomputeSteps rebuilds the step bands from current node positions.
func (g *Graph) RecomputeSteps(padding float64) {
	positions := make(map[string]layout.Position, len(g.Nodes))
	stepOf := make(map[string]string, len(g.Nodes))
	for _, n := range g.Nodes {
		if !n.Positioned {
			continue
		}
		positions[n.ID] = layout.Position{X: n.X, Y: n.Y}
		if n.Step != "" {
			stepOf[n.ID] = n.Step
		}
	}
	g.Steps = layout.ComputeStepBounds(g.StepDefs, positions, stepOf, padding)
}

// Translate shifts every positioned node by (dx, dy) and moves the step
// bands with them.
func (g *Graph) Translate(dx, dy float64) {
	for _, n := range g.Nodes {
		if n.Positioned {
			n.X += dx
			n.Y += dy
		}
	}
	for i := range g.Steps {
		g.Steps[i].XStart += dx
		g.Steps[i].XEnd += dx
	}
}

// VisibleEdges returns every edge when showAll is set, otherwise only the
// canonical data-flow edges.
func (g *Graph) VisibleEdges(showAll bool) []Edge {
	if showAll {
		return g.Edges
	}
	out := make([]Edge, 0, len(g.Edges))
	for _, e := range g.Edges {
		if e.Canonical {
			out = append(out, e)
		}
	}
	return out
}
