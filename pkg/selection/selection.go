// Package selection tracks the selected or expanded node or step and derives
// the highlight, fade and blur state of every node from it.
//
// The controller is a small state machine:
//
//	none ──Select──▶ node-selected ──Expand──▶ node-expanded
//	  │                    ▲                        │
//	  └──SelectStep──▶ step-selected     Collapse ◀─┘
//
// Expanding implies selecting. Expanding the node that is already expanded
// is a no-op. Collapse has two distinct outcomes: from node-expanded it
// drops back to node-selected and fires the collapse hook (which typically
// animates the viewport back out), while from any plain selection it clears
// state immediately.
package selection

import (
	"math"

	"github.com/matzehuels/provgraph/pkg/graph"
)

// Mode is the selection state.
type Mode int

const (
	None Mode = iota
	NodeSelected
	StepSelected
	NodeExpanded
)

func (m Mode) String() string {
	switch m {
	case NodeSelected:
		return "node-selected"
	case StepSelected:
		return "step-selected"
	case NodeExpanded:
		return "node-expanded"
	}
	return "none"
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// Record is the current selection. Key is the workflow-scoped node key
// (see [graph.Key]); Node is the bare node id.
type Record struct {
	Mode     Mode   `json:"mode"`
	Key      string `json:"key,omitempty"`
	Node     string `json:"node,omitempty"`
	Workflow string `json:"workflow,omitempty"`
	Step     string `json:"step,omitempty"`
}

// CollapseResult reports which transition Collapse took.
type CollapseResult int

const (
	NothingToCollapse CollapseResult = iota
	CollapsedExpansion
	ClearedSelection
)

// Direction is a keyboard navigation direction.
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

// Flags is the derived visual state of one node.
type Flags struct {
	Selected    bool `json:"selected,omitempty"`
	Highlighted bool `json:"highlighted,omitempty"`
	Faded       bool `json:"faded,omitempty"`
	Blurred     bool `json:"blurred,omitempty"`
}

// Hooks are fired on transitions that drive animation. Node arguments are
// workflow-scoped keys.
type Hooks struct {
	Expanded  func(id string)
	Collapsed func(id string)
	Changed   func(Record)
}

// Selectable decides whether keyboard navigation may land on a node.
type Selectable func(n *graph.Node) bool

// NotAction excludes action nodes from navigation.
func NotAction(n *graph.Node) bool { return n.Kind != graph.KindAction }

// Controller holds the selection state over the nodes of one or more
// workflows. Methods taking a node accept a workflow-scoped key or a bare
// id; a bare id shared by several workflows resolves to the first.
type Controller struct {
	nodes      []*graph.Node
	byKey      map[string]*graph.Node
	byID       map[string]*graph.Node
	neighbors  map[string]map[string]bool
	selectable Selectable
	hooks      Hooks
	rec        Record
}

// NewController returns a controller with nothing selected. A nil filter
// selects [NotAction].
func NewController(selectable Selectable, hooks Hooks) *Controller {
	if selectable == nil {
		selectable = NotAction
	}
	return &Controller{selectable: selectable, hooks: hooks}
}

// SetGraph replaces the node set with the nodes of graphs. Nodes keep
// declaration order, which breaks navigation ties. Edges link nodes of
// their own workflow only. A selection that no longer exists is cleared.
func (c *Controller) SetGraph(graphs ...*graph.Graph) {
	c.nodes = nil
	c.byKey = make(map[string]*graph.Node)
	c.byID = make(map[string]*graph.Node)
	c.neighbors = make(map[string]map[string]bool)
	link := func(a, b string) {
		if c.neighbors[a] == nil {
			c.neighbors[a] = make(map[string]bool)
		}
		c.neighbors[a][b] = true
	}
	for _, g := range graphs {
		for _, n := range g.Nodes {
			c.nodes = append(c.nodes, n)
			c.byKey[n.Key()] = n
			if _, dup := c.byID[n.ID]; !dup {
				c.byID[n.ID] = n
			}
		}
		for _, e := range g.Edges {
			src, dst := graph.Key(g.Workflow, e.Source), graph.Key(g.Workflow, e.Target)
			link(src, dst)
			link(dst, src)
		}
	}
	if c.rec.Key != "" && c.byKey[c.rec.Key] == nil {
		c.set(Record{})
	}
}

func (c *Controller) lookup(ref string) (*graph.Node, bool) {
	if n, ok := c.byKey[ref]; ok {
		return n, true
	}
	n, ok := c.byID[ref]
	return n, ok
}

func nodeRecord(mode Mode, n *graph.Node) Record {
	return Record{Mode: mode, Key: n.Key(), Node: n.ID, Workflow: n.Workflow, Step: n.Step}
}

// Record returns the current selection.
func (c *Controller) Record() Record { return c.rec }

// Select selects node ref. Selecting the current node is a no-op, as is
// selecting an unknown node. It reports whether state changed.
func (c *Controller) Select(ref string) bool {
	n, ok := c.lookup(ref)
	if !ok || c.rec.Key == n.Key() && c.rec.Mode != StepSelected {
		return false
	}
	c.set(nodeRecord(NodeSelected, n))
	return true
}

// SelectStep selects a whole step of a workflow.
func (c *Controller) SelectStep(workflow, step string) bool {
	if c.rec.Mode == StepSelected && c.rec.Workflow == workflow && c.rec.Step == step {
		return false
	}
	c.set(Record{Mode: StepSelected, Workflow: workflow, Step: step})
	return true
}

// Expand selects and expands node ref. Expanding the expanded node again
// is a no-op and does not fire the hook.
func (c *Controller) Expand(ref string) bool {
	n, ok := c.lookup(ref)
	if !ok || c.rec.Mode == NodeExpanded && c.rec.Key == n.Key() {
		return false
	}
	c.set(nodeRecord(NodeExpanded, n))
	if c.hooks.Expanded != nil {
		c.hooks.Expanded(n.Key())
	}
	return true
}

// Collapse leaves an expansion, keeping the node selected, or clears a
// plain selection.
func (c *Controller) Collapse() CollapseResult {
	switch c.rec.Mode {
	case NodeExpanded:
		key := c.rec.Key
		r := c.rec
		r.Mode = NodeSelected
		c.set(r)
		if c.hooks.Collapsed != nil {
			c.hooks.Collapsed(key)
		}
		return CollapsedExpansion
	case NodeSelected, StepSelected:
		c.set(Record{})
		return ClearedSelection
	}
	return NothingToCollapse
}

// Clear drops any selection without firing the collapse hook.
func (c *Controller) Clear() {
	if c.rec.Mode != None {
		c.set(Record{})
	}
}

// Navigate moves the selection to the nearest selectable node strictly in
// direction d of the current node. With nothing selected it picks the first
// selectable node. An expanded selection stays expanded on the new node.
// It returns the bare id of the new node; the record carries its key.
func (c *Controller) Navigate(d Direction) (string, bool) {
	cur, ok := c.byKey[c.rec.Key]
	if !ok {
		for _, n := range c.nodes {
			if n.Positioned && c.selectable(n) {
				c.Select(n.Key())
				return n.ID, true
			}
		}
		return "", false
	}

	var best *graph.Node
	bestDist := math.Inf(1)
	for _, n := range c.nodes {
		if n == cur || !n.Positioned || !c.selectable(n) || !inDirection(cur, n, d) {
			continue
		}
		if dist := math.Hypot(n.X-cur.X, n.Y-cur.Y); dist < bestDist {
			best, bestDist = n, dist
		}
	}
	if best == nil {
		return "", false
	}
	if c.rec.Mode == NodeExpanded {
		c.Expand(best.Key())
	} else {
		c.Select(best.Key())
	}
	return best.ID, true
}

// inDirection reports whether n lies strictly in direction d of cur, with
// y growing downward.
func inDirection(cur, n *graph.Node, d Direction) bool {
	switch d {
	case Up:
		return n.Y < cur.Y
	case Down:
		return n.Y > cur.Y
	case Left:
		return n.X < cur.X
	case Right:
		return n.X > cur.X
	}
	return false
}

// Flags returns the visual state of node ref under the current selection.
func (c *Controller) Flags(ref string) Flags {
	key := ref
	if n, ok := c.lookup(ref); ok {
		key = n.Key()
	}
	switch c.rec.Mode {
	case NodeSelected:
		if key == c.rec.Key {
			return Flags{Selected: true}
		}
		if c.neighbors[c.rec.Key][key] {
			return Flags{Highlighted: true}
		}
		return Flags{Faded: true}
	case NodeExpanded:
		if key == c.rec.Key {
			return Flags{Selected: true}
		}
		return Flags{Blurred: true}
	case StepSelected:
		if n, ok := c.byKey[key]; ok && n.Workflow == c.rec.Workflow && n.Step == c.rec.Step {
			return Flags{Highlighted: true}
		}
		return Flags{Faded: true}
	}
	return Flags{}
}

func (c *Controller) set(r Record) {
	c.rec = r
	if c.hooks.Changed != nil {
		c.hooks.Changed(r)
	}
}
