package compose

import (
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/matzehuels/provgraph/pkg/errors"
	"github.com/matzehuels/provgraph/pkg/graph"
	"github.com/matzehuels/provgraph/pkg/manifest"
	"github.com/matzehuels/provgraph/pkg/visual"
)

var (
	// ErrUnknownWorkflow is returned for a workflow id that was never registered.
	ErrUnknownWorkflow = stderrors.New("compose: unknown workflow")

	// ErrDuplicateWorkflow is returned when a workflow id is registered twice.
	ErrDuplicateWorkflow = stderrors.New("compose: duplicate workflow")

	// ErrNotPopulated is returned when geometry is requested before every
	// workflow has its node visuals.
	ErrNotPopulated = stderrors.New("compose: workflows not populated")
)

// Opacity of each relationship's layer.
var relationshipOpacity = map[manifest.Relationship]float64{
	manifest.RelMain:     1,
	manifest.RelChild:    0.85,
	manifest.RelReplay:   0.7,
	manifest.RelAncestor: 0.6,
}

// Workflow is one registered workflow.
type Workflow struct {
	ID           string                `json:"id"`
	Relationship manifest.Relationship `json:"relationship"`
	YOffset      float64               `json:"y_offset"`
	Opacity      float64               `json:"opacity"`
	BranchPoint  string                `json:"branch_point,omitempty"`
	Parent       string                `json:"parent,omitempty"`

	Graph *graph.Graph                  `json:"-"`
	Nodes map[string]*visual.NodeVisual `json:"-"`
}

// Populated reports whether the node visuals have been set.
func (w *Workflow) Populated() bool { return w.Nodes != nil }

// Visuals returns the node visuals in graph declaration order.
func (w *Workflow) Visuals() []*visual.NodeVisual {
	out := make([]*visual.NodeVisual, 0, len(w.Nodes))
	for _, n := range w.Graph.Nodes {
		if v, ok := w.Nodes[n.ID]; ok {
			out = append(out, v)
		}
	}
	return out
}

// Registry holds workflows in registration order.
type Registry struct {
	mu        sync.RWMutex
	workflows []*Workflow
	byID      map[string]*Workflow
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*Workflow)}
}

// Register records workflow metadata and its graph. The first workflow
// registered with relationship main becomes the main workflow.
func (r *Registry) Register(meta Workflow, g *graph.Graph) (*Workflow, error) {
	if err := errors.ValidateID("workflow", meta.ID); err != nil {
		return nil, err
	}
	if g == nil {
		return nil, fmt.Errorf("register %s: nil graph", meta.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[meta.ID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateWorkflow, meta.ID)
	}
	if meta.Relationship == "" {
		meta.Relationship = manifest.RelMain
	}
	if meta.Opacity == 0 {
		meta.Opacity = relationshipOpacity[meta.Relationship]
	}
	w := meta
	w.Graph = g
	w.Nodes = nil
	r.workflows = append(r.workflows, &w)
	r.byID[w.ID] = &w
	return &w, nil
}

// Populate attaches the node visuals of workflow id.
func (r *Registry) Populate(id string, nodes map[string]*visual.NodeVisual) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownWorkflow, id)
	}
	if nodes == nil {
		nodes = map[string]*visual.NodeVisual{}
	}
	w.Nodes = nodes
	return nil
}

// Get returns workflow id.
func (r *Registry) Get(id string) (*Workflow, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.byID[id]
	return w, ok
}

// Workflows returns every workflow in registration order.
func (r *Registry) Workflows() []*Workflow {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Workflow(nil), r.workflows...)
}

// Main returns the main workflow.
func (r *Registry) Main() (*Workflow, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.workflows {
		if w.Relationship == manifest.RelMain {
			return w, true
		}
	}
	return nil, false
}

// AllPopulated reports whether every workflow has its node visuals.
func (r *Registry) AllPopulated() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.workflows {
		if !w.Populated() {
			return false
		}
	}
	return len(r.workflows) > 0
}

// Validate checks the relationship graph: exactly one main workflow, and
// every related workflow names a registered parent that contains its
// branch point.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	mains := 0
	for _, w := range r.workflows {
		if w.Relationship == manifest.RelMain {
			mains++
		}
	}
	if mains != 1 {
		return errors.New(errors.ErrCodeInvariantViolated, "expected exactly one main workflow, found %d", mains)
	}
	for _, w := range r.workflows {
		if w.Relationship == manifest.RelMain {
			continue
		}
		parent, ok := r.byID[w.Parent]
		if !ok {
			return errors.New(errors.ErrCodeInvariantViolated, "workflow %q: parent %q is not registered", w.ID, w.Parent)
		}
		if w.BranchPoint == "" {
			continue
		}
		if _, ok := parent.Graph.Node(w.BranchPoint); !ok {
			return errors.New(errors.ErrCodeInvariantViolated,
				"workflow %q: branch point %q is not a node of %q", w.ID, w.BranchPoint, parent.ID)
		}
	}
	return nil
}
