package layout

import (
	"slices"
	"strings"

	"github.com/matzehuels/provgraph/pkg/manifest"
)

// ingestSuffix marks the group holding a computation's unproduced data inputs.
const ingestSuffix = "/in"

// NodeGroup is one unit of left-to-right placement.
type NodeGroup struct {
	Key        string
	Step       string
	Actions    []string
	Supporting []string
	Outputs    []string
}

// Kind classifies the group for placement.
func (g *NodeGroup) Kind() GroupKind {
	switch {
	case len(g.Actions) > 0:
		return GroupAction
	case len(g.Outputs) > 0:
		return GroupIngest
	case len(g.Supporting) > 0:
		return GroupDeferred
	}
	return GroupEmpty
}

// GroupKind is the placement rule a group follows.
type GroupKind int

const (
	GroupEmpty GroupKind = iota
	GroupAction
	GroupIngest
	GroupDeferred
)

// Classifier decides which asset types are supporting and how they sort.
type Classifier struct {
	priority map[manifest.AssetType]int
}

// NewClassifier builds a classifier from a priority-ordered list of
// supporting asset types.
func NewClassifier(priority []string) Classifier {
	p := make(map[manifest.AssetType]int, len(priority))
	for i, t := range priority {
		if _, dup := p[manifest.AssetType(t)]; !dup {
			p[manifest.AssetType(t)] = i
		}
	}
	return Classifier{priority: p}
}

// Supporting reports whether assets of type t feed computations from the side.
func (c Classifier) Supporting(t manifest.AssetType) bool {
	_, ok := c.priority[t]
	return ok
}

// Sort orders supporting asset ids by type priority, keeping declaration
// order among equal types.
func (c Classifier) Sort(ids []string, types map[string]manifest.AssetType) []string {
	out := slices.Clone(ids)
	slices.SortStableFunc(out, func(a, b string) int {
		return c.rank(types[a]) - c.rank(types[b])
	})
	return out
}

func (c Classifier) rank(t manifest.AssetType) int {
	if r, ok := c.priority[t]; ok {
		return r
	}
	return len(c.priority)
}

type role int

const (
	roleOutput role = iota
	roleSupporting
)

type assignment struct {
	key  string
	role role
}

// Partition assigns every asset and computation of m to a node group and
// returns the groups in placement order.
//
// Assignment rules, first match wins:
//
//  1. an asset with an explicit group joins it (supporting if its type is)
//  2. an asset produced by a computation is an output of that group
//  3. a supporting-type asset consumed by a computation is supporting there
//  4. any other consumed asset goes to the consumer's ingest group
//  5. an unreferenced asset forms its own group
//
// Order follows asset declaration; a computation's ingest group is always
// placed immediately before the computation's own group.
func Partition(m *manifest.Manifest, cls Classifier) []*NodeGroup {
	producer := make(map[string]*manifest.Computation)
	consumer := make(map[string]*manifest.Computation)
	for i := range m.Computations {
		c := &m.Computations[i]
		for _, id := range c.Outputs {
			if _, ok := producer[id]; !ok {
				producer[id] = c
			}
		}
		for _, id := range c.Inputs {
			if _, ok := consumer[id]; !ok {
				consumer[id] = c
			}
		}
	}

	groupStep := make(map[string]string)
	compGroups := make(map[string]bool)
	for _, c := range m.Computations {
		key := c.GroupKey()
		compGroups[key] = true
		if _, ok := groupStep[key]; !ok {
			groupStep[key] = c.Step
		}
		if _, ok := groupStep[key+ingestSuffix]; !ok {
			groupStep[key+ingestSuffix] = c.Step
		}
	}

	assigned := make([]assignment, len(m.Assets))
	for i, a := range m.Assets {
		sup := cls.Supporting(a.Type)
		switch {
		case a.Group != "":
			r := roleOutput
			if p, ok := producer[a.ID]; (!ok || p.GroupKey() != a.Group) && sup {
				r = roleSupporting
			}
			assigned[i] = assignment{a.Group, r}
		case producer[a.ID] != nil:
			assigned[i] = assignment{producer[a.ID].GroupKey(), roleOutput}
		case consumer[a.ID] != nil && sup:
			assigned[i] = assignment{consumer[a.ID].GroupKey(), roleSupporting}
		case consumer[a.ID] != nil:
			assigned[i] = assignment{consumer[a.ID].GroupKey() + ingestSuffix, roleOutput}
		default:
			r := roleOutput
			if sup {
				r = roleSupporting
			}
			assigned[i] = assignment{a.ID, r}
			if _, ok := groupStep[a.ID]; !ok {
				groupStep[a.ID] = a.Step
			}
		}
	}

	var order []*NodeGroup
	byKey := make(map[string]*NodeGroup)
	register := func(key string) {
		if _, ok := byKey[key]; ok {
			return
		}
		g := &NodeGroup{Key: key, Step: groupStep[key]}
		byKey[key] = g
		order = append(order, g)
	}
	// A computation group and its ingest group register as a pair.
	registerPair := func(key string) {
		base, isIngest := strings.CutSuffix(key, ingestSuffix)
		if !isIngest && !compGroups[key] {
			register(key)
			return
		}
		register(base + ingestSuffix)
		register(base)
	}

	for i, a := range m.Assets {
		registerPair(assigned[i].key)
		g := byKey[assigned[i].key]
		if assigned[i].role == roleSupporting {
			g.Supporting = append(g.Supporting, a.ID)
		} else {
			g.Outputs = append(g.Outputs, a.ID)
		}
	}
	for _, c := range m.Computations {
		registerPair(c.GroupKey())
		g := byKey[c.GroupKey()]
		g.Actions = append(g.Actions, c.ID)
	}

	return slices.DeleteFunc(order, func(g *NodeGroup) bool { return g.Kind() == GroupEmpty })
}
