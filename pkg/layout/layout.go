package layout

import (
	"math"

	"github.com/matzehuels/provgraph/pkg/config"
	"github.com/matzehuels/provgraph/pkg/manifest"
)

// Position is a node's placement in layout units.
type Position struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Group string  `json:"group"`
}

// GroupBounds is the horizontal band of one step.
type GroupBounds struct {
	ID     string  `json:"id"`
	Label  string  `json:"label,omitempty"`
	Phase  string  `json:"phase"`
	XStart float64 `json:"x_start"`
	XEnd   float64 `json:"x_end"`
}

// Center returns the band's horizontal midpoint.
func (b GroupBounds) Center() float64 { return (b.XStart + b.XEnd) / 2 }

// Contains reports whether x lies inside the band.
func (b GroupBounds) Contains(x float64) bool { return x >= b.XStart && x <= b.XEnd }

// Result is the output of [Compute].
type Result struct {
	Positions map[string]Position `json:"positions"`
	// Order lists positioned node ids in placement order.
	Order []string `json:"order"`
	// Steps maps node ids to their step, including derived assignments.
	Steps  map[string]string `json:"steps"`
	Groups []GroupBounds     `json:"groups"`
	// Dropped lists attestations whose verified node has no position.
	Dropped []string `json:"dropped,omitempty"`
}

// Position returns the placement of id.
func (r *Result) Position(id string) (Position, bool) {
	p, ok := r.Positions[id]
	return p, ok
}

// column tracks the last output column and how far down it is occupied.
type column struct {
	x      float64
	bottom float64
}

type placer struct {
	cfg   config.Layout
	res   *Result
	types map[string]manifest.AssetType
	cls   Classifier
}

func (p *placer) put(id string, x, y float64, group string) {
	if _, ok := p.res.Positions[id]; ok {
		return
	}
	p.res.Positions[id] = Position{X: x, Y: y, Group: group}
	p.res.Order = append(p.res.Order, id)
}

// fan places ids in one column centered on the timeline and returns the
// lowest y used.
func (p *placer) fan(ids []string, x float64, group string) float64 {
	n := len(ids)
	bottom := p.cfg.TimelineY
	for i, id := range ids {
		y := p.cfg.TimelineY + (float64(i)-float64(n-1)/2)*p.cfg.VerticalGap
		p.put(id, x, y, group)
		bottom = math.Max(bottom, y)
	}
	return bottom
}

// stack places ids in one column below bottom and returns the new bottom.
func (p *placer) stack(ids []string, x, bottom float64, group string) float64 {
	for _, id := range ids {
		bottom += p.cfg.VerticalGap
		p.put(id, x, bottom, group)
	}
	return bottom
}

// Compute lays out m. It never fails: dangling references are skipped and
// attestations without a positioned target are reported in Dropped.
func Compute(m *manifest.Manifest, cfg config.Layout) *Result {
	res := &Result{
		Positions: make(map[string]Position),
		Steps:     make(map[string]string),
	}
	p := &placer{
		cfg:   cfg,
		res:   res,
		types: make(map[string]manifest.AssetType, len(m.Assets)),
		cls:   NewClassifier(cfg.SupportingPriority),
	}
	for _, a := range m.Assets {
		p.types[a.ID] = a.Type
	}

	groups := Partition(m, p.cls)
	var (
		cursor  float64
		prev    *column
		pending []string
		last    *NodeGroup
		// adopted maps deferred supporting assets to the group they were
		// placed with.
		adopted = make(map[string]*NodeGroup)
	)
	for _, g := range groups {
		switch g.Kind() {
		case GroupDeferred:
			pending = append(pending, g.Supporting...)

		case GroupIngest:
			x := cursor
			bottom := p.fan(g.Outputs, x, g.Key)
			bottom = p.stack(p.cls.Sort(g.Supporting, p.types), x, bottom, g.Key)
			prev = &column{x: x, bottom: bottom}
			cursor = x + cfg.HorizontalGap
			last = g

		case GroupAction:
			for _, id := range pending {
				adopted[id] = g
			}
			supporting := p.cls.Sort(append(pending, g.Supporting...), p.types)
			pending = nil

			actionX := cursor
			if prev == nil {
				if len(supporting) > 0 {
					p.fan(supporting, cursor, g.Key)
					actionX = cursor + cfg.HorizontalGap
				}
			} else {
				prev.bottom = p.stack(supporting, prev.x, prev.bottom, g.Key)
			}

			bottom := p.fan(g.Actions, actionX, g.Key)
			next := column{x: actionX, bottom: bottom}
			if len(g.Outputs) > 0 {
				outX := actionX + cfg.HorizontalGap
				next = column{x: outX, bottom: p.fan(g.Outputs, outX, g.Key)}
			}
			prev = &next
			cursor = next.x + cfg.HorizontalGap
			last = g
		}
	}

	if len(pending) > 0 {
		sorted := p.cls.Sort(pending, p.types)
		if prev != nil {
			p.stack(sorted, prev.x, prev.bottom, last.Key)
			for _, id := range pending {
				adopted[id] = last
			}
		} else {
			p.fan(sorted, cursor, "")
		}
	}

	assignSteps(m, groups, adopted, res)
	placeAttestations(m, p)
	res.Groups = ComputeStepBounds(m.Steps, res.Positions, res.Steps, cfg.BoundsPadding)
	return res
}

// assignSteps records the step of every grouped node. Deferred supporting
// assets without a step of their own take the step of the group they were
// placed with; explicit steps in the manifest win.
func assignSteps(m *manifest.Manifest, groups []*NodeGroup, adopted map[string]*NodeGroup, res *Result) {
	for _, g := range groups {
		if g.Step == "" {
			continue
		}
		for _, ids := range [][]string{g.Actions, g.Supporting, g.Outputs} {
			for _, id := range ids {
				res.Steps[id] = g.Step
			}
		}
	}
	for id, g := range adopted {
		if _, ok := res.Steps[id]; !ok && g.Step != "" {
			res.Steps[id] = g.Step
		}
	}
	for _, c := range m.Computations {
		if c.Step != "" {
			res.Steps[c.ID] = c.Step
		}
	}
	for _, a := range m.Assets {
		if a.Step != "" {
			res.Steps[a.ID] = a.Step
		}
	}
}

// placeAttestations puts each attestation below the first verified node
// that has a position; further attestations on the same node stack below.
func placeAttestations(m *manifest.Manifest, p *placer) {
	below := make(map[string]int)
	for _, att := range m.Attestations {
		placed := false
		for _, target := range att.Verifies {
			pos, ok := p.res.Positions[target]
			if !ok {
				continue
			}
			below[target]++
			y := pos.Y + float64(below[target])*p.cfg.AttestationOffset
			p.put(att.ID, pos.X, y, pos.Group)
			if step, ok := p.res.Steps[target]; ok {
				p.res.Steps[att.ID] = step
			}
			placed = true
			break
		}
		if !placed {
			p.res.Dropped = append(p.res.Dropped, att.ID)
		}
	}
}

// ComputeStepBounds returns one band per step in steps order, spanning the
// x range of its positioned nodes expanded by padding. Steps with no
// positioned nodes are omitted. Call it again whenever positions change.
func ComputeStepBounds(steps []manifest.Step, positions map[string]Position, stepOf map[string]string, padding float64) []GroupBounds {
	type span struct{ lo, hi float64 }
	spans := make(map[string]*span, len(steps))
	for _, s := range steps {
		spans[s.ID] = nil
	}
	for id, step := range stepOf {
		pos, ok := positions[id]
		if !ok {
			continue
		}
		sp, known := spans[step]
		if !known {
			continue
		}
		if sp == nil {
			spans[step] = &span{pos.X, pos.X}
			continue
		}
		sp.lo = math.Min(sp.lo, pos.X)
		sp.hi = math.Max(sp.hi, pos.X)
	}

	var out []GroupBounds
	for _, s := range steps {
		sp := spans[s.ID]
		if sp == nil {
			continue
		}
		out = append(out, GroupBounds{
			ID:     s.ID,
			Label:  s.Label,
			Phase:  s.Phase,
			XStart: sp.lo - padding,
			XEnd:   sp.hi + padding,
		})
	}
	return out
}
