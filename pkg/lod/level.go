// Package lod maps the continuous zoom scale onto three discrete view levels
// and runs the crossfade between them.
//
// Levels are totally ordered from most zoomed out to most zoomed in:
//
//	ContentSession < WorkflowOverview < WorkflowDetail
//
// The controller uses a threshold policy: two scale thresholds split the zoom
// range into three bands, and crossing one moves to the adjacent level. A
// zoom that jumps across both thresholds still moves one level per
// transition.
//
// Node content simplification (text mode) is a separate check on the same
// scale and is independent of the view level.
package lod

import (
	"fmt"
	"strings"

	"github.com/matzehuels/provgraph/pkg/config"
)

// Level is a discrete view level.
type Level int

const (
	ContentSession Level = iota
	WorkflowOverview
	WorkflowDetail
)

// Levels lists all levels in order.
var Levels = []Level{ContentSession, WorkflowOverview, WorkflowDetail}

func (l Level) String() string {
	switch l {
	case ContentSession:
		return "content-session"
	case WorkflowOverview:
		return "workflow-overview"
	case WorkflowDetail:
		return "workflow-detail"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// Valid reports whether l is one of the three levels.
func (l Level) Valid() bool { return l >= ContentSession && l <= WorkflowDetail }

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(b []byte) error {
	v, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// ParseLevel parses a level name such as "workflow-detail".
func ParseLevel(s string) (Level, error) {
	for _, l := range Levels {
		if strings.EqualFold(s, l.String()) {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown view level %q", s)
}

// Threshold is the scale-threshold level policy.
type Threshold struct {
	Overview float64 // below: ContentSession
	Detail   float64 // at or above: WorkflowDetail
}

// ThresholdFrom builds the policy from configuration.
func ThresholdFrom(cfg config.LOD) Threshold {
	return Threshold{Overview: cfg.OverviewThreshold, Detail: cfg.DetailThreshold}
}

// LevelFor returns the band scale falls into.
func (t Threshold) LevelFor(scale float64) Level {
	switch {
	case scale < t.Overview:
		return ContentSession
	case scale < t.Detail:
		return WorkflowOverview
	default:
		return WorkflowDetail
	}
}

// Next returns the level one step from cur toward the band of scale, and
// false when scale is already inside cur's band.
func (t Threshold) Next(cur Level, scale float64) (Level, bool) {
	target := t.LevelFor(scale)
	switch {
	case target > cur:
		return cur + 1, true
	case target < cur:
		return cur - 1, true
	}
	return cur, false
}

// TextMode reports whether nodes render in compact single-line form.
func TextMode(cfg config.LOD, scale float64) bool {
	return scale < cfg.TextModeThreshold
}
