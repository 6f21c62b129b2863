package lod

import (
	"testing"
	"time"

	"github.com/matzehuels/provgraph/pkg/anim"
	"github.com/matzehuels/provgraph/pkg/config"
)

func testConfig() config.LOD {
	return config.LOD{
		OverviewThreshold: 0.25,
		DetailThreshold:   0.6,
		FadeDuration:      100 * time.Millisecond,
		TextModeThreshold: 0.45,
	}
}

func TestLevelOrdering(t *testing.T) {
	if !(ContentSession < WorkflowOverview && WorkflowOverview < WorkflowDetail) {
		t.Fatal("levels are not ordered from zoomed out to zoomed in")
	}
	for _, l := range Levels {
		got, err := ParseLevel(l.String())
		if err != nil || got != l {
			t.Errorf("ParseLevel(%q) = %v, %v", l.String(), got, err)
		}
	}
	if _, err := ParseLevel("zoomed"); err == nil {
		t.Error("ParseLevel(zoomed) succeeded, want error")
	}
}

func TestThresholdLevelFor(t *testing.T) {
	p := ThresholdFrom(testConfig())
	tests := []struct {
		scale float64
		want  Level
	}{
		{0.01, ContentSession},
		{0.249, ContentSession},
		{0.25, WorkflowOverview},
		{0.5, WorkflowOverview},
		{0.6, WorkflowDetail},
		{3, WorkflowDetail},
	}
	for _, tt := range tests {
		if got := p.LevelFor(tt.scale); got != tt.want {
			t.Errorf("LevelFor(%v) = %v, want %v", tt.scale, got, tt.want)
		}
	}
}

func TestCheckScaleNeverSkipsALevel(t *testing.T) {
	scales := []float64{0.01, 0.1, 0.3, 0.59, 0.6, 1, 4}
	for _, start := range Levels {
		for _, s := range scales {
			c := NewController(testConfig(), anim.NewTimeline(), start, Hooks{}, nil)
			next, ok := c.CheckScale(s)
			if !ok {
				if next != start {
					t.Errorf("CheckScale(%v) from %v = %v without change", s, start, next)
				}
				continue
			}
			if d := int(next) - int(start); d != 1 && d != -1 {
				t.Errorf("CheckScale(%v) from %v = %v, moved %d levels", s, start, next, d)
			}
		}
	}
}

func TestCheckScaleRefusesWhileBusy(t *testing.T) {
	tl := anim.NewTimeline()
	c := NewController(testConfig(), tl, WorkflowDetail, Hooks{}, nil)

	if !c.Update(0.3) {
		t.Fatal("Update(0.3) from detail did not start a transition")
	}
	if !c.IsTransitioning() {
		t.Fatal("IsTransitioning() = false during crossfade")
	}
	if _, ok := c.CheckScale(0.01); ok {
		t.Error("CheckScale triggered while transitioning")
	}
	if err := c.Transition(ContentSession, nil); err != ErrTransitioning {
		t.Errorf("Transition during crossfade = %v, want ErrTransitioning", err)
	}

	tl.Advance(time.Second)
	tl.Advance(time.Second)
	if c.IsTransitioning() || c.Level() != WorkflowOverview {
		t.Fatalf("after crossfade: level %v transitioning %v", c.Level(), c.IsTransitioning())
	}

	c.Lock()
	if c.Phase() != Locked {
		t.Errorf("Phase() = %v, want locked", c.Phase())
	}
	if _, ok := c.CheckScale(0.01); ok {
		t.Error("CheckScale triggered while locked")
	}
	c.Unlock()
	if next, ok := c.CheckScale(0.01); !ok || next != ContentSession {
		t.Errorf("CheckScale(0.01) after unlock = %v, %v", next, ok)
	}
}

func TestCrossfadeSequence(t *testing.T) {
	tl := anim.NewTimeline()
	var events []string
	var c *Controller
	c = NewController(testConfig(), tl, WorkflowOverview, Hooks{
		Reposition: func(from, to Level) {
			if c.Alpha(from) != 0 || c.Alpha(to) != 0 {
				t.Errorf("reposition with alpha from=%v to=%v, want both 0", c.Alpha(from), c.Alpha(to))
			}
			if !c.IsTransitioning() {
				t.Error("reposition outside transition")
			}
			events = append(events, "reposition")
		},
		Render:  func() { events = append(events, "render") },
		Changed: func(from, to Level) { events = append(events, "changed:"+from.String()+">"+to.String()) },
	}, nil)

	doneCalled := false
	if err := c.Transition(WorkflowDetail, func() { doneCalled = true }); err != nil {
		t.Fatal(err)
	}

	tl.Advance(50 * time.Millisecond)
	if a := c.Alpha(WorkflowOverview); a <= 0 || a >= 1 {
		t.Errorf("mid fade-out alpha = %v", a)
	}
	if len(events) != 0 {
		t.Errorf("events before fade-out completed: %v", events)
	}

	tl.Advance(50 * time.Millisecond)
	if c.Level() != WorkflowDetail {
		t.Errorf("level after fade-out = %v", c.Level())
	}
	tl.Advance(50 * time.Millisecond)
	if a := c.Alpha(WorkflowDetail); a <= 0 || a >= 1 {
		t.Errorf("mid fade-in alpha = %v", a)
	}
	if !c.IsTransitioning() {
		t.Error("transition ended before fade-in completed")
	}
	tl.Advance(50 * time.Millisecond)

	want := []string{"reposition", "render", "changed:workflow-overview>workflow-detail"}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("events[%d] = %q, want %q", i, events[i], want[i])
		}
	}
	if !doneCalled || c.IsTransitioning() {
		t.Errorf("done=%v transitioning=%v", doneCalled, c.IsTransitioning())
	}
	if c.Alpha(WorkflowDetail) != 1 || c.Alpha(WorkflowOverview) != 0 {
		t.Errorf("final alphas detail=%v overview=%v", c.Alpha(WorkflowDetail), c.Alpha(WorkflowOverview))
	}
}

func TestExplicitTransitionMaySkipWhileLocked(t *testing.T) {
	tl := anim.NewTimeline()
	c := NewController(testConfig(), tl, ContentSession, Hooks{}, nil)
	c.Lock()
	if err := c.Transition(WorkflowDetail, nil); err != nil {
		t.Fatal(err)
	}
	tl.Flush()
	tl.Flush()
	if c.Level() != WorkflowDetail {
		t.Errorf("Level() = %v, want workflow-detail", c.Level())
	}
	if c.Phase() != Locked {
		t.Errorf("Phase() = %v, want locked", c.Phase())
	}
}

func TestTransitionSameLevel(t *testing.T) {
	tl := anim.NewTimeline()
	c := NewController(testConfig(), tl, WorkflowDetail, Hooks{}, nil)
	called := false
	if err := c.Transition(WorkflowDetail, func() { called = true }); err != nil {
		t.Fatal(err)
	}
	if !called || tl.Active() != 0 {
		t.Errorf("same-level transition: done=%v active=%d", called, tl.Active())
	}
	if err := c.Transition(Level(7), nil); err != ErrInvalidLevel {
		t.Errorf("Transition(7) = %v, want ErrInvalidLevel", err)
	}
}

func TestTextModeIndependentOfLevel(t *testing.T) {
	c := NewController(testConfig(), anim.NewTimeline(), WorkflowDetail, Hooks{}, nil)
	st := c.Status(0.4)
	if st.Level != WorkflowDetail || !st.TextMode {
		t.Errorf("Status(0.4) = %+v, want detail in text mode", st)
	}
	if c.TextMode(0.9) {
		t.Error("TextMode(0.9) = true, want false")
	}
}
