// Package anim provides a time-driven interpolation scheduler.
//
// A [Timeline] advances tweens by explicit time steps, which keeps every
// animation deterministic under test and lets the host decide where frames
// come from (a terminal tick, an HTTP request, a test loop):
//
//	tl := anim.NewTimeline()
//	h := tl.Animate(anim.Tween{
//	    Owner:    "viewport",
//	    Duration: 400 * time.Millisecond,
//	    Ease:     anim.EaseInOutCubic,
//	    Step:     func(t float64) { state.X = anim.Lerp(fromX, toX, t) },
//	})
//	tl.Advance(16 * time.Millisecond)
//	h.Cancel()
//
// Tweens sharing an Owner supersede each other: starting a new one cancels
// the one in flight, so two tweens never compete for the same state.
package anim

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Tween describes one animation.
type Tween struct {
	// Owner identifies the state being animated. Empty owners never
	// cancel each other.
	Owner    string
	Duration time.Duration
	Ease     Ease
	// Step receives eased progress in [0,1]. The final call is always 1.
	Step func(t float64)
	// Done runs once after the final Step. It does not run on cancel.
	Done func()
}

// Scheduler starts cancelable tweens.
type Scheduler interface {
	Animate(tw Tween) *Handle
	CancelOwner(owner string) int
}

// Handle refers to a started tween.
type Handle struct {
	id uuid.UUID
	tl *Timeline
}

// ID returns the tween's unique id.
func (h *Handle) ID() uuid.UUID { return h.id }

// Cancel stops the tween without completing it. It reports whether the
// tween was still running.
func (h *Handle) Cancel() bool {
	if h == nil || h.tl == nil {
		return false
	}
	return h.tl.cancel(h.id)
}

// Active reports whether the tween is still running.
func (h *Handle) Active() bool {
	if h == nil || h.tl == nil {
		return false
	}
	h.tl.mu.Lock()
	defer h.tl.mu.Unlock()
	for _, r := range h.tl.running {
		if r.id == h.id {
			return true
		}
	}
	return false
}

type run struct {
	id        uuid.UUID
	tw        Tween
	elapsed   time.Duration
	cancelled bool
}

// Timeline is a [Scheduler] advanced by explicit time steps.
// Callbacks run outside the internal lock and may start new tweens.
type Timeline struct {
	mu      sync.Mutex
	running []*run
	// finishing holds runs that reached their end in the current Advance or
	// Flush but whose final callbacks have not run yet. They can still be
	// cancelled by an earlier callback of the same frame.
	finishing []*run
}

// NewTimeline returns an empty timeline.
func NewTimeline() *Timeline {
	return &Timeline{}
}

// Animate starts tw, first cancelling any running tween with the same owner.
// A non-positive duration completes immediately.
func (tl *Timeline) Animate(tw Tween) *Handle {
	if tw.Ease == nil {
		tw.Ease = Linear
	}
	if tw.Owner != "" {
		tl.CancelOwner(tw.Owner)
	}
	h := &Handle{id: uuid.New()}
	if tw.Duration <= 0 {
		finish(tw)
		return h
	}

	h.tl = tl
	tl.mu.Lock()
	tl.running = append(tl.running, &run{id: h.id, tw: tw})
	tl.mu.Unlock()
	return h
}

// CancelOwner cancels every running tween of owner and returns how many.
func (tl *Timeline) CancelOwner(owner string) int {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	n := 0
	kept := tl.running[:0]
	for _, r := range tl.running {
		if r.tw.Owner == owner {
			r.cancelled = true
			n++
			continue
		}
		kept = append(kept, r)
	}
	clear(tl.running[len(kept):])
	tl.running = kept
	for _, r := range tl.finishing {
		if r.tw.Owner == owner && !r.cancelled {
			r.cancelled = true
			n++
		}
	}
	return n
}

func (tl *Timeline) cancel(id uuid.UUID) bool {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	for i, r := range tl.running {
		if r.id == id {
			r.cancelled = true
			tl.running = append(tl.running[:i], tl.running[i+1:]...)
			return true
		}
	}
	for _, r := range tl.finishing {
		if r.id == id && !r.cancelled {
			r.cancelled = true
			return true
		}
	}
	return false
}

// Advance moves every running tween forward by dt, completing those that
// reach their duration.
func (tl *Timeline) Advance(dt time.Duration) {
	tl.mu.Lock()
	type frame struct {
		r    *run
		t    float64
		done bool
	}
	frames := make([]frame, 0, len(tl.running))
	var done []*run
	kept := tl.running[:0]
	for _, r := range tl.running {
		r.elapsed += dt
		f := frame{r: r, done: r.elapsed >= r.tw.Duration}
		if f.done {
			f.t = 1
			done = append(done, r)
		} else {
			f.t = float64(r.elapsed) / float64(r.tw.Duration)
			kept = append(kept, r)
		}
		frames = append(frames, f)
	}
	clear(tl.running[len(kept):])
	tl.running = kept
	restore := tl.track(done)
	tl.mu.Unlock()
	defer restore()

	for _, f := range frames {
		if !tl.live(f.r) {
			continue
		}
		if f.done {
			tl.retire(f.r)
			finish(f.r.tw)
			continue
		}
		if f.r.tw.Step != nil {
			f.r.tw.Step(f.r.tw.Ease(f.t))
		}
	}
}

// track adds runs to the finishing set and returns a func removing them
// again. The caller holds tl.mu.
func (tl *Timeline) track(runs []*run) func() {
	if len(runs) == 0 {
		return func() {}
	}
	prev := len(tl.finishing)
	tl.finishing = append(tl.finishing, runs...)
	return func() {
		tl.mu.Lock()
		defer tl.mu.Unlock()
		clear(tl.finishing[prev:])
		tl.finishing = tl.finishing[:prev]
	}
}

// live reports whether r has not been cancelled; a callback earlier in the
// same frame may have cancelled or superseded it.
func (tl *Timeline) live(r *run) bool {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return !r.cancelled
}

// retire marks a finishing run as completed so later cancels skip it.
func (tl *Timeline) retire(r *run) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	r.cancelled = true
}

// Flush completes every running tween immediately.
func (tl *Timeline) Flush() {
	tl.mu.Lock()
	pending := tl.running
	tl.running = nil
	restore := tl.track(pending)
	tl.mu.Unlock()
	defer restore()
	for _, r := range pending {
		if !tl.live(r) {
			continue
		}
		tl.retire(r)
		finish(r.tw)
	}
}

// Active returns the number of running tweens.
func (tl *Timeline) Active() int {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return len(tl.running)
}

// Busy reports whether owner has a running tween.
func (tl *Timeline) Busy(owner string) bool {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	for _, r := range tl.running {
		if r.tw.Owner == owner {
			return true
		}
	}
	return false
}

func finish(tw Tween) {
	if tw.Step != nil {
		tw.Step(tw.Ease(1))
	}
	if tw.Done != nil {
		tw.Done()
	}
}

var _ Scheduler = (*Timeline)(nil)
