package lod

import (
	"errors"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/provgraph/pkg/anim"
	"github.com/matzehuels/provgraph/pkg/config"
)

// Owner is the tween owner used for crossfades.
const Owner = "lod"

var (
	// ErrTransitioning is returned when a transition is requested while
	// another is running.
	ErrTransitioning = errors.New("lod: transition in progress")

	// ErrInvalidLevel is returned for a level outside the known range.
	ErrInvalidLevel = errors.New("lod: invalid level")
)

// Phase is the tri-state of the controller.
type Phase int

const (
	Idle Phase = iota
	Transitioning
	Locked
)

func (p Phase) String() string {
	switch p {
	case Transitioning:
		return "transitioning"
	case Locked:
		return "locked"
	}
	return "idle"
}

// Status is the externally visible LOD state.
type Status struct {
	Level         Level `json:"level"`
	Transitioning bool  `json:"transitioning"`
	TextMode      bool  `json:"text_mode"`
}

// Hooks are invoked at the fixed points of a crossfade.
type Hooks struct {
	// Reposition runs after the old level is fully faded out and before the
	// new one fades in.
	Reposition func(from, to Level)
	// Render forces a render of the new level while it is invisible.
	Render func()
	// Changed runs once the new level is fully visible.
	Changed func(from, to Level)
}

// Controller owns the active level and its crossfade.
type Controller struct {
	cfg    config.LOD
	policy Threshold
	sched  anim.Scheduler
	hooks  Hooks
	logger *log.Logger

	mu            sync.Mutex
	level         Level
	transitioning bool
	locked        bool
	alpha         [3]float64
}

// NewController returns a controller at level start, fully visible.
func NewController(cfg config.LOD, sched anim.Scheduler, start Level, hooks Hooks, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.Default()
	}
	c := &Controller{
		cfg:    cfg,
		policy: ThresholdFrom(cfg),
		sched:  sched,
		hooks:  hooks,
		logger: logger,
		level:  start,
	}
	c.alpha[start] = 1
	return c
}

// Level returns the active level.
func (c *Controller) Level() Level {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.level
}

// Phase returns idle, transitioning or locked. A transition reports
// Transitioning even while locked.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.transitioning:
		return Transitioning
	case c.locked:
		return Locked
	}
	return Idle
}

// IsTransitioning reports whether a crossfade is running.
func (c *Controller) IsTransitioning() bool { return c.Phase() == Transitioning }

// Alpha returns the current opacity of level's layer.
func (c *Controller) Alpha(l Level) float64 {
	if !l.Valid() {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.alpha[l]
}

// Status returns the level, transition flag and text mode for scale.
func (c *Controller) Status(scale float64) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{Level: c.level, Transitioning: c.transitioning, TextMode: TextMode(c.cfg, scale)}
}

// TextMode reports whether nodes render compactly at scale.
func (c *Controller) TextMode(scale float64) bool { return TextMode(c.cfg, scale) }

// Lock suspends scale-driven transitions.
func (c *Controller) Lock() {
	c.mu.Lock()
	c.locked = true
	c.mu.Unlock()
}

// Unlock resumes scale-driven transitions.
func (c *Controller) Unlock() {
	c.mu.Lock()
	c.locked = false
	c.mu.Unlock()
}

// CheckScale returns the adjacent level the scale calls for. It reports
// false while transitioning, while locked, or when scale stays in the
// active band.
func (c *Controller) CheckScale(scale float64) (Level, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transitioning || c.locked {
		return c.level, false
	}
	return c.policy.Next(c.level, scale)
}

// Update checks scale and starts a transition when one is due.
func (c *Controller) Update(scale float64) bool {
	next, ok := c.CheckScale(scale)
	if !ok {
		return false
	}
	return c.Transition(next, nil) == nil
}

// SetLevel switches level without a crossfade.
func (c *Controller) SetLevel(l Level) error {
	if !l.Valid() {
		return ErrInvalidLevel
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transitioning {
		return ErrTransitioning
	}
	c.level = l
	c.alpha = [3]float64{}
	c.alpha[l] = 1
	return nil
}

// Transition crossfades to level to: fade out the active layer (ease-in),
// reposition, render, then fade the new layer in (ease-out). Explicit
// transitions may skip levels and are allowed while locked. done runs after
// the fade-in completes.
func (c *Controller) Transition(to Level, done func()) error {
	if !to.Valid() {
		return ErrInvalidLevel
	}
	c.mu.Lock()
	if c.transitioning {
		c.mu.Unlock()
		return ErrTransitioning
	}
	from := c.level
	if to == from {
		c.mu.Unlock()
		if done != nil {
			done()
		}
		return nil
	}
	c.transitioning = true
	c.mu.Unlock()

	c.logger.Debug("view level transition", "from", from, "to", to)
	c.sched.Animate(anim.Tween{
		Owner:    Owner,
		Duration: c.cfg.FadeDuration,
		Ease:     anim.EaseInQuad,
		Step:     func(t float64) { c.setAlpha(from, 1-t) },
		Done:     func() { c.swap(from, to, done) },
	})
	return nil
}

func (c *Controller) swap(from, to Level, done func()) {
	c.mu.Lock()
	c.level = to
	c.alpha[from] = 0
	c.alpha[to] = 0
	c.mu.Unlock()

	if c.hooks.Reposition != nil {
		c.hooks.Reposition(from, to)
	}
	if c.hooks.Render != nil {
		c.hooks.Render()
	}

	c.sched.Animate(anim.Tween{
		Owner:    Owner,
		Duration: c.cfg.FadeDuration,
		Ease:     anim.EaseOutQuad,
		Step:     func(t float64) { c.setAlpha(to, t) },
		Done: func() {
			c.mu.Lock()
			c.transitioning = false
			c.mu.Unlock()
			if c.hooks.Changed != nil {
				c.hooks.Changed(from, to)
			}
			if done != nil {
				done()
			}
		},
	})
}

func (c *Controller) setAlpha(l Level, a float64) {
	c.mu.Lock()
	c.alpha[l] = a
	c.mu.Unlock()
}
