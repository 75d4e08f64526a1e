// Package gesture tells single taps, double taps and drags apart from a
// stream of pointer events.
//
// A tap is a press and release that stays within the movement threshold. A
// tap is reported as Single once the double-tap window, measured from its
// press, has passed with no second press, or as Double when a second press
// lands inside the window and is released promptly. A press
// that travels further than the threshold is reported as Suppressed and never
// produces a Single or a Double.
package gesture

import (
	"math"
	"time"
)

const (
	// DefaultWindow is the longest press-to-press gap of a double tap
	DefaultWindow = 300 * time.Millisecond
	// DefaultMoveThreshold is how far in CSS pixels a tap may travel
	DefaultMoveThreshold = 10.0
)

// Outcome is the classification of a gesture
type Outcome int

const (
	// Single is a lone tap whose double-tap window closed
	Single Outcome = iota + 1
	// Double is two taps inside one window
	Double
	// Suppressed is a press that moved past the threshold
	Suppressed
)

func (o Outcome) String() string {
	switch o {
	case Single:
		return "single"
	case Double:
		return "double"
	case Suppressed:
		return "suppressed"
	}
	return "unknown"
}

// Point is a pointer position in CSS pixels
type Point struct {
	X, Y float64
}

func (p Point) distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Event is a classified gesture
type Event struct {
	Outcome Outcome
	At      time.Time
	Point   Point
}

// Config tunes the classifier. Zero values fall back to the defaults.
type Config struct {
	Window        time.Duration
	MoveThreshold float64
}

func (c Config) withDefaults() Config {
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.MoveThreshold <= 0 {
		c.MoveThreshold = DefaultMoveThreshold
	}
	return c
}

// Classifier is a pure state machine driven by timestamps. It is not safe for
// concurrent use; Timer adds locking and wall-clock scheduling.
type Classifier struct {
	cfg Config

	pressing bool
	pressAt  time.Time
	pressPos Point
	moved    bool

	pending        bool
	pendingPressAt time.Time
	pendingRelease time.Time
	pendingPos     Point
}

// NewClassifier creates a classifier
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{cfg: cfg.withDefaults()}
}

// Press starts a gesture at p
func (c *Classifier) Press(p Point, at time.Time) []Event {
	events := c.flush(at)
	c.pressing = true
	c.pressAt = at
	c.pressPos = p
	c.moved = false
	return events
}

// Move tracks pointer travel while pressed
func (c *Classifier) Move(p Point, at time.Time) {
	if c.pressing && c.pressPos.distance(p) > c.cfg.MoveThreshold {
		c.moved = true
	}
}

// Release ends the current gesture at p and returns any outcomes that are
// decided by it.
//
// A second tap is a Double only when its press lands inside the window opened
// by the first press and it is released within one window of its own press.
// A longer hold starts a fresh tap.
func (c *Classifier) Release(p Point, at time.Time) []Event {
	if !c.pressing {
		return nil
	}
	c.pressing = false

	if c.moved || c.pressPos.distance(p) > c.cfg.MoveThreshold {
		c.moved = false
		events := c.emitPending()
		return append(events, Event{Outcome: Suppressed, At: at, Point: p})
	}

	if c.pending && c.secondPressInWindow() &&
		at.Sub(c.pressAt) < c.cfg.Window &&
		c.pendingPos.distance(p) <= c.cfg.MoveThreshold {
		c.pending = false
		return []Event{{Outcome: Double, At: at, Point: p}}
	}

	events := c.emitPending()
	c.pending = true
	c.pendingPressAt = c.pressAt
	c.pendingRelease = at
	c.pendingPos = p
	return events
}

// Advance reports a pending tap as Single once its window has elapsed at now
func (c *Classifier) Advance(now time.Time) []Event {
	return c.flush(now)
}

// Deadline is when the pending tap will turn into a Single. There is none
// while no tap is pending or while a second press is held inside the window.
func (c *Classifier) Deadline() (time.Time, bool) {
	if !c.pending || (c.pressing && c.secondPressInWindow()) {
		return time.Time{}, false
	}
	return c.pendingDeadline(), true
}

// Reset drops all state without reporting anything
func (c *Classifier) Reset() {
	*c = Classifier{cfg: c.cfg}
}

func (c *Classifier) secondPressInWindow() bool {
	return c.pressAt.Sub(c.pendingPressAt) < c.cfg.Window
}

// pendingDeadline is one window after the pending press, or its release when
// the tap was held longer than that.
func (c *Classifier) pendingDeadline() time.Time {
	deadline := c.pendingPressAt.Add(c.cfg.Window)
	if c.pendingRelease.After(deadline) {
		return c.pendingRelease
	}
	return deadline
}

// flush emits the pending tap if its window has closed. A press that started
// inside the window holds the tap back until that press is released.
func (c *Classifier) flush(now time.Time) []Event {
	if !c.pending {
		return nil
	}
	if c.pressing && c.secondPressInWindow() {
		return nil
	}
	if now.Before(c.pendingDeadline()) {
		return nil
	}
	return c.emitPending()
}

func (c *Classifier) emitPending() []Event {
	if !c.pending {
		return nil
	}
	c.pending = false
	return []Event{{Outcome: Single, At: c.pendingDeadline(), Point: c.pendingPos}}
}
