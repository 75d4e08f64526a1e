package gesture

import (
	"sync"
	"time"
)

// Timer drives a Classifier from wall-clock time, reporting a pending Single
// when its window expires. After Close no further events are delivered.
type Timer struct {
	mu     sync.Mutex
	c      *Classifier
	emit   func(Event)
	timer  *time.Timer
	closed bool
	now    func() time.Time
}

// NewTimer creates a Timer that passes every classified gesture to emit.
// emit is called without the Timer's lock held.
func NewTimer(cfg Config, emit func(Event)) *Timer {
	return &Timer{c: NewClassifier(cfg), emit: emit, now: time.Now}
}

// Press starts a gesture at p
func (t *Timer) Press(p Point) {
	t.do(func(now time.Time) []Event { return t.c.Press(p, now) })
}

// Move tracks pointer travel while pressed
func (t *Timer) Move(p Point) {
	t.do(func(now time.Time) []Event {
		t.c.Move(p, now)
		return nil
	})
}

// Release ends the current gesture at p
func (t *Timer) Release(p Point) {
	t.do(func(now time.Time) []Event { return t.c.Release(p, now) })
}

// Close cancels the pending timer and discards any undecided tap
func (t *Timer) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.c.Reset()
}

func (t *Timer) do(step func(now time.Time) []Event) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	events := step(t.now())
	t.reschedule()
	t.mu.Unlock()

	t.deliver(events)
}

// reschedule must be called with mu held
func (t *Timer) reschedule() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	deadline, ok := t.c.Deadline()
	if !ok {
		return
	}
	t.timer = time.AfterFunc(deadline.Sub(t.now()), t.fire)
}

func (t *Timer) fire() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	events := t.c.Advance(t.now())
	t.reschedule()
	t.mu.Unlock()

	t.deliver(events)
}

func (t *Timer) deliver(events []Event) {
	if t.emit == nil {
		return
	}
	for _, e := range events {
		t.emit(e)
	}
}
