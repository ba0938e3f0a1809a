package player

import (
	"sync"
	"time"

	"github.com/satindergrewal/focusflow/internal/soundscape"
)

// fakeClock fires timers only from Advance, on the calling goroutine.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	c       *fakeClock
	due     time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	pending := !t.stopped && !t.fired
	t.stopped = true
	return pending
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{c: c, due: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward by d, running every timer that comes due in
// order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.due > target {
				continue
			}
			if next == nil || t.due < next.due {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.due
		next.fired = true
		c.mu.Unlock()

		next.f()
	}
}

// pending returns the number of timers that have not fired or stopped.
func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type fakeEngine struct {
	mu         sync.Mutex
	running    bool
	current    soundscape.ID
	switches   []soundscape.ID
	stops      int
	suspends   int
	volume     float64
	failEnsure error
	failSwitch error
}

func (e *fakeEngine) EnsureContextRunning() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failEnsure != nil {
		return e.failEnsure
	}
	e.running = true
	return nil
}

func (e *fakeEngine) SwitchTo(id soundscape.ID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return soundscape.ErrContextNotRunning
	}
	if e.failSwitch != nil {
		return e.failSwitch
	}
	e.current = id
	e.switches = append(e.switches, id)
	return nil
}

func (e *fakeEngine) StopAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.current = ""
	e.stops++
}

func (e *fakeEngine) SetVolume(v float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = soundscape.ClampVolume(v)
	return e.volume
}

func (e *fakeEngine) Suspend() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false
	e.suspends++
	return nil
}
