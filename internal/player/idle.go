package player

import (
	"sync"
	"time"
)

// DefaultIdleHide is how long controls stay up without interaction while
// playing.
const DefaultIdleHide = 3 * time.Second

// IdleScheduler hides the controls after a quiet period during playback.
// Any interaction, or leaving playback, shows them again.
type IdleScheduler struct {
	clock  Clock
	after  time.Duration
	onHide func()

	mu      sync.Mutex
	playing bool
	visible bool
	timer   Timer
	gen     uint64
}

// NewIdleScheduler returns a scheduler with controls visible. onHide, if
// set, runs on the timer goroutine after the controls hide.
func NewIdleScheduler(clock Clock, after time.Duration, onHide func()) *IdleScheduler {
	if after <= 0 {
		after = DefaultIdleHide
	}
	return &IdleScheduler{clock: clock, after: after, onHide: onHide, visible: true}
}

// Interact shows the controls and restarts the countdown while playing.
func (s *IdleScheduler) Interact() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = true
	if s.playing {
		s.arm()
	}
}

// SetPlaying shows the controls and starts or cancels the countdown.
func (s *IdleScheduler) SetPlaying(playing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = playing
	s.visible = true
	if playing {
		s.arm()
	} else {
		s.disarm()
	}
}

// Toggle flips visibility by hand. Showing restarts the countdown.
func (s *IdleScheduler) Toggle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = !s.visible
	if s.visible && s.playing {
		s.arm()
	} else {
		s.disarm()
	}
}

// Stop cancels any countdown and shows the controls.
func (s *IdleScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
	s.visible = true
	s.disarm()
}

// Visible reports whether the controls are shown.
func (s *IdleScheduler) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

func (s *IdleScheduler) arm() {
	s.disarm()
	gen := s.gen
	s.timer = s.clock.AfterFunc(s.after, func() { s.expire(gen) })
}

func (s *IdleScheduler) disarm() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *IdleScheduler) expire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || !s.playing {
		s.mu.Unlock()
		return
	}
	s.visible = false
	s.timer = nil
	hook := s.onHide
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
}
