// Package drift moves a playing session between neighbouring soundscapes
// after a randomised dwell, so a long focus block does not sit on one
// texture.
package drift

import (
	"context"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/satindergrewal/focusflow/internal/player"
	"github.com/satindergrewal/focusflow/internal/soundscape"
)

// Config holds drift parameters.
type Config struct {
	DwellMin time.Duration
	DwellMax time.Duration
	Interval time.Duration // how often Run checks the dwell; zero means one second
	Rand     *rand.Rand
}

// Status is the current drift state.
type Status struct {
	Enabled        bool          `json:"enabled"`
	Preset         soundscape.ID `json:"preset"`
	DwellRemaining float64       `json:"dwell_remaining"` // seconds
}

// Player is the part of the controller drift drives.
type Player interface {
	Snapshot() player.Snapshot
	SelectPreset(id soundscape.ID) error
}

// Scheduler decides when to move to the next preset.
type Scheduler struct {
	player Player
	cfg    Config
	now    func() time.Time

	mu       sync.Mutex
	enabled  bool
	preset   soundscape.ID // preset the current dwell belongs to
	dwellEnd time.Time
}

// NewScheduler returns a disabled scheduler for p.
func NewScheduler(p Player, cfg Config) *Scheduler {
	if cfg.DwellMin <= 0 {
		cfg.DwellMin = 10 * time.Minute
	}
	if cfg.DwellMax < cfg.DwellMin {
		cfg.DwellMax = cfg.DwellMin
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	return &Scheduler{player: p, cfg: cfg, now: time.Now}
}

// SetEnabled turns drifting on or off. Enabling starts a fresh dwell.
func (s *Scheduler) SetEnabled(enabled bool) {
	s.mu.Lock()
	s.enabled = enabled
	if enabled {
		s.preset = s.player.Snapshot().Preset
		s.resetDwell()
	}
	s.mu.Unlock()
	log.Printf("Drift enabled: %v", enabled)
}

// Enabled reports whether drifting is on.
func (s *Scheduler) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Status returns the current drift state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	remaining := s.dwellEnd.Sub(s.now()).Seconds()
	if remaining < 0 || !s.enabled {
		remaining = 0
	}
	return Status{Enabled: s.enabled, Preset: s.preset, DwellRemaining: remaining}
}

// Run checks the dwell every Interval. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.step()
		}
	}
}

// step moves to a neighbouring preset once the dwell has run out. Time spent
// paused does not count, and a preset chosen by hand starts a new dwell.
func (s *Scheduler) step() {
	snap := s.player.Snapshot()

	s.mu.Lock()
	if !s.enabled {
		s.mu.Unlock()
		return
	}
	now := s.now()
	if !snap.Playing() {
		// Hold the remaining dwell while paused.
		if s.dwellEnd.Before(now.Add(s.cfg.Interval)) {
			s.dwellEnd = now.Add(s.cfg.Interval)
		} else {
			s.dwellEnd = s.dwellEnd.Add(s.cfg.Interval)
		}
		s.mu.Unlock()
		return
	}
	if snap.Preset != s.preset {
		s.preset = snap.Preset
		s.resetDwell()
		s.mu.Unlock()
		return
	}
	if now.Before(s.dwellEnd) {
		s.mu.Unlock()
		return
	}

	next := Next(snap.Preset, s.cfg.Rand)
	s.preset = next
	s.resetDwell()
	s.mu.Unlock()

	log.Printf("Drift: %s -> %s", snap.Preset, next)
	if err := s.player.SelectPreset(next); err != nil {
		log.Printf("Drift to %s failed: %v", next, err)
	}
}

// resetDwell sets a new random dwell timer. Must be called with mu held.
func (s *Scheduler) resetDwell() {
	dwell := s.cfg.DwellMin
	if spread := s.cfg.DwellMax - s.cfg.DwellMin; spread > 0 {
		if s.cfg.Rand != nil {
			dwell += time.Duration(s.cfg.Rand.Int64N(int64(spread)))
		} else {
			dwell += time.Duration(rand.Int64N(int64(spread)))
		}
	}
	s.dwellEnd = s.now().Add(dwell)
}
