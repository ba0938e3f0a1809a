package soundscape

import (
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/gopxl/beep"

	"github.com/satindergrewal/focusflow/internal/audio"
	"github.com/satindergrewal/focusflow/internal/synth"
)

var (
	// ErrDeviceUnavailable wraps any failure to open the output device.
	ErrDeviceUnavailable = errors.New("audio device unavailable")
	// ErrContextNotRunning is returned by SwitchTo before
	// EnsureContextRunning has succeeded, or while the device is suspended.
	ErrContextNotRunning = errors.New("audio context not running")
)

// VolumeTimeConstant is the time constant of master volume ramps, in seconds.
const VolumeTimeConstant = 0.1

// DefaultVolume is the master level before any SetVolume call.
const DefaultVolume = 0.5

// ManagerConfig tunes a Manager. Zero values select defaults; a nil Volume
// selects DefaultVolume.
type ManagerConfig struct {
	SampleRate   beep.SampleRate
	Volume       *float64
	NoiseSeconds float64
	Rand         *rand.Rand
}

// Manager owns the output context, the master gain and the one live preset
// graph. All graph changes go through it.
type Manager struct {
	open    audio.OpenFunc
	rate    beep.SampleRate
	builder *Builder

	mu        sync.Mutex
	ctx       *synth.Context
	master    *synth.Gain
	dev       audio.Device
	suspended bool
	current   *Handle
	volume    float64
}

// NewManager returns a manager that opens its device with open on the first
// EnsureContextRunning call.
func NewManager(open audio.OpenFunc, cfg ManagerConfig) *Manager {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = audio.SampleRate
	}
	vol := DefaultVolume
	if cfg.Volume != nil {
		vol = ClampVolume(*cfg.Volume)
	}
	return &Manager{
		open:    open,
		rate:    cfg.SampleRate,
		builder: NewBuilder(cfg.NoiseSeconds, cfg.Rand),
		volume:  vol,
	}
}

// EnsureContextRunning creates the context and opens the device on first
// use, and resumes a suspended device afterwards.
func (m *Manager) EnsureContextRunning() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx == nil {
		ctx := synth.NewContext(m.rate)
		master := ctx.NewGain(m.volume)
		master.Connect(ctx.Destination())

		dev, err := m.open(ctx, m.rate)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
		}
		m.ctx, m.master, m.dev = ctx, master, dev
		m.suspended = false
		log.Printf("Audio context running at %d Hz", m.rate)
		return nil
	}

	if m.suspended {
		if err := m.dev.Resume(); err != nil {
			return fmt.Errorf("%w: resume: %w", ErrDeviceUnavailable, err)
		}
		m.suspended = false
	}
	return nil
}

// SwitchTo tears down the live graph and builds id in its place, in one step
// as seen by the renderer.
func (m *Manager) SwitchTo(id ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx == nil || m.suspended {
		return ErrContextNotRunning
	}

	m.ctx.Lock()
	m.stopLocked()
	h := m.builder.Build(m.ctx, id, m.master)
	m.current = &h
	m.ctx.Unlock()

	log.Printf("Now playing: %s (%d nodes, %d generators)", id, len(h.Entries), h.Generators())
	return nil
}

// StopAll stops and disconnects every node of the live graph. Safe to call
// at any time.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx == nil {
		return
	}
	m.ctx.Lock()
	m.stopLocked()
	m.ctx.Unlock()
}

// stopLocked needs m.mu and the context lock.
func (m *Manager) stopLocked() {
	if m.current == nil {
		return
	}
	for _, e := range m.current.Entries {
		if e.Generator {
			// A source may have ended on its own.
			_ = e.Node.Stop()
		}
	}
	for _, e := range m.current.Entries {
		e.Node.Disconnect()
	}
	m.current = nil
}

// SetVolume clamps v to [0, 1], remembers it and ramps the master gain
// towards it. It returns the clamped value.
func (m *Manager) SetVolume(v float64) float64 {
	v = ClampVolume(v)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = v
	if m.master != nil {
		m.ctx.Lock()
		m.master.Gain.SetTargetAtTime(v, VolumeTimeConstant)
		m.ctx.Unlock()
	}
	return v
}

// Volume returns the remembered volume.
func (m *Manager) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

// Suspend idles the device without closing it.
func (m *Manager) Suspend() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dev == nil || m.suspended {
		return nil
	}
	if err := m.dev.Suspend(); err != nil {
		return fmt.Errorf("suspend device: %w", err)
	}
	m.suspended = true
	return nil
}

// Close tears down the graph and releases the device. A later
// EnsureContextRunning opens a fresh one.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx == nil {
		return nil
	}
	m.ctx.Lock()
	m.stopLocked()
	m.master.Disconnect()
	m.ctx.Unlock()

	err := m.dev.Close()
	m.ctx, m.master, m.dev = nil, nil, nil
	m.suspended = false
	if err != nil {
		return fmt.Errorf("close device: %w", err)
	}
	return nil
}

// Running reports whether the context exists and is not suspended.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ctx != nil && !m.suspended
}

// Current returns the preset of the live graph.
func (m *Manager) Current() (ID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return "", false
	}
	return m.current.Preset, true
}

// ActiveGenerators returns the number of generators still running in the
// context, live graph or not.
func (m *Manager) ActiveGenerators() int {
	m.mu.Lock()
	ctx := m.ctx
	m.mu.Unlock()
	if ctx == nil {
		return 0
	}
	return ctx.ActiveGenerators()
}

// MasterInputs returns the number of connections into the master gain,
// counting both its input and its gain parameter.
func (m *Manager) MasterInputs() int {
	n := 0
	m.inspect(func(_ *Handle, master *synth.Gain) {
		if master != nil {
			n = master.Inputs() + master.Gain.Inputs()
		}
	})
	return n
}

// inspect runs fn with a consistent view of the graph.
func (m *Manager) inspect(fn func(h *Handle, master *synth.Gain)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx == nil {
		fn(nil, nil)
		return
	}
	m.ctx.Lock()
	defer m.ctx.Unlock()
	fn(m.current, m.master)
}

// ClampVolume limits v to [0, 1]. NaN is treated as silence.
func ClampVolume(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
