// Package player is the focus player state machine: which preset is
// selected, whether it is playing, the volume, the elapsed session time and
// whether the on-screen controls are showing.
package player

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/satindergrewal/focusflow/internal/soundscape"
)

// ErrClosed is returned by transitions that need an open player.
var ErrClosed = errors.New("player closed")

// State is the player's lifecycle state.
type State int

const (
	Closed State = iota
	Idle
	Playing
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Engine is the audio side the controller drives.
type Engine interface {
	EnsureContextRunning() error
	SwitchTo(id soundscape.ID) error
	StopAll()
	SetVolume(v float64) float64
	Suspend() error
}

// Snapshot is a consistent copy of the player state.
type Snapshot struct {
	State           State
	Preset          soundscape.ID
	Volume          float64
	Elapsed         int // whole seconds
	ControlsVisible bool
	Err             error // last device failure, cleared by a successful play
}

// Playing reports whether audio is running.
func (s Snapshot) Playing() bool {
	return s.State == Playing
}

// ElapsedText formats the elapsed time as mm:ss.
func (s Snapshot) ElapsedText() string {
	return FormatElapsed(s.Elapsed)
}

// FormatElapsed renders seconds as zero-padded mm:ss. Minutes keep counting
// past 59.
func FormatElapsed(sec int) string {
	if sec < 0 {
		sec = 0
	}
	return fmt.Sprintf("%02d:%02d", sec/60, sec%60)
}

// Options configures a Controller. Zero values select defaults; a nil Volume
// selects soundscape.DefaultVolume.
type Options struct {
	DefaultPreset soundscape.ID
	Volume        *float64
	IdleHide      time.Duration
	Clock         Clock
}

// Controller serialises player transitions and decides when the engine
// builds or tears down graphs.
type Controller struct {
	engine   Engine
	clock    Clock
	fallback soundscape.ID
	idle     *IdleScheduler

	mu      sync.Mutex
	state   State
	preset  soundscape.ID
	volume  float64
	elapsed int
	err     error
	tick    Timer
	gen     uint64

	subMu  sync.Mutex
	subs   map[int]func(Snapshot)
	nextID int
}

// NewController returns a closed player driving engine.
func NewController(engine Engine, opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	if !opts.DefaultPreset.Valid() {
		opts.DefaultPreset = soundscape.DefaultID
	}
	vol := soundscape.DefaultVolume
	if opts.Volume != nil {
		vol = soundscape.ClampVolume(*opts.Volume)
	}
	c := &Controller{
		engine:   engine,
		clock:    opts.Clock,
		fallback: opts.DefaultPreset,
		preset:   opts.DefaultPreset,
		volume:   vol,
		subs:     make(map[int]func(Snapshot)),
	}
	c.idle = NewIdleScheduler(opts.Clock, opts.IdleHide, c.onIdleHide)
	engine.SetVolume(c.volume)
	return c
}

// Open shows the player on id, or the default preset when id is empty.
// Opening an open player selects id.
func (c *Controller) Open(id soundscape.ID) error {
	if id == "" {
		id = c.fallback
	}
	if !id.Valid() {
		return fmt.Errorf("open: %w: %q", soundscape.ErrUnknownPreset, id)
	}

	c.mu.Lock()
	if c.state != Closed {
		err := c.selectLocked(id)
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.publish(snap)
		return err
	}
	c.state = Idle
	c.preset = id
	c.elapsed = 0
	c.err = nil
	c.idle.Stop()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	log.Printf("Player opened on %s", id)
	c.publish(snap)
	return nil
}

// SelectPreset changes the preset. While playing the engine switches graphs
// atomically; while idle only the selection changes.
func (c *Controller) SelectPreset(id soundscape.ID) error {
	if !id.Valid() {
		return fmt.Errorf("select: %w: %q", soundscape.ErrUnknownPreset, id)
	}
	c.mu.Lock()
	if c.state == Closed {
		c.mu.Unlock()
		return ErrClosed
	}
	err := c.selectLocked(id)
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)
	return err
}

func (c *Controller) selectLocked(id soundscape.ID) error {
	if id == c.preset {
		return nil
	}
	if c.state == Playing {
		if err := c.engine.SwitchTo(id); err != nil {
			c.err = err
			log.Printf("Switch to %s failed: %v", id, err)
			return fmt.Errorf("switch to %s: %w", id, err)
		}
	}
	c.preset = id
	return nil
}

// Play starts the selected preset. If the device cannot be opened the player
// stays idle and the error is kept in the snapshot.
func (c *Controller) Play() error {
	c.mu.Lock()
	switch c.state {
	case Closed:
		c.mu.Unlock()
		return ErrClosed
	case Playing:
		c.mu.Unlock()
		return nil
	}

	err := c.engine.EnsureContextRunning()
	if err == nil {
		err = c.engine.SwitchTo(c.preset)
	}
	if err != nil {
		c.err = err
		snap := c.snapshotLocked()
		c.mu.Unlock()
		log.Printf("Playback unavailable: %v", err)
		c.publish(snap)
		return fmt.Errorf("play %s: %w", snap.Preset, err)
	}

	c.state = Playing
	c.err = nil
	c.startTickLocked()
	c.idle.SetPlaying(true)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snap)
	return nil
}

// Pause stops the graph and the elapsed counter, keeping its value.
func (c *Controller) Pause() error {
	c.mu.Lock()
	switch c.state {
	case Closed:
		c.mu.Unlock()
		return ErrClosed
	case Idle:
		c.mu.Unlock()
		return nil
	}

	c.engine.StopAll()
	if err := c.engine.Suspend(); err != nil {
		log.Printf("Suspend output: %v", err)
	}
	c.state = Idle
	c.stopTickLocked()
	c.idle.SetPlaying(false)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snap)
	return nil
}

// Toggle plays when idle and pauses when playing.
func (c *Controller) Toggle() error {
	c.mu.Lock()
	playing := c.state == Playing
	c.mu.Unlock()
	if playing {
		return c.Pause()
	}
	return c.Play()
}

// Close stops everything and resets the elapsed counter. Closing a closed
// player does nothing.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.state == Closed {
		c.mu.Unlock()
		return
	}
	c.engine.StopAll()
	if err := c.engine.Suspend(); err != nil {
		log.Printf("Suspend output: %v", err)
	}
	c.state = Closed
	c.elapsed = 0
	c.stopTickLocked()
	c.idle.Stop()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	log.Println("Player closed")
	c.publish(snap)
}

// SetVolume clamps v to [0, 1] and forwards it to the engine. It applies at
// once while playing and is remembered otherwise.
func (c *Controller) SetVolume(v float64) (float64, error) {
	c.mu.Lock()
	if c.state == Closed {
		c.mu.Unlock()
		return c.volume, ErrClosed
	}
	c.volume = c.engine.SetVolume(v)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snap)
	return snap.Volume, nil
}

// Interact records pointer or key activity.
func (c *Controller) Interact() {
	c.mu.Lock()
	if c.state == Closed {
		c.mu.Unlock()
		return
	}
	wasHidden := !c.idle.Visible()
	c.idle.Interact()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if wasHidden {
		c.publish(snap)
	}
}

// ToggleControls shows or hides the controls by hand.
func (c *Controller) ToggleControls() {
	c.mu.Lock()
	if c.state == Closed {
		c.mu.Unlock()
		return
	}
	c.idle.Toggle()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers fn for every state change. fn runs outside the
// controller lock and must not block. The returned func unsubscribes.
func (c *Controller) Subscribe(fn func(Snapshot)) (cancel func()) {
	c.subMu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subs, id)
		c.subMu.Unlock()
	}
}

func (c *Controller) publish(s Snapshot) {
	c.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:           c.state,
		Preset:          c.preset,
		Volume:          c.volume,
		Elapsed:         c.elapsed,
		ControlsVisible: c.idle.Visible(),
		Err:             c.err,
	}
}

func (c *Controller) startTickLocked() {
	c.stopTickLocked()
	c.scheduleTickLocked(c.gen)
}

func (c *Controller) scheduleTickLocked(gen uint64) {
	c.tick = c.clock.AfterFunc(time.Second, func() { c.onTick(gen) })
}

func (c *Controller) stopTickLocked() {
	c.gen++
	if c.tick != nil {
		c.tick.Stop()
		c.tick = nil
	}
}

func (c *Controller) onTick(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.state != Playing {
		c.mu.Unlock()
		return
	}
	c.elapsed++
	c.scheduleTickLocked(gen)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(snap)
}

func (c *Controller) onIdleHide() {
	c.mu.Lock()
	if c.state != Playing {
		c.mu.Unlock()
		return
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)
}
