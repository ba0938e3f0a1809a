// Package tui is the terminal front end for local playback: a 4x3 preset
// grid, a session timer and volume, driven by the player controller.
package tui

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/satindergrewal/focusflow/internal/player"
	"github.com/satindergrewal/focusflow/internal/soundscape"
)

var debugLog io.Writer

// SetDebugLog directs UI debug lines to w. Nil disables them.
func SetDebugLog(w io.Writer) {
	debugLog = w
}

func log(format string, args ...interface{}) {
	if debugLog != nil {
		fmt.Fprintf(debugLog, format+"\n", args...)
	}
}

// Columns is the width of the preset grid.
const Columns = 4

// VolumeStep is the change per +/- key press.
const VolumeStep = 0.05

// Player is the part of the controller the UI drives.
type Player interface {
	Open(id soundscape.ID) error
	SelectPreset(id soundscape.ID) error
	Toggle() error
	SetVolume(v float64) (float64, error)
	Interact()
	ToggleControls()
	Close()
	Snapshot() player.Snapshot
	Subscribe(fn func(player.Snapshot)) (cancel func())
}

// Drifter switches drift mode; see package drift.
type Drifter interface {
	SetEnabled(enabled bool)
	Enabled() bool
}

// StatusMsg tells the model the player state changed.
type StatusMsg struct{}

// Model is the Bubbletea model for the player UI.
type Model struct {
	player  Player
	drift   Drifter
	presets []soundscape.Preset

	// Channel for receiving change notifications from the controller
	updates chan tea.Msg
	cancel  func()

	Cursor int
	Status player.Snapshot
	Err    error

	// Terminal dimensions
	Width  int
	Height int
}

// NewModel subscribes to p and places the cursor on its current preset.
func NewModel(p Player) Model {
	m := Model{
		player:  p,
		presets: soundscape.Presets(),
		updates: make(chan tea.Msg, 1),
		Status:  p.Snapshot(),
	}
	m.cancel = p.Subscribe(func(player.Snapshot) {
		select {
		case m.updates <- StatusMsg{}:
		default:
			// A refresh is already queued; it reads the latest snapshot.
		}
	})
	m.Cursor = m.indexOf(m.Status.Preset)
	return m
}

// WithDrift lets the d key toggle drift mode.
func (m Model) WithDrift(d Drifter) Model {
	m.drift = d
	return m
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return waitForStatus(m.updates)
}

func waitForStatus(ch chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		log("[DEBUG] Window size: %dx%d", m.Width, m.Height)

	case StatusMsg:
		m.Status = m.player.Snapshot()
		log("[DEBUG] Status: %s %s %s", m.Status.State, m.Status.Preset, m.Status.ElapsedText())
		return m, waitForStatus(m.updates)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	log("[DEBUG] Key: %q", key)
	if key != "c" {
		m.player.Interact()
	}
	m.Err = nil

	switch key {
	case "q", "ctrl+c":
		m.cancel()
		m.player.Close()
		return m, tea.Quit

	case "left", "h":
		m.move(-1)
	case "right", "l":
		m.move(1)
	case "up", "k":
		m.move(-Columns)
	case "down", "j":
		m.move(Columns)

	case "enter":
		id := m.presets[m.Cursor].ID
		if m.Status.State == player.Closed {
			m.Err = m.player.Open(id)
		} else {
			m.Err = m.player.SelectPreset(id)
		}

	case " ", "space":
		if m.Status.State == player.Closed {
			if m.Err = m.player.Open(m.presets[m.Cursor].ID); m.Err != nil {
				break
			}
		}
		m.Err = m.player.Toggle()

	case "+", "=":
		_, m.Err = m.player.SetVolume(m.Status.Volume + VolumeStep)
	case "-", "_":
		_, m.Err = m.player.SetVolume(m.Status.Volume - VolumeStep)

	case "c":
		m.player.ToggleControls()

	case "d":
		if m.drift != nil {
			m.drift.SetEnabled(!m.drift.Enabled())
		}

	case "esc":
		m.player.Close()
	}

	m.Status = m.player.Snapshot()
	return m, nil
}

// move shifts the cursor by delta cells, staying inside the grid.
func (m *Model) move(delta int) {
	next := m.Cursor + delta
	if next < 0 || next >= len(m.presets) {
		return
	}
	// Horizontal moves do not wrap between rows.
	if (delta == 1 || delta == -1) && next/Columns != m.Cursor/Columns {
		return
	}
	m.Cursor = next
}

func (m Model) indexOf(id soundscape.ID) int {
	for i, p := range m.presets {
		if p.ID == id {
			return i
		}
	}
	return 0
}
