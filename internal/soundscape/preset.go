// Package soundscape turns the twelve focus presets into live synth graphs
// and owns the single output context they play through.
package soundscape

import (
	"errors"
	"fmt"
	"strings"
)

// ID names a preset.
type ID string

const (
	White  ID = "white"
	Pink   ID = "pink"
	Brown  ID = "brown"
	Ocean  ID = "ocean"
	Rain   ID = "rain"
	Stream ID = "stream"
	Wind   ID = "wind"
	Fire   ID = "fire"
	Fan    ID = "fan"
	Space  ID = "space"
	Focus  ID = "focus"
	Om     ID = "om"
)

// DefaultID is played when the player is opened without a preset.
const DefaultID = Brown

// ErrUnknownPreset is returned by ParseID for identifiers outside the
// catalogue.
var ErrUnknownPreset = errors.New("unknown preset")

// Backdrop is the background colour family a preset is drawn on.
type Backdrop string

const (
	Blue   Backdrop = "#1e3a8a"
	Rose   Backdrop = "#881337"
	Amber  Backdrop = "#78350f"
	Violet Backdrop = "#4c1d95"
)

// Preset describes one soundscape. Icon is a lucide icon name, Glyph a
// single-cell stand-in for terminals.
type Preset struct {
	ID          ID       `json:"id"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
	Glyph       string   `json:"glyph"`
	Color       string   `json:"color"`
	Backdrop    Backdrop `json:"backdrop"`
}

// Grid order: basic noise, water, air and fire, mind and space.
var presets = []Preset{
	{White, "White Noise", "Full-spectrum masking", "zap", "≈", "#e5e7eb", Blue},
	{Pink, "Pink Noise", "Soothing natural frequencies", "cloud-rain", "∿", "#fda4af", Rose},
	{Brown, "Brown Noise", "Deep low-frequency masking", "moon", "☾", "#b45309", Amber},

	{Ocean, "Ocean", "Breathing tides", "waves", "≋", "#60a5fa", Rose},
	{Rain, "Rain", "Steady downpour", "cloud-rain", "⁂", "#94a3b8", Amber},
	{Stream, "Stream", "Crisp running water", "droplets", "◦", "#67e8f9", Blue},

	{Wind, "Wind", "Shifting gusts", "wind", "~", "#a5b4fc", Blue},
	{Fire, "Campfire", "Warm crackle", "flame", "▲", "#f97316", Rose},
	{Fan, "Fan", "Steady mechanical hum", "disc", "◎", "#a7f3d0", Amber},

	{Space, "Deep Space", "Sub-bass drone", "radio", "✦", "#a78bfa", Violet},
	{Focus, "Focus", "40 Hz binaural beat", "activity", "♒", "#facc15", Violet},
	{Om, "Om", "Sacred chord", "sun", "☼", "#fdba74", Violet},
}

var byID = func() map[ID]Preset {
	m := make(map[ID]Preset, len(presets))
	for _, p := range presets {
		m[p.ID] = p
	}
	return m
}()

// Presets returns the catalogue in display order.
func Presets() []Preset {
	out := make([]Preset, len(presets))
	copy(out, presets)
	return out
}

// Lookup returns the preset for id.
func Lookup(id ID) (Preset, bool) {
	p, ok := byID[id]
	return p, ok
}

// Valid reports whether id is in the catalogue.
func (id ID) Valid() bool {
	_, ok := byID[id]
	return ok
}

// ParseID normalises s and checks it against the catalogue.
func ParseID(s string) (ID, error) {
	id := ID(strings.ToLower(strings.TrimSpace(s)))
	if !id.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPreset, s)
	}
	return id, nil
}
