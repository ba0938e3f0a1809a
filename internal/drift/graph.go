package drift

import (
	"math/rand/v2"

	"github.com/satindergrewal/focusflow/internal/soundscape"
)

// MoodGraph links each preset to the presets it may drift to. Edges are
// symmetric and stay within neighbouring moods: plain noise, water, air and
// machines, then the tonal drones.
var MoodGraph = map[soundscape.ID][]soundscape.ID{
	soundscape.White: {soundscape.Pink, soundscape.Fan},
	soundscape.Pink:  {soundscape.White, soundscape.Brown, soundscape.Rain},
	soundscape.Brown: {soundscape.Pink, soundscape.Ocean, soundscape.Fire},

	soundscape.Ocean:  {soundscape.Brown, soundscape.Rain, soundscape.Wind},
	soundscape.Rain:   {soundscape.Pink, soundscape.Ocean, soundscape.Stream},
	soundscape.Stream: {soundscape.Rain, soundscape.Wind},

	soundscape.Wind: {soundscape.Ocean, soundscape.Stream, soundscape.Space},
	soundscape.Fire: {soundscape.Brown, soundscape.Fan},
	soundscape.Fan:  {soundscape.White, soundscape.Fire},

	soundscape.Space: {soundscape.Wind, soundscape.Om, soundscape.Focus},
	soundscape.Focus: {soundscape.Space, soundscape.Om},
	soundscape.Om:    {soundscape.Space, soundscape.Focus},
}

// Next picks a neighbour of id. A preset without neighbours stays put.
func Next(id soundscape.ID, rng *rand.Rand) soundscape.ID {
	adj := MoodGraph[id]
	if len(adj) == 0 {
		return id
	}
	if rng == nil {
		return adj[rand.IntN(len(adj))]
	}
	return adj[rng.IntN(len(adj))]
}
