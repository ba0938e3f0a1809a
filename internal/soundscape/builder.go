package soundscape

import (
	"log"
	"math/rand/v2"

	"github.com/satindergrewal/focusflow/internal/synth"
)

// Entry is one node of a built graph. Generator marks nodes that must be
// stopped before they are disconnected.
type Entry struct {
	Node      synth.Node
	Generator bool
}

// Handle is everything a recipe created for one preset. The manager owns it
// exclusively and tears it down as a whole.
type Handle struct {
	Preset  ID
	Entries []Entry
	Started bool
}

// Generators returns the number of generator entries.
func (h *Handle) Generators() int {
	n := 0
	for _, e := range h.Entries {
		if e.Generator {
			n++
		}
	}
	return n
}

// Oscillators returns the oscillator entries in creation order.
func (h *Handle) Oscillators() []*synth.Oscillator {
	var out []*synth.Oscillator
	for _, e := range h.Entries {
		if o, ok := e.Node.(*synth.Oscillator); ok {
			out = append(out, o)
		}
	}
	return out
}

// Contains reports whether n belongs to the handle.
func (h *Handle) Contains(n synth.Node) bool {
	for _, e := range h.Entries {
		if e.Node == n {
			return true
		}
	}
	return false
}

// Builder constructs preset graphs. It is not safe for concurrent use; the
// manager serialises calls.
type Builder struct {
	noiseSeconds float64
	rng          *rand.Rand
}

// NewBuilder returns a builder producing noise loops of noiseSeconds. A nil
// rng uses the global source.
func NewBuilder(noiseSeconds float64, rng *rand.Rand) *Builder {
	if noiseSeconds <= 0 {
		noiseSeconds = synth.DefaultNoiseSeconds
	}
	return &Builder{noiseSeconds: noiseSeconds, rng: rng}
}

// Build wires the recipe for id into master and starts its generators. The
// caller must hold ctx's lock. An unknown id yields an empty handle.
func (b *Builder) Build(ctx *synth.Context, id ID, master *synth.Gain) Handle {
	h := Handle{Preset: id}
	r, ok := recipes[id]
	if !ok {
		log.Printf("soundscape: no recipe for preset %q, staying silent", id)
		return h
	}

	g := &graph{ctx: ctx, master: master, b: b, h: &h}
	r(g)

	for _, s := range g.starts {
		if err := s.Start(); err != nil {
			log.Printf("soundscape: start %s node: %v", id, err)
		}
	}
	h.Started = true
	return h
}

type starter interface {
	Start() error
}

// graph collects the nodes a recipe creates.
type graph struct {
	ctx    *synth.Context
	master *synth.Gain
	b      *Builder
	h      *Handle
	starts []starter
}

func (g *graph) add(n synth.Node) {
	s, gen := n.(starter)
	g.h.Entries = append(g.h.Entries, Entry{Node: n, Generator: gen})
	if gen {
		g.starts = append(g.starts, s)
	}
}

func (g *graph) noise(c synth.Color) *synth.BufferSource {
	buf := synth.GenerateNoise(c, g.ctx.SampleRate(), g.b.noiseSeconds, g.b.rng)
	n := g.ctx.NewBufferSource(buf, true)
	g.add(n)
	return n
}

func (g *graph) osc(w synth.Waveform, freq float64) *synth.Oscillator {
	n := g.ctx.NewOscillator(w, freq)
	g.add(n)
	return n
}

func (g *graph) gain(v float64) *synth.Gain {
	n := g.ctx.NewGain(v)
	g.add(n)
	return n
}

func (g *graph) filter(t synth.FilterType, freq, q float64) *synth.BiquadFilter {
	n := g.ctx.NewBiquadFilter(t, freq, q)
	g.add(n)
	return n
}

func (g *graph) merger() *synth.ChannelMerger {
	n := g.ctx.NewChannelMerger()
	g.add(n)
	return n
}

// lfo connects a sine at rate Hz, scaled by depth, into p.
func (g *graph) lfo(rate, depth float64, p *synth.Param) {
	o := g.osc(synth.Sine, rate)
	d := g.gain(depth)
	o.Connect(d)
	d.Connect(p)
}

type recipe func(g *graph)

var recipes = map[ID]recipe{
	White: plainNoise(synth.White),
	Pink:  plainNoise(synth.Pink),
	Brown: plainNoise(synth.Brown),
	Ocean: ocean,
	Rain:  rain,
	Stream: func(g *graph) {
		src := g.noise(synth.White)
		lp := g.filter(synth.Lowpass, 800, synth.ButterworthQ)
		hp := g.filter(synth.Highpass, 400, synth.ButterworthQ)
		src.Connect(lp)
		lp.Connect(hp)
		hp.Connect(g.master)
	},
	Wind:  wind,
	Fire:  fire,
	Fan:   fan,
	Space: space,
	Focus: focus,
	Om:    chord(0.1, 136.1, 204.15, 272.2),
}

func plainNoise(c synth.Color) recipe {
	return func(g *graph) {
		g.noise(c).Connect(g.master)
	}
}

// ocean swells pink noise with a slow sine on the amplitude.
func ocean(g *graph) {
	src := g.noise(synth.Pink)
	swell := g.gain(1)
	g.lfo(0.15, 0.3, swell.Gain)
	src.Connect(swell)
	swell.Connect(g.master)
}

func rain(g *graph) {
	src := g.noise(synth.Brown)
	hp := g.filter(synth.Highpass, 200, synth.ButterworthQ)
	src.Connect(hp)
	hp.Connect(g.master)
}

// wind sweeps a bandpass 600±400 Hz at 0.2 Hz.
func wind(g *graph) {
	src := g.noise(synth.White)
	bp := g.filter(synth.Bandpass, 600, 1)
	g.lfo(0.2, 400, bp.Frequency)
	src.Connect(bp)
	bp.Connect(g.master)
}

// fire flickers the master gain with a 10 Hz sawtooth over a brown rumble.
func fire(g *graph) {
	src := g.noise(synth.Brown)
	lp := g.filter(synth.Lowpass, 150, synth.ButterworthQ)
	src.Connect(lp)
	lp.Connect(g.master)

	saw := g.osc(synth.Sawtooth, 10)
	depth := g.gain(0.05)
	saw.Connect(depth)
	depth.Connect(g.master.Gain)
}

func fan(g *graph) {
	motor := g.osc(synth.Triangle, 60)
	motorLevel := g.gain(0.1)
	motor.Connect(motorLevel)
	motorLevel.Connect(g.master)

	air := g.noise(synth.White)
	lp := g.filter(synth.Lowpass, 300, synth.ButterworthQ)
	airLevel := g.gain(0.3)
	air.Connect(lp)
	lp.Connect(airLevel)
	airLevel.Connect(g.master)
}

// space is a detuned sub drone (55/57 Hz beat at 2 Hz) over a brown bed.
func space(g *graph) {
	chord(0.15, 55, 57, 110)(g)

	bed := g.noise(synth.Brown)
	lp := g.filter(synth.Lowpass, 80, synth.ButterworthQ)
	bed.Connect(lp)
	lp.Connect(g.master)
}

// focus puts 200 Hz in the left ear and 240 Hz in the right.
func focus(g *graph) {
	m := g.merger()
	left := g.osc(synth.Sine, 200)
	right := g.osc(synth.Sine, 240)
	left.Connect(m.Input(0))
	right.Connect(m.Input(1))

	level := g.gain(0.1)
	m.Connect(level)
	level.Connect(g.master)
}

// chord returns a recipe of sines each with its own gain stage.
func chord(level float64, freqs ...float64) recipe {
	return func(g *graph) {
		for _, f := range freqs {
			o := g.osc(synth.Sine, f)
			v := g.gain(level)
			o.Connect(v)
			v.Connect(g.master)
		}
	}
}
