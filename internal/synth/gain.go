package synth

import "math"

// Gain scales its summed input by an audio-rate gain parameter.
type Gain struct {
	base
	Bus

	Gain *Param
}

// NewGain creates a gain stage with intrinsic gain g.
func (c *Context) NewGain(g float64) *Gain {
	n := &Gain{
		Gain: newParam(c, g, math.Inf(-1), math.Inf(1)),
	}
	n.base = newBase(c, n)
	return n
}

// Stop is a no-op; gain stages are not generators.
func (g *Gain) Stop() error { return nil }

func (g *Gain) pull(q uint64, n int) [][2]float64 {
	out := g.out[:n]
	if g.cached(q) {
		return out
	}
	g.mix(q, out)
	gain := g.Gain.values(q, n)
	for i := range out {
		out[i][0] *= gain[i]
		out[i][1] *= gain[i]
	}
	return out
}
