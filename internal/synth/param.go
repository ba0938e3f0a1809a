package synth

import "math"

// Param is an audio-rate parameter. Its value at each sample is the
// intrinsic value (fixed or approaching an automation target) plus the mono
// sum of every node connected to it, clamped to [min, max].
type Param struct {
	Bus

	ctx      *Context
	value    float64
	target   float64
	coeff    float64 // per-sample approach factor, 0 when not automating
	min, max float64

	mod      [][2]float64
	vals     []float64
	rendered uint64
}

func newParam(ctx *Context, value, min, max float64) *Param {
	return &Param{
		ctx:    ctx,
		value:  value,
		target: value,
		min:    min,
		max:    max,
		mod:    make([][2]float64, RenderQuantum),
		vals:   make([]float64, RenderQuantum),
	}
}

// Value returns the current intrinsic value, excluding modulation.
func (p *Param) Value() float64 {
	return p.value
}

// Target returns the value automation is heading towards.
func (p *Param) Target() float64 {
	return p.target
}

// SetValue jumps to v and cancels any running automation.
func (p *Param) SetValue(v float64) {
	p.value = v
	p.target = v
	p.coeff = 0
}

// SetTargetAtTime starts an exponential approach to target with time
// constant tau seconds, beginning at the next rendered sample. A tau of zero
// or less behaves like SetValue.
func (p *Param) SetTargetAtTime(target, tau float64) {
	if tau <= 0 {
		p.SetValue(target)
		return
	}
	p.target = target
	p.coeff = 1 - math.Exp(-1/(tau*float64(p.ctx.sampleRate)))
}

// values renders n per-sample values for quantum q.
func (p *Param) values(q uint64, n int) []float64 {
	if p.rendered == q {
		return p.vals[:n]
	}
	p.rendered = q

	modulated := len(p.sources) > 0
	if modulated {
		p.mix(q, p.mod[:n])
	}
	for i := 0; i < n; i++ {
		if p.coeff > 0 {
			p.value += (p.target - p.value) * p.coeff
			if math.Abs(p.target-p.value) < 1e-7 {
				p.value = p.target
				p.coeff = 0
			}
		}
		v := p.value
		if modulated {
			v += mono(p.mod[i])
		}
		p.vals[i] = math.Max(p.min, math.Min(p.max, v))
	}
	return p.vals[:n]
}
