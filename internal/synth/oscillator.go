package synth

import (
	"fmt"
	"math"
)

// Waveform selects an oscillator shape.
type Waveform int

const (
	Sine Waveform = iota
	Square
	Sawtooth
	Triangle
)

func (w Waveform) String() string {
	switch w {
	case Sine:
		return "sine"
	case Square:
		return "square"
	case Sawtooth:
		return "sawtooth"
	case Triangle:
		return "triangle"
	default:
		return fmt.Sprintf("waveform(%d)", int(w))
	}
}

// Oscillator is a periodic generator with an audio-rate frequency.
type Oscillator struct {
	base
	lifecycle

	Type      Waveform
	Frequency *Param

	phase float64 // [0, 1)
}

// NewOscillator creates an oscillator of the given shape at freq Hz.
func (c *Context) NewOscillator(w Waveform, freq float64) *Oscillator {
	o := &Oscillator{
		Type:      w,
		Frequency: newParam(c, freq, -c.nyquist(), c.nyquist()),
	}
	o.base = newBase(c, o)
	return o
}

// Start begins oscillation at phase zero.
func (o *Oscillator) Start() error {
	return o.start(o.ctx)
}

// Stop halts oscillation.
func (o *Oscillator) Stop() error {
	return o.stop(o.ctx)
}

func (o *Oscillator) pull(q uint64, n int) [][2]float64 {
	out := o.out[:n]
	if o.cached(q) {
		return out
	}
	freq := o.Frequency.values(q, n)
	if o.state != sourcePlaying {
		clear(out)
		return out
	}

	rate := float64(o.ctx.sampleRate)
	for i := range out {
		v := waveSample(o.Type, o.phase)
		out[i] = [2]float64{v, v}

		o.phase += freq[i] / rate
		o.phase -= math.Floor(o.phase) // keep in [0, 1)
	}
	return out
}

// waveSample evaluates one period of w at phase in [0, 1). Every shape
// starts at zero except square.
func waveSample(w Waveform, phase float64) float64 {
	switch w {
	case Square:
		if phase < 0.5 {
			return 1.0
		}
		return -1.0
	case Sawtooth:
		p := phase + 0.5
		p -= math.Floor(p)
		return 2.0*p - 1.0
	case Triangle:
		p := phase + 0.25
		p -= math.Floor(p)
		return 1.0 - 4.0*math.Abs(p-0.5)
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}
