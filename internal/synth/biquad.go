package synth

import (
	"fmt"
	"math"
)

// FilterType selects the biquad response.
type FilterType int

const (
	Lowpass FilterType = iota
	Highpass
	Bandpass
)

func (t FilterType) String() string {
	switch t {
	case Lowpass:
		return "lowpass"
	case Highpass:
		return "highpass"
	case Bandpass:
		return "bandpass"
	default:
		return fmt.Sprintf("filter(%d)", int(t))
	}
}

// ButterworthQ is the Q of a maximally flat second-order section.
const ButterworthQ = 1 / math.Sqrt2

// BiquadFilter is a second-order IIR section using the RBJ audio EQ cookbook
// formulas. Coefficients are recomputed whenever the frequency or Q
// parameter moves, so both may be modulated at audio rate.
type BiquadFilter struct {
	base
	Bus

	Type      FilterType
	Frequency *Param
	Q         *Param

	b0, b1, b2, a1, a2 float64
	lastF, lastQ       float64

	x1, x2, y1, y2 [2]float64
}

// NewBiquadFilter creates a filter of type t at freq Hz with quality q.
func (c *Context) NewBiquadFilter(t FilterType, freq, q float64) *BiquadFilter {
	f := &BiquadFilter{
		Type:      t,
		Frequency: newParam(c, freq, 0, c.nyquist()),
		Q:         newParam(c, q, 1e-4, 1000),
		lastF:     math.NaN(),
	}
	f.base = newBase(c, f)
	return f
}

// Stop is a no-op; filters are not generators.
func (f *BiquadFilter) Stop() error { return nil }

func (f *BiquadFilter) pull(q uint64, n int) [][2]float64 {
	out := f.out[:n]
	if f.cached(q) {
		return out
	}
	f.mix(q, out)
	freq := f.Frequency.values(q, n)
	res := f.Q.values(q, n)

	for i := range out {
		if freq[i] != f.lastF || res[i] != f.lastQ {
			f.design(freq[i], res[i])
		}
		for ch := 0; ch < 2; ch++ {
			x := out[i][ch]
			y := f.b0*x + f.b1*f.x1[ch] + f.b2*f.x2[ch] - f.a1*f.y1[ch] - f.a2*f.y2[ch]
			f.x2[ch] = f.x1[ch]
			f.x1[ch] = x
			f.y2[ch] = f.y1[ch]
			f.y1[ch] = y
			out[i][ch] = y
		}
	}
	return out
}

// design computes normalised coefficients for centre/cutoff freq and q.
func (f *BiquadFilter) design(freq, q float64) {
	f.lastF, f.lastQ = freq, q

	rate := float64(f.ctx.sampleRate)
	freq = math.Max(1, math.Min(freq, rate/2-1))

	w := 2 * math.Pi * freq / rate
	cosw := math.Cos(w)
	alpha := math.Sin(w) / (2 * q)

	var b0, b1, b2 float64
	switch f.Type {
	case Highpass:
		b0 = (1 + cosw) / 2
		b1 = -(1 + cosw)
		b2 = (1 + cosw) / 2
	case Bandpass:
		b0 = alpha
		b1 = 0
		b2 = -alpha
	default:
		b0 = (1 - cosw) / 2
		b1 = 1 - cosw
		b2 = (1 - cosw) / 2
	}
	a0 := 1 + alpha
	a1 := -2 * cosw
	a2 := 1 - alpha

	f.b0 = b0 / a0
	f.b1 = b1 / a0
	f.b2 = b2 / a0
	f.a1 = a1 / a0
	f.a2 = a2 / a0
}

// Response returns the magnitude response at freq Hz for the current
// frequency and Q values.
func (f *BiquadFilter) Response(freq float64) float64 {
	if f.Frequency.Value() != f.lastF || f.Q.Value() != f.lastQ {
		f.design(f.Frequency.Value(), f.Q.Value())
	}
	w := 2 * math.Pi * freq / float64(f.ctx.sampleRate)
	z1 := complex(math.Cos(-w), math.Sin(-w))
	z2 := z1 * z1
	num := complex(f.b0, 0) + complex(f.b1, 0)*z1 + complex(f.b2, 0)*z2
	den := 1 + complex(f.a1, 0)*z1 + complex(f.a2, 0)*z2
	return cmplxAbs(num / den)
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}
