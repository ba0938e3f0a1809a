package synth

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/gopxl/beep"
)

// Color is the spectral tint of a noise buffer.
type Color int

const (
	White Color = iota
	Pink
	Brown
)

func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Pink:
		return "pink"
	case Brown:
		return "brown"
	default:
		return fmt.Sprintf("color(%d)", int(c))
	}
}

// ParseColor maps "white", "pink" or "brown" to a Color.
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white":
		return White, nil
	case "pink":
		return Pink, nil
	case "brown":
		return Brown, nil
	}
	return White, fmt.Errorf("synth: unknown noise color %q", s)
}

// Smoothing factor and makeup gain of the one-pole colouring filter
// y[i] = (y[i-1] + k*x[i]) / (1+k).
var noiseShape = map[Color]struct{ k, makeup float64 }{
	Pink:  {k: 0.05, makeup: 2.5},
	Brown: {k: 0.02, makeup: 3.5},
}

// DefaultNoiseSeconds is the length of a generated noise loop.
const DefaultNoiseSeconds = 2.0

// GenerateNoise returns seconds worth of mono noise at rate. White noise is
// uniform in [-1, 1]; pink and brown run the same stream through a one-pole
// lowpass with makeup gain. The buffer is meant to be looped and its ends are
// not matched. A nil rng uses the global source.
func GenerateNoise(c Color, rate beep.SampleRate, seconds float64, rng *rand.Rand) []float64 {
	if seconds <= 0 {
		seconds = DefaultNoiseSeconds
	}
	n := int(float64(rate) * seconds)
	if n < 1 {
		n = 1
	}
	uniform := rand.Float64
	if rng != nil {
		uniform = rng.Float64
	}

	buf := make([]float64, n)
	shape, colored := noiseShape[c]
	var last float64
	for i := range buf {
		x := uniform()*2 - 1
		if !colored {
			buf[i] = x
			continue
		}
		last = (last + shape.k*x) / (1 + shape.k)
		buf[i] = last * shape.makeup
	}
	return buf
}
