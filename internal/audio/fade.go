package audio

// Smoothstep returns the smoothstep interpolation for t in [0,1].
// Formula: 3t^2 - 2t^3.
func Smoothstep(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}

// FadeFrame scales an interleaved stereo frame in place along the smoothstep
// curve from progress from to progress to. from = 0, to = 1 fades the whole
// frame in.
func FadeFrame(frame []int16, from, to float64) {
	pairs := len(frame) / Channels
	if pairs == 0 {
		return
	}
	for i := 0; i < pairs; i++ {
		t := from + (to-from)*float64(i)/float64(pairs)
		gain := Smoothstep(t)
		for ch := 0; ch < Channels; ch++ {
			frame[i*Channels+ch] = int16(float64(frame[i*Channels+ch]) * gain)
		}
	}
}
