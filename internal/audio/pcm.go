package audio

import "encoding/binary"

// Limit applies a soft knee above ±0.8 and clips to [-1, 1].
func Limit(v float64) float64 {
	if v > 0.8 {
		v = 0.8 + 0.2*(1.0-1.0/(1.0+(v-0.8)*5.0))
	} else if v < -0.8 {
		v = -0.8 - 0.2*(1.0-1.0/(1.0+(-v-0.8)*5.0))
	}

	if v > 1.0 {
		v = 1.0
	} else if v < -1.0 {
		v = -1.0
	}
	return v
}

// FloatsToSamples converts stereo float frames to interleaved int16 PCM,
// limiting each sample. dst must hold 2*len(src) samples.
func FloatsToSamples(src [][2]float64, dst []int16) {
	for i, f := range src {
		dst[i*2] = int16(Limit(f[0]) * 32767)
		dst[i*2+1] = int16(Limit(f[1]) * 32767)
	}
}

// SamplesToBytes converts int16 samples to little-endian bytes.
func SamplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}
