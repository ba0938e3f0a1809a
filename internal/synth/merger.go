package synth

// ChannelMerger builds a stereo signal from two inputs: everything connected
// to Input(0) is folded to mono and placed on the left channel, Input(1) on
// the right.
type ChannelMerger struct {
	base

	inputs  [2]Bus
	scratch [2][][2]float64
}

// NewChannelMerger creates a two-channel merger.
func (c *Context) NewChannelMerger() *ChannelMerger {
	m := &ChannelMerger{
		scratch: [2][][2]float64{
			make([][2]float64, RenderQuantum),
			make([][2]float64, RenderQuantum),
		},
	}
	m.base = newBase(c, m)
	return m
}

// Input returns the bus for channel ch (0 left, 1 right). It panics on any
// other index.
func (m *ChannelMerger) Input(ch int) *Bus {
	return &m.inputs[ch]
}

// Stop is a no-op; mergers are not generators.
func (m *ChannelMerger) Stop() error { return nil }

func (m *ChannelMerger) pull(q uint64, n int) [][2]float64 {
	out := m.out[:n]
	if m.cached(q) {
		return out
	}
	left, right := m.scratch[0][:n], m.scratch[1][:n]
	m.inputs[0].mix(q, left)
	m.inputs[1].mix(q, right)
	for i := range out {
		out[i] = [2]float64{mono(left[i]), mono(right[i])}
	}
	return out
}
