package synth

type sourceState int

const (
	sourceIdle sourceState = iota
	sourcePlaying
	sourceStopped
)

// lifecycle is the start-once/stop-once state shared by generators.
type lifecycle struct {
	state sourceState
}

func (l *lifecycle) start(ctx *Context) error {
	switch l.state {
	case sourcePlaying:
		return ErrAlreadyStarted
	case sourceStopped:
		return ErrAlreadyStopped
	}
	l.state = sourcePlaying
	ctx.generators++
	return nil
}

func (l *lifecycle) stop(ctx *Context) error {
	switch l.state {
	case sourceIdle:
		return ErrNotStarted
	case sourceStopped:
		return ErrAlreadyStopped
	}
	l.state = sourceStopped
	ctx.generators--
	return nil
}

// Playing reports whether the generator has started and not yet stopped.
func (l *lifecycle) Playing() bool {
	return l.state == sourcePlaying
}

// BufferSource plays a mono sample buffer, optionally looping it.
type BufferSource struct {
	base
	lifecycle

	buffer []float64
	loop   bool
	pos    int
}

// NewBufferSource creates a source over buf. The buffer is not copied.
func (c *Context) NewBufferSource(buf []float64, loop bool) *BufferSource {
	s := &BufferSource{buffer: buf, loop: loop}
	s.base = newBase(c, s)
	return s
}

// Start begins playback from the first sample.
func (s *BufferSource) Start() error {
	return s.start(s.ctx)
}

// Stop halts playback. A source that already ran off the end of a
// non-looping buffer reports ErrAlreadyStopped.
func (s *BufferSource) Stop() error {
	return s.stop(s.ctx)
}

func (s *BufferSource) pull(q uint64, n int) [][2]float64 {
	out := s.out[:n]
	if s.cached(q) {
		return out
	}
	for i := range out {
		if s.state != sourcePlaying || len(s.buffer) == 0 {
			out[i] = [2]float64{}
			continue
		}
		v := s.buffer[s.pos]
		out[i] = [2]float64{v, v}
		s.pos++
		if s.pos >= len(s.buffer) {
			if s.loop {
				s.pos = 0
			} else {
				s.state = sourceStopped
				s.ctx.generators--
			}
		}
	}
	return out
}
