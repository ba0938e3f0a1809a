package synth

import (
	"sync"

	"github.com/gopxl/beep"
)

// Context owns the sample clock and the destination of a graph. It renders
// the destination bus as a beep.Streamer, holding the graph lock for the
// whole call.
type Context struct {
	mu         sync.Mutex
	sampleRate beep.SampleRate
	quantum    uint64
	frame      int64
	dest       *Destination
	generators int
}

// Destination is the terminal bus of a Context.
type Destination struct {
	Bus
}

// NewContext creates a context rendering at rate.
func NewContext(rate beep.SampleRate) *Context {
	return &Context{
		sampleRate: rate,
		dest:       &Destination{},
	}
}

// Lock acquires the graph lock. Hold it around any batch of graph mutations.
func (c *Context) Lock() { c.mu.Lock() }

// Unlock releases the graph lock.
func (c *Context) Unlock() { c.mu.Unlock() }

// SampleRate returns the rendering rate.
func (c *Context) SampleRate() beep.SampleRate {
	return c.sampleRate
}

// Destination returns the bus whose sum is the context output.
func (c *Context) Destination() *Destination {
	return c.dest
}

// CurrentTime returns the number of seconds rendered so far.
func (c *Context) CurrentTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return float64(c.frame) / float64(c.sampleRate)
}

// ActiveGenerators returns the number of started sources that have not
// stopped or ended.
func (c *Context) ActiveGenerators() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generators
}

// Stream renders len(samples) frames of the destination.
func (c *Context) Stream(samples [][2]float64) (n int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for n < len(samples) {
		chunk := len(samples) - n
		if chunk > RenderQuantum {
			chunk = RenderQuantum
		}
		c.quantum++
		c.dest.mix(c.quantum, samples[n:n+chunk])
		c.frame += int64(chunk)
		n += chunk
	}
	return n, true
}

// Err implements beep.Streamer.
func (c *Context) Err() error { return nil }

func (c *Context) nyquist() float64 {
	return float64(c.sampleRate) / 2
}
