// Package synth is a small pull-based audio graph: sources, oscillators,
// filters, gain stages and a channel merger wired into a Context that
// renders stereo float samples as a beep.Streamer.
//
// Graph mutation (Connect, Disconnect, Start, Stop, parameter changes) is not
// synchronised by the nodes themselves. Callers hold Context.Lock around a
// batch of mutations so the renderer never observes a partial graph.
package synth

import "errors"

// RenderQuantum is the number of sample frames each node renders per pull.
const RenderQuantum = 128

// Source lifecycle errors. Stopping a source twice, or stopping one that ran
// off the end of a non-looping buffer, reports ErrAlreadyStopped.
var (
	ErrNotStarted     = errors.New("synth: source not started")
	ErrAlreadyStarted = errors.New("synth: source already started")
	ErrAlreadyStopped = errors.New("synth: source already stopped")
)

// Node is a unit of the signal graph.
//
// Every node can be disconnected. Stop is a no-op returning nil for nodes
// that are not time-bound generators.
type Node interface {
	// Connect routes this node's output into dst. Connecting the same pair
	// twice is a no-op.
	Connect(dst Input)
	// Disconnect removes every outgoing connection of this node.
	Disconnect()
	// Stop halts a generator. Non-generators return nil.
	Stop() error
	// Outputs reports the number of inputs this node currently feeds.
	Outputs() int

	// pull renders the node's output for quantum q. The returned slice is
	// owned by the node and valid until the next quantum.
	pull(q uint64, n int) [][2]float64
}

// Input is anything a node output can feed: a node's input bus or a Param.
type Input interface {
	attach(src Node)
	detach(src Node)
}

// Bus sums the outputs of the nodes connected to it.
type Bus struct {
	sources []Node
}

func (b *Bus) attach(src Node) {
	for _, s := range b.sources {
		if s == src {
			return
		}
	}
	b.sources = append(b.sources, src)
}

func (b *Bus) detach(src Node) {
	for i, s := range b.sources {
		if s == src {
			b.sources = append(b.sources[:i], b.sources[i+1:]...)
			return
		}
	}
}

// Inputs returns the number of nodes connected to the bus.
func (b *Bus) Inputs() int {
	return len(b.sources)
}

// Sources returns a copy of the connected nodes.
func (b *Bus) Sources() []Node {
	out := make([]Node, len(b.sources))
	copy(out, b.sources)
	return out
}

// mix renders every connected source for quantum q and sums them into dst.
func (b *Bus) mix(q uint64, dst [][2]float64) {
	clear(dst)
	for _, src := range b.sources {
		in := src.pull(q, len(dst))
		for i := range dst {
			dst[i][0] += in[i][0]
			dst[i][1] += in[i][1]
		}
	}
}

// base carries the output side shared by all nodes.
type base struct {
	ctx      *Context
	self     Node
	dests    []Input
	out      [][2]float64
	rendered uint64
}

func newBase(ctx *Context, self Node) base {
	return base{
		ctx:  ctx,
		self: self,
		out:  make([][2]float64, RenderQuantum),
	}
}

func (b *base) Connect(dst Input) {
	for _, d := range b.dests {
		if d == dst {
			return
		}
	}
	b.dests = append(b.dests, dst)
	dst.attach(b.self)
}

func (b *base) Disconnect() {
	for _, d := range b.dests {
		d.detach(b.self)
	}
	b.dests = nil
}

func (b *base) Outputs() int {
	return len(b.dests)
}

// cached reports whether quantum q was already rendered, marking it rendered
// otherwise. A cycle in the graph reads the previous quantum's output.
func (b *base) cached(q uint64) bool {
	if b.rendered == q {
		return true
	}
	b.rendered = q
	return false
}

// mono folds a stereo frame to a single channel.
func mono(f [2]float64) float64 {
	return (f[0] + f[1]) / 2
}
