package audio

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gopxl/beep"
)

// PipelineStatus is a snapshot of the pipeline's source state.
type PipelineStatus struct {
	Attached  bool
	Suspended bool
	Position  time.Duration // audio rendered from the source
	Frames    uint64        // frames sent, silence included
}

// Pipeline renders an attached source into 20ms PCM frames at real-time
// rate. It runs for the life of the server and sends silence while no source
// is attached or the source is suspended, so listeners stay connected.
type Pipeline struct {
	frameCh chan []int16
	fadeDur time.Duration

	mu        sync.Mutex
	src       beep.Streamer
	suspended bool
	fadeLeft  int // frames of fade-in still to apply
	rendered  int64
	frames    uint64
	buf       [][2]float64
}

// NewPipeline creates a pipeline that fades in over fadeDuration whenever
// audio starts or resumes.
func NewPipeline(fadeDuration time.Duration) *Pipeline {
	return &Pipeline{
		frameCh: make(chan []int16, 100),
		fadeDur: fadeDuration,
		buf:     make([][2]float64, FrameSize),
	}
}

// Frames returns the channel of outgoing PCM frames (20ms each).
func (p *Pipeline) Frames() <-chan []int16 {
	return p.frameCh
}

// Open attaches src. It satisfies OpenFunc; the returned device is the
// pipeline itself.
func (p *Pipeline) Open(src beep.Streamer, rate beep.SampleRate) (Device, error) {
	if rate != SampleRate {
		return nil, fmt.Errorf("pipeline at %d Hz: %w (%d Hz)", SampleRate, ErrUnsupportedRate, rate)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.src = src
	p.suspended = false
	p.startFade()
	log.Println("Pipeline source attached")
	return p, nil
}

// Resume restarts rendering from the source with a short fade-in.
func (p *Pipeline) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.suspended {
		p.suspended = false
		p.startFade()
	}
	return nil
}

// Suspend stops pulling from the source. Listeners receive silence.
func (p *Pipeline) Suspend() error {
	p.mu.Lock()
	p.suspended = true
	p.mu.Unlock()
	return nil
}

// Close detaches the source.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	p.src = nil
	p.mu.Unlock()
	log.Println("Pipeline source detached")
	return nil
}

// Status returns current source info.
func (p *Pipeline) Status() PipelineStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PipelineStatus{
		Attached:  p.src != nil,
		Suspended: p.suspended,
		Position:  time.Duration(p.rendered) * time.Second / SampleRate,
		Frames:    p.frames,
	}
}

// Run starts the pipeline. Blocks until ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) {
	defer close(p.frameCh)

	ticker := time.NewTicker(FrameDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if !p.sendFrame(ctx, p.render()) {
			return
		}
	}
}

// render produces the next frame from the source, or silence.
func (p *Pipeline) render() []int16 {
	frame := make([]int16, FrameSamples)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames++
	if p.src == nil || p.suspended {
		return frame
	}

	n, ok := p.src.Stream(p.buf)
	if !ok {
		log.Printf("Pipeline source drained: %v", p.src.Err())
		p.src = nil
		return frame
	}
	FloatsToSamples(p.buf[:n], frame)
	p.rendered += int64(n)

	if p.fadeLeft > 0 {
		total := p.fadeFrames()
		done := total - p.fadeLeft
		FadeFrame(frame, float64(done)/float64(total), float64(done+1)/float64(total))
		p.fadeLeft--
	}
	return frame
}

func (p *Pipeline) sendFrame(ctx context.Context, frame []int16) bool {
	select {
	case p.frameCh <- frame:
		return true
	case <-ctx.Done():
		return false
	}
}

func (p *Pipeline) fadeFrames() int {
	return int(p.fadeDur / FrameDuration)
}

func (p *Pipeline) startFade() {
	p.fadeLeft = p.fadeFrames()
}
