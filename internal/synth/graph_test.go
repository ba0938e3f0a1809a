package synth

import (
	"errors"
	"math"
	"testing"
)

const testRate = 48000

func render(ctx *Context, n int) [][2]float64 {
	out := make([][2]float64, n)
	ctx.Stream(out)
	return out
}

func constant(ctx *Context, v float64) *BufferSource {
	s := ctx.NewBufferSource([]float64{v}, true)
	if err := s.Start(); err != nil {
		panic(err)
	}
	return s
}

func near(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// --- Connections ---

func TestConnectIsIdempotent(t *testing.T) {
	ctx := NewContext(testRate)
	g := ctx.NewGain(1)
	g.Connect(ctx.Destination())
	g.Connect(ctx.Destination())

	if got := ctx.Destination().Inputs(); got != 1 {
		t.Errorf("destination inputs = %d, want 1", got)
	}
	if got := g.Outputs(); got != 1 {
		t.Errorf("gain outputs = %d, want 1", got)
	}
}

func TestDisconnectRemovesAllOutputs(t *testing.T) {
	ctx := NewContext(testRate)
	src := constant(ctx, 1)
	a := ctx.NewGain(1)
	b := ctx.NewGain(1)
	src.Connect(a)
	src.Connect(b)
	a.Connect(ctx.Destination())
	b.Connect(ctx.Destination())

	src.Disconnect()
	if src.Outputs() != 0 || a.Inputs() != 0 || b.Inputs() != 0 {
		t.Errorf("after Disconnect: outputs=%d a=%d b=%d, want 0 0 0", src.Outputs(), a.Inputs(), b.Inputs())
	}
	for i, f := range render(ctx, 64) {
		if f != [2]float64{} {
			t.Fatalf("frame %d = %v, want silence", i, f)
		}
	}
}

func TestSharedNodeRendersOncePerQuantum(t *testing.T) {
	ctx := NewContext(testRate)
	src := ctx.NewBufferSource([]float64{1, 2, 3, 4}, true)
	src.Start()
	a := ctx.NewGain(1)
	b := ctx.NewGain(1)
	src.Connect(a)
	src.Connect(b)
	a.Connect(ctx.Destination())
	b.Connect(ctx.Destination())

	out := render(ctx, 4)
	for i, f := range out {
		want := 2 * float64(i+1)
		if f[0] != want || f[1] != want {
			t.Errorf("frame %d = %v, want %v on both channels", i, f, want)
		}
	}
}

func TestStreamOddLength(t *testing.T) {
	ctx := NewContext(testRate)
	constant(ctx, 0.5).Connect(ctx.Destination())
	buf := make([][2]float64, 300)
	n, ok := ctx.Stream(buf)
	if n != 300 || !ok {
		t.Fatalf("Stream = (%d, %v), want (300, true)", n, ok)
	}
	if buf[299][0] != 0.5 {
		t.Errorf("last frame = %v, want 0.5", buf[299])
	}
	if got := ctx.CurrentTime(); !near(got, 300.0/testRate, 1e-12) {
		t.Errorf("CurrentTime = %v, want %v", got, 300.0/testRate)
	}
}

// --- Sources ---

func TestSourceLifecycle(t *testing.T) {
	ctx := NewContext(testRate)
	s := ctx.NewBufferSource([]float64{1}, true)

	if err := s.Stop(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Stop before Start = %v, want ErrNotStarted", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start = %v, want ErrAlreadyStarted", err)
	}
	if got := ctx.ActiveGenerators(); got != 1 {
		t.Errorf("ActiveGenerators = %d, want 1", got)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := s.Stop(); !errors.Is(err, ErrAlreadyStopped) {
		t.Errorf("second Stop = %v, want ErrAlreadyStopped", err)
	}
	if err := s.Start(); !errors.Is(err, ErrAlreadyStopped) {
		t.Errorf("Start after Stop = %v, want ErrAlreadyStopped", err)
	}
	if got := ctx.ActiveGenerators(); got != 0 {
		t.Errorf("ActiveGenerators = %d, want 0", got)
	}
}

func TestBufferSourceLoops(t *testing.T) {
	ctx := NewContext(testRate)
	s := ctx.NewBufferSource([]float64{1, 2, 3}, true)
	s.Start()
	s.Connect(ctx.Destination())

	want := []float64{1, 2, 3, 1, 2, 3, 1}
	for i, f := range render(ctx, len(want)) {
		if f[0] != want[i] {
			t.Errorf("frame %d = %v, want %v", i, f[0], want[i])
		}
	}
}

func TestBufferSourceEndsWithoutLoop(t *testing.T) {
	ctx := NewContext(testRate)
	s := ctx.NewBufferSource([]float64{1, 1}, false)
	s.Start()
	s.Connect(ctx.Destination())

	out := render(ctx, 4)
	if out[1][0] != 1 || out[2][0] != 0 {
		t.Errorf("frames = %v, want 1 1 0 0", out)
	}
	if s.Playing() {
		t.Error("source still playing after buffer end")
	}
	if got := ctx.ActiveGenerators(); got != 0 {
		t.Errorf("ActiveGenerators = %d, want 0", got)
	}
	if err := s.Stop(); !errors.Is(err, ErrAlreadyStopped) {
		t.Errorf("Stop after end = %v, want ErrAlreadyStopped", err)
	}
}

// --- Oscillators ---

func TestOscillatorSilentUntilStarted(t *testing.T) {
	ctx := NewContext(testRate)
	o := ctx.NewOscillator(Square, 440)
	o.Connect(ctx.Destination())
	for i, f := range render(ctx, 256) {
		if f != [2]float64{} {
			t.Fatalf("frame %d = %v before Start", i, f)
		}
	}
}

func TestOscillatorRange(t *testing.T) {
	for _, w := range []Waveform{Sine, Square, Sawtooth, Triangle} {
		ctx := NewContext(testRate)
		o := ctx.NewOscillator(w, 440)
		o.Start()
		o.Connect(ctx.Destination())

		peak := 0.0
		for _, f := range render(ctx, 4800) {
			if f[0] < -1-1e-9 || f[0] > 1+1e-9 {
				t.Fatalf("%v sample %v outside [-1, 1]", w, f[0])
			}
			peak = math.Max(peak, math.Abs(f[0]))
		}
		if peak < 0.9 {
			t.Errorf("%v peak = %v, want near 1", w, peak)
		}
	}
}

func TestSineFrequency(t *testing.T) {
	ctx := NewContext(testRate)
	o := ctx.NewOscillator(Sine, 100)
	o.Start()
	o.Connect(ctx.Destination())

	out := render(ctx, testRate)
	rising := 0
	for i := 1; i < len(out); i++ {
		if out[i-1][0] < 0 && out[i][0] >= 0 {
			rising++
		}
	}
	if rising < 99 || rising > 101 {
		t.Errorf("rising zero crossings in 1s = %d, want ~100", rising)
	}
}

func TestWaveformStartsAtZero(t *testing.T) {
	for _, w := range []Waveform{Sine, Sawtooth, Triangle} {
		if got := waveSample(w, 0); !near(got, 0, 1e-12) {
			t.Errorf("waveSample(%v, 0) = %v, want 0", w, got)
		}
	}
	if got := waveSample(Square, 0); got != 1 {
		t.Errorf("waveSample(square, 0) = %v, want 1", got)
	}
}

// --- Params ---

func TestSetTargetAtTimeTimeConstant(t *testing.T) {
	ctx := NewContext(testRate)
	g := ctx.NewGain(0)
	constant(ctx, 1).Connect(g)
	g.Connect(ctx.Destination())

	g.Gain.SetTargetAtTime(1, 0.1)
	out := render(ctx, testRate/10)
	if got, want := out[len(out)-1][0], 1-math.Exp(-1); !near(got, want, 1e-3) {
		t.Errorf("after one time constant = %v, want %v", got, want)
	}

	render(ctx, testRate*2)
	if got := g.Gain.Value(); !near(got, 1, 1e-6) {
		t.Errorf("settled value = %v, want 1", got)
	}
	if got := g.Gain.Target(); got != 1 {
		t.Errorf("Target = %v, want 1", got)
	}
}

func TestSetValueCancelsAutomation(t *testing.T) {
	ctx := NewContext(testRate)
	g := ctx.NewGain(0)
	g.Gain.SetTargetAtTime(1, 0.5)
	g.Gain.SetValue(0.25)
	constant(ctx, 1).Connect(g)
	g.Connect(ctx.Destination())

	out := render(ctx, 1000)
	if got := out[999][0]; got != 0.25 {
		t.Errorf("gain = %v, want 0.25", got)
	}
}

func TestParamModulationAddsToValue(t *testing.T) {
	ctx := NewContext(testRate)
	g := ctx.NewGain(0.5)
	constant(ctx, 1).Connect(g)
	constant(ctx, 0.25).Connect(g.Gain)
	g.Connect(ctx.Destination())

	out := render(ctx, 10)
	if got := out[9][0]; !near(got, 0.75, 1e-12) {
		t.Errorf("modulated gain output = %v, want 0.75", got)
	}
}

// --- Filters ---

func TestBiquadResponse(t *testing.T) {
	ctx := NewContext(testRate)
	tests := []struct {
		name string
		f    *BiquadFilter
		at   float64
		want float64
		tol  float64
	}{
		{"lowpass passband", ctx.NewBiquadFilter(Lowpass, 1000, ButterworthQ), 20, 1, 0.01},
		{"lowpass cutoff", ctx.NewBiquadFilter(Lowpass, 1000, ButterworthQ), 1000, ButterworthQ, 0.01},
		{"lowpass stopband", ctx.NewBiquadFilter(Lowpass, 1000, ButterworthQ), 10000, 0, 0.02},
		{"highpass stopband", ctx.NewBiquadFilter(Highpass, 200, ButterworthQ), 20, 0, 0.02},
		{"highpass passband", ctx.NewBiquadFilter(Highpass, 200, ButterworthQ), 10000, 1, 0.01},
		{"bandpass centre", ctx.NewBiquadFilter(Bandpass, 600, 1), 600, 1, 1e-3},
		{"bandpass below", ctx.NewBiquadFilter(Bandpass, 600, 1), 30, 0, 0.1},
	}
	for _, tt := range tests {
		if got := tt.f.Response(tt.at); !near(got, tt.want, tt.tol) {
			t.Errorf("%s: |H(%v)| = %v, want %v±%v", tt.name, tt.at, got, tt.want, tt.tol)
		}
	}
}

func TestHighpassBlocksDC(t *testing.T) {
	ctx := NewContext(testRate)
	f := ctx.NewBiquadFilter(Highpass, 200, ButterworthQ)
	constant(ctx, 1).Connect(f)
	f.Connect(ctx.Destination())

	out := render(ctx, testRate/10)
	if got := out[len(out)-1][0]; math.Abs(got) > 1e-3 {
		t.Errorf("DC after 100ms = %v, want ~0", got)
	}
}

func TestLowpassPassesDC(t *testing.T) {
	ctx := NewContext(testRate)
	f := ctx.NewBiquadFilter(Lowpass, 150, ButterworthQ)
	constant(ctx, 1).Connect(f)
	f.Connect(ctx.Destination())

	out := render(ctx, testRate/10)
	if got := out[len(out)-1][0]; !near(got, 1, 1e-3) {
		t.Errorf("DC after 100ms = %v, want ~1", got)
	}
}

// --- Merger ---

func TestChannelMergerRoutesInputs(t *testing.T) {
	ctx := NewContext(testRate)
	m := ctx.NewChannelMerger()
	constant(ctx, 0.25).Connect(m.Input(0))
	constant(ctx, 0.75).Connect(m.Input(1))
	m.Connect(ctx.Destination())

	out := render(ctx, 8)
	if out[7] != [2]float64{0.25, 0.75} {
		t.Errorf("merged frame = %v, want [0.25 0.75]", out[7])
	}
	if m.Input(0).Inputs() != 1 || m.Input(1).Inputs() != 1 {
		t.Errorf("merger inputs = %d/%d, want 1/1", m.Input(0).Inputs(), m.Input(1).Inputs())
	}
}
