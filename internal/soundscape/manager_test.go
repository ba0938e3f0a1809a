package soundscape

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/gopxl/beep"

	"github.com/satindergrewal/focusflow/internal/audio"
	"github.com/satindergrewal/focusflow/internal/synth"
)

type fakeDevice struct {
	mu       sync.Mutex
	src      beep.Streamer
	opens    int
	resumes  int
	suspends int
	closes   int
	failOpen error

	failResume error
}

func (d *fakeDevice) open(src beep.Streamer, rate beep.SampleRate) (audio.Device, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failOpen != nil {
		return nil, d.failOpen
	}
	d.opens++
	d.src = src
	return d, nil
}

func (d *fakeDevice) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failResume != nil {
		return d.failResume
	}
	d.resumes++
	return nil
}


func (d *fakeDevice) Suspend() error { d.mu.Lock(); d.suspends++; d.mu.Unlock(); return nil }
func (d *fakeDevice) Close() error   { d.mu.Lock(); d.closes++; d.mu.Unlock(); return nil }

// render pulls n frames through the opened source, as a device would.
func (d *fakeDevice) render(n int) [][2]float64 {
	buf := make([][2]float64, n)
	d.src.Stream(buf)
	return buf
}

func newTestManager(t *testing.T) (*Manager, *fakeDevice) {
	t.Helper()
	dev := &fakeDevice{}
	m := NewManager(dev.open, ManagerConfig{
		SampleRate:   testRate,
		NoiseSeconds: 0.25,
		Rand:         rand.New(rand.NewPCG(9, 9)),
	})
	return m, dev
}

func running(t *testing.T) (*Manager, *fakeDevice) {
	t.Helper()
	m, dev := newTestManager(t)
	if err := m.EnsureContextRunning(); err != nil {
		t.Fatalf("EnsureContextRunning: %v", err)
	}
	return m, dev
}

func TestEnsureContextRunningIsIdempotent(t *testing.T) {
	m, dev := running(t)
	if err := m.EnsureContextRunning(); err != nil {
		t.Fatalf("second EnsureContextRunning: %v", err)
	}
	if dev.opens != 1 {
		t.Errorf("device opened %d times, want 1", dev.opens)
	}
	if dev.resumes != 0 {
		t.Errorf("resumes = %d, want 0 for a running device", dev.resumes)
	}
	if !m.Running() {
		t.Error("Running() = false")
	}
}

func TestEnsureContextRunningResumesSuspended(t *testing.T) {
	m, dev := running(t)
	if err := m.Suspend(); err != nil {
		t.Fatal(err)
	}
	if m.Running() {
		t.Error("Running() = true while suspended")
	}
	if err := m.EnsureContextRunning(); err != nil {
		t.Fatal(err)
	}
	if dev.suspends != 1 || dev.resumes != 1 || dev.opens != 1 {
		t.Errorf("opens/suspends/resumes = %d/%d/%d, want 1/1/1", dev.opens, dev.suspends, dev.resumes)
	}
}

func TestDeviceUnavailable(t *testing.T) {
	m, dev := newTestManager(t)
	dev.failOpen = errors.New("no sound card")

	err := m.EnsureContextRunning()
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("err = %v, want ErrDeviceUnavailable", err)
	}
	if m.Running() {
		t.Error("context left behind after failed open")
	}
	if err := m.SwitchTo(Brown); !errors.Is(err, ErrContextNotRunning) {
		t.Errorf("SwitchTo = %v, want ErrContextNotRunning", err)
	}

	dev.failOpen = nil
	if err := m.EnsureContextRunning(); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func TestSwitchToRequiresRunningContext(t *testing.T) {
	m, _ := newTestManager(t)
	if err := m.SwitchTo(Ocean); !errors.Is(err, ErrContextNotRunning) {
		t.Errorf("SwitchTo before start = %v, want ErrContextNotRunning", err)
	}
	m.StopAll() // no context yet; must not panic
}

func TestStopAllLeavesNothing(t *testing.T) {
	for _, p := range Presets() {
		t.Run(string(p.ID), func(t *testing.T) {
			m, dev := running(t)
			if err := m.SwitchTo(p.ID); err != nil {
				t.Fatal(err)
			}
			dev.render(1000)

			var entries []Entry
			m.inspect(func(h *Handle, _ *synth.Gain) { entries = h.Entries })

			m.StopAll()
			if got := m.ActiveGenerators(); got != 0 {
				t.Errorf("active generators = %d, want 0", got)
			}
			if got := m.MasterInputs(); got != 0 {
				t.Errorf("master inputs = %d, want 0", got)
			}
			if _, ok := m.Current(); ok {
				t.Error("handle still registered")
			}
			for _, e := range entries {
				if e.Node.Outputs() != 0 {
					t.Errorf("%T still connected", e.Node)
				}
			}
			m.StopAll() // idempotent
		})
	}
}

func TestNoOverlapDuringSwitches(t *testing.T) {
	m, dev := running(t)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				dev.render(synth.RenderQuantum)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			m.inspect(func(h *Handle, master *synth.Gain) {
				srcs := append(master.Sources(), master.Gain.Sources()...)
				for _, s := range srcs {
					if h == nil || !h.Contains(s) {
						t.Errorf("master fed by %T outside the live graph", s)
					}
				}
			})
		}
	}()

	ps := Presets()
	for round := 0; round < 3; round++ {
		for _, p := range ps {
			if err := m.SwitchTo(p.ID); err != nil {
				t.Fatal(err)
			}
		}
	}
	close(done)
	wg.Wait()

	var want int
	m.inspect(func(h *Handle, _ *synth.Gain) { want = h.Generators() })
	if got := m.ActiveGenerators(); got != want {
		t.Errorf("active generators = %d, want %d", got, want)
	}
}

func TestSwitchFocusToOm(t *testing.T) {
	m, dev := running(t)
	m.SwitchTo(Focus)
	dev.render(2048)

	var binaural []*synth.Oscillator
	m.inspect(func(h *Handle, _ *synth.Gain) { binaural = h.Oscillators() })

	if err := m.SwitchTo(Om); err != nil {
		t.Fatal(err)
	}
	for _, o := range binaural {
		if o.Playing() || o.Outputs() != 0 {
			t.Errorf("binaural %v Hz oscillator playing=%v outputs=%d", o.Frequency.Value(), o.Playing(), o.Outputs())
		}
	}

	var freqs []float64
	m.inspect(func(h *Handle, _ *synth.Gain) {
		for _, o := range h.Oscillators() {
			if o.Type == synth.Sine && o.Playing() {
				freqs = append(freqs, o.Frequency.Value())
			}
		}
	})
	if fmt.Sprint(freqs) != fmt.Sprint([]float64{136.1, 204.15, 272.2}) {
		t.Errorf("om oscillators = %v, want [136.1 204.15 272.2]", freqs)
	}
	if got := m.ActiveGenerators(); got != 3 {
		t.Errorf("active generators = %d, want 3", got)
	}
}

func topology(m *Manager) string {
	var s string
	m.inspect(func(h *Handle, _ *synth.Gain) {
		for _, e := range h.Entries {
			s += fmt.Sprintf("%T/%d ", e.Node, e.Node.Outputs())
		}
	})
	return s
}

func TestPauseAndPlayRebuildsSameTopology(t *testing.T) {
	for _, id := range []ID{Rain, Fan, Focus} {
		m, _ := running(t)
		m.SwitchTo(id)
		before := topology(m)

		m.StopAll()
		m.Suspend()
		if err := m.EnsureContextRunning(); err != nil {
			t.Fatal(err)
		}
		if err := m.SwitchTo(id); err != nil {
			t.Fatalf("%s rebuild: %v", id, err)
		}
		if after := topology(m); after != before {
			t.Errorf("%s topology changed:\n%s\n%s", id, before, after)
		}
	}
}

func TestSetVolumeClamps(t *testing.T) {
	m, _ := newTestManager(t)
	if got := m.SetVolume(1.7); got != 1 {
		t.Errorf("SetVolume(1.7) = %v, want 1", got)
	}
	if got := m.SetVolume(-0.2); got != 0 {
		t.Errorf("SetVolume(-0.2) = %v, want 0", got)
	}
	if got := m.Volume(); got != 0 {
		t.Errorf("Volume() = %v, want 0", got)
	}
	m.SetVolume(0.4)
	if got := m.SetVolume(math.NaN()); got != 0 {
		t.Errorf("SetVolume(NaN) = %v, want 0", got)
	}
}

func TestNaNVolumeKeepsOutputFinite(t *testing.T) {
	m, dev := running(t)
	if err := m.SwitchTo(White); err != nil {
		t.Fatal(err)
	}
	m.SetVolume(math.NaN())
	for i, f := range dev.render(testRate / 10) {
		if math.IsNaN(f[0]) || math.IsNaN(f[1]) {
			t.Fatalf("sample %d = %v after SetVolume(NaN)", i, f)
		}
	}
}

func TestConfiguredVolume(t *testing.T) {
	zero, nan, loud := 0.0, math.NaN(), 3.0
	tests := []struct {
		name string
		in   *float64
		want float64
	}{
		{"unset", nil, DefaultVolume},
		{"muted", &zero, 0},
		{"nan", &nan, 0},
		{"above range", &loud, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := &fakeDevice{}
			m := NewManager(dev.open, ManagerConfig{SampleRate: testRate, Volume: tt.in})
			if got := m.Volume(); got != tt.want {
				t.Errorf("Volume() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResumeFailureIsDeviceUnavailable(t *testing.T) {
	m, dev := running(t)
	if err := m.Suspend(); err != nil {
		t.Fatal(err)
	}
	dev.failResume = errors.New("sound card gone")
	err := m.EnsureContextRunning()
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("EnsureContextRunning after failed resume = %v, want ErrDeviceUnavailable", err)
	}
}

func TestSetVolumeRamps(t *testing.T) {
	m, dev := running(t)
	m.SetVolume(0.9)

	var master *synth.Gain
	m.inspect(func(_ *Handle, g *synth.Gain) { master = g })

	dev.render(testRate / 10)
	want := DefaultVolume + (0.9-DefaultVolume)*(1-math.Exp(-1))
	m.inspect(func(*Handle, *synth.Gain) {
		if got := master.Gain.Value(); math.Abs(got-want) > 1e-3 {
			t.Errorf("gain after one time constant = %v, want %v", got, want)
		}
	})

	dev.render(testRate)
	m.inspect(func(*Handle, *synth.Gain) {
		if got := master.Gain.Value(); math.Abs(got-0.9) > 1e-3 {
			t.Errorf("settled gain = %v, want 0.9", got)
		}
	})
}

func TestVolumeRememberedBeforeStart(t *testing.T) {
	m, _ := newTestManager(t)
	m.SetVolume(0.2)
	if err := m.EnsureContextRunning(); err != nil {
		t.Fatal(err)
	}
	m.inspect(func(_ *Handle, g *synth.Gain) {
		if got := g.Gain.Value(); got != 0.2 {
			t.Errorf("initial master gain = %v, want 0.2", got)
		}
	})
}

func TestUnknownPresetSwitchIsSilent(t *testing.T) {
	m, dev := running(t)
	m.SwitchTo(Ocean)
	if err := m.SwitchTo(ID("thunder")); err != nil {
		t.Fatalf("SwitchTo(thunder) = %v", err)
	}
	if got := m.MasterInputs(); got != 0 {
		t.Errorf("master inputs = %d, want 0", got)
	}
	for i, f := range dev.render(512) {
		if f != [2]float64{} {
			t.Fatalf("frame %d = %v, want silence", i, f)
		}
	}
}

func TestCloseReleasesDevice(t *testing.T) {
	m, dev := running(t)
	m.SwitchTo(Space)
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if dev.closes != 1 {
		t.Errorf("closes = %d, want 1", dev.closes)
	}
	if m.Running() || m.ActiveGenerators() != 0 {
		t.Error("manager still running after Close")
	}
	if err := m.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}
