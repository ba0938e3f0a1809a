package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/wav"
)

// ErrNotOpen is returned by Render before a source is attached.
var ErrNotOpen = errors.New("offline device not open")

// Offline renders a source faster than real time into a WAV file.
type Offline struct {
	mu        sync.Mutex
	src       beep.Streamer
	rate      beep.SampleRate
	suspended bool
}

// NewOffline returns an unopened offline device.
func NewOffline() *Offline {
	return &Offline{}
}

// Open attaches src. It satisfies OpenFunc.
func (o *Offline) Open(src beep.Streamer, rate beep.SampleRate) (Device, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.src = src
	o.rate = rate
	o.suspended = false
	return o, nil
}

func (o *Offline) Resume() error {
	o.mu.Lock()
	o.suspended = false
	o.mu.Unlock()
	return nil
}

func (o *Offline) Suspend() error {
	o.mu.Lock()
	o.suspended = true
	o.mu.Unlock()
	return nil
}

func (o *Offline) Close() error {
	o.mu.Lock()
	o.src = nil
	o.mu.Unlock()
	return nil
}

// Render writes d of audio as 16-bit stereo WAV, trimmed by gainDB. A
// suspended device renders silence.
func (o *Offline) Render(w io.WriteSeeker, d time.Duration, gainDB float64) error {
	o.mu.Lock()
	src, rate, suspended := o.src, o.rate, o.suspended
	o.mu.Unlock()
	if src == nil {
		return ErrNotOpen
	}

	n := rate.N(d)
	var s beep.Streamer = beep.Take(n, src)
	if suspended {
		s = beep.Silence(n)
	}
	if gainDB != 0 {
		s = &effects.Volume{Streamer: s, Base: 2, Volume: gainDB / (20 * math.Log10(2))}
	}

	format := beep.Format{SampleRate: rate, NumChannels: Channels, Precision: BitDepth / 8}
	if err := wav.Encode(w, Limited(s), format); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	return nil
}
