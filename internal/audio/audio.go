// Package audio carries rendered soundscapes to a listener: a real-time
// frame pipeline for network streams, the local sound card, or a WAV file.
package audio

import (
	"errors"
	"time"

	"github.com/gopxl/beep"
)

const (
	SampleRate    = 48000
	Channels      = 2
	BitDepth      = 16
	FrameDuration = 20 * time.Millisecond
	FrameSize     = 960                  // samples per channel per 20ms frame
	FrameSamples  = FrameSize * Channels // total interleaved samples per frame
	FrameBytes    = FrameSamples * 2     // bytes per frame (int16 = 2 bytes)
)

// ErrUnsupportedRate is returned when a device cannot run at the source rate.
var ErrUnsupportedRate = errors.New("unsupported sample rate")

// Device is an opened output. Suspend idles it without releasing it; Resume
// picks up where it left off.
type Device interface {
	Resume() error
	Suspend() error
	Close() error
}

// OpenFunc opens a device that pulls from src at rate.
type OpenFunc func(src beep.Streamer, rate beep.SampleRate) (Device, error)
