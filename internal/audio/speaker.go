package audio

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

// Speaker plays a source on the local sound card.
type Speaker struct {
	mu     sync.Mutex
	ctrl   *beep.Ctrl
	closed bool
}

// OpenSpeaker initialises the sound card at rate with a 100ms buffer and
// starts pulling from src. It satisfies OpenFunc.
func OpenSpeaker(src beep.Streamer, rate beep.SampleRate) (Device, error) {
	if err := speaker.Init(rate, rate.N(100*time.Millisecond)); err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}
	s := &Speaker{ctrl: &beep.Ctrl{Streamer: Limited(src)}}
	speaker.Play(s.ctrl)
	log.Printf("Speaker open at %d Hz", rate)
	return s, nil
}

// Resume unpauses playback.
func (s *Speaker) Resume() error {
	return s.setPaused(false)
}

// Suspend pauses playback. The sound card keeps running on silence.
func (s *Speaker) Suspend() error {
	return s.setPaused(true)
}

func (s *Speaker) setPaused(p bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("speaker closed")
	}
	speaker.Lock()
	s.ctrl.Paused = p
	speaker.Unlock()
	return nil
}

// Close stops playback and releases the sound card.
func (s *Speaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	speaker.Clear()
	speaker.Close()
	return nil
}

// Limited passes src through the output limiter.
func Limited(src beep.Streamer) beep.Streamer {
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		n, ok := src.Stream(samples)
		for i := range samples[:n] {
			samples[i][0] = Limit(samples[i][0])
			samples[i][1] = Limit(samples[i][1])
		}
		return n, ok
	})
}
