// Package stream carries pipeline frames to network listeners over chunked
// HTTP MP3 and WebRTC Opus.
package stream

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Broadcaster fans out PCM frames from one source to N listeners.
type Broadcaster struct {
	mu        sync.RWMutex
	listeners map[*Listener]struct{}
}

// Listener receives PCM frames from the broadcaster.
type Listener struct {
	C     chan []int16 // buffered channel of 20ms PCM frames
	ID    string
	Kind  string // "http" or "webrtc"
	Since time.Time

	done    chan struct{}
	once    sync.Once
	dropped atomic.Uint64
}

// Done is closed when the listener is unsubscribed.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

// Dropped returns the number of frames skipped because the listener fell
// behind.
func (l *Listener) Dropped() uint64 {
	return l.dropped.Load()
}

// ListenerInfo describes a connected listener.
type ListenerInfo struct {
	ID      string    `json:"id"`
	Kind    string    `json:"kind"`
	Since   time.Time `json:"since"`
	Dropped uint64    `json:"dropped"`
}

// NewBroadcaster creates a new broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		listeners: make(map[*Listener]struct{}),
	}
}

// Subscribe registers a new listener of the given kind.
func (b *Broadcaster) Subscribe(kind string) *Listener {
	l := &Listener{
		C:     make(chan []int16, 150), // ~3 seconds of buffer at 20ms/frame
		ID:    uuid.NewString(),
		Kind:  kind,
		Since: time.Now(),
		done:  make(chan struct{}),
	}
	b.mu.Lock()
	b.listeners[l] = struct{}{}
	b.mu.Unlock()
	return l
}

// Unsubscribe removes a listener and signals it to stop. Repeated calls are
// harmless.
func (b *Broadcaster) Unsubscribe(l *Listener) {
	b.mu.Lock()
	delete(b.listeners, l)
	b.mu.Unlock()
	l.once.Do(func() { close(l.done) })
}

// ListenerCount returns the number of active listeners.
func (b *Broadcaster) ListenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

// Listeners returns the connected listeners, oldest first.
func (b *Broadcaster) Listeners() []ListenerInfo {
	b.mu.RLock()
	out := make([]ListenerInfo, 0, len(b.listeners))
	for l := range b.listeners {
		out = append(out, ListenerInfo{ID: l.ID, Kind: l.Kind, Since: l.Since, Dropped: l.Dropped()})
	}
	b.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Since.Before(out[j].Since) })
	return out
}

// Run reads frames from source and fans out to all listeners.
// Slow listeners get frames dropped rather than blocking the broadcast.
func (b *Broadcaster) Run(ctx context.Context, source <-chan []int16) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-source:
			if !ok {
				return
			}
			b.mu.RLock()
			for l := range b.listeners {
				select {
				case l.C <- frame:
				default:
					l.dropped.Add(1)
				}
			}
			b.mu.RUnlock()
		}
	}
}
