package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"gopkg.in/hraban/opus.v2"

	"github.com/satindergrewal/focusflow/internal/audio"
)

// DefaultOpusBitrate is the encoder target in bits per second.
const DefaultOpusBitrate = 128000

var errBadOffer = errors.New("invalid SDP offer")

// WebRTCOptions configures the Opus stream.
type WebRTCOptions struct {
	Bitrate    int      // bits per second; zero selects DefaultOpusBitrate
	ICEServers []string // STUN/TURN URLs; empty means host candidates only
}

// peer is one negotiated session and the broadcaster listener feeding it.
type peer struct {
	pc       *webrtc.PeerConnection
	listener *Listener
	closed   atomic.Bool
}

// WebRTCHandler answers SDP offers on POST and streams the broadcast to each
// peer as Opus.
type WebRTCHandler struct {
	broadcaster *Broadcaster
	opts        WebRTCOptions

	mu    sync.Mutex
	peers map[string]*peer
}

// NewWebRTCHandler creates a WebRTC stream handler.
func NewWebRTCHandler(b *Broadcaster, opts WebRTCOptions) *WebRTCHandler {
	if opts.Bitrate <= 0 {
		opts.Bitrate = DefaultOpusBitrate
	}
	return &WebRTCHandler{
		broadcaster: b,
		opts:        opts,
		peers:       make(map[string]*peer),
	}
}

// PeerCount returns the number of active WebRTC peers.
func (h *WebRTCHandler) PeerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

// Close hangs up every peer.
func (h *WebRTCHandler) Close() {
	h.mu.Lock()
	peers := make([]*peer, 0, len(h.peers))
	for _, p := range h.peers {
		peers = append(peers, p)
	}
	h.mu.Unlock()

	for _, p := range peers {
		h.hangUp(p)
	}
}

func (h *WebRTCHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
	default:
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var offer webrtc.SessionDescription
	if err := json.NewDecoder(r.Body).Decode(&offer); err != nil {
		http.Error(w, errBadOffer.Error(), http.StatusBadRequest)
		return
	}

	answer, err := h.negotiate(offer)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, errBadOffer) {
			code = http.StatusBadRequest
		}
		log.Printf("WebRTC negotiation: %v", err)
		http.Error(w, err.Error(), code)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(answer)
}

// negotiate builds a send-only peer for offer and starts streaming to it once
// ICE gathering completes. The returned answer carries every candidate.
func (h *WebRTCHandler) negotiate(offer webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	cfg := webrtc.Configuration{}
	if len(h.opts.ICEServers) > 0 {
		cfg.ICEServers = []webrtc.ICEServer{{URLs: h.opts.ICEServers}}
	}
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	listener := h.broadcaster.Subscribe("webrtc")
	p := &peer{pc: pc, listener: listener}
	fail := func(err error) (*webrtc.SessionDescription, error) {
		h.broadcaster.Unsubscribe(listener)
		pc.Close()
		return nil, err
	}

	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio",
		"focusflow-"+listener.ID,
	)
	if err != nil {
		return fail(fmt.Errorf("create audio track: %w", err))
	}
	if _, err := pc.AddTrack(track); err != nil {
		return fail(fmt.Errorf("add track: %w", err))
	}
	if err := pc.SetRemoteDescription(offer); err != nil {
		return fail(fmt.Errorf("%w: %v", errBadOffer, err))
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return fail(fmt.Errorf("create answer: %w", err))
	}
	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		return fail(fmt.Errorf("set local description: %w", err))
	}
	<-gathered

	h.mu.Lock()
	h.peers[listener.ID] = p
	total := len(h.peers)
	h.mu.Unlock()
	log.Printf("WebRTC peer %s connected (total: %d)", listener.ID, total)

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		switch s {
		case webrtc.PeerConnectionStateFailed,
			webrtc.PeerConnectionStateClosed,
			webrtc.PeerConnectionStateDisconnected:
			h.hangUp(p)
		}
	})

	go h.pump(p, track)
	return pc.LocalDescription(), nil
}

// pump encodes broadcast frames for one peer until it hangs up.
func (h *WebRTCHandler) pump(p *peer, track *webrtc.TrackLocalStaticSample) {
	defer h.hangUp(p)

	enc, err := opus.NewEncoder(audio.SampleRate, audio.Channels, opus.AppAudio)
	if err != nil {
		log.Printf("WebRTC: opus encoder error: %v", err)
		return
	}
	if err := enc.SetBitrate(h.opts.Bitrate); err != nil {
		log.Printf("WebRTC: opus bitrate %d: %v", h.opts.Bitrate, err)
	}

	packet := make([]byte, 4000)
	for {
		select {
		case <-p.listener.Done():
			return
		case frame, ok := <-p.listener.C:
			if !ok {
				return
			}
			n, err := enc.Encode(frame, packet)
			if err != nil {
				log.Printf("WebRTC: opus encode error: %v", err)
				continue
			}
			sample := media.Sample{Data: packet[:n], Duration: audio.FrameDuration}
			if err := track.WriteSample(sample); err != nil {
				return
			}
		}
	}
}

// hangUp releases a peer exactly once. Closing the connection may re-enter
// through the state callback.
func (h *WebRTCHandler) hangUp(p *peer) {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	h.mu.Lock()
	delete(h.peers, p.listener.ID)
	remaining := len(h.peers)
	h.mu.Unlock()

	h.broadcaster.Unsubscribe(p.listener)
	p.pc.Close()
	log.Printf("WebRTC peer %s disconnected after dropping %d frames (remaining: %d)",
		p.listener.ID, p.listener.Dropped(), remaining)
}
