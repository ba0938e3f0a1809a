package stream

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestHTTPHandlerDefaults(t *testing.T) {
	h := NewHTTPHandler(NewBroadcaster(), HTTPOptions{})
	if h.opts.FFmpegPath != "ffmpeg" || h.opts.Bitrate != "192k" || h.opts.Name != "focusflow" {
		t.Errorf("defaults = %+v", h.opts)
	}
}

func TestHTTPEncoderArgs(t *testing.T) {
	h := NewHTTPHandler(NewBroadcaster(), HTTPOptions{Bitrate: "96k"})
	args := h.encoderArgs()

	i := slices.Index(args, "-b:a")
	if i < 0 || args[i+1] != "96k" {
		t.Errorf("bitrate arg missing in %v", args)
	}
	j := slices.Index(args, "-ar")
	if j < 0 || args[j+1] != "48000" {
		t.Errorf("sample rate arg missing in %v", args)
	}
	if args[len(args)-1] != "pipe:1" {
		t.Errorf("last arg = %q, want pipe:1", args[len(args)-1])
	}
}

func TestHTTPHandlerMissingEncoder(t *testing.T) {
	b := NewBroadcaster()
	h := NewHTTPHandler(b, HTTPOptions{FFmpegPath: filepath.Join(t.TempDir(), "no-ffmpeg")})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	if b.ListenerCount() != 0 {
		t.Errorf("ListenerCount = %d, want 0", b.ListenerCount())
	}
}

func TestWebRTCHandlerMethods(t *testing.T) {
	b := NewBroadcaster()
	h := NewWebRTCHandler(b, WebRTCOptions{})
	if h.opts.Bitrate != DefaultOpusBitrate {
		t.Errorf("bitrate = %d, want %d", h.opts.Bitrate, DefaultOpusBitrate)
	}

	tests := []struct {
		method string
		body   string
		want   int
	}{
		{http.MethodOptions, "", http.StatusOK},
		{http.MethodGet, "", http.StatusMethodNotAllowed},
		{http.MethodPost, "not json", http.StatusBadRequest},
		{http.MethodPost, `{"type":"offer","sdp":"garbage"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tt.method, "/offer", strings.NewReader(tt.body)))
		if rec.Code != tt.want {
			t.Errorf("%s /offer = %d, want %d", tt.method, rec.Code, tt.want)
		}
	}
	if h.PeerCount() != 0 {
		t.Errorf("PeerCount = %d, want 0", h.PeerCount())
	}
	// A failed negotiation must not leave a listener behind.
	if b.ListenerCount() != 0 {
		t.Errorf("ListenerCount = %d, want 0", b.ListenerCount())
	}
	h.Close()
}
