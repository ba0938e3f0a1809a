// Package web serves the browser player: the embedded page and a small JSON
// API over the playback controller.
package web

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/satindergrewal/focusflow/internal/player"
	"github.com/satindergrewal/focusflow/internal/soundscape"
)

//go:embed index.html
var IndexHTML []byte

// API exposes a Controller over HTTP.
type API struct {
	player    *player.Controller
	listeners func() int
}

// NewAPI returns an API for p. listeners, if set, reports connected stream
// listeners for /api/status.
func NewAPI(p *player.Controller, listeners func() int) *API {
	if listeners == nil {
		listeners = func() int { return 0 }
	}
	return &API{player: p, listeners: listeners}
}

// Register adds the page and API routes to mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("/", a.index)
	mux.HandleFunc("/api/presets", a.presets)
	mux.HandleFunc("/api/status", a.status)
	mux.HandleFunc("/api/events", a.events)
	mux.HandleFunc("/api/open", a.post(a.open))
	mux.HandleFunc("/api/preset", a.post(a.selectPreset))
	mux.HandleFunc("/api/play", a.post(func(*http.Request) error { return a.player.Play() }))
	mux.HandleFunc("/api/pause", a.post(func(*http.Request) error { return a.player.Pause() }))
	mux.HandleFunc("/api/toggle", a.post(func(*http.Request) error { return a.player.Toggle() }))
	mux.HandleFunc("/api/close", a.post(func(*http.Request) error { a.player.Close(); return nil }))
	mux.HandleFunc("/api/volume", a.post(a.volume))
	mux.HandleFunc("/api/activity", a.post(func(*http.Request) error { a.player.Interact(); return nil }))
	mux.HandleFunc("/api/controls", a.post(func(*http.Request) error { a.player.ToggleControls(); return nil }))
}

func (a *API) index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(IndexHTML)
}

func (a *API) presets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET required", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, soundscape.Presets())
}

func (a *API) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET required", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, a.statusBody(a.player.Snapshot()))
}

// events streams a status object per state change as server-sent events.
func (a *API) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	updates := make(chan player.Snapshot, 16)
	cancel := a.player.Subscribe(func(s player.Snapshot) {
		select {
		case updates <- s:
		default:
		}
	})
	defer cancel()

	send := func(s player.Snapshot) bool {
		data, err := json.Marshal(a.statusBody(s))
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !send(a.player.Snapshot()) {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case s := <-updates:
			if !send(s) {
				return
			}
		}
	}
}

func (a *API) open(r *http.Request) error {
	var req struct {
		Preset string `json:"preset"`
	}
	if err := decodeOptional(r, &req); err != nil {
		return err
	}
	id := soundscape.ID("")
	if req.Preset != "" {
		var err error
		if id, err = soundscape.ParseID(req.Preset); err != nil {
			return err
		}
	}
	return a.player.Open(id)
}

func (a *API) selectPreset(r *http.Request) error {
	var req struct {
		Preset string `json:"preset"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return errBadRequest
	}
	id, err := soundscape.ParseID(req.Preset)
	if err != nil {
		return err
	}
	return a.player.SelectPreset(id)
}

func (a *API) volume(r *http.Request) error {
	var req struct {
		Volume *float64 `json:"volume"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Volume == nil {
		return errBadRequest
	}
	_, err := a.player.SetVolume(*req.Volume)
	return err
}

var errBadRequest = errors.New("invalid request")

// post wraps a state transition: POST only, errors mapped to status codes,
// and the resulting status as the response body.
func (a *API) post(fn func(*http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		if err := fn(r); err != nil {
			code := statusCode(err)
			if code >= 500 {
				log.Printf("API %s: %v", r.URL.Path, err)
			}
			http.Error(w, err.Error(), code)
			return
		}
		writeJSON(w, a.statusBody(a.player.Snapshot()))
	}
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, soundscape.ErrUnknownPreset):
		return http.StatusBadRequest
	case errors.Is(err, player.ErrClosed):
		return http.StatusConflict
	case errors.Is(err, soundscape.ErrDeviceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeOptional decodes a JSON body if there is one.
func decodeOptional(r *http.Request, v any) error {
	if r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errBadRequest
	}
	return nil
}

func (a *API) statusBody(s player.Snapshot) map[string]any {
	p, _ := soundscape.Lookup(s.Preset)
	var errText string
	if s.Err != nil {
		errText = s.Err.Error()
	}
	return map[string]any{
		"state":            s.State.String(),
		"playing":          s.Playing(),
		"preset":           s.Preset,
		"label":            p.Label,
		"backdrop":         p.Backdrop,
		"volume":           s.Volume,
		"elapsed":          s.Elapsed,
		"elapsed_text":     s.ElapsedText(),
		"controls_visible": s.ControlsVisible,
		"listeners":        a.listeners(),
		"error":            errText,
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(v)
}
