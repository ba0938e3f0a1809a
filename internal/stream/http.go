package stream

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os/exec"
	"strconv"

	"github.com/satindergrewal/focusflow/internal/audio"
)

// HTTPOptions configures the MP3 encoder.
type HTTPOptions struct {
	FFmpegPath string // defaults to "ffmpeg" on PATH
	Bitrate    string // ffmpeg -b:a value, defaults to "192k"
	Name       string // ICY stream name
}

// HTTPHandler serves the broadcast as a chunked MP3 stream. Every connection
// gets its own ffmpeg encoder.
type HTTPHandler struct {
	broadcaster *Broadcaster
	opts        HTTPOptions
}

// NewHTTPHandler creates an HTTP stream handler.
func NewHTTPHandler(b *Broadcaster, opts HTTPOptions) *HTTPHandler {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.Bitrate == "" {
		opts.Bitrate = "192k"
	}
	if opts.Name == "" {
		opts.Name = "focusflow"
	}
	return &HTTPHandler{broadcaster: b, opts: opts}
}

// encoderArgs returns the ffmpeg arguments for PCM stdin -> MP3 stdout.
func (h *HTTPHandler) encoderArgs() []string {
	return []string{
		"-f", "s16le",
		"-ar", strconv.Itoa(audio.SampleRate),
		"-ac", strconv.Itoa(audio.Channels),
		"-i", "pipe:0",
		"-codec:a", "libmp3lame",
		"-b:a", h.opts.Bitrate,
		"-f", "mp3",
		"-fflags", "nobuffer",
		"-flush_packets", "1",
		"-loglevel", "error",
		"pipe:1",
	}
}

// mp3Encoder is a running ffmpeg process: PCM in, MP3 out.
type mp3Encoder struct {
	cmd *exec.Cmd
	in  io.WriteCloser
	out io.ReadCloser
}

func (h *HTTPHandler) startEncoder(ctx context.Context) (*mp3Encoder, error) {
	cmd := exec.CommandContext(ctx, h.opts.FFmpegPath, h.encoderArgs()...)
	in, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", h.opts.FFmpegPath, err)
	}
	return &mp3Encoder{cmd: cmd, in: in, out: out}, nil
}

// feed writes the listener's frames to the encoder until either side stops.
func (e *mp3Encoder) feed(ctx context.Context, l *Listener) {
	defer e.in.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.Done():
			return
		case frame, ok := <-l.C:
			if !ok {
				return
			}
			if _, err := e.in.Write(audio.SamplesToBytes(frame)); err != nil {
				return
			}
		}
	}
}

// flushWriter flushes after every write so each MP3 chunk reaches the
// listener at once.
type flushWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func (fw flushWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	fw.f.Flush()
	return n, err
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	enc, err := h.startEncoder(ctx)
	if err != nil {
		log.Printf("HTTP stream: %v", err)
		http.Error(w, "encoder unavailable", http.StatusServiceUnavailable)
		return
	}
	defer enc.cmd.Wait()

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "no-cache, no-store")
	w.Header().Set("Connection", "close")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("ICY-Name", h.opts.Name)

	listener := h.broadcaster.Subscribe("http")
	defer h.broadcaster.Unsubscribe(listener)
	log.Printf("HTTP listener %s connected (total: %d)", listener.ID, h.broadcaster.ListenerCount())

	go enc.feed(ctx, listener)

	_, err = io.CopyBuffer(flushWriter{w, flusher}, enc.out, make([]byte, 4096))
	if err != nil && ctx.Err() == nil {
		log.Printf("HTTP stream %s: %v", listener.ID, err)
	}
	cancel()
	log.Printf("HTTP listener %s disconnected (dropped %d frames)", listener.ID, listener.Dropped())
}
