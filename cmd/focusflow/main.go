package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/satindergrewal/focusflow/internal/audio"
	"github.com/satindergrewal/focusflow/internal/cli"
	"github.com/satindergrewal/focusflow/internal/config"
	"github.com/satindergrewal/focusflow/internal/drift"
	"github.com/satindergrewal/focusflow/internal/player"
	"github.com/satindergrewal/focusflow/internal/soundscape"
	"github.com/satindergrewal/focusflow/internal/stream"
	"github.com/satindergrewal/focusflow/internal/tui"
	"github.com/satindergrewal/focusflow/internal/web"
)

var (
	version = "0.1.0"
)

// CLI defines the command-line interface
type CLI struct {
	Version bool   `short:"v" help:"Show version information"`
	Config  string `short:"c" type:"path" placeholder:"file" help:"YAML config file (defaults to $FOCUS_CONFIG)"`

	Serve   ServeCmd   `cmd:"" default:"1" help:"Serve the web player with MP3 and WebRTC streams"`
	Play    PlayCmd    `cmd:"" help:"Play through the local sound card in a terminal UI"`
	Render  RenderCmd  `cmd:"" help:"Render a preset to a WAV file"`
	Presets PresetsCmd `cmd:"" help:"List the available soundscapes"`
}

// PlayerFlags are shared by the commands that run a player.
type PlayerFlags struct {
	Preset string   `short:"s" placeholder:"id" help:"Preset to open (see 'presets')"`
	Volume *float64 `help:"Initial volume, 0-1"`
	Drift  bool     `help:"Drift to a neighbouring preset every so often"`
}

func (f PlayerFlags) apply(cfg *config.Config) {
	if f.Preset != "" {
		cfg.DefaultPreset = f.Preset
	}
	if f.Volume != nil {
		cfg.Volume = *f.Volume
	}
	if f.Drift {
		cfg.Drift = true
	}
}

func newDrift(ctrl *player.Controller, cfg *config.Config) *drift.Scheduler {
	d := drift.NewScheduler(ctrl, drift.Config{DwellMin: cfg.DriftMin, DwellMax: cfg.DriftMax})
	if cfg.Drift {
		d.SetEnabled(true)
	}
	return d
}

func main() {
	cliArgs := &CLI{}
	ctx := kong.Parse(cliArgs,
		kong.Name("focusflow"),
		kong.Description("Procedural focus soundscapes"),
		kong.UsageOnError(),
		kong.Vars{
			"version": version,
		},
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	// Handle version flag
	if cliArgs.Version {
		cli.PrintVersion(version)
		os.Exit(0)
	}

	cfg := config.Load()
	if cliArgs.Config != "" {
		var err error
		if cfg, err = config.LoadFile(cliArgs.Config); err != nil {
			cli.PrintError(err.Error())
			os.Exit(1)
		}
	}

	if err := ctx.Run(&cfg); err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
}

// ServeCmd runs the HTTP server.
type ServeCmd struct {
	PlayerFlags
	Port     int  `short:"p" help:"Listen port"`
	Autoplay bool `help:"Start playing the default preset at startup"`
}

func (s *ServeCmd) Run(cfg *config.Config) error {
	if s.Port != 0 {
		cfg.Port = s.Port
	}
	s.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Println("focusflow starting up...")

	// Audio pipeline: renders the live graph into 20ms frames
	pipeline := audio.NewPipeline(cfg.FadeIn)
	go pipeline.Run(ctx)

	// Broadcaster: fan-out PCM frames to all listeners
	broadcaster := stream.NewBroadcaster()
	go broadcaster.Run(ctx, pipeline.Frames())

	manager := soundscape.NewManager(pipeline.Open, soundscape.ManagerConfig{
		Volume:       &cfg.Volume,
		NoiseSeconds: cfg.NoiseSeconds,
	})
	defer manager.Close()

	ctrl := player.NewController(manager, player.Options{
		DefaultPreset: soundscape.ID(cfg.DefaultPreset),
		Volume:        &cfg.Volume,
		IdleHide:      cfg.IdleHide,
	})
	defer ctrl.Close()

	drifter := newDrift(ctrl, cfg)
	go drifter.Run(ctx)

	if s.Autoplay {
		if err := ctrl.Open(""); err != nil {
			return err
		}
		if err := ctrl.Play(); err != nil {
			log.Printf("Autoplay failed: %v", err)
		}
	}

	// HTTP routes
	mux := http.NewServeMux()
	web.NewAPI(ctrl, broadcaster.ListenerCount).Register(mux)

	// Audio streams
	mux.Handle("/stream", stream.NewHTTPHandler(broadcaster, stream.HTTPOptions{
		FFmpegPath: cfg.FFmpegPath,
		Bitrate:    cfg.MP3Bitrate,
	}))
	webrtcHandler := stream.NewWebRTCHandler(broadcaster, stream.WebRTCOptions{
		Bitrate:    cfg.OpusBitrate,
		ICEServers: cfg.ICEServers,
	})
	defer webrtcHandler.Close()
	mux.Handle("/offer", webrtcHandler)

	mux.HandleFunc("/api/listeners", func(w http.ResponseWriter, r *http.Request) {
		ps := pipeline.Status()
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		json.NewEncoder(w).Encode(map[string]any{
			"listeners":    broadcaster.Listeners(),
			"webrtc_peers": webrtcHandler.PeerCount(),
			"pipeline": map[string]any{
				"attached":  ps.Attached,
				"suspended": ps.Suspended,
				"position":  ps.Position.Seconds(),
				"frames":    ps.Frames,
			},
		})
	})

	mux.HandleFunc("/api/drift", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
		case http.MethodPost:
			var req struct {
				Enabled bool `json:"enabled"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid request", http.StatusBadRequest)
				return
			}
			drifter.SetEnabled(req.Enabled)
		default:
			http.Error(w, "GET or POST required", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(drifter.Status())
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		server.Close()
	}()

	log.Printf("focusflow live on %s", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server: %w", err)
	}
	return nil
}

// PlayCmd runs the terminal player on the local sound card.
type PlayCmd struct {
	PlayerFlags
	Autoplay bool   `default:"true" negatable:"" help:"Start playing immediately"`
	DebugLog string `default:"focusflow-debug.log" type:"path" help:"File for log output while the UI is up"`
}

func (p *PlayCmd) Run(cfg *config.Config) error {
	p.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	// Logging to the terminal would corrupt the UI.
	debugLog, err := os.Create(p.DebugLog)
	if err == nil {
		defer debugLog.Close()
		log.SetOutput(debugLog)
		tui.SetDebugLog(debugLog)
	} else {
		log.SetOutput(io.Discard)
	}

	manager := soundscape.NewManager(audio.OpenSpeaker, soundscape.ManagerConfig{
		Volume:       &cfg.Volume,
		NoiseSeconds: cfg.NoiseSeconds,
	})
	defer manager.Close()

	ctrl := player.NewController(manager, player.Options{
		DefaultPreset: soundscape.ID(cfg.DefaultPreset),
		Volume:        &cfg.Volume,
		IdleHide:      cfg.IdleHide,
	})
	defer ctrl.Close()

	if err := ctrl.Open(""); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	drifter := newDrift(ctrl, cfg)
	go drifter.Run(ctx)

	if p.Autoplay {
		// A failure stays visible in the UI; the player remains idle.
		ctrl.Play()
	}

	prog := tea.NewProgram(tui.NewModel(ctrl).WithDrift(drifter), tea.WithAltScreen())
	if _, err := prog.Run(); err != nil {
		return fmt.Errorf("UI error: %w", err)
	}
	return nil
}

// RenderCmd writes a preset to a WAV file faster than real time.
type RenderCmd struct {
	Preset   string        `arg:"" help:"Preset to render"`
	Output   string        `arg:"" type:"path" help:"Output WAV file"`
	Duration time.Duration `short:"d" default:"30s" help:"Length of audio to render"`
	Gain     float64       `default:"0" help:"Output trim in dB"`
	Volume   *float64      `help:"Master volume, 0-1 (defaults to the configured volume)"`
	Seed     uint64        `help:"Noise seed for reproducible output (0 picks one at random)"`
}

func (r *RenderCmd) Run(cfg *config.Config) error {
	id, err := soundscape.ParseID(r.Preset)
	if err != nil {
		return err
	}
	if r.Volume != nil {
		cfg.Volume = *r.Volume
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}
	if r.Duration <= 0 {
		return fmt.Errorf("duration %v must be positive", r.Duration)
	}

	mcfg := soundscape.ManagerConfig{
		Volume:       &cfg.Volume,
		NoiseSeconds: cfg.NoiseSeconds,
	}
	if r.Seed != 0 {
		mcfg.Rand = rand.New(rand.NewPCG(r.Seed, r.Seed))
	}

	offline := audio.NewOffline()
	manager := soundscape.NewManager(offline.Open, mcfg)
	defer manager.Close()

	if err := manager.EnsureContextRunning(); err != nil {
		return err
	}
	if err := manager.SwitchTo(id); err != nil {
		return err
	}

	f, err := os.Create(r.Output)
	if err != nil {
		return err
	}
	start := time.Now()
	if err := offline.Render(f, r.Duration, r.Gain); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	p, _ := soundscape.Lookup(id)
	cli.PrintField(os.Stdout, "Preset", p.Label)
	cli.PrintField(os.Stdout, "Duration", r.Duration.String())
	cli.PrintField(os.Stdout, "Output", r.Output)
	cli.PrintField(os.Stdout, "Took", time.Since(start).Round(time.Millisecond).String())
	return nil
}

// PresetsCmd prints the catalogue.
type PresetsCmd struct {
	JSON bool `help:"Print as JSON"`
}

func (p *PresetsCmd) Run(cfg *config.Config) error {
	presets := soundscape.Presets()
	if p.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(presets)
	}
	for _, ps := range presets {
		marker := " "
		if string(ps.ID) == cfg.DefaultPreset {
			marker = cli.AccentStyle.Render("*")
		}
		fmt.Printf("%s %s %s  %s\n", marker, ps.Glyph,
			cli.ValueStyle.Render(fmt.Sprintf("%-6s", ps.ID)),
			cli.KeyStyle.Render(ps.Label+": "+ps.Description))
	}
	return nil
}
