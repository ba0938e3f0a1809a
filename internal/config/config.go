package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/satindergrewal/focusflow/internal/soundscape"
)

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// envDuration accepts a Go duration ("3s", "1500ms") or plain seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(f * float64(time.Second))
	}
	return fallback
}

// Config holds all runtime configuration. Sources are applied in order:
// defaults, an optional YAML file, environment variables, then CLI flags.
type Config struct {
	// Server
	Port int `yaml:"port"`

	// Player behaviour
	DefaultPreset string        `yaml:"preset"`
	Volume        float64       `yaml:"volume"`    // initial master volume, 0-1
	IdleHide      time.Duration `yaml:"idle_hide"` // controls hide after this long without input
	NoiseSeconds  float64       `yaml:"noise_seconds"`
	FadeIn        time.Duration `yaml:"fade_in"` // stream fade-in on play and resume

	// Drift between neighbouring presets
	Drift    bool          `yaml:"drift"`
	DriftMin time.Duration `yaml:"drift_min"`
	DriftMax time.Duration `yaml:"drift_max"`

	// Encoders
	OpusBitrate int    `yaml:"opus_bitrate"` // bits per second
	MP3Bitrate  string `yaml:"mp3_bitrate"`  // ffmpeg -b:a value
	FFmpegPath  string `yaml:"ffmpeg"`

	ICEServers []string `yaml:"ice_servers"` // STUN/TURN URLs for WebRTC
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:          8080,
		DefaultPreset: string(soundscape.DefaultID),
		Volume:        0.5,
		IdleHide:      3 * time.Second,
		NoiseSeconds:  2,
		FadeIn:        200 * time.Millisecond,
		DriftMin:      10 * time.Minute,
		DriftMax:      20 * time.Minute,
		OpusBitrate:   128000,
		MP3Bitrate:    "192k",
		FFmpegPath:    "ffmpeg",
	}
}

// Load reads configuration from environment variables with sane defaults.
// If FOCUS_CONFIG names a file it is applied first; a broken file is
// reported and otherwise ignored.
func Load() Config {
	cfg, err := LoadFile(os.Getenv("FOCUS_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return applyEnv(Defaults())
	}
	return cfg
}

// LoadFile layers the YAML file at path over the defaults, then applies the
// environment. An empty path skips the file.
func LoadFile(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return applyEnv(cfg), nil
}

func applyEnv(cfg Config) Config {
	cfg.Port = envInt("FOCUS_PORT", cfg.Port)
	cfg.DefaultPreset = envStr("FOCUS_PRESET", cfg.DefaultPreset)
	cfg.Volume = envFloat("FOCUS_VOLUME", cfg.Volume)
	cfg.IdleHide = envDuration("FOCUS_IDLE_HIDE", cfg.IdleHide)
	cfg.NoiseSeconds = envFloat("FOCUS_NOISE_SECONDS", cfg.NoiseSeconds)
	cfg.FadeIn = envDuration("FOCUS_FADE_IN", cfg.FadeIn)
	cfg.Drift = envBool("FOCUS_DRIFT", cfg.Drift)
	cfg.DriftMin = envDuration("FOCUS_DRIFT_MIN", cfg.DriftMin)
	cfg.DriftMax = envDuration("FOCUS_DRIFT_MAX", cfg.DriftMax)
	cfg.OpusBitrate = envInt("FOCUS_OPUS_BITRATE", cfg.OpusBitrate)
	cfg.MP3Bitrate = envStr("FOCUS_MP3_BITRATE", cfg.MP3Bitrate)
	cfg.FFmpegPath = envStr("FOCUS_FFMPEG", cfg.FFmpegPath)
	cfg.ICEServers = envList("FOCUS_ICE_SERVERS", cfg.ICEServers)
	return cfg
}

// Validate reports every out-of-range field.
func (c Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if _, err := soundscape.ParseID(c.DefaultPreset); err != nil {
		errs = append(errs, fmt.Errorf("preset: %w", err))
	}
	if math.IsNaN(c.Volume) || c.Volume < 0 || c.Volume > 1 {
		errs = append(errs, fmt.Errorf("volume %v outside [0, 1]", c.Volume))
	}
	if c.IdleHide <= 0 {
		errs = append(errs, fmt.Errorf("idle_hide %v must be positive", c.IdleHide))
	}
	if c.NoiseSeconds <= 0 {
		errs = append(errs, fmt.Errorf("noise_seconds %v must be positive", c.NoiseSeconds))
	}
	if c.FadeIn < 0 {
		errs = append(errs, fmt.Errorf("fade_in %v is negative", c.FadeIn))
	}
	if c.DriftMin <= 0 || c.DriftMax < c.DriftMin {
		errs = append(errs, fmt.Errorf("drift_min %v / drift_max %v: need 0 < min <= max", c.DriftMin, c.DriftMax))
	}
	if c.OpusBitrate < 6000 || c.OpusBitrate > 510000 {
		errs = append(errs, fmt.Errorf("opus_bitrate %d outside 6000-510000", c.OpusBitrate))
	}
	return errors.Join(errs...)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envList splits a comma-separated value, dropping empty items.
func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
