// Package config loads gestureart settings from a TOML file.
//
// A missing file is not an error; every field has a default. Keys the program
// does not know are rejected so that typos surface at startup.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ayusman/gestureart/internal/capture"
	"github.com/ayusman/gestureart/internal/detector"
	"github.com/ayusman/gestureart/internal/gesture"
	"github.com/ayusman/gestureart/internal/render"
	"github.com/ayusman/gestureart/internal/session"
	"github.com/ayusman/gestureart/internal/theme"
)

// DefaultAddr is the HTTP listen address.
const DefaultAddr = ":8080"

// Config is the top-level configuration.
type Config struct {
	Addr   string `toml:"addr"`
	WebDir string `toml:"web_dir"`
	FPS    int    `toml:"fps"`

	// Particles overrides the device class budget when positive.
	Particles int                `toml:"particles"`
	Device    render.DeviceClass `toml:"device"`
	Theme     string             `toml:"theme"`
	// Seed makes the particle cloud reproducible. Zero seeds from the clock.
	Seed uint64 `toml:"seed"`

	Camera Camera             `toml:"camera"`
	Themes []theme.Definition `toml:"themes"`
}

// Camera configures capture and gesture tracking.
type Camera struct {
	// Enabled starts tracking at launch.
	Enabled        bool          `toml:"enabled"`
	DeviceID       int           `toml:"device_id"`
	Width          int           `toml:"width"`
	Height         int           `toml:"height"`
	FPS            int           `toml:"fps"`
	PollInterval   time.Duration `toml:"poll_interval"`
	RequiredFrames int           `toml:"required_frames"`
	MinConfidence  float64       `toml:"min_confidence"`
	MinTracking    float64       `toml:"min_tracking"`
}

// Default returns the built-in configuration.
func Default() Config {
	cam := capture.DefaultConfig()
	det := detector.DefaultConfig()
	return Config{
		Addr:   DefaultAddr,
		FPS:    session.DefaultFPS,
		Device: render.Desktop,
		Theme:  theme.Builtin[0].Key,
		Camera: Camera{
			DeviceID:       cam.DeviceID,
			Width:          cam.Width,
			Height:         cam.Height,
			FPS:            cam.FPS,
			PollInterval:   session.DefaultPollInterval,
			RequiredFrames: gesture.DefaultRequiredFrames,
			MinConfidence:  det.MinConfidence,
			MinTracking:    det.MinTrackingConf,
		},
	}
}

// Load reads path over the defaults. An empty path returns Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return cfg, fmt.Errorf("parse %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks ranges and that the selected theme exists.
func (c Config) Validate() error {
	var errs []error

	if c.FPS <= 0 {
		errs = append(errs, fmt.Errorf("fps must be positive, got %d", c.FPS))
	}
	if c.Particles < 0 {
		errs = append(errs, fmt.Errorf("particles must not be negative, got %d", c.Particles))
	}
	if !c.Device.Valid() {
		errs = append(errs, fmt.Errorf("device must be %q or %q, got %q", render.Desktop, render.Mobile, c.Device))
	}
	if c.Camera.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("camera.poll_interval must be positive, got %s", c.Camera.PollInterval))
	}
	if c.Camera.RequiredFrames < 1 {
		errs = append(errs, fmt.Errorf("camera.required_frames must be at least 1, got %d", c.Camera.RequiredFrames))
	}
	if !unit(c.Camera.MinConfidence) {
		errs = append(errs, fmt.Errorf("camera.min_confidence must be in [0,1], got %g", c.Camera.MinConfidence))
	}
	if !unit(c.Camera.MinTracking) {
		errs = append(errs, fmt.Errorf("camera.min_tracking must be in [0,1], got %g", c.Camera.MinTracking))
	}

	themes, err := c.ThemeTable()
	if err != nil {
		errs = append(errs, err)
	} else if _, err := themes.Get(c.Theme); err != nil {
		errs = append(errs, fmt.Errorf("theme %q: %w", c.Theme, err))
	}

	return errors.Join(errs...)
}

func unit(v float64) bool { return v >= 0 && v <= 1 }

// ParticleCount returns Particles, or the device class budget when unset.
func (c Config) ParticleCount() int {
	if c.Particles > 0 {
		return c.Particles
	}
	return c.Device.ParticleCount()
}

// ThemeTable returns the builtin themes followed by the configured ones.
func (c Config) ThemeTable() (*theme.Table, error) {
	return theme.NewTable(c.Themes...)
}

// CaptureConfig returns the camera device settings.
func (c Config) CaptureConfig() capture.Config {
	return capture.Config{
		DeviceID: c.Camera.DeviceID,
		Width:    c.Camera.Width,
		Height:   c.Camera.Height,
		FPS:      c.Camera.FPS,
	}
}

// DetectorConfig returns the landmark detector settings. Only one hand is
// ever tracked.
func (c Config) DetectorConfig() detector.Config {
	return detector.Config{
		MaxHands:        1,
		MinConfidence:   c.Camera.MinConfidence,
		MinTrackingConf: c.Camera.MinTracking,
	}
}

// ResolveWebDir returns WebDir if set, otherwise the first of web, ../web,
// ../../web and ~/.gestureart/web that exists. It returns "" when none does.
func (c Config) ResolveWebDir() string {
	if c.WebDir != "" {
		return c.WebDir
	}

	candidates := []string{"web", filepath.Join("..", "web"), filepath.Join("..", "..", "web")}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".gestureart", "web"))
	}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
