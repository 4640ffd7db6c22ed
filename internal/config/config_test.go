package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/gestureart/internal/render"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gestureart.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
	if cfg.Addr != ":8080" || cfg.FPS != 60 || cfg.Theme != "romantic" {
		t.Errorf("Default() = %+v", cfg)
	}
	if cfg.Camera.PollInterval != 80*time.Millisecond {
		t.Errorf("PollInterval = %v, want 80ms", cfg.Camera.PollInterval)
	}
	if cfg.ParticleCount() != 12000 {
		t.Errorf("ParticleCount() = %d, want 12000", cfg.ParticleCount())
	}

	det := cfg.DetectorConfig()
	if det.MaxHands != 1 || det.MinConfidence != 0.7 || det.MinTrackingConf != 0.5 {
		t.Errorf("DetectorConfig() = %+v", det)
	}
	if cam := cfg.CaptureConfig(); cam.Width != 640 || cam.Height != 480 {
		t.Errorf("CaptureConfig() = %+v", cam)
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if cfg.Addr != DefaultAddr {
		t.Errorf("Addr = %q", cfg.Addr)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
addr = "127.0.0.1:9000"
device = "mobile"
theme = "midnight"
seed = 42

[camera]
enabled = true
poll_interval = "120ms"
required_frames = 3

[[themes]]
key = "midnight"
name = "Midnight"
colors = ["#112233", "#445566"]
background = "#000000"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Addr != "127.0.0.1:9000" || cfg.Seed != 42 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Device != render.Mobile || cfg.ParticleCount() != 6000 {
		t.Errorf("Device = %q, ParticleCount() = %d", cfg.Device, cfg.ParticleCount())
	}
	if !cfg.Camera.Enabled || cfg.Camera.PollInterval != 120*time.Millisecond || cfg.Camera.RequiredFrames != 3 {
		t.Errorf("Camera = %+v", cfg.Camera)
	}
	// Untouched keys keep their defaults.
	if cfg.FPS != 60 || cfg.Camera.MinConfidence != 0.7 {
		t.Errorf("defaults lost: fps %d, min_confidence %g", cfg.FPS, cfg.Camera.MinConfidence)
	}

	themes, err := cfg.ThemeTable()
	if err != nil {
		t.Fatalf("ThemeTable() error = %v", err)
	}
	th, err := themes.Get("midnight")
	if err != nil || th.Name != "Midnight" || len(th.Colors) != 2 {
		t.Errorf("Get(midnight) = %+v, %v", th, err)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"syntax", `addr = `, "parse"},
		{"unknown key", "adr = \":1\"\n", "unknown keys: adr"},
		{"fps", "fps = 0\n", "fps must be positive"},
		{"device", "device = \"tablet\"\n", "device must be"},
		{"poll interval", "[camera]\npoll_interval = \"-1s\"\n", "poll_interval"},
		{"confidence", "[camera]\nmin_confidence = 1.5\n", "min_confidence"},
		{"missing theme", "theme = \"nope\"\n", "theme \"nope\""},
		{"empty palette", "[[themes]]\nkey = \"void\"\nbackground = \"#000000\"\n", "no colors"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("Load() expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("Load() expected error for a missing file")
	}
}

func TestResolveWebDir(t *testing.T) {
	cfg := Default()
	cfg.WebDir = "/srv/web"
	if got := cfg.ResolveWebDir(); got != "/srv/web" {
		t.Errorf("ResolveWebDir() = %q, want /srv/web", got)
	}

	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "web"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	cfg.WebDir = ""
	want, _ := filepath.Abs("web")
	if got := cfg.ResolveWebDir(); got != want {
		t.Errorf("ResolveWebDir() = %q, want %q", got, want)
	}
}
