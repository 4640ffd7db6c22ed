// Package cli implements the gestureart command-line interface.
//
// Two commands share one scene setup: serve streams the particle cloud to
// browsers over HTTP and WebSocket, preview draws it in the terminal. Both
// accept --config for a TOML settings file and --verbose for debug logging.
package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ayusman/gestureart/internal/capture"
	"github.com/ayusman/gestureart/internal/config"
	"github.com/ayusman/gestureart/internal/detector"
	"github.com/ayusman/gestureart/internal/formation"
	"github.com/ayusman/gestureart/internal/session"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// Version is reported by --version. It is set at build time.
var Version = "dev"

// CLI holds state shared by all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	verbose    bool

	// newDetector builds the landmark detector. Tests replace it.
	newDetector func(detector.Config, *log.Logger) (detector.Detector, error)
	// newCamera builds the capture device. Tests replace it.
	newCamera func(capture.Config) capture.Camera
}

// New creates a CLI logging to w at level.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger:      newLogger(w, level),
		newDetector: mediaPipeDetector,
		newCamera:   capture.NewCamera,
	}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "gestureart",
		Short:        "Gestureart shapes a particle cloud with hand gestures",
		Long:         `Gestureart animates a cloud of particles that morphs into a heart, the words "I LOVE YOU", a burst or a tight cluster when the camera sees the matching hand gesture. Demo controls work without a camera.`,
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if c.verbose {
				c.Logger.SetLevel(LogDebug)
			}
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "TOML config file")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.previewCommand())

	return root
}

// loadConfig reads --config and applies the flags the user set on cmd.
func (c *CLI) loadConfig(cmd *cobra.Command, o *sceneFlags) (config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return cfg, err
	}
	o.apply(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid settings: %w", err)
	}
	return cfg, nil
}

// newScene builds the formation engine and the controller that runs it.
func (c *CLI) newScene(cfg config.Config, logger *log.Logger) (*session.Controller, error) {
	themes, err := cfg.ThemeTable()
	if err != nil {
		return nil, err
	}
	th, err := themes.Get(cfg.Theme)
	if err != nil {
		return nil, err
	}

	opts := []formation.Option{formation.WithLogger(logger)}
	if cfg.Seed != 0 {
		opts = append(opts, formation.WithSeed(cfg.Seed))
	}
	engine, err := formation.New(cfg.ParticleCount(), th, opts...)
	if err != nil {
		return nil, err
	}

	logger.Debug("scene ready", "particles", engine.Len(), "theme", th.Key, "fps", cfg.FPS)
	return session.NewController(session.Config{
		Engine: engine,
		Themes: themes,
		FPS:    cfg.FPS,
		Logger: logger,
	})
}

// newTracker wires camera and detector to scene. It returns an error when no
// detector is available; callers carry on with demo controls only.
func (c *CLI) newTracker(cfg config.Config, scene session.FormationSetter, logger *log.Logger) (*session.Tracker, error) {
	det, err := c.newDetector(cfg.DetectorConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", session.ErrTrackerUnavailable, err)
	}
	return session.NewTracker(session.TrackerConfig{
		Camera:         c.newCamera(cfg.CaptureConfig()),
		Detector:       det,
		Scene:          scene,
		PollInterval:   cfg.Camera.PollInterval,
		RequiredFrames: cfg.Camera.RequiredFrames,
		Logger:         logger,
	})
}

func mediaPipeDetector(config detector.Config, logger *log.Logger) (detector.Detector, error) {
	return detector.NewMediaPipeDetector(config, logger)
}
