package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/ayusman/gestureart/internal/config"
	"github.com/ayusman/gestureart/internal/render/terminal"
)

func (c *CLI) previewCommand() *cobra.Command {
	var flags sceneFlags
	var logFile string

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Draw the particle scene in the terminal",
		Long: `Draw the particle cloud with terminal glyphs.

Keys: h heart, l "I LOVE YOU", s scatter, g gather, space or 0 rest,
t next theme, c toggle the camera, q or Esc quit. A formation key holds
until another key is pressed.

The screen is owned by the preview, so logs are discarded unless
--log-file is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd, &flags)
			if err != nil {
				return err
			}

			logger := newLogger(io.Discard, c.Logger.GetLevel())
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				logger = newLogger(f, c.Logger.GetLevel())
			}

			screen, err := tcell.NewScreen()
			if err != nil {
				return fmt.Errorf("terminal: %w", err)
			}
			if err := screen.Init(); err != nil {
				return fmt.Errorf("terminal: %w", err)
			}
			defer screen.Fini()

			return c.preview(cmd.Context(), cfg, screen, logger)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&logFile, "log-file", "", "append logs to this file")

	return cmd
}

// preview runs the scene on an initialized screen until the user quits.
func (c *CLI) preview(ctx context.Context, cfg config.Config, screen tcell.Screen, logger *log.Logger) error {
	scene, err := c.newScene(cfg, logger)
	if err != nil {
		return err
	}

	r := terminal.New(screen)
	if err := scene.AddRenderer(r); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sceneDone := make(chan error, 1)
	go func() { sceneDone <- scene.Run(ctx) }()

	var camera terminal.Camera
	tracker, err := c.newTracker(cfg, scene, logger)
	if err != nil {
		logger.Warn("gesture tracking disabled", "err", err)
	} else {
		defer func() {
			if err := tracker.Close(); err != nil {
				logger.Debug("close tracker", "err", err)
			}
		}()
		camera = tracker
		if cfg.Camera.Enabled {
			if err := tracker.Start(ctx); err != nil {
				logger.Warn("camera unavailable", "err", err)
			}
		}
	}

	err = r.Run(ctx, scene, camera, logger)
	cancel()
	<-sceneDone
	return err
}
