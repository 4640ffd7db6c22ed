package cli

import (
	"context"
	"net"

	"github.com/spf13/cobra"

	"github.com/ayusman/gestureart/internal/config"
	"github.com/ayusman/gestureart/internal/server"
	"github.com/ayusman/gestureart/internal/tray"
)

func (c *CLI) serveCommand() *cobra.Command {
	var flags sceneFlags
	var addr, webDir string
	var withTray bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Stream the particle scene to browsers",
		Long: `Serve the web client, the control API and the particle WebSocket stream.

Without a camera (or without the MediaPipe helper) the scene still runs and
formations can be shown from the browser's demo controls or the API.`,
		Example: `  # Serve on the default port
  gestureart serve

  # Start tracking right away and put a menu in the system tray
  gestureart serve --camera --tray

  # Smaller cloud for a phone on the local network
  gestureart serve --addr 0.0.0.0:8080 --device mobile`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd, &flags)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("web-dir") {
				cfg.WebDir = webDir
			}
			return c.serve(cmd.Context(), cfg, withTray)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", config.DefaultAddr, "listen address")
	cmd.Flags().StringVar(&webDir, "web-dir", "", "web client directory (default: search web, ../web, ~/.gestureart/web)")
	cmd.Flags().BoolVar(&withTray, "tray", false, "show a system tray menu")

	return cmd
}

func (c *CLI) serve(ctx context.Context, cfg config.Config, withTray bool) error {
	logger := c.Logger

	scene, err := c.newScene(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sceneDone := make(chan error, 1)
	go func() { sceneDone <- scene.Run(ctx) }()

	trayConfig := tray.Config{Scene: scene, URL: browserURL(cfg.Addr), Logger: logger}
	tracker, err := c.newTracker(cfg, scene, logger)
	if err != nil {
		logger.Warn("gesture tracking disabled, demo controls only", "err", err)
	} else {
		defer func() {
			if err := tracker.Close(); err != nil {
				logger.Debug("close tracker", "err", err)
			}
		}()
		trayConfig.Camera = tracker
		if cfg.Camera.Enabled {
			if err := tracker.Start(ctx); err != nil {
				logger.Warn("camera unavailable, demo controls still work", "err", err)
			}
		}
	}

	webDir := cfg.ResolveWebDir()
	if webDir != "" {
		logger.Info("serving web client", "dir", webDir)
	} else {
		logger.Warn("no web client directory found, serving the API only")
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Scene:     scene,
		Tracker:   tracker,
		Logger:    logger,
	})

	var serveErr error
	if withTray {
		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.ListenAndServe(ctx, cfg.Addr)
			cancel()
		}()
		tray.New(trayConfig).Run(ctx)
		cancel()
		serveErr = <-errCh
	} else {
		serveErr = srv.ListenAndServe(ctx, cfg.Addr)
	}

	cancel()
	if err := <-sceneDone; err != nil {
		logger.Debug("scene stopped", "err", err)
	}
	return serveErr
}

// browserURL turns a listen address into a URL a local browser can open.
func browserURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr + "/"
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + "/"
}
