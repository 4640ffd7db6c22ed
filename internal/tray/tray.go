// Package tray puts the scene controls in the system tray menu.
package tray

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/getlantern/systray"

	"github.com/ayusman/gestureart/internal/session"
	"github.com/ayusman/gestureart/internal/theme"
)

// Scene is the part of the session controller the menu drives.
type Scene interface {
	CycleTheme() (theme.Theme, error)
	Status() session.Status
	Subscribe() (<-chan session.Status, func())
}

// Camera is the gesture tracker.
type Camera interface {
	Toggle(ctx context.Context) (bool, error)
	Status() session.TrackerStatus
	Subscribe() (<-chan session.TrackerStatus, func())
}

// Config wires a Tray. Camera may be nil, in which case the camera item is
// disabled.
type Config struct {
	Scene  Scene
	Camera Camera
	// URL is opened by "Open in Browser".
	URL string
	// Open launches a browser. Defaults to the platform opener.
	Open   func(url string) error
	Logger *log.Logger
}

// Tray is the menu bar application.
type Tray struct {
	scene  Scene
	camera Camera
	url    string
	open   func(string) error
	logger *log.Logger

	mu          sync.Mutex
	ctx         context.Context
	menuCamera  *systray.MenuItem
	menuTheme   *systray.MenuItem
	menuGesture *systray.MenuItem
}

// New creates a Tray. Nothing is shown until Run.
func New(config Config) *Tray {
	if config.Logger == nil {
		config.Logger = log.Default()
	}
	if config.Open == nil {
		config.Open = openBrowser
	}
	return &Tray{
		scene:  config.Scene,
		camera: config.Camera,
		url:    config.URL,
		open:   config.Open,
		logger: config.Logger.WithPrefix("tray"),
		ctx:    context.Background(),
	}
}

// Run shows the menu and blocks until Quit is chosen or ctx is done. On macOS
// it must be called from the main goroutine.
func (t *Tray) Run(ctx context.Context) {
	t.mu.Lock()
	t.ctx = ctx
	t.mu.Unlock()

	stop := context.AfterFunc(ctx, systray.Quit)
	defer stop()

	systray.Run(t.onReady, func() { t.logger.Debug("tray closed") })
}

func (t *Tray) onReady() {
	systray.SetTitle("Gestureart")
	systray.SetTooltip("Gestureart particle scene")

	t.mu.Lock()
	t.menuCamera = systray.AddMenuItem(cameraTitle(false), "Start or stop gesture tracking")
	if t.camera == nil {
		t.menuCamera.Disable()
	}
	t.menuTheme = systray.AddMenuItem(themeTitle(t.scene.Status().ThemeName), "Switch to the next theme")
	t.menuGesture = systray.AddMenuItem(gestureTitle(""), "Last detected gesture")
	t.menuGesture.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open in Browser", "Open the scene in a browser")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit Gestureart")

	t.refresh()
	go t.watch()

	go func() {
		for {
			select {
			case <-t.menuCamera.ClickedCh:
				t.handleCamera()
			case <-t.menuTheme.ClickedCh:
				t.handleTheme()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				systray.Quit()
				return
			}
		}
	}()
}

// watch keeps the titles in step with the scene and tracker.
func (t *Tray) watch() {
	t.mu.Lock()
	ctx := t.ctx
	t.mu.Unlock()

	sceneCh, stopScene := t.scene.Subscribe()
	defer stopScene()

	var cameraCh <-chan session.TrackerStatus
	if t.camera != nil {
		ch, stop := t.camera.Subscribe()
		defer stop()
		cameraCh = ch
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-sceneCh:
		case <-cameraCh:
		}
		t.refresh()
	}
}

// refresh rewrites every status title. Items that do not exist yet are skipped.
func (t *Tray) refresh() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.menuTheme != nil {
		t.menuTheme.SetTitle(themeTitle(t.scene.Status().ThemeName))
	}
	if t.camera == nil {
		return
	}
	status := t.camera.Status()
	if t.menuCamera != nil {
		t.menuCamera.SetTitle(cameraTitle(status.Running))
	}
	if t.menuGesture != nil {
		label := ""
		if status.Running {
			label = status.Label
		}
		t.menuGesture.SetTitle(gestureTitle(label))
	}
}

func (t *Tray) handleCamera() {
	if t.camera == nil {
		return
	}
	t.mu.Lock()
	ctx := t.ctx
	t.mu.Unlock()

	running, err := t.camera.Toggle(ctx)
	if err != nil {
		t.logger.Warn("camera unavailable, demo controls still work", "err", err)
	} else {
		t.logger.Info("camera toggled", "running", running)
	}
	t.refresh()
}

func (t *Tray) handleTheme() {
	th, err := t.scene.CycleTheme()
	if err != nil {
		t.logger.Warn("cycle theme", "err", err)
		return
	}
	t.logger.Debug("theme selected", "theme", th.Key)
	t.refresh()
}

func (t *Tray) handleOpen() {
	if err := t.open(t.url); err != nil {
		t.logger.Warn("open browser", "url", t.url, "err", err)
	}
}

func cameraTitle(running bool) string {
	if running {
		return "Camera: on"
	}
	return "Camera: off"
}

func themeTitle(name string) string {
	return "Theme: " + name
}

func gestureTitle(label string) string {
	if label == "" {
		label = "none"
	}
	return "Gesture: " + label
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	go cmd.Wait()
	return nil
}
