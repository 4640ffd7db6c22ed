package terminal

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gdamore/tcell/v2"

	"github.com/ayusman/gestureart/internal/formation"
	"github.com/ayusman/gestureart/internal/session"
	"github.com/ayusman/gestureart/internal/theme"
)

// Action is what a key press asks for.
type Action struct {
	Formation    formation.Kind
	SetFormation bool
	NextTheme    bool
	ToggleCamera bool
	Quit         bool
}

var formationKeys = map[rune]formation.Kind{
	'h': formation.Heart,
	'l': formation.Love,
	's': formation.Scatter,
	'g': formation.Gather,
	' ': formation.None,
	'0': formation.None,
}

// KeyAction maps a key event to an Action. Terminals report no key release,
// so a formation key holds until another key is pressed.
func KeyAction(ev *tcell.EventKey) (Action, bool) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return Action{Quit: true}, true
	case tcell.KeyRune:
	default:
		return Action{}, false
	}

	r := ev.Rune()
	if k, ok := formationKeys[r]; ok {
		return Action{Formation: k, SetFormation: true}, true
	}
	switch r {
	case 't':
		return Action{NextTheme: true}, true
	case 'c':
		return Action{ToggleCamera: true}, true
	case 'q':
		return Action{Quit: true}, true
	}
	return Action{}, false
}

// Scene is the part of the session controller the key loop drives.
type Scene interface {
	SetFormation(k formation.Kind) error
	CycleTheme() (theme.Theme, error)
	Status() session.Status
}

// Camera toggles gesture tracking.
type Camera interface {
	Toggle(ctx context.Context) (bool, error)
	Running() bool
}

// statusRefresh is how often the status line is rebuilt while idle.
const statusRefresh = 250 * time.Millisecond

// Run reads keys from the renderer's screen and applies them to scene until q,
// Esc or ctx cancellation. camera may be nil.
func (r *Renderer) Run(ctx context.Context, scene Scene, camera Camera, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}

	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		for {
			// PollEvent returns nil once the screen is finalized.
			ev := r.screen.PollEvent()
			if ev == nil {
				close(events)
				return
			}
			select {
			case events <- ev:
			case <-quit:
				return
			}
		}
	}()

	notice := ""
	refresh := time.NewTicker(statusRefresh)
	defer refresh.Stop()

	r.SetStatus(statusLine(scene.Status(), camera, notice))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-refresh.C:
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev := ev.(type) {
			case *tcell.EventResize:
				r.screen.Sync()
				r.Resize()
			case *tcell.EventKey:
				action, ok := KeyAction(ev)
				if !ok {
					continue
				}
				if action.Quit {
					return nil
				}
				notice = r.apply(ctx, action, scene, camera, logger)
			}
		}
		r.SetStatus(statusLine(scene.Status(), camera, notice))
	}
}

// apply performs an action and returns a notice for the status line.
func (r *Renderer) apply(ctx context.Context, a Action, scene Scene, camera Camera, logger *log.Logger) string {
	switch {
	case a.SetFormation:
		if err := scene.SetFormation(a.Formation); err != nil {
			logger.Warn("set formation", "err", err)
			return err.Error()
		}
	case a.NextTheme:
		if _, err := scene.CycleTheme(); err != nil {
			logger.Warn("cycle theme", "err", err)
			return err.Error()
		}
	case a.ToggleCamera:
		if camera == nil {
			return "camera disabled"
		}
		if _, err := camera.Toggle(ctx); err != nil {
			logger.Warn("camera unavailable", "err", err)
			return "camera unavailable, keys still work"
		}
	}
	return ""
}

func statusLine(s session.Status, camera Camera, notice string) string {
	cam := "off"
	if camera != nil && camera.Running() {
		cam = "on"
	}
	line := fmt.Sprintf("%s | %s | camera %s | h l s g space t c q", s.Label, s.ThemeName, cam)
	if notice != "" {
		line += " | " + notice
	}
	return line
}
