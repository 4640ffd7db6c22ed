// Package session runs the scene: one loop that owns the formation engine and
// feeds renderers, and the gesture tracker that drives it from the camera.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ayusman/gestureart/internal/formation"
	"github.com/ayusman/gestureart/internal/render"
	"github.com/ayusman/gestureart/internal/theme"
)

// DefaultFPS is the scene loop rate when none is configured.
const DefaultFPS = 60

// commandBuffer bounds how many mutations may wait for the next tick.
const commandBuffer = 64

// ErrStopped is returned when submitting to a controller whose loop has exited.
var ErrStopped = errors.New("scene loop stopped")

// Renderer consumes scene output. Both methods are called from the scene loop;
// the arguments are reused once the call returns.
type Renderer interface {
	RenderFrame(f *render.Frame)
	RenderAttributes(a *render.Attributes)
}

// Status is a read-only view of the scene. Formation and theme reflect the
// latest accepted request; Frames and Elapsed are published by the loop.
type Status struct {
	Formation formation.Kind `json:"formation"`
	Label     string         `json:"label"`
	Theme     string         `json:"theme"`
	ThemeName string         `json:"themeName"`
	Particles int            `json:"particles"`
	Frames    uint64         `json:"frames"`
	Elapsed   time.Duration  `json:"elapsed"`
}

// Config wires a Controller.
type Config struct {
	Engine *formation.Engine
	Themes *theme.Table
	FPS    int
	Logger *log.Logger
}

type command func(*Controller)

// Controller owns the engine. Mutations are queued and applied by Run between
// steps so the particle arrays are only ever touched by one goroutine.
type Controller struct {
	engine *formation.Engine
	themes *theme.Table
	fps    int
	logger *log.Logger

	cmds    chan command
	stopped chan struct{}
	runOnce sync.Once

	// Loop-owned.
	renderers []Renderer
	frame     render.Frame
	attrs     render.Attributes

	// mu guards status. Submitters hold it while waiting for buffer space,
	// so the loop must never take it.
	mu     sync.RWMutex
	status Status

	frames  atomic.Uint64
	elapsed atomic.Int64

	changes broadcaster[Status]
}

// NewController returns a controller for the engine. Run must be called to
// start the scene.
func NewController(config Config) (*Controller, error) {
	if config.Engine == nil {
		return nil, errors.New("session: engine is required")
	}
	if config.Themes == nil {
		return nil, errors.New("session: theme table is required")
	}
	if config.FPS <= 0 {
		config.FPS = DefaultFPS
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	th := config.Engine.Theme()
	c := &Controller{
		engine:  config.Engine,
		themes:  config.Themes,
		fps:     config.FPS,
		logger:  config.Logger.WithPrefix("scene"),
		cmds:    make(chan command, commandBuffer),
		stopped: make(chan struct{}),
		status: Status{
			Formation: config.Engine.Formation(),
			Label:     config.Engine.Formation().Label(),
			Theme:     th.Key,
			ThemeName: th.Name,
			Particles: config.Engine.Len(),
		},
	}
	return c, nil
}

// Run drives the scene until ctx is cancelled. It may be called once.
func (c *Controller) Run(ctx context.Context) error {
	started := false
	c.runOnce.Do(func() { started = true })
	if !started {
		return errors.New("session: controller already ran")
	}
	defer close(c.stopped)

	ticker := time.NewTicker(time.Second / time.Duration(c.fps))
	defer ticker.Stop()

	start := time.Now()
	c.logger.Info("scene started", "particles", c.engine.Len(), "fps", c.fps)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("scene stopped")
			return nil
		case cmd := <-c.cmds:
			cmd(c)
		case now := <-ticker.C:
			c.tick(now.Sub(start))
		}
	}
}

func (c *Controller) tick(elapsed time.Duration) {
	c.engine.Step()

	c.frame.Elapsed = elapsed.Seconds()
	c.frame.Positions = c.engine.AppendPositions(c.frame.Positions[:0])
	for _, r := range c.renderers {
		r.RenderFrame(&c.frame)
	}

	c.frames.Add(1)
	c.elapsed.Store(int64(elapsed))
}

func (c *Controller) attributes() *render.Attributes {
	c.attrs.Background = c.engine.Theme().Background
	c.attrs.Colors = c.engine.AppendColors(c.attrs.Colors[:0])
	c.attrs.Sizes = c.engine.AppendSizes(c.attrs.Sizes[:0])
	return &c.attrs
}

func (c *Controller) submit(cmd command) error {
	select {
	case <-c.stopped:
		return ErrStopped
	default:
	}
	select {
	case c.cmds <- cmd:
		return nil
	case <-c.stopped:
		return ErrStopped
	}
}

// SetFormation queues a formation change.
func (c *Controller) SetFormation(k formation.Kind) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.submit(func(c *Controller) {
		c.engine.SetFormation(k)
		c.logger.Debug("formation applied", "kind", k)
	}); err != nil {
		return err
	}

	changed := c.status.Formation != k
	c.status.Formation = k
	c.status.Label = k.Label()
	if changed {
		c.logger.Info("formation changed", "kind", k)
		c.changes.publish(c.status)
	}
	return nil
}

// SetTheme queues a switch to the theme with the given key.
func (c *Controller) SetTheme(key string) (theme.Theme, error) {
	th, err := c.themes.Get(key)
	if err != nil {
		return theme.Theme{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return th, c.applyTheme(th)
}

// CycleTheme queues a switch to the theme after the current one.
func (c *Controller) CycleTheme() (theme.Theme, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	th := c.themes.Next(c.status.Theme)
	return th, c.applyTheme(th)
}

// applyTheme must be called with mu held.
func (c *Controller) applyTheme(th theme.Theme) error {
	err := c.submit(func(c *Controller) {
		if err := c.engine.SetTheme(th); err != nil {
			c.logger.Error("theme rejected", "theme", th.Key, "err", err)
			return
		}
		attrs := c.attributes()
		for _, r := range c.renderers {
			r.RenderAttributes(attrs)
		}
	})
	if err != nil {
		return fmt.Errorf("set theme %q: %w", th.Key, err)
	}

	c.status.Theme = th.Key
	c.status.ThemeName = th.Name
	c.logger.Info("theme changed", "theme", th.Key)
	c.changes.publish(c.status)
	return nil
}

// AddRenderer attaches r. It receives the current attributes before its first frame.
func (c *Controller) AddRenderer(r Renderer) error {
	return c.submit(func(c *Controller) {
		c.renderers = append(c.renderers, r)
		r.RenderAttributes(c.attributes())
	})
}

// RemoveRenderer detaches r.
func (c *Controller) RemoveRenderer(r Renderer) error {
	return c.submit(func(c *Controller) {
		for i, existing := range c.renderers {
			if existing == r {
				c.renderers = append(c.renderers[:i], c.renderers[i+1:]...)
				return
			}
		}
	})
}

// Status returns a copy of the current status.
func (c *Controller) Status() Status {
	c.mu.RLock()
	s := c.status
	c.mu.RUnlock()

	s.Frames = c.frames.Load()
	s.Elapsed = time.Duration(c.elapsed.Load())
	return s
}

// Subscribe returns a channel that receives the status after every formation
// or theme change, and a function that ends the subscription.
func (c *Controller) Subscribe() (<-chan Status, func()) {
	return c.changes.subscribe()
}

// Themes returns the theme table.
func (c *Controller) Themes() *theme.Table {
	return c.themes
}
