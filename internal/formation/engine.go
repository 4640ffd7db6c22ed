// Package formation owns the particle cloud and eases it toward target shapes.
//
// An Engine keeps four index-aligned arrays per particle: the immutable
// original position, the rendered current position, the target it is easing
// toward and a velocity used for outward kicks. Changing formation rewrites the
// whole target array; Step advances every particle by one frame.
//
// Engine is not safe for concurrent use. It is driven from a single loop that
// interleaves Step with formation and theme changes.
package formation

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/ayusman/gestureart/internal/glyph"
	"github.com/ayusman/gestureart/internal/theme"
)

// Simulation constants, applied per step.
const (
	// VelocityDecay multiplies every velocity component after it is applied.
	VelocityDecay = 0.95
	// ActiveLerp is the fraction of the remaining distance covered per step while a shape is shown.
	ActiveLerp = 0.08
	// RestLerp is the fraction used while resting.
	RestLerp = 0.03
)

// Initial distribution of particles.
const (
	SpawnHalfWidth  = 5.0
	SpawnHalfHeight = 5.0
	SpawnHalfDepth  = 2.0
	MinSize         = 0.5
	MaxSize         = 1.0
)

var (
	// ErrInvalidCount is returned when the particle count is not positive.
	ErrInvalidCount = errors.New("particle count must be positive")
	// ErrEmptyPalette is returned when a theme has no colors.
	ErrEmptyPalette = errors.New("theme has no colors")
)

// GlyphSampler produces world-space points covering rendered text.
type GlyphSampler interface {
	Sample(text string, fontSizePx float64) []glyph.Point
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand sets the random source used for spawning, colors and formation fields.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithSeed seeds a PCG source, making every random draw reproducible.
func WithSeed(seed uint64) Option {
	return func(e *Engine) { e.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// WithGlyphSampler sets the text sampler used by the Love formation.
func WithGlyphSampler(s GlyphSampler) Option {
	return func(e *Engine) { e.sampler = s }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// Engine is the particle formation simulation.
type Engine struct {
	rng     *rand.Rand
	sampler GlyphSampler
	logger  *log.Logger

	original []Vec3
	current  []Vec3
	target   []Vec3
	velocity []Vec3
	colors   []colorful.Color
	sizes    []float64

	theme     theme.Theme
	formation Kind
}

// New allocates count particles spread uniformly through the spawn box, at rest,
// colored from th.
func New(count int, th theme.Theme, opts ...Option) (*Engine, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%d: %w", count, ErrInvalidCount)
	}
	if len(th.Colors) == 0 {
		return nil, fmt.Errorf("theme %q: %w", th.Key, ErrEmptyPalette)
	}

	e := &Engine{
		original: make([]Vec3, count),
		current:  make([]Vec3, count),
		target:   make([]Vec3, count),
		velocity: make([]Vec3, count),
		colors:   make([]colorful.Color, count),
		sizes:    make([]float64, count),
		theme:    th,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		seed := uint64(time.Now().UnixNano())
		e.rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	if e.logger == nil {
		e.logger = log.Default()
	}

	for i := range e.original {
		p := Vec3{
			X: e.signed(SpawnHalfWidth),
			Y: e.signed(SpawnHalfHeight),
			Z: e.signed(SpawnHalfDepth),
		}
		e.original[i] = p
		e.current[i] = p
		e.target[i] = p

		e.colors[i] = e.pickColor()
		e.sizes[i] = MinSize + e.rng.Float64()*(MaxSize-MinSize)
	}

	return e, nil
}

// SetFormation recomputes every target for k and makes k the active formation.
func (e *Engine) SetFormation(k Kind) {
	switch k {
	case None:
		e.reset()
	case Heart:
		e.heart()
	case Love:
		e.text(LoveText, LoveFontSize)
	case Scatter:
		e.scatter()
	case Gather:
		e.gather()
	default:
		e.logger.Warn("ignoring unknown formation", "kind", int(k))
		return
	}
	e.formation = k
}

// SetTheme replaces the palette and re-rolls every particle color. Positions
// are not touched.
func (e *Engine) SetTheme(th theme.Theme) error {
	if len(th.Colors) == 0 {
		return fmt.Errorf("theme %q: %w", th.Key, ErrEmptyPalette)
	}
	e.theme = th
	for i := range e.colors {
		e.colors[i] = e.pickColor()
	}
	return nil
}

// Step advances the simulation by one frame: apply velocity, decay it, then
// ease toward the target.
func (e *Engine) Step() {
	lerp := RestLerp
	if e.formation.Active() {
		lerp = ActiveLerp
	}

	for i := range e.current {
		p := &e.current[i]
		v := &e.velocity[i]
		t := e.target[i]

		p.X += v.X
		p.Y += v.Y
		p.Z += v.Z

		v.X *= VelocityDecay
		v.Y *= VelocityDecay
		v.Z *= VelocityDecay

		p.X += (t.X - p.X) * lerp
		p.Y += (t.Y - p.Y) * lerp
		p.Z += (t.Z - p.Z) * lerp
	}
}

// Len returns the particle count.
func (e *Engine) Len() int { return len(e.original) }

// Formation returns the active formation.
func (e *Engine) Formation() Kind { return e.formation }

// Theme returns the active theme.
func (e *Engine) Theme() theme.Theme { return e.theme }

// The accessors below return the engine's own arrays. They are read-only views
// valid until the next mutating call.

func (e *Engine) Original() []Vec3 { return e.original }
func (e *Engine) Current() []Vec3  { return e.current }
func (e *Engine) Target() []Vec3   { return e.target }
func (e *Engine) Velocity() []Vec3 { return e.velocity }

func (e *Engine) Colors() []colorful.Color { return e.colors }
func (e *Engine) Sizes() []float64         { return e.sizes }

// AppendPositions appends current positions as packed x,y,z float32 triples.
func (e *Engine) AppendPositions(dst []float32) []float32 {
	for _, p := range e.current {
		dst = append(dst, float32(p.X), float32(p.Y), float32(p.Z))
	}
	return dst
}

// AppendColors appends particle colors as packed r,g,b float32 triples.
func (e *Engine) AppendColors(dst []float32) []float32 {
	for _, c := range e.colors {
		dst = append(dst, float32(c.R), float32(c.G), float32(c.B))
	}
	return dst
}

// AppendSizes appends particle sizes.
func (e *Engine) AppendSizes(dst []float32) []float32 {
	for _, s := range e.sizes {
		dst = append(dst, float32(s))
	}
	return dst
}

func (e *Engine) pickColor() colorful.Color {
	return e.theme.Colors[e.rng.IntN(len(e.theme.Colors))]
}

// signed returns a uniform draw from [-half, half).
func (e *Engine) signed(half float64) float64 {
	return (e.rng.Float64() - 0.5) * 2 * half
}
