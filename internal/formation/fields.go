package formation

import (
	"math"

	"github.com/ayusman/gestureart/internal/glyph"
)

// Shape parameters.
const (
	heartScale   = 1.8 / 17
	heartLift    = 0.2
	heartJitter  = 0.075
	heartDepth   = 0.2
	LoveFontSize = 64
	loveJitter   = 0.04
	loveDepth    = 0.15

	scatterMinRadius = 3.0
	scatterSpread    = 7.0
	scatterDepth     = 2.5
	scatterKickXY    = 0.05
	scatterKickZ     = 0.025

	gatherRadius = 0.8
	gatherDepth  = 0.15
)

func (e *Engine) reset() {
	copy(e.target, e.original)
}

// heart traces the parametric heart curve and fills it radially by sqrt(U),
// so the interior is covered evenly.
func (e *Engine) heart() {
	n := float64(len(e.target))
	for i := range e.target {
		t := 2 * math.Pi * float64(i) / n
		s := math.Sin(t)
		x := 16 * s * s * s
		y := 13*math.Cos(t) - 5*math.Cos(2*t) - 2*math.Cos(3*t) - math.Cos(4*t)

		fill := math.Sqrt(e.rng.Float64())
		e.target[i] = Vec3{
			X: x*heartScale*fill + e.signed(heartJitter),
			Y: y*heartScale*fill + heartLift + e.signed(heartJitter),
			Z: e.signed(heartDepth),
		}
	}
}

func (e *Engine) text(s string, size float64) {
	if e.sampler == nil {
		sampler, err := glyph.NewSampler(glyph.DefaultOptions())
		if err != nil {
			e.logger.Warn("glyph sampler unavailable, keeping targets", "err", err)
			return
		}
		e.sampler = sampler
	}
	points := e.sampler.Sample(s, size)
	if len(points) == 0 {
		e.logger.Debug("text produced no points, keeping targets", "text", s, "size", size)
		return
	}

	for i := range e.target {
		p := points[e.rng.IntN(len(points))]
		e.target[i] = Vec3{
			X: p.X + e.signed(loveJitter),
			Y: p.Y + e.signed(loveJitter),
			Z: e.signed(loveDepth),
		}
	}
}

// scatter throws particles onto a wide ring and kicks them outward.
func (e *Engine) scatter() {
	for i := range e.target {
		angle := e.rng.Float64() * 2 * math.Pi
		r := scatterMinRadius + e.rng.Float64()*scatterSpread
		e.target[i] = Vec3{
			X: math.Cos(angle) * r,
			Y: math.Sin(angle) * r,
			Z: e.signed(scatterDepth),
		}

		// The kick replaces any velocity left from an earlier scatter.
		e.velocity[i] = Vec3{
			X: e.signed(scatterKickXY),
			Y: e.signed(scatterKickXY),
			Z: e.signed(scatterKickZ),
		}
	}
}

// gather packs particles into a disc of radius 0.8 with uniform area density.
func (e *Engine) gather() {
	for i := range e.target {
		angle := e.rng.Float64() * 2 * math.Pi
		r := math.Sqrt(e.rng.Float64()) * gatherRadius
		e.target[i] = Vec3{
			X: math.Cos(angle) * r,
			Y: math.Sin(angle) * r,
			Z: e.signed(gatherDepth),
		}
	}
}
