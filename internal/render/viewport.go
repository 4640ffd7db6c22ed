package render

import "math"

// Camera setup shared with the browser client.
const (
	CameraDistance = 5.0
	FieldOfView    = 75.0
	PointScale     = 250.0
	MinPixelRatio  = 1.0
	MaxPixelRatio  = 2.0
)

// Viewport describes a renderer's drawing surface.
type Viewport struct {
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	PixelRatio float64 `json:"pixelRatio"`
}

// NewViewport validates a resize report. Non-positive sizes are rejected so the
// caller can keep its previous viewport; the pixel ratio is clamped to [1, 2].
func NewViewport(width, height int, pixelRatio float64) (Viewport, bool) {
	if width <= 0 || height <= 0 {
		return Viewport{}, false
	}
	if math.IsNaN(pixelRatio) {
		pixelRatio = MinPixelRatio
	}
	return Viewport{
		Width:      width,
		Height:     height,
		PixelRatio: math.Min(math.Max(pixelRatio, MinPixelRatio), MaxPixelRatio),
	}, true
}

// Aspect returns width over height.
func (v Viewport) Aspect() float64 {
	return float64(v.Width) / float64(v.Height)
}

// PointSize returns the on-screen diameter of a particle of the given size at
// depth units in front of the camera.
func (v Viewport) PointSize(size, depth float64) float64 {
	if depth <= 0 {
		return 0
	}
	return size * v.PixelRatio * PointScale / depth
}

// Project maps a world point to viewport pixel coordinates through a
// perspective camera at z = CameraDistance looking down -Z. ok is false for
// points behind the camera or outside the viewport.
func (v Viewport) Project(x, y, z float64) (sx, sy, depth float64, ok bool) {
	depth = CameraDistance - z
	if depth <= 0 {
		return 0, 0, depth, false
	}

	halfHeight := depth * math.Tan(FieldOfView*math.Pi/360)
	halfWidth := halfHeight * v.Aspect()

	nx := x / halfWidth
	ny := y / halfHeight
	if nx < -1 || nx >= 1 || ny <= -1 || ny > 1 {
		return 0, 0, depth, false
	}

	sx = (nx + 1) / 2 * float64(v.Width)
	sy = (1 - ny) / 2 * float64(v.Height)
	return sx, sy, depth, true
}

// Wobble applies the time-varying drift every renderer adds on top of the
// simulated position x, y. Both offsets are computed from the unmodified point.
func Wobble(x, y, elapsed float64) (dx, dy float64) {
	dy = math.Sin(elapsed*0.5+x*0.5) * 0.02
	dx = math.Cos(elapsed*0.3+y*0.5) * 0.02
	return dx, dy
}
