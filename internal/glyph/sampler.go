// Package glyph rasterizes text offscreen and samples its foreground pixels as
// world-space points for the text formation.
package glyph

import (
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
)

// Point is a sampled position in world units.
type Point struct {
	X, Y float64
}

// Options controls the offscreen canvas and the bitmap-to-world mapping.
type Options struct {
	// CanvasWidth and CanvasHeight size the offscreen bitmap in pixels.
	CanvasWidth, CanvasHeight int
	// Stride is the scan step in both axes.
	Stride int
	// AlphaThreshold keeps pixels whose alpha is strictly greater.
	AlphaThreshold uint8
	// WorldWidth and WorldHeight are the extents the canvas maps onto, centered on the origin.
	WorldWidth, WorldHeight float64
}

// DefaultOptions returns a 512x170 canvas scanned every 2 pixels at 50% alpha,
// mapped onto a 6x2 world rectangle.
func DefaultOptions() Options {
	return Options{
		CanvasWidth:    512,
		CanvasHeight:   512 / 3,
		Stride:         2,
		AlphaThreshold: 128,
		WorldWidth:     6,
		WorldHeight:    2,
	}
}

type cacheKey struct {
	text string
	size float64
}

// Sampler turns strings into point clouds. Results are memoized per text and
// font size; Sampler is safe for concurrent use.
type Sampler struct {
	opts Options
	font *truetype.Font

	mu    sync.Mutex
	cache map[cacheKey][]Point
}

// NewSampler parses the bundled Go Bold font and returns a Sampler.
func NewSampler(opts Options) (*Sampler, error) {
	if opts.CanvasWidth <= 0 || opts.CanvasHeight <= 0 {
		return nil, fmt.Errorf("invalid canvas %dx%d", opts.CanvasWidth, opts.CanvasHeight)
	}
	if opts.Stride <= 0 {
		opts.Stride = 1
	}

	f, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}

	return &Sampler{
		opts:  opts,
		font:  f,
		cache: make(map[cacheKey][]Point),
	}, nil
}

// Sample renders text centered on the canvas at fontSizePx and returns the
// world position of every foreground pixel on the scan grid. Blank text, or text
// that draws nothing, yields an empty result. Callers must not modify the
// returned slice.
func (s *Sampler) Sample(text string, fontSizePx float64) []Point {
	if strings.TrimSpace(text) == "" || fontSizePx <= 0 {
		return nil
	}

	key := cacheKey{text: text, size: fontSizePx}

	s.mu.Lock()
	defer s.mu.Unlock()

	if pts, ok := s.cache[key]; ok {
		return pts
	}

	pts := s.scan(s.rasterize(text, fontSizePx))
	s.cache[key] = pts
	return pts
}

func (s *Sampler) rasterize(text string, fontSizePx float64) image.Image {
	face := truetype.NewFace(s.font, &truetype.Options{
		Size:    fontSizePx,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	defer face.Close()

	w, h := float64(s.opts.CanvasWidth), float64(s.opts.CanvasHeight)

	dc := gg.NewContext(s.opts.CanvasWidth, s.opts.CanvasHeight)
	dc.SetFontFace(face)
	dc.SetRGB(1, 1, 1)
	dc.DrawStringAnchored(text, w/2, h/2, 0.5, 0.5)

	return dc.Image()
}

func (s *Sampler) scan(img image.Image) []Point {
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	threshold := uint32(s.opts.AlphaThreshold)

	var pts []Point
	for y := b.Min.Y; y < b.Max.Y; y += s.opts.Stride {
		for x := b.Min.X; x < b.Max.X; x += s.opts.Stride {
			_, _, _, a := img.At(x, y).RGBA()
			if a>>8 <= threshold {
				continue
			}
			pts = append(pts, Point{
				X: (float64(x-b.Min.X)/w - 0.5) * s.opts.WorldWidth,
				Y: (0.5 - float64(y-b.Min.Y)/h) * s.opts.WorldHeight,
			})
		}
	}
	return pts
}
