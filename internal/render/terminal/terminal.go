// Package terminal draws the particle cloud in a terminal with tcell and maps
// keys to demo controls.
package terminal

import (
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/ayusman/gestureart/internal/render"
)

// ramp maps particles per cell to a glyph, sparse to dense.
var ramp = []rune{'·', '∙', '•', '●', '◉'}

var white = colorful.Color{R: 1, G: 1, B: 1}

// Renderer implements session.Renderer on a tcell screen. Terminal cells are
// about twice as tall as wide, so the cloud is projected onto a grid of
// cols x 2*rows and two vertical samples share a cell.
type Renderer struct {
	screen tcell.Screen

	mu         sync.Mutex
	viewport   render.Viewport
	colors     []colorful.Color
	background colorful.Color
	status     string

	// per-cell scratch, reused between frames
	counts  []int
	depth   []float64
	nearest []int
}

// New returns a renderer for an initialized screen.
func New(screen tcell.Screen) *Renderer {
	r := &Renderer{screen: screen}
	r.resize()
	return r
}

// Resize re-reads the screen size. Call it on tcell resize events.
func (r *Renderer) Resize() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resize()
}

func (r *Renderer) resize() {
	cols, rows := r.screen.Size()
	// The bottom row holds the status line.
	if vp, ok := render.NewViewport(cols, 2*(rows-1), 1); ok {
		r.viewport = vp
	}
}

// SetStatus replaces the status line text.
func (r *Renderer) SetStatus(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = s
}

// RenderAttributes implements session.Renderer.
func (r *Renderer) RenderAttributes(a *render.Attributes) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.background = a.Background
	r.colors = r.colors[:0]
	for i := 0; i < a.Len(); i++ {
		r.colors = append(r.colors, a.Color(i))
	}
}

// RenderFrame implements session.Renderer.
func (r *Renderer) RenderFrame(f *render.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()

	vp := r.viewport
	if vp.Width == 0 {
		return
	}
	cols, rows := vp.Width, vp.Height/2

	cells := cols * rows
	if cap(r.counts) < cells {
		r.counts = make([]int, cells)
		r.depth = make([]float64, cells)
		r.nearest = make([]int, cells)
	}
	r.counts = r.counts[:cells]
	r.depth = r.depth[:cells]
	r.nearest = r.nearest[:cells]
	clear(r.counts)

	for i := 0; i < f.Len(); i++ {
		x := float64(f.Positions[3*i])
		y := float64(f.Positions[3*i+1])
		z := float64(f.Positions[3*i+2])
		dx, dy := render.Wobble(x, y, f.Elapsed)

		sx, sy, depth, ok := vp.Project(x+dx, y+dy, z)
		if !ok {
			continue
		}
		cell := cellIndex(sx, sy, cols, rows)
		if r.counts[cell] == 0 || depth < r.depth[cell] {
			r.depth[cell] = depth
			r.nearest[cell] = i
		}
		r.counts[cell]++
	}

	bg := styleColor(r.background)
	base := tcell.StyleDefault.Background(bg)
	r.screen.Fill(' ', base)

	for cell, n := range r.counts {
		if n == 0 {
			continue
		}
		c := white
		if i := r.nearest[cell]; i < len(r.colors) {
			c = r.colors[i]
		}
		// Dense cells glow toward white like additive blending.
		glow := min(float64(n-1)/8, 0.6)
		style := base.Foreground(styleColor(c.BlendRgb(white, glow)))
		r.screen.SetContent(cell%cols, cell/cols, ramp[min(n-1, len(ramp)-1)], nil, style)
	}

	statusStyle := base.Foreground(tcell.ColorWhite).Reverse(true)
	line := fmt.Sprintf(" %-*s", cols-1, r.status)
	for x, ch := range []rune(line) {
		if x >= cols {
			break
		}
		r.screen.SetContent(x, rows, ch, nil, statusStyle)
	}

	r.screen.Show()
}

// cellIndex maps projected screen coordinates to a grid index. Coordinates
// that round onto the far edge land in the last column or row.
func cellIndex(sx, sy float64, cols, rows int) int {
	x := min(max(int(sx), 0), cols-1)
	y := min(max(int(sy)/2, 0), rows-1)
	return y*cols + x
}

func styleColor(c colorful.Color) tcell.Color {
	red, green, blue := c.Clamped().RGB255()
	return tcell.NewRGBColor(int32(red), int32(green), int32(blue))
}
