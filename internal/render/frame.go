// Package render holds the data handed to renderers each tick and the helpers
// they share: the binary wire layout, viewport math and per-frame modulation.
package render

import (
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Frame is a per-tick snapshot of particle positions.
type Frame struct {
	// Elapsed is seconds since the scene loop started.
	Elapsed float64
	// Positions holds packed x,y,z triples.
	Positions []float32
}

// Len returns the number of particles in the frame.
func (f *Frame) Len() int {
	return len(f.Positions) / 3
}

// Attributes are the slowly changing per-particle values: colors and sizes,
// plus the scene background. They change only on theme swaps.
type Attributes struct {
	Background colorful.Color
	// Colors holds packed r,g,b triples in [0,1].
	Colors []float32
	Sizes  []float32
}

// Len returns the number of particles described.
func (a *Attributes) Len() int {
	return len(a.Sizes)
}

// Color returns the color of particle i.
func (a *Attributes) Color(i int) colorful.Color {
	return colorful.Color{
		R: float64(a.Colors[3*i]),
		G: float64(a.Colors[3*i+1]),
		B: float64(a.Colors[3*i+2]),
	}
}
