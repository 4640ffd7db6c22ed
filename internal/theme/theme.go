// Package theme provides the named color palettes used to tint the particle cloud.
package theme

import (
	"errors"
	"fmt"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// ErrNotFound is returned when a theme key is not in the table.
var ErrNotFound = errors.New("theme not found")

// ErrNoColors is returned when a palette definition has no colors.
var ErrNoColors = errors.New("theme has no colors")

// Theme is an immutable palette: particle colors plus the scene background.
type Theme struct {
	Key        string
	Name       string
	Colors     []colorful.Color
	Background colorful.Color
}

// Definition is the hex form of a theme, as written in code or config files.
type Definition struct {
	Key        string   `toml:"key"`
	Name       string   `toml:"name"`
	Colors     []string `toml:"colors"`
	Background string   `toml:"background"`
}

// Builtin palettes, in cycling order.
var Builtin = []Definition{
	{
		Key:        "romantic",
		Name:       "Romantic",
		Colors:     []string{"#ff6b9d", "#ff8fab", "#ffc2d1", "#ffb3c6", "#ff85a1"},
		Background: "#0a0512",
	},
	{
		Key:        "neon",
		Name:       "Neon",
		Colors:     []string{"#00ffff", "#ff00ff", "#00ff00", "#ffff00", "#ff0080"},
		Background: "#05050f",
	},
	{
		Key:        "ocean",
		Name:       "Ocean",
		Colors:     []string{"#0077b6", "#00b4d8", "#90e0ef", "#48cae4", "#caf0f8"},
		Background: "#03071e",
	},
	{
		Key:        "sunset",
		Name:       "Sunset",
		Colors:     []string{"#ff6b35", "#f7c59f", "#ef8354", "#ffba08", "#faa307"},
		Background: "#10002b",
	},
	{
		Key:        "forest",
		Name:       "Forest",
		Colors:     []string{"#2d6a4f", "#40916c", "#52b788", "#74c69d", "#95d5b2"},
		Background: "#081c15",
	},
}

// Parse converts a Definition into a Theme.
func (d Definition) Parse() (Theme, error) {
	if d.Key == "" {
		return Theme{}, fmt.Errorf("theme key is empty")
	}
	if len(d.Colors) == 0 {
		return Theme{}, fmt.Errorf("theme %q: %w", d.Key, ErrNoColors)
	}

	t := Theme{
		Key:    d.Key,
		Name:   d.Name,
		Colors: make([]colorful.Color, len(d.Colors)),
	}
	if t.Name == "" {
		t.Name = d.Key
	}

	for i, hex := range d.Colors {
		c, err := colorful.Hex(hex)
		if err != nil {
			return Theme{}, fmt.Errorf("theme %q color %d: %w", d.Key, i, err)
		}
		t.Colors[i] = c
	}

	bg, err := colorful.Hex(d.Background)
	if err != nil {
		return Theme{}, fmt.Errorf("theme %q background: %w", d.Key, err)
	}
	t.Background = bg

	return t, nil
}

// Table is an ordered, read-only set of themes.
type Table struct {
	themes []Theme
	index  map[string]int
}

// NewTable parses the builtin palettes followed by any extra definitions.
// A later definition with an existing key replaces the earlier one in place.
func NewTable(extra ...Definition) (*Table, error) {
	t := &Table{index: make(map[string]int)}

	defs := make([]Definition, 0, len(Builtin)+len(extra))
	defs = append(defs, Builtin...)
	defs = append(defs, extra...)

	for _, d := range defs {
		th, err := d.Parse()
		if err != nil {
			return nil, err
		}
		if i, ok := t.index[th.Key]; ok {
			t.themes[i] = th
			continue
		}
		t.index[th.Key] = len(t.themes)
		t.themes = append(t.themes, th)
	}

	return t, nil
}

// Len returns the number of themes.
func (t *Table) Len() int {
	return len(t.themes)
}

// Default returns the first theme in the table.
func (t *Table) Default() Theme {
	return t.themes[0]
}

// Get looks up a theme by key.
func (t *Table) Get(key string) (Theme, error) {
	i, ok := t.index[key]
	if !ok {
		return Theme{}, fmt.Errorf("%q: %w", key, ErrNotFound)
	}
	return t.themes[i], nil
}

// Next returns the theme after key, wrapping around. Unknown keys yield the default.
func (t *Table) Next(key string) Theme {
	i, ok := t.index[key]
	if !ok {
		return t.Default()
	}
	return t.themes[(i+1)%len(t.themes)]
}

// Keys returns theme keys in table order.
func (t *Table) Keys() []string {
	keys := make([]string, len(t.themes))
	for i, th := range t.themes {
		keys[i] = th.Key
	}
	return keys
}
