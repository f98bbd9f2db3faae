// SPDX-License-Identifier: MIT
/*
Package render composes visual frames from audio features:
- A fixed-rate compositor painting a background layer then an overlay layer
- Color layers (solids and cached gradients) and overlay effects (reactive
  shapes and alpha-mask cutouts)
- Pluggable presenters that ship composed frames to viewers

Layers are swappable while the loop runs; a swap takes effect on the next
tick, never mid-composite.
*/
package render

import (
	"image"
	"sort"

	"lumen/internal/analysis"
)

// Layer is the single contract every visual component implements. Render
// paints into frame for the given elapsed time; snap is nil when audio is
// disabled or unavailable and layers must fall back to a static rendition.
type Layer interface {
	Render(frame *image.RGBA, elapsed float64, snap *analysis.Snapshot)
}

// Constructor builds a layer sized for the given output resolution.
type Constructor func(width, height int) Layer

// Registry maps layer names to constructors. Unknown names fall back to the
// registry's designated default, so a mistyped config value still renders.
type Registry struct {
	constructors map[string]Constructor
	fallback     string
}

// NewRegistry returns an empty registry whose Build falls back to the named
// entry. The fallback must be registered before the first Build call.
func NewRegistry(fallback string) *Registry {
	return &Registry{
		constructors: make(map[string]Constructor),
		fallback:     fallback,
	}
}

// Register adds or replaces a named constructor.
func (r *Registry) Register(name string, ctor Constructor) {
	r.constructors[name] = ctor
}

// Build instantiates the named layer at the given resolution, falling back
// to the default entry for unknown names.
func (r *Registry) Build(name string, width, height int) Layer {
	ctor, ok := r.constructors[name]
	if !ok {
		ctor = r.constructors[r.fallback]
	}
	if ctor == nil {
		return nil
	}
	return ctor(width, height)
}

// Has reports whether a name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.constructors[name]
	return ok
}

// Names returns the registered layer names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Colors returns the catalog of background color layers.
func Colors() *Registry {
	r := NewRegistry("base")
	r.Register("base", NewBaseColor)
	r.Register("red", solid(255, 0, 0))
	r.Register("green", solid(0, 255, 0))
	r.Register("blue", solid(0, 0, 255))
	r.Register("purple", solid(128, 0, 128))
	r.Register("yellow", solid(255, 255, 0))
	r.Register("radial", NewRadialGradient)
	r.Register("rainbow", NewHorizontalRainbow)
	return r
}

// Effects returns the catalog of overlay effect layers.
func Effects() *Registry {
	r := NewRegistry("default")
	r.Register("default", NewDefaultEffect)
	r.Register("pulse", NewPulseEffect)
	r.Register("square", NewSpinningSquare)
	return r
}
