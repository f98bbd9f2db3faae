// SPDX-License-Identifier: MIT
package render

import (
	"context"
	"fmt"
	"image"
	"sync/atomic"
	"time"

	"lumen/internal/analysis"
	"lumen/internal/log"
)

// FeatureSource supplies one immutable feature snapshot per frame. A nil
// snapshot means audio is disabled or unavailable; layers fall back to
// static rendering.
type FeatureSource interface {
	Features() *analysis.Snapshot
}

// layerSlot boxes a layer for atomic pointer swaps.
type layerSlot struct {
	layer Layer
}

// Compositor runs the fixed-rate frame loop: each tick takes one feature
// snapshot, paints the background layer then the overlay layer into a
// reused frame buffer, and hands the composite to the presenter. Both
// layers are hot-swappable; a swap takes effect on the next tick.
type Compositor struct {
	width     int
	height    int
	targetFPS int

	source    FeatureSource
	presenter Presenter

	background atomic.Pointer[layerSlot]
	overlay    atomic.Pointer[layerSlot]

	frame  *image.RGBA
	frames atomic.Uint64
}

// NewCompositor builds a compositor for the given output size and cadence.
// source may be nil for audio-free operation; presenter must not be nil.
func NewCompositor(width, height, targetFPS int, source FeatureSource, presenter Presenter) (*Compositor, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	if targetFPS <= 0 {
		return nil, fmt.Errorf("invalid target FPS %d", targetFPS)
	}
	if presenter == nil {
		return nil, fmt.Errorf("presenter must not be nil")
	}

	return &Compositor{
		width:     width,
		height:    height,
		targetFPS: targetFPS,
		source:    source,
		presenter: presenter,
		frame:     image.NewRGBA(image.Rect(0, 0, width, height)),
	}, nil
}

// SetBackground swaps the background color layer. Takes effect on the next
// tick; safe to call while the loop runs.
func (c *Compositor) SetBackground(layer Layer) {
	c.background.Store(&layerSlot{layer: layer})
}

// SetOverlay swaps the overlay effect layer. Takes effect on the next tick.
func (c *Compositor) SetOverlay(layer Layer) {
	c.overlay.Store(&layerSlot{layer: layer})
}

// Frames returns the number of frames presented so far.
func (c *Compositor) Frames() uint64 {
	return c.frames.Load()
}

// Size returns the output resolution.
func (c *Compositor) Size() (width, height int) {
	return c.width, c.height
}

// Run drives the frame loop until ctx is cancelled. Cadence is best effort:
// a tick that overruns delays the next frame rather than bursting to catch
// up.
func (c *Compositor) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(c.targetFPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Infof("Render: compositor running at %d fps (%dx%d)", c.targetFPS, c.width, c.height)
	start := time.Now()

	for {
		select {
		case <-ctx.Done():
			log.Infof("Render: compositor stopped after %d frames", c.frames.Load())
			return nil
		case <-ticker.C:
			c.composeFrame(time.Since(start).Seconds())
		}
	}
}

// composeFrame renders one frame: background, then overlay, then present.
// Layer faults are contained per layer; the composite is presented even
// when a layer was skipped.
func (c *Compositor) composeFrame(elapsed float64) {
	var snap *analysis.Snapshot
	if c.source != nil {
		snap = c.source.Features()
	}

	if slot := c.background.Load(); slot != nil && slot.layer != nil {
		c.renderLayer(slot.layer, elapsed, snap)
	}
	if slot := c.overlay.Load(); slot != nil && slot.layer != nil {
		c.renderLayer(slot.layer, elapsed, snap)
	}

	if err := c.presenter.Present(c.frame); err != nil {
		log.Warnf("Render: present failed: %v", err)
	}
	c.frames.Add(1)
}

func (c *Compositor) renderLayer(layer Layer, elapsed float64, snap *analysis.Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Render: %v: %T skipped: %v", ErrRenderFault, layer, r)
		}
	}()
	layer.Render(c.frame, elapsed, snap)
}
