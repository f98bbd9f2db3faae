// SPDX-License-Identifier: MIT
package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"

	"lumen/internal/analysis"
)

// SolidColor fills the frame with a single color.
type SolidColor struct {
	color color.RGBA
}

func solid(r, g, b uint8) Constructor {
	return func(width, height int) Layer {
		return &SolidColor{color: color.RGBA{R: r, G: g, B: b, A: 255}}
	}
}

func (s *SolidColor) Render(frame *image.RGBA, elapsed float64, snap *analysis.Snapshot) {
	draw.Draw(frame, frame.Bounds(), image.NewUniform(s.color), image.Point{}, draw.Src)
}

// BaseColor is a blue-gray background that brightens slightly with volume.
type BaseColor struct {
	base color.RGBA
}

func NewBaseColor(width, height int) Layer {
	return &BaseColor{base: color.RGBA{R: 50, G: 50, B: 100, A: 255}}
}

func (b *BaseColor) Render(frame *image.RGBA, elapsed float64, snap *analysis.Snapshot) {
	c := b.base
	if snap != nil {
		brightness := 1.0 + snap.Volume*0.3
		c = color.RGBA{
			R: scale8(b.base.R, brightness),
			G: scale8(b.base.G, brightness),
			B: scale8(b.base.B, brightness),
			A: 255,
		}
	}
	draw.Draw(frame, frame.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

func scale8(v uint8, factor float64) uint8 {
	scaled := float64(v) * factor
	if scaled > 255 {
		scaled = 255
	}
	return uint8(scaled)
}

// rainbowStops is the shared gradient ramp for both gradient layers.
var rainbowStops = []struct {
	pos   float64
	color colorful.Color
}{
	{0.00, colorful.Color{R: 1, G: 0, B: 0}},   // red
	{0.15, colorful.Color{R: 1, G: 0.5, B: 0}}, // orange
	{0.30, colorful.Color{R: 1, G: 1, B: 0}},   // yellow
	{0.45, colorful.Color{R: 0, G: 1, B: 0}},   // green
	{0.60, colorful.Color{R: 0, G: 1, B: 1}},   // cyan
	{0.75, colorful.Color{R: 0, G: 0, B: 1}},   // blue
	{1.00, colorful.Color{R: 1, G: 0, B: 1}},   // magenta
}

// rampColor evaluates the rainbow ramp at t in [0,1] with linear RGB
// blending between adjacent stops.
func rampColor(t float64) color.RGBA {
	if t <= 0 {
		return toRGBA(rainbowStops[0].color)
	}
	if t >= 1 {
		return toRGBA(rainbowStops[len(rainbowStops)-1].color)
	}
	for i := 0; i < len(rainbowStops)-1; i++ {
		lo, hi := rainbowStops[i], rainbowStops[i+1]
		if t <= hi.pos {
			span := hi.pos - lo.pos
			blend := lo.color.BlendRgb(hi.color, (t-lo.pos)/span)
			return toRGBA(blend)
		}
	}
	return toRGBA(rainbowStops[len(rainbowStops)-1].color)
}

func toRGBA(c colorful.Color) color.RGBA {
	r, g, b := c.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// RadialGradient paints a circular rainbow gradient centered on the frame.
// The gradient image is expensive to build, so it is cached and regenerated
// only when the output resolution changes.
type RadialGradient struct {
	cached     *image.RGBA
	cachedSize image.Point
}

// radialZoom compresses the ramp so the outer colors stay on screen on wide
// aspect ratios.
const radialZoom = 0.65

func NewRadialGradient(width, height int) Layer {
	return &RadialGradient{}
}

func (rg *RadialGradient) Render(frame *image.RGBA, elapsed float64, snap *analysis.Snapshot) {
	size := frame.Bounds().Size()
	if rg.cached == nil || rg.cachedSize != size {
		rg.cached = rg.generate(size.X, size.Y)
		rg.cachedSize = size
	}
	draw.Draw(frame, frame.Bounds(), rg.cached, image.Point{}, draw.Src)
}

func (rg *RadialGradient) generate(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	minDim := float64(min(width, height))

	for y := 0; y < height; y++ {
		// Centered coordinates scaled so the gradient stays circular on
		// any aspect ratio.
		ny := (2*float64(y)/float64(height-1) - 1) * float64(height) / minDim
		for x := 0; x < width; x++ {
			nx := (2*float64(x)/float64(width-1) - 1) * float64(width) / minDim
			radius := math.Sqrt(nx*nx+ny*ny) * radialZoom
			if radius > 1 {
				radius = 1
			}
			img.SetRGBA(x, y, rampColor(radius))
		}
	}
	return img
}

// HorizontalRainbow paints a static left-to-right rainbow gradient, cached
// per resolution.
type HorizontalRainbow struct {
	cached     *image.RGBA
	cachedSize image.Point
}

func NewHorizontalRainbow(width, height int) Layer {
	return &HorizontalRainbow{}
}

func (hr *HorizontalRainbow) Render(frame *image.RGBA, elapsed float64, snap *analysis.Snapshot) {
	size := frame.Bounds().Size()
	if hr.cached == nil || hr.cachedSize != size {
		hr.cached = hr.generate(size.X, size.Y)
		hr.cachedSize = size
	}
	draw.Draw(frame, frame.Bounds(), hr.cached, image.Point{}, draw.Src)
}

func (hr *HorizontalRainbow) generate(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		t := 0.0
		if width > 1 {
			t = float64(x) / float64(width-1)
		}
		c := rampColor(t)
		for y := 0; y < height; y++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}
