// SPDX-License-Identifier: MIT
package render

import (
	"image"
	"image/color"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"

	"lumen/internal/analysis"
)

// DefaultEffect draws a centered circle that pulses with the beat phase and
// scales with volume. It paints directly over the background.
type DefaultEffect struct {
	centerX, centerY int
}

func NewDefaultEffect(width, height int) Layer {
	return &DefaultEffect{centerX: width / 2, centerY: height / 2}
}

func (d *DefaultEffect) Render(frame *image.RGBA, elapsed float64, snap *analysis.Snapshot) {
	c := color.RGBA{R: 100, G: 100, B: 100, A: 255}
	radius := 30.0

	if snap != nil {
		pulse := math.Abs(math.Sin(snap.BeatProgress * math.Pi * 2))

		switch {
		case snap.BeatDetected:
			c = color.RGBA{R: 255, G: 100, B: 100, A: 255}
		case snap.Beat.Confidence > 0.5:
			// Hue cycles once per beat at the estimated tempo.
			hue := math.Mod(elapsed*snap.Beat.BPM/60.0*360.0, 360.0)
			c = toRGBA(colorful.Hsv(hue, 1, 1))
		}

		volumeScale := math.Min(2.0, snap.Volume*10)
		radius = 30.0 * volumeScale * (1.0 + pulse*0.5)
	}

	fillCircle(frame, d.centerX, d.centerY, int(radius), c)
}

// PulseEffect is a cutout: an expanding circle outline revealed through an
// otherwise black mask, growing from the center until it leaves the frame.
type PulseEffect struct {
	centerX, centerY int
	maxRadius        float64
	mask             *cutoutMask
}

const (
	pulseSpeed     = 500.0 // outline growth, pixels per second
	pulseThickness = 3
)

func NewPulseEffect(width, height int) Layer {
	return &PulseEffect{
		centerX:   width / 2,
		centerY:   height / 2,
		maxRadius: math.Hypot(float64(width), float64(height)),
		mask:      newCutoutMask(),
	}
}

func (p *PulseEffect) Render(frame *image.RGBA, elapsed float64, snap *analysis.Snapshot) {
	radius := math.Mod(elapsed*pulseSpeed, p.maxRadius)

	p.mask.reset(frame.Bounds().Size())
	p.mask.circleOutline(p.centerX, p.centerY, radius, pulseThickness)
	p.mask.apply(frame)
}

// SpinningSquare is a cutout: a rotating square outline revealed through a
// black mask.
type SpinningSquare struct {
	centerX, centerY int
	mask             *cutoutMask
}

const (
	squareRotationDPS = 90.0 // degrees per second
	squareSize        = 750.0
	squareThickness   = 3
)

func NewSpinningSquare(width, height int) Layer {
	return &SpinningSquare{
		centerX: width / 2,
		centerY: height / 2,
		mask:    newCutoutMask(),
	}
}

func (s *SpinningSquare) Render(frame *image.RGBA, elapsed float64, snap *analysis.Snapshot) {
	angle := math.Mod(elapsed*squareRotationDPS, 360) * math.Pi / 180
	sin, cos := math.Sin(angle), math.Cos(angle)

	half := squareSize / 2
	corners := [4][2]float64{
		{-half, -half},
		{half, -half},
		{half, half},
		{-half, half},
	}
	var points [4]image.Point
	for i, corner := range corners {
		x, y := corner[0], corner[1]
		points[i] = image.Point{
			X: s.centerX + int(x*cos-y*sin),
			Y: s.centerY + int(x*sin+y*cos),
		}
	}

	s.mask.reset(frame.Bounds().Size())
	for i := range points {
		next := points[(i+1)%len(points)]
		s.mask.line(points[i], next, squareThickness)
	}
	s.mask.apply(frame)
}

// cutoutMask implements the alpha-mask compositing used by outline effects:
// the frame is blacked out everywhere except where the mask was opened,
// revealing the background layer through the opening. The pixel buffer is
// reused across frames.
type cutoutMask struct {
	open []bool
	size image.Point
}

func newCutoutMask() *cutoutMask {
	return &cutoutMask{}
}

func (m *cutoutMask) reset(size image.Point) {
	n := size.X * size.Y
	if cap(m.open) < n {
		m.open = make([]bool, n)
	}
	m.open = m.open[:n]
	for i := range m.open {
		m.open[i] = false
	}
	m.size = size
}

// circleOutline opens an annulus of the given thickness around the radius.
func (m *cutoutMask) circleOutline(cx, cy int, radius float64, thickness int) {
	if radius <= 0 {
		return
	}
	halfT := float64(thickness) / 2
	outer := int(radius+halfT) + 1

	for y := cy - outer; y <= cy+outer; y++ {
		if y < 0 || y >= m.size.Y {
			continue
		}
		for x := cx - outer; x <= cx+outer; x++ {
			if x < 0 || x >= m.size.X {
				continue
			}
			dist := math.Hypot(float64(x-cx), float64(y-cy))
			if math.Abs(dist-radius) <= halfT {
				m.open[y*m.size.X+x] = true
			}
		}
	}
}

// line opens a straight segment of the given thickness between two points.
func (m *cutoutMask) line(from, to image.Point, thickness int) {
	dx := float64(to.X - from.X)
	dy := float64(to.Y - from.Y)
	length := math.Hypot(dx, dy)
	steps := int(length) + 1
	halfT := thickness / 2

	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		px := from.X + int(dx*t)
		py := from.Y + int(dy*t)
		for oy := -halfT; oy <= halfT; oy++ {
			for ox := -halfT; ox <= halfT; ox++ {
				x, y := px+ox, py+oy
				if x >= 0 && x < m.size.X && y >= 0 && y < m.size.Y {
					m.open[y*m.size.X+x] = true
				}
			}
		}
	}
}

// apply blacks out every pixel the mask did not open.
func (m *cutoutMask) apply(frame *image.RGBA) {
	bounds := frame.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := (y - bounds.Min.Y) * m.size.X
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if !m.open[row+x-bounds.Min.X] {
				frame.SetRGBA(x, y, color.RGBA{A: 255})
			}
		}
	}
}

// fillCircle paints a filled circle clipped to the frame.
func fillCircle(frame *image.RGBA, cx, cy, radius int, c color.RGBA) {
	if radius <= 0 {
		return
	}
	bounds := frame.Bounds()
	rsq := radius * radius
	for y := cy - radius; y <= cy+radius; y++ {
		if y < bounds.Min.Y || y >= bounds.Max.Y {
			continue
		}
		for x := cx - radius; x <= cx+radius; x++ {
			if x < bounds.Min.X || x >= bounds.Max.X {
				continue
			}
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= rsq {
				frame.SetRGBA(x, y, c)
			}
		}
	}
}
