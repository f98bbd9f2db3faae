// SPDX-License-Identifier: MIT
package analysis

import "sync"

// BeatDetector is the coarse, low-latency beat trigger. It compares bass-band
// energy (the lowest few spectral bins) against a multiple of the mean
// spectral energy. Intentionally noisy: it exists for sub-100ms visual
// response while the tempo estimator supplies the smoothed rhythmic model.
type BeatDetector struct {
	bassBins    int     // number of low bins summed as bass energy
	sensitivity float64 // threshold = mean spectral energy * sensitivity
	active      bool    // current flag, for edge detection
}

// NewBeatDetector creates a detector summing the lowest bassBins bins with
// the given threshold multiplier.
func NewBeatDetector(bassBins int, sensitivity float64) *BeatDetector {
	if bassBins < 1 {
		bassBins = 1
	}
	return &BeatDetector{bassBins: bassBins, sensitivity: sensitivity}
}

// Process evaluates one block's magnitude spectrum. detected is the current
// flag state; rising is true only on a false-to-true transition, which is
// when the beat clock should be marked.
func (d *BeatDetector) Process(magnitudes []float64) (detected, rising bool) {
	if len(magnitudes) == 0 {
		d.active = false
		return false, false
	}

	n := d.bassBins
	if n > len(magnitudes) {
		n = len(magnitudes)
	}

	var bass, total float64
	for i, m := range magnitudes {
		if i < n {
			bass += m
		}
		total += m
	}
	mean := total / float64(len(magnitudes))

	detected = bass > mean*d.sensitivity
	rising = detected && !d.active
	d.active = detected
	return detected, rising
}

// BeatClock tracks the most recent beat timestamp and the current beat
// interval, and answers beat-phase queries. The capture callback marks it on
// rising edges; the tempo estimator updates the interval.
type BeatClock struct {
	mu       sync.Mutex
	lastBeat float64 // seconds
	interval float64 // seconds between beats
}

// NewBeatClock returns a clock with the given initial interval.
func NewBeatClock(interval float64) *BeatClock {
	return &BeatClock{interval: interval}
}

// Mark records a beat at the given timestamp.
func (c *BeatClock) Mark(now float64) {
	c.mu.Lock()
	c.lastBeat = now
	c.mu.Unlock()
}

// SetInterval updates the beat interval in seconds. Non-positive values are
// ignored.
func (c *BeatClock) SetInterval(seconds float64) {
	if seconds <= 0 {
		return
	}
	c.mu.Lock()
	c.interval = seconds
	c.mu.Unlock()
}

// Interval returns the current beat interval in seconds.
func (c *BeatClock) Interval() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}

// LastBeat returns the most recent beat timestamp.
func (c *BeatClock) LastBeat() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastBeat
}

// Progress returns the position within the current beat interval in [0,1],
// with 0 meaning on-beat. If a beat was missed (elapsed exceeds the
// interval) the clock self-heals: the last beat is reset to now and 0 is
// returned, so the result never leaves [0,1] and never grows unbounded.
func (c *BeatClock) Progress(now float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.interval <= 0 {
		return 0
	}
	elapsed := now - c.lastBeat
	if elapsed < 0 || elapsed > c.interval {
		c.lastBeat = now
		return 0
	}
	return elapsed / c.interval
}
