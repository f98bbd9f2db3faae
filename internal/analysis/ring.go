// SPDX-License-Identifier: MIT
package analysis

import "sync"

// RollingWindow is a fixed-capacity rolling store of mono samples covering
// the last few seconds of captured audio. The capture callback appends
// blocks; the tempo estimator takes read-only snapshots. Oldest samples are
// evicted first once the window is at capacity.
type RollingWindow struct {
	mu    sync.Mutex
	buf   []float64
	w     int    // next write position
	fill  int    // current fill level, <= cap(buf)
	total uint64 // samples appended over the window's lifetime
}

// NewRollingWindow creates a window holding capacity samples.
func NewRollingWindow(capacity int) *RollingWindow {
	if capacity < 1 {
		capacity = 1
	}
	return &RollingWindow{buf: make([]float64, capacity)}
}

// Append adds a block of capture samples, evicting the oldest samples when
// the window is full. Called from the audio callback; must not block beyond
// the short critical section.
func (rw *RollingWindow) Append(block []float32) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	for _, s := range block {
		rw.buf[rw.w] = float64(s)
		rw.w++
		if rw.w == len(rw.buf) {
			rw.w = 0
		}
	}
	rw.fill += len(block)
	if rw.fill > len(rw.buf) {
		rw.fill = len(rw.buf)
	}
	rw.total += uint64(len(block))
}

// Snapshot copies the retained samples, oldest first, into dst and returns
// the number of samples written. dst should have the window's capacity.
func (rw *RollingWindow) Snapshot(dst []float64) int {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	n := rw.fill
	if n > len(dst) {
		n = len(dst)
	}
	start := (rw.w - n + len(rw.buf)) % len(rw.buf)
	for i := 0; i < n; i++ {
		dst[i] = rw.buf[(start+i)%len(rw.buf)]
	}
	return n
}

// Len returns the number of retained samples.
func (rw *RollingWindow) Len() int {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.fill
}

// Capacity returns the configured window size in samples.
func (rw *RollingWindow) Capacity() int {
	return len(rw.buf)
}

// Full reports whether the window holds a complete analysis window.
func (rw *RollingWindow) Full() bool {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.fill == len(rw.buf)
}

// Total returns the lifetime count of appended samples. The capture engine
// uses it to rate-limit tempo passes to one per full window of new audio.
func (rw *RollingWindow) Total() uint64 {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.total
}
