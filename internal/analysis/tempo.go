// SPDX-License-Identifier: MIT
package analysis

import (
	"math"

	"lumen/internal/log"
)

// Envelope framing for tempo analysis: ~23ms frames with 50% overlap at
// 44.1kHz. Coarse enough to keep the autocorrelation cheap, fine enough to
// resolve beat intervals up to 200 BPM.
const (
	tempoFrameSize = 1024
	tempoHopSize   = 512
)

// confidenceDecay is applied to the confidence each time a tempo pass is
// rejected, so confidence trends toward 0 during implausible or silent
// windows while the held bpm stays intact.
const confidenceDecay = 0.5

// TempoEstimator runs the heavier beat-tracking pass over the rolling
// window. It computes an energy envelope, finds the dominant beat period by
// autocorrelation, and picks beat timestamps from envelope peaks. Results
// feed BeatState via Apply, which enforces the plausibility gate, the EMA
// smoothing and the regularity-based confidence.
type TempoEstimator struct {
	sampleRate float64
	minBPM     float64
	maxBPM     float64
	smoothing  float64 // weight of a fresh estimate in the EMA
}

// NewTempoEstimator creates an estimator accepting tempos in [minBPM,
// maxBPM] and smoothing fresh estimates with the given weight.
func NewTempoEstimator(sampleRate, minBPM, maxBPM, smoothing float64) *TempoEstimator {
	return &TempoEstimator{
		sampleRate: sampleRate,
		minBPM:     minBPM,
		maxBPM:     maxBPM,
		smoothing:  smoothing,
	}
}

// Analyze runs beat tracking over a window of samples. It returns the raw
// tempo estimate, the detected beat timestamps (seconds from window start)
// and ok=false when no periodicity could be found (silence, degenerate
// input, window too short).
func (te *TempoEstimator) Analyze(samples []float64) (bpm float64, beats []float64, ok bool) {
	env := energyEnvelope(samples, tempoFrameSize, tempoHopSize)
	if len(env) < 8 {
		return 0, nil, false
	}

	frameDur := float64(tempoHopSize) / te.sampleRate
	lag, ok := dominantLag(env, te.periodFrames(te.maxBPM), te.periodFrames(te.minBPM))
	if !ok {
		return 0, nil, false
	}

	bpm = 60.0 / (float64(lag) * frameDur)
	beats = pickBeats(env, lag, frameDur)
	return bpm, beats, true
}

// Apply folds one pass's result into the previous BeatState. Estimates
// outside the plausible range (and failed passes) are non-updates: the held
// bpm is kept and confidence decays toward 0. Valid estimates are EMA
// smoothed; confidence is recomputed from beat interval regularity when at
// least two beats were found, and left unchanged otherwise.
func (te *TempoEstimator) Apply(prev BeatState, bpm float64, beats []float64, ok bool) BeatState {
	next := prev

	if !ok || bpm < te.minBPM || bpm > te.maxBPM {
		next.Confidence *= confidenceDecay
		if next.Confidence < 1e-4 {
			next.Confidence = 0
		}
		return next
	}

	next.BPM = prev.BPM*(1-te.smoothing) + bpm*te.smoothing
	next.IntervalSeconds = 60.0 / next.BPM

	if len(beats) >= 2 {
		next.Confidence = intervalRegularity(beats)
	}
	return next
}

// periodFrames converts a tempo to its beat period in envelope frames.
func (te *TempoEstimator) periodFrames(bpm float64) int {
	frameDur := float64(tempoHopSize) / te.sampleRate
	return int(60.0 / bpm / frameDur)
}

// energyEnvelope computes the RMS energy of overlapping frames.
func energyEnvelope(samples []float64, frameSize, hopSize int) []float64 {
	if len(samples) < frameSize {
		return nil
	}
	n := (len(samples)-frameSize)/hopSize + 1
	env := make([]float64, n)
	for i := 0; i < n; i++ {
		start := i * hopSize
		var sum float64
		for _, s := range samples[start : start+frameSize] {
			sum += s * s
		}
		env[i] = math.Sqrt(sum / float64(frameSize))
	}
	return env
}

// dominantLag finds the beat period as the strongest local maximum of the
// envelope autocorrelation within [minLag, maxLag]. Returns ok=false for
// silent or aperiodic envelopes.
func dominantLag(env []float64, minLag, maxLag int) (int, bool) {
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= len(env)-1 {
		maxLag = len(env) - 2
	}
	if maxLag < minLag {
		return 0, false
	}

	// Autocorrelation normalized by zero-lag energy.
	r0 := 0.0
	for _, v := range env {
		r0 += v * v
	}
	if r0 < 1e-12 {
		return 0, false
	}

	autocorr := make([]float64, maxLag+2)
	for lag := 1; lag <= maxLag+1; lag++ {
		var sum float64
		for i := 0; i < len(env)-lag; i++ {
			sum += env[i] * env[i+lag]
		}
		autocorr[lag] = sum / r0
	}

	bestLag, bestVal := 0, 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		if autocorr[lag] > autocorr[lag-1] && autocorr[lag] >= autocorr[lag+1] && autocorr[lag] > bestVal {
			bestVal = autocorr[lag]
			bestLag = lag
		}
	}
	if bestLag == 0 || bestVal < 1e-6 {
		return 0, false
	}
	return bestLag, true
}

// pickBeats selects envelope peaks as beat timestamps: local maxima above an
// adaptive threshold, separated by at least half the detected period.
func pickBeats(env []float64, periodFrames int, frameDur float64) []float64 {
	var mean, m2 float64
	for _, v := range env {
		mean += v
	}
	mean /= float64(len(env))
	for _, v := range env {
		m2 += (v - mean) * (v - mean)
	}
	std := math.Sqrt(m2 / float64(len(env)))
	threshold := mean + 0.5*std

	minSep := periodFrames / 2
	if minSep < 1 {
		minSep = 1
	}

	var beats []float64
	lastPick := -minSep - 1
	for i := 1; i < len(env)-1; i++ {
		if env[i] < threshold || env[i] < env[i-1] || env[i] < env[i+1] {
			continue
		}
		if i-lastPick <= minSep {
			continue
		}
		beats = append(beats, float64(i)*frameDur)
		lastPick = i
	}
	return beats
}

// intervalRegularity derives a [0,1] confidence from how evenly spaced the
// beat timestamps are: 1 - stddev/mean of the inter-beat intervals, clamped.
func intervalRegularity(beats []float64) float64 {
	intervals := make([]float64, len(beats)-1)
	var mean float64
	for i := range intervals {
		intervals[i] = beats[i+1] - beats[i]
		mean += intervals[i]
	}
	mean /= float64(len(intervals))
	if mean <= 0 {
		return 0
	}

	var m2 float64
	for _, iv := range intervals {
		m2 += (iv - mean) * (iv - mean)
	}
	std := math.Sqrt(m2 / float64(len(intervals)))

	regularity := 1.0 - std/mean
	if regularity < 0 {
		return 0
	}
	if regularity > 1 {
		return 1
	}
	return regularity
}

// Run executes one complete tempo pass against the window snapshot,
// publishing the result to state and clock. Any panic in the pass is
// contained here: BeatState is left unchanged and the fault is logged.
func (te *TempoEstimator) Run(samples []float64, state *FeatureState, clock *BeatClock) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Analysis: tempo pass failed: %v", r)
		}
	}()

	bpm, beats, ok := te.Analyze(samples)
	next := te.Apply(state.Beat(), bpm, beats, ok)
	state.PublishBeat(next)
	clock.SetInterval(next.IntervalSeconds)
}
