// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"

	"lumen/pkg/utils"
)

const testSampleRate = 44100.0

func newTestEstimator() *TempoEstimator {
	return NewTempoEstimator(testSampleRate, 60, 200, 0.2)
}

func toFloat64(t *testing.T, in []float32) []float64 {
	t.Helper()
	out := make([]float64, len(in))
	for i, s := range in {
		out[i] = float64(s)
	}
	return out
}

func TestAnalyzePulseTrainTempo(t *testing.T) {
	t.Parallel()

	te := newTestEstimator()
	window := toFloat64(t, utils.GeneratePulseTrain(int(testSampleRate*3), testSampleRate, 120))

	bpm, beats, ok := te.Analyze(window)
	if !ok {
		t.Fatal("expected a tempo estimate for a regular pulse train")
	}
	if bpm < 110 || bpm > 130 {
		t.Errorf("raw estimate = %.1f BPM, want ~120", bpm)
	}
	if len(beats) < 4 {
		t.Errorf("found %d beats in a 3s 120 BPM window, want >= 4", len(beats))
	}
	for i := 1; i < len(beats); i++ {
		if beats[i] <= beats[i-1] {
			t.Fatal("beat timestamps must be increasing")
		}
	}
}

func TestAnalyzeSilence(t *testing.T) {
	t.Parallel()

	te := newTestEstimator()
	window := make([]float64, int(testSampleRate*3))

	if _, _, ok := te.Analyze(window); ok {
		t.Error("silence must not produce a tempo estimate")
	}
}

func TestAnalyzeShortWindow(t *testing.T) {
	t.Parallel()

	te := newTestEstimator()
	if _, _, ok := te.Analyze(make([]float64, 512)); ok {
		t.Error("window shorter than one envelope frame must not produce an estimate")
	}
}

func TestApplySmoothing(t *testing.T) {
	t.Parallel()

	te := newTestEstimator()
	prev := BeatState{BPM: 120, Confidence: 0.9, IntervalSeconds: 0.5}

	next := te.Apply(prev, 140, []float64{0, 0.5, 1.0}, true)
	if math.Abs(next.BPM-124) > 1e-9 {
		t.Errorf("smoothed BPM = %f, want 0.8*120 + 0.2*140 = 124", next.BPM)
	}
	if math.Abs(next.IntervalSeconds-60.0/124.0) > 1e-9 {
		t.Errorf("interval = %f, want %f", next.IntervalSeconds, 60.0/124.0)
	}
}

func TestApplyRejectsImplausibleTempo(t *testing.T) {
	t.Parallel()

	te := newTestEstimator()
	prev := BeatState{BPM: 124, Confidence: 0.8, IntervalSeconds: 60.0 / 124.0}

	for _, raw := range []float64{30, 250, 0} {
		next := te.Apply(prev, raw, nil, true)
		if next.BPM != prev.BPM {
			t.Errorf("raw %.0f BPM altered held bpm: %f", raw, next.BPM)
		}
		if next.Confidence >= prev.Confidence {
			t.Errorf("raw %.0f BPM did not decay confidence: %f", raw, next.Confidence)
		}
	}
}

func TestApplyFailedPassDecaysConfidence(t *testing.T) {
	t.Parallel()

	te := newTestEstimator()
	state := BeatState{BPM: 124, Confidence: 0.8, IntervalSeconds: 60.0 / 124.0}

	// Repeated silent windows trend confidence toward 0 while bpm holds.
	for i := 0; i < 20; i++ {
		state = te.Apply(state, 0, nil, false)
	}
	if state.BPM != 124 {
		t.Errorf("bpm after silent windows = %f, want held 124", state.BPM)
	}
	if state.Confidence != 0 {
		t.Errorf("confidence after silent windows = %f, want 0", state.Confidence)
	}
}

func TestApplyFewBeatsKeepsConfidence(t *testing.T) {
	t.Parallel()

	te := newTestEstimator()
	prev := BeatState{BPM: 120, Confidence: 0.7, IntervalSeconds: 0.5}

	// Fewer than 2 beat timestamps: confidence must be left unchanged,
	// not forced to 0.
	next := te.Apply(prev, 125, []float64{1.5}, true)
	if next.Confidence != 0.7 {
		t.Errorf("confidence = %f, want unchanged 0.7", next.Confidence)
	}
	next = te.Apply(prev, 125, nil, true)
	if next.Confidence != 0.7 {
		t.Errorf("confidence with no beats = %f, want unchanged 0.7", next.Confidence)
	}
}

func TestApplyStaysPlausible(t *testing.T) {
	t.Parallel()

	te := newTestEstimator()
	state := NeutralBeatState()

	// Whatever mix of accepted and rejected passes arrives, bpm never
	// leaves the plausible range once seeded inside it.
	raws := []float64{180, 30, 65, 500, 199, 0, 140}
	for _, raw := range raws {
		state = te.Apply(state, raw, []float64{0, 0.5, 1.0}, raw > 0)
		if state.BPM < 60 || state.BPM > 200 {
			t.Fatalf("bpm %f left [60,200] after raw %f", state.BPM, raw)
		}
	}
}

func TestConvergenceScenario(t *testing.T) {
	t.Parallel()

	// Feed a synthetic 120 BPM pulse window through two estimator passes:
	// bpm must converge into [115,125] with confidence >= 0.8.
	te := newTestEstimator()
	window := toFloat64(t, utils.GeneratePulseTrain(int(testSampleRate*3), testSampleRate, 120))

	state := NeutralBeatState()
	for pass := 0; pass < 2; pass++ {
		bpm, beats, ok := te.Analyze(window)
		state = te.Apply(state, bpm, beats, ok)
	}

	if state.BPM < 115 || state.BPM > 125 {
		t.Errorf("converged bpm = %.2f, want within [115,125]", state.BPM)
	}
	if state.Confidence < 0.8 {
		t.Errorf("confidence = %.3f, want >= 0.8 for a regular pulse train", state.Confidence)
	}
}

func TestSilenceScenario(t *testing.T) {
	t.Parallel()

	// A full window of silence: volume zero, no estimate, confidence
	// trending toward 0 while bpm holds its last value.
	te := newTestEstimator()
	silence := utils.GenerateSilence(int(testSampleRate * 3))

	if v := RMS(silence); v != 0 {
		t.Errorf("silence volume = %f, want 0", v)
	}

	state := BeatState{BPM: 128, Confidence: 0.9, IntervalSeconds: 60.0 / 128.0}
	prevConf := state.Confidence
	for pass := 0; pass < 5; pass++ {
		bpm, beats, ok := te.Analyze(toFloat64(t, silence))
		state = te.Apply(state, bpm, beats, ok)
		if state.Confidence > prevConf {
			t.Fatalf("confidence rose during silence: %f -> %f", prevConf, state.Confidence)
		}
		prevConf = state.Confidence
	}
	if state.BPM != 128 {
		t.Errorf("bpm after silence = %f, want held 128", state.BPM)
	}
	if state.Confidence > 0.1 {
		t.Errorf("confidence after 5 silent windows = %f, want near 0", state.Confidence)
	}
}

func TestIntervalRegularity(t *testing.T) {
	t.Parallel()

	if got := intervalRegularity([]float64{0, 0.5, 1.0, 1.5}); got < 0.999 {
		t.Errorf("perfectly regular beats: regularity = %f, want ~1", got)
	}
	jittery := intervalRegularity([]float64{0, 0.2, 1.1, 1.3, 2.9})
	if jittery < 0 || jittery > 1 {
		t.Errorf("regularity = %f outside [0,1]", jittery)
	}
	regular := intervalRegularity([]float64{0, 0.5, 1.0})
	if jittery >= regular {
		t.Errorf("jittery beats (%f) should score below regular beats (%f)", jittery, regular)
	}
}

func TestRunEmptyWindow(t *testing.T) {
	t.Parallel()

	te := newTestEstimator()
	clock := NewBeatClock(0.5)
	state := NewFeatureState(clock)
	before := state.Beat()

	te.Run(nil, state, clock)

	after := state.Beat()
	if after.BPM != before.BPM {
		t.Errorf("empty window changed bpm: %f -> %f", before.BPM, after.BPM)
	}
}

func TestRunContainsPanic(t *testing.T) {
	t.Parallel()

	te := newTestEstimator()
	clock := NewBeatClock(0.5)

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("Run let a panic escape: %v", r)
		}
	}()
	// A nil state makes the publish step panic; Run must contain it.
	te.Run(make([]float64, int(testSampleRate*3)), nil, clock)
}
