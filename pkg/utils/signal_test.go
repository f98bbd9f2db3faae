package utils

import (
	"math"
	"testing"
)

func TestGenerateSineWaveAmplitude(t *testing.T) {
	t.Parallel()

	buf := GenerateSineWave(4096, 44100, 440)
	var peak float64
	for _, s := range buf {
		if a := math.Abs(float64(s)); a > peak {
			peak = a
		}
	}
	if peak < 0.85 || peak > 0.95 {
		t.Errorf("sine peak = %.3f, want ~0.9", peak)
	}
}

func TestGeneratePulseTrainSpacing(t *testing.T) {
	t.Parallel()

	const sampleRate = 44100.0
	buf := GeneratePulseTrain(int(sampleRate*3), sampleRate, 120)

	// 120 BPM means a burst starts every 0.5s. Check sample 0 and one period
	// later are inside bursts, and the gap between bursts is silent.
	period := int(sampleRate * 0.5)
	if buf[1] == 0 {
		t.Error("expected burst at start of pulse train")
	}
	if buf[period+1] == 0 {
		t.Error("expected burst at one beat period")
	}
	if buf[period/2] != 0 {
		t.Error("expected silence between bursts")
	}
}

func TestGenerateSilence(t *testing.T) {
	t.Parallel()

	for _, s := range GenerateSilence(1024) {
		if s != 0 {
			t.Fatal("silence generator produced non-zero sample")
		}
	}
}

func TestFindPeakBin(t *testing.T) {
	t.Parallel()

	mags := []float64{0, 1, 5, 2, 9, 3}
	if got := FindPeakBin(mags, 0, len(mags)-1); got != 4 {
		t.Errorf("FindPeakBin = %d, want 4", got)
	}
	if got := FindPeakBin(mags, 0, 3); got != 2 {
		t.Errorf("FindPeakBin limited range = %d, want 2", got)
	}
	if got := FindPeakBin(nil, 0, 10); got != 0 {
		t.Errorf("FindPeakBin empty = %d, want 0", got)
	}
}
