// Package utils holds shared test helpers: synthetic signal generators and
// small inspection utilities used by the analysis and render test suites.
package utils

import "math"

// GenerateSineWave returns size mono float32 samples of a sine at the given
// frequency, at 90% full scale.
func GenerateSineWave(size int, sampleRate, frequency float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = float32(math.Sin(2*math.Pi*frequency*t) * 0.9)
	}
	return buffer
}

// GenerateComplexWave returns a 440Hz fundamental with two harmonics, useful
// for exercising spectral analysis with a known peak bin.
func GenerateComplexWave(size int, sampleRate float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*t)*0.5 +
			math.Sin(2*math.Pi*880*t)*0.3 +
			math.Sin(2*math.Pi*1320*t)*0.2
		buffer[i] = float32(signal * 0.9)
	}
	return buffer
}

// GeneratePulseTrain returns size samples of silence punctuated by short
// full-scale tone bursts spaced at the given tempo. Each burst is 50ms of a
// 60Hz tone so pulses carry bass-band energy.
func GeneratePulseTrain(size int, sampleRate, bpm float64) []float32 {
	buffer := make([]float32, size)
	if bpm <= 0 {
		return buffer
	}
	period := int(sampleRate * 60.0 / bpm)
	burst := int(sampleRate * 0.05)
	for i := range buffer {
		if period > 0 && i%period < burst {
			t := float64(i) / sampleRate
			buffer[i] = float32(math.Sin(2*math.Pi*60*t) * 0.9)
		}
	}
	return buffer
}

// GenerateSilence returns size zero samples.
func GenerateSilence(size int) []float32 {
	return make([]float32, size)
}

// FindPeakBin returns the index of the largest magnitude in [startBin, endBin].
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}
	if startBin < 0 {
		startBin = 0
	}
	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]
	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}
	return peakBin
}
