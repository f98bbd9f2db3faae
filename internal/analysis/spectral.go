// SPDX-License-Identifier: MIT
/*
Package analysis implements per-block feature extraction and periodic tempo
estimation for the capture engine:

  - SpectralProcessor: Hann-windowed FFT magnitude spectrum per block
  - BeatDetector: bass-energy beat flag with rising-edge timestamps
  - RollingWindow: the rolling sample store feeding tempo analysis
  - TempoEstimator: autocorrelation beat tracking with EMA smoothing
  - FeatureState: the atomically published feature snapshot read by renderers

The spectral and beat paths run inside the audio callback and are allocation
free; the tempo path runs on a worker goroutine.
*/
package analysis

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"lumen/pkg/bitint"
)

// spectralWorkspace holds pre-allocated FFT buffers.
type spectralWorkspace struct {
	input     []float64    // windowed input signal
	fftOutput []complex128 // FFT complex results
	magnitude []float64    // latest magnitudes
	window    []float64    // Hann coefficients
	mu        sync.RWMutex // guards magnitude against concurrent readers
}

// SpectralProcessor computes the magnitude spectrum of each capture block.
// Process runs on the audio callback; readers take copies of the latest
// magnitudes through Magnitudes or MagnitudesInto.
type SpectralProcessor struct {
	fft        *fourier.FFT
	fftSize    int
	sampleRate float64
	workspace  spectralWorkspace
}

// NewSpectralProcessor creates a processor for blocks of fftSize samples.
func NewSpectralProcessor(fftSize int, sampleRate float64) (*SpectralProcessor, error) {
	if !bitint.IsPowerOfTwo(fftSize) {
		return nil, fmt.Errorf("fft size must be a power of 2, got %d", fftSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}

	coeffs := make([]float64, fftSize)
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	window.Hann(coeffs)

	// Real input FFT yields N/2+1 complex values.
	magnitudeSize := fftSize/2 + 1

	return &SpectralProcessor{
		fft:        fourier.NewFFT(fftSize),
		fftSize:    fftSize,
		sampleRate: sampleRate,
		workspace: spectralWorkspace{
			input:     make([]float64, fftSize),
			fftOutput: make([]complex128, magnitudeSize),
			magnitude: make([]float64, magnitudeSize),
			window:    coeffs,
		},
	}, nil
}

// Process applies the window, performs the FFT and stores magnitudes.
// Zero-pads if the block is shorter than the FFT size.
func (p *SpectralProcessor) Process(block []float32) {
	p.workspace.mu.Lock()

	for i := 0; i < p.fftSize; i++ {
		if i < len(block) {
			p.workspace.input[i] = float64(block[i]) * p.workspace.window[i]
		} else {
			p.workspace.input[i] = 0
		}
	}

	p.fft.Coefficients(p.workspace.fftOutput, p.workspace.input)
	for i, c := range p.workspace.fftOutput {
		p.workspace.magnitude[i] = cmplx.Abs(c)
	}

	p.workspace.mu.Unlock()
}

// Magnitudes returns a copy of the latest magnitude spectrum.
func (p *SpectralProcessor) Magnitudes() []float64 {
	p.workspace.mu.RLock()
	defer p.workspace.mu.RUnlock()

	out := make([]float64, len(p.workspace.magnitude))
	copy(out, p.workspace.magnitude)
	return out
}

// MagnitudesInto copies the latest magnitudes into dst, avoiding the
// allocation in Magnitudes. dst must have length fftSize/2+1.
func (p *SpectralProcessor) MagnitudesInto(dst []float64) error {
	p.workspace.mu.RLock()
	defer p.workspace.mu.RUnlock()

	if len(dst) != len(p.workspace.magnitude) {
		return fmt.Errorf("destination length %d does not match %d", len(dst), len(p.workspace.magnitude))
	}
	copy(dst, p.workspace.magnitude)
	return nil
}

// FrequencyForBin returns the center frequency (Hz) for an FFT bin index.
func (p *SpectralProcessor) FrequencyForBin(binIndex int) float64 {
	if binIndex < 0 || binIndex > p.fftSize/2 {
		return 0
	}
	return float64(binIndex) * (p.sampleRate / float64(p.fftSize))
}

// Bins returns the number of magnitude bins (fftSize/2+1).
func (p *SpectralProcessor) Bins() int {
	return p.fftSize/2 + 1
}

// SampleRate returns the configured sample rate.
func (p *SpectralProcessor) SampleRate() float64 {
	return p.sampleRate
}

// RMS returns the root-mean-square amplitude of a block, the instantaneous
// volume feature. Empty blocks yield 0.
func RMS(block []float32) float64 {
	if len(block) == 0 {
		return 0
	}
	var sumSquare float64
	for _, s := range block {
		f := float64(s)
		sumSquare += f * f
	}
	return math.Sqrt(sumSquare / float64(len(block)))
}
