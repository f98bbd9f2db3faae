// SPDX-License-Identifier: MIT
/*
Package audio implements the real-time capture engine that feeds the
feature pipeline:
- Audio capture using PortAudio with pre-allocated buffers
- Per-block volume, spectrum and beat extraction in the stream callback
- A rolling sample window driving asynchronous tempo analysis
- Noise gate control and WAV recording of the raw input

Thread Safety:
- The callback publishes features through atomic pointer swaps
- Tempo passes run on a worker goroutine, at most one in flight
- Pre-allocated buffers avoid GC pressure in the hot path
*/
package audio

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"

	"lumen/internal/analysis"
	"lumen/internal/config"
	"lumen/internal/log"
)

type Engine struct {
	// Core configuration and state.
	config *config.Config

	// Audio input handling.
	inputBuffer  []float32
	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream
	monoInput    []float32 // Mono downmix buffer for analysis

	// Feature extraction pipeline, all pre-built in NewEngine.
	spectral *analysis.SpectralProcessor
	detector *analysis.BeatDetector
	window   *analysis.RollingWindow
	tempo    *analysis.TempoEstimator
	clock    *analysis.BeatClock
	state    *analysis.FeatureState

	// Tempo worker coordination. tempoBusy gates a single in-flight pass;
	// lastTempoTotal tracks which window content was analyzed last.
	tempoBusy      atomic.Bool
	tempoWindow    []float64 // Reused pass snapshot buffer
	lastTempoTotal uint64

	// Engine lifecycle.
	running   atomic.Bool
	startTime time.Time
	blocks    uint64 // Blocks processed since Start, callback-only

	// Noise gate for signal conditioning. Written from the control surface
	// while the callback reads it, so both fields are atomic.
	gateEnabled   atomic.Bool
	gateThreshold atomic.Uint32 // Peak amplitude threshold bits (0.0-1.0)

	// Recording state and buffers.
	isRecording int32 // Atomic flag for thread-safe state
	outputFile  *os.File
	wavEncoder  *wav.Encoder
	sampleBuf   *goaudio.IntBuffer // Reusable buffer for format conversion
}

func NewEngine(cfg *config.Config) (engine *Engine, err error) {
	inputDevice, err := InputDevice(cfg.Audio.DeviceID)
	if err != nil {
		return nil, err
	}

	spectral, err := analysis.NewSpectralProcessor(cfg.Audio.FramesPerBuffer, cfg.Audio.SampleRate)
	if err != nil {
		return nil, err
	}

	clock := analysis.NewBeatClock(analysis.NeutralBeatState().IntervalSeconds)
	windowSamples := cfg.WindowSamples()

	// Pre-allocate I/O buffers sized for frames x channels.
	inputSize := cfg.Audio.FramesPerBuffer * cfg.Audio.Channels

	engine = &Engine{
		config:      cfg,
		inputBuffer: make([]float32, inputSize),
		inputDevice: inputDevice,
		monoInput:   make([]float32, cfg.Audio.FramesPerBuffer),
		spectral:    spectral,
		detector:    analysis.NewBeatDetector(cfg.Analysis.BassBins, cfg.Analysis.BeatSensitivity),
		window:      analysis.NewRollingWindow(windowSamples),
		tempo: analysis.NewTempoEstimator(
			cfg.Audio.SampleRate,
			cfg.Analysis.TempoMinBPM,
			cfg.Analysis.TempoMaxBPM,
			cfg.Analysis.TempoSmoothing,
		),
		clock:       clock,
		state:       analysis.NewFeatureState(clock),
		tempoWindow: make([]float64, windowSamples),
	}
	engine.gateThreshold.Store(math.Float32bits(0.001)) // ~0.1% of full scale

	if engine.config.Audio.LowLatency {
		engine.inputLatency = engine.inputDevice.DefaultLowInputLatency
	} else {
		engine.inputLatency = engine.inputDevice.DefaultHighInputLatency
	}

	return engine, nil
}

func (e *Engine) StartInputStream() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.config.Audio.Channels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: e.config.Audio.FramesPerBuffer,
		SampleRate:      e.config.Audio.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processInputStream)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStreamFault, err)
	}
	e.inputStream = stream

	if err := e.inputStream.Start(); err != nil {
		e.inputStream.Close()
		return fmt.Errorf("%w: %v", ErrStreamFault, err)
	}

	e.startTime = time.Now()
	e.running.Store(true)

	return nil
}

func (e *Engine) StopInputStream() error {
	e.running.Store(false)

	if e.inputStream != nil {
		if err := e.inputStream.Stop(); err != nil {
			return err
		}

		if err := e.inputStream.Close(); err != nil {
			return err
		}

		e.inputStream = nil
	}

	return nil
}

// Running reports whether the capture stream is active.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Now returns seconds elapsed since the stream started. It is the timebase
// for beat timestamps and phase queries.
func (e *Engine) Now() float64 {
	if e.startTime.IsZero() {
		return 0
	}
	return time.Since(e.startTime).Seconds()
}

// Features returns an immutable feature snapshot for the current instant,
// or nil when the engine is not capturing. Renderers treat nil as "no
// reactivity".
func (e *Engine) Features() *analysis.Snapshot {
	if !e.running.Load() {
		return nil
	}
	return e.state.Snapshot(e.Now())
}

// Volume returns the RMS volume of the most recent block, in [0,1] for
// full-scale input.
func (e *Engine) Volume() float64 {
	if !e.running.Load() {
		return 0
	}
	return e.state.Snapshot(e.Now()).Volume
}

// BeatDetected reports whether the most recent block opened a beat.
func (e *Engine) BeatDetected() bool {
	if !e.running.Load() {
		return false
	}
	return e.state.Snapshot(e.Now()).BeatDetected
}

// BPM returns the smoothed tempo estimate.
func (e *Engine) BPM() float64 {
	return e.state.Beat().BPM
}

// Confidence returns the regularity confidence of the tempo estimate,
// in [0,1].
func (e *Engine) Confidence() float64 {
	return e.state.Beat().Confidence
}

// Spectrum returns the magnitude spectrum of the most recent block, or nil
// when not capturing. The returned slice is immutable.
func (e *Engine) Spectrum() []float64 {
	if !e.running.Load() {
		return nil
	}
	return e.state.Snapshot(e.Now()).Spectrum
}

// BeatProgress returns the phase within the current beat period, in [0,1].
func (e *Engine) BeatProgress() float64 {
	return e.clock.Progress(e.Now())
}

// processInputStream is the core audio processing callback.
// Performance Critical:
// - Runs in a dedicated OS thread (LockOSThread)
// - Uses pre-allocated buffers only
// - A panic anywhere in the block's processing is contained here; the
//   block's features are skipped and capture continues
func (e *Engine) processInputStream(in []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Audio: %v: block %d skipped: %v", ErrStreamFault, e.blocks, r)
		}
	}()
	e.blocks++

	copy(e.inputBuffer, in)
	e.processBuffer(e.inputBuffer)

	// Write to WAV file if recording
	if atomic.LoadInt32(&e.isRecording) == 1 && e.wavEncoder != nil {
		for i, sample := range e.inputBuffer {
			e.sampleBuf.Data[i] = int(sample * math.MaxInt16)
		}

		e.sampleBuf.Data = e.sampleBuf.Data[:len(e.inputBuffer)]

		if err := e.wavEncoder.Write(e.sampleBuf); err != nil {
			log.Errorf("Audio: WAV write failed: %v", err)
		}
	}
}

// processBuffer runs feature extraction for one block and publishes the
// results. Hot path: no allocations beyond the published field group.
func (e *Engine) processBuffer(buffer []float32) {
	mono := e.downmix(buffer)

	// Gated blocks still keep the rolling window moving so tempo analysis
	// sees real silence, but beat detection is skipped.
	gated := e.gateEnabled.Load() &&
		peakAmplitude(mono) <= math.Float32frombits(e.gateThreshold.Load())

	now := e.Now()
	e.state.PublishShortTerm(e.extractShortTerm(mono, now, gated))

	e.maybeTriggerTempo()
}

// extractShortTerm computes the per-block field group. A failed extraction
// is contained here and degrades to zero volume with the beat state left
// alone, keeping the stream alive.
func (e *Engine) extractShortTerm(mono []float32, now float64, gated bool) (st *analysis.ShortTerm) {
	lastBeat := e.clock.LastBeat()
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Audio: %v: %v", ErrAnalysisFault, r)
			st = &analysis.ShortTerm{Volume: 0, LastBeat: lastBeat}
		}
	}()

	volume := analysis.RMS(mono)
	e.spectral.Process(mono)
	spectrum := e.spectral.Magnitudes()
	e.window.Append(mono)

	st = &analysis.ShortTerm{
		Volume:   volume,
		Spectrum: spectrum,
		LastBeat: lastBeat,
	}

	if !gated {
		// The level flag holds for as long as bass stays above threshold;
		// only the rising edge stamps a new beat timestamp.
		detected, rising := e.detector.Process(spectrum)
		st.BeatDetected = detected
		if rising {
			st.LastBeat = now
			e.clock.Mark(now)
		}
	}

	return st
}

// downmix reduces an interleaved buffer to mono by taking the first channel
// of each frame, as the analysis chain works on mono signal.
func (e *Engine) downmix(buffer []float32) []float32 {
	if e.config.Audio.Channels == 1 {
		return buffer
	}
	for i := range e.config.Audio.FramesPerBuffer {
		if i*e.config.Audio.Channels < len(buffer) {
			e.monoInput[i] = buffer[i*e.config.Audio.Channels]
		} else {
			e.monoInput[i] = 0 // Safety fallback
		}
	}
	return e.monoInput
}

// maybeTriggerTempo launches an asynchronous tempo pass when the rolling
// window is full and holds content not yet analyzed. At most one pass runs
// at a time; triggers arriving while one is in flight are dropped, the next
// full window retries.
func (e *Engine) maybeTriggerTempo() {
	if !e.window.Full() {
		return
	}
	total := e.window.Total()
	if total < e.lastTempoTotal+uint64(e.window.Capacity()) {
		return
	}
	if !e.tempoBusy.CompareAndSwap(false, true) {
		return
	}
	e.lastTempoTotal = total

	n := e.window.Snapshot(e.tempoWindow)
	samples := e.tempoWindow[:n]

	go func() {
		defer e.tempoBusy.Store(false)
		e.tempo.Run(samples, e.state, e.clock)
	}()
}

func peakAmplitude(buffer []float32) float32 {
	var peak float32
	for _, sample := range buffer {
		if sample < 0 {
			sample = -sample
		}
		if sample > peak {
			peak = sample
		}
	}
	return peak
}
