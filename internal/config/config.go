// SPDX-License-Identifier: MIT
package config

import (
	"fmt"

	"lumen/pkg/bitint"
)

// Core configuration constants that define the boundaries and defaults for
// the capture, analysis and render subsystems.
const (
	// Audio capture defaults
	DefaultChannels        = 1           // Mono capture
	DefaultDeviceID        = MinDeviceID // System default device
	DefaultFramesPerBuffer = 1024        // Balanced latency/FFT resolution
	DefaultLowLatency      = false
	DefaultSampleRate      = 44100

	// Analysis defaults. The beat threshold multiplier and the tempo
	// confidence formula are inherited heuristics; they are exposed here
	// rather than auto-calibrated.
	DefaultWindowSeconds   = 3.0 // Rolling window for tempo analysis
	DefaultBassBins        = 20  // Spectral bins summed for bass energy
	DefaultBeatSensitivity = 2.0 // Threshold = mean spectral energy times this
	DefaultTempoMinBPM     = 60.0
	DefaultTempoMaxBPM     = 200.0
	DefaultTempoSmoothing  = 0.2 // EMA weight of a fresh tempo estimate

	// Render defaults
	DefaultFrameWidth  = 960
	DefaultFrameHeight = 540
	DefaultTargetFPS   = 60
	DefaultBackground  = "base"
	DefaultOverlay     = "default"

	// Recording defaults
	DefaultRecordInputStream = false
	DefaultOutputFile        = "" // Auto-generated filename

	// Hardware and processing limits
	MinDeviceID     = -1 // -1 selects the system default device
	MinSampleRate   = 8000
	MaxSampleRate   = 192000
	MaxBufferFrames = 8192
)

// Config holds all runtime configuration. It is built from defaults, then a
// YAML file, then environment overrides, then command line flags.
type Config struct {
	Debug    bool   `yaml:"debug"`
	LogLevel string `yaml:"log_level"`
	Command  string `yaml:"-"` // One-off command (e.g. "list"), CLI only
	Headless bool   `yaml:"-"` // Run without the control dashboard, CLI only

	Audio     AudioConfig     `yaml:"audio"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Render    RenderConfig    `yaml:"render"`
	Recording RecordingConfig `yaml:"recording"`
	Present   PresentConfig   `yaml:"present"`
}

// AudioConfig holds capture settings.
type AudioConfig struct {
	DeviceID        int     `yaml:"device"`            // Input device index, -1 for default
	Channels        int     `yaml:"channels"`          // 1=mono, 2=stereo
	SampleRate      float64 `yaml:"sample_rate"`       // Hz
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Capture block size (power of 2)
	LowLatency      bool    `yaml:"low_latency"`
	Enabled         bool    `yaml:"enabled"` // Run visuals without audio when false
}

// AnalysisConfig holds feature extraction settings.
type AnalysisConfig struct {
	WindowSeconds   float64 `yaml:"window_seconds"`   // Rolling tempo window length
	BassBins        int     `yaml:"bass_bins"`        // Bins summed for the beat trigger
	BeatSensitivity float64 `yaml:"beat_sensitivity"` // Beat threshold multiplier
	TempoMinBPM     float64 `yaml:"tempo_min_bpm"`
	TempoMaxBPM     float64 `yaml:"tempo_max_bpm"`
	TempoSmoothing  float64 `yaml:"tempo_smoothing"` // Weight of a fresh estimate
}

// RenderConfig holds frame composition settings.
type RenderConfig struct {
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	TargetFPS  int    `yaml:"target_fps"`
	Background string `yaml:"background"` // Color layer name
	Overlay    string `yaml:"overlay"`    // Effect layer name
}

// RecordingConfig holds capture recording settings.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	OutputFile string `yaml:"output_file"`
}

// PresentConfig holds frame presentation settings.
type PresentConfig struct {
	WebSocketEnabled bool   `yaml:"websocket_enabled"`
	WebSocketAddr    string `yaml:"websocket_addr"`
	UDPEnabled       bool   `yaml:"udp_enabled"`
	UDPTargetAddress string `yaml:"udp_target_address"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Debug:    false,
		LogLevel: "info",
		Audio: AudioConfig{
			DeviceID:        DefaultDeviceID,
			Channels:        DefaultChannels,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
			Enabled:         true,
		},
		Analysis: AnalysisConfig{
			WindowSeconds:   DefaultWindowSeconds,
			BassBins:        DefaultBassBins,
			BeatSensitivity: DefaultBeatSensitivity,
			TempoMinBPM:     DefaultTempoMinBPM,
			TempoMaxBPM:     DefaultTempoMaxBPM,
			TempoSmoothing:  DefaultTempoSmoothing,
		},
		Render: RenderConfig{
			Width:      DefaultFrameWidth,
			Height:     DefaultFrameHeight,
			TargetFPS:  DefaultTargetFPS,
			Background: DefaultBackground,
			Overlay:    DefaultOverlay,
		},
		Recording: RecordingConfig{
			Enabled:    DefaultRecordInputStream,
			OutputFile: DefaultOutputFile,
		},
		Present: PresentConfig{
			WebSocketEnabled: false,
			WebSocketAddr:    ":8080",
			UDPEnabled:       false,
			UDPTargetAddress: "127.0.0.1:9090",
		},
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return fmt.Errorf("sample rate %.0f outside [%d, %d]", c.Audio.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if c.Audio.Channels < 1 || c.Audio.Channels > 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", c.Audio.Channels)
	}
	if !bitint.IsPowerOfTwo(c.Audio.FramesPerBuffer) || c.Audio.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("frames per buffer must be a power of 2 up to %d, got %d", MaxBufferFrames, c.Audio.FramesPerBuffer)
	}
	if c.Analysis.WindowSeconds <= 0 {
		return fmt.Errorf("analysis window must be positive, got %f", c.Analysis.WindowSeconds)
	}
	if c.Analysis.TempoMinBPM <= 0 || c.Analysis.TempoMaxBPM <= c.Analysis.TempoMinBPM {
		return fmt.Errorf("invalid tempo range [%.0f, %.0f]", c.Analysis.TempoMinBPM, c.Analysis.TempoMaxBPM)
	}
	if c.Analysis.TempoSmoothing < 0 || c.Analysis.TempoSmoothing > 1 {
		return fmt.Errorf("tempo smoothing must be in [0,1], got %f", c.Analysis.TempoSmoothing)
	}
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		return fmt.Errorf("frame size must be positive, got %dx%d", c.Render.Width, c.Render.Height)
	}
	if c.Render.TargetFPS <= 0 {
		return fmt.Errorf("target FPS must be positive, got %d", c.Render.TargetFPS)
	}
	return nil
}

// WindowSamples returns the rolling window capacity in samples.
func (c *Config) WindowSamples() int {
	return int(c.Analysis.WindowSeconds * c.Audio.SampleRate)
}
