// SPDX-License-Identifier: MIT
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if cfg == nil {
		t.Fatal("expected default config, got nil")
	}
	if cfg.Audio.SampleRate != DefaultSampleRate {
		t.Errorf("default sample rate = %.0f, want %d", cfg.Audio.SampleRate, DefaultSampleRate)
	}
	if cfg.Analysis.BeatSensitivity != DefaultBeatSensitivity {
		t.Errorf("default beat sensitivity = %.1f, want %.1f", cfg.Analysis.BeatSensitivity, DefaultBeatSensitivity)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	if err == nil {
		t.Errorf("expected error for missing file, got nil")
	}
	if cfg != nil {
		t.Errorf("expected nil config on error, got %+v", cfg)
	}
}

func TestLoad_UnmarshalError(t *testing.T) {
	path := writeTempConfig(t, ":\n:bad")
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Error("expected unmarshal error, got nil or wrong error")
	}
}

func TestLoad_FileValues(t *testing.T) {
	path := writeTempConfig(t, `
audio:
  device: 3
  sample_rate: 48000
render:
  width: 1280
  height: 720
  background: radial
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Audio.DeviceID != 3 {
		t.Errorf("device = %d, want 3", cfg.Audio.DeviceID)
	}
	if cfg.Audio.SampleRate != 48000 {
		t.Errorf("sample rate = %.0f, want 48000", cfg.Audio.SampleRate)
	}
	if cfg.Render.Width != 1280 || cfg.Render.Height != 720 {
		t.Errorf("frame = %dx%d, want 1280x720", cfg.Render.Width, cfg.Render.Height)
	}
	if cfg.Render.Background != "radial" {
		t.Errorf("background = %q, want radial", cfg.Render.Background)
	}
	// Untouched sections keep defaults.
	if cfg.Analysis.TempoMaxBPM != DefaultTempoMaxBPM {
		t.Errorf("tempo max = %.0f, want %.0f", cfg.Analysis.TempoMaxBPM, DefaultTempoMaxBPM)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad sample rate", "audio:\n  sample_rate: 100\n"},
		{"bad buffer", "audio:\n  frames_per_buffer: 1000\n"},
		{"bad channels", "audio:\n  channels: 5\n"},
		{"bad tempo range", "analysis:\n  tempo_min_bpm: 200\n  tempo_max_bpm: 60\n"},
		{"bad fps", "render:\n  target_fps: 0\n"},
		{"bad frame size", "render:\n  width: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempConfig(t, tt.yaml)
			if _, err := Load(path); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("LUMEN_DEVICE", "7")
	t.Setenv("LUMEN_WS_ADDR", ":9999")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Audio.DeviceID != 7 {
		t.Errorf("device = %d, want 7 from env", cfg.Audio.DeviceID)
	}
	if !cfg.Present.WebSocketEnabled || cfg.Present.WebSocketAddr != ":9999" {
		t.Errorf("websocket addr = %q enabled=%v, want :9999 enabled", cfg.Present.WebSocketAddr, cfg.Present.WebSocketEnabled)
	}
}

func TestWindowSamples(t *testing.T) {
	cfg := NewConfig()
	want := int(DefaultWindowSeconds * DefaultSampleRate)
	if got := cfg.WindowSamples(); got != want {
		t.Errorf("WindowSamples = %d, want %d", got, want)
	}
}
