// SPDX-License-Identifier: MIT
package render

import (
	"image"
	"testing"

	"lumen/internal/analysis"
)

func TestRegistryFallback(t *testing.T) {
	r := Colors()

	layer := r.Build("no-such-color", 64, 64)
	if layer == nil {
		t.Fatal("Unknown name should fall back, not return nil")
	}
	if _, ok := layer.(*BaseColor); !ok {
		t.Errorf("Fallback should be the base color, got %T", layer)
	}
}

func TestRegistryKnownNames(t *testing.T) {
	colors := Colors()
	for _, name := range []string{"base", "red", "green", "blue", "purple", "yellow", "radial", "rainbow"} {
		if !colors.Has(name) {
			t.Errorf("Color catalog missing %q", name)
		}
		if colors.Build(name, 32, 32) == nil {
			t.Errorf("Color %q built nil layer", name)
		}
	}

	effects := Effects()
	for _, name := range []string{"default", "pulse", "square"} {
		if !effects.Has(name) {
			t.Errorf("Effect catalog missing %q", name)
		}
		if effects.Build(name, 32, 32) == nil {
			t.Errorf("Effect %q built nil layer", name)
		}
	}
}

func TestRegistryNamesSorted(t *testing.T) {
	names := Effects().Names()
	if len(names) != 3 {
		t.Fatalf("Expected 3 effects, got %d: %v", len(names), names)
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("Names not sorted: %v", names)
		}
	}
}

func TestRegistryRegisterOverride(t *testing.T) {
	r := NewRegistry("only")
	called := false
	r.Register("only", func(width, height int) Layer {
		called = true
		return NewBaseColor(width, height)
	})

	r.Build("whatever", 16, 16)
	if !called {
		t.Error("Custom constructor was not used as fallback")
	}
}

// newTestFrame returns a small frame plus a snapshot for reactive layers.
func newTestFrame(w, h int) (*image.RGBA, *analysis.Snapshot) {
	frame := image.NewRGBA(image.Rect(0, 0, w, h))
	snap := &analysis.Snapshot{
		Volume:       0.5,
		BeatDetected: false,
		Beat:         analysis.NeutralBeatState(),
		BeatProgress: 0.25,
	}
	return frame, snap
}
