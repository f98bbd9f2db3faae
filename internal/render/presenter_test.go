// SPDX-License-Identifier: MIT
package render

import (
	"encoding/binary"
	"image"
	"image/color"
	"testing"
)

func TestFramePackerEncoding(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 4, 2))
	frame.SetRGBA(0, 0, color.RGBA{R: 1, G: 2, B: 3, A: 4})

	fp := newFramePacker()
	packet, err := fp.pack(frame)
	if err != nil {
		t.Fatalf("pack failed: %v", err)
	}

	wantLen := 4 + 8 + 2 + 2 + 4*2*4
	if len(packet) != wantLen {
		t.Fatalf("Packet length: got %d, want %d", len(packet), wantLen)
	}

	if seq := binary.BigEndian.Uint32(packet[0:4]); seq != 1 {
		t.Errorf("First sequence number: got %d, want 1", seq)
	}
	if ts := int64(binary.BigEndian.Uint64(packet[4:12])); ts <= 0 {
		t.Errorf("Timestamp not set: %d", ts)
	}
	if w := binary.BigEndian.Uint16(packet[12:14]); w != 4 {
		t.Errorf("Width: got %d, want 4", w)
	}
	if h := binary.BigEndian.Uint16(packet[14:16]); h != 2 {
		t.Errorf("Height: got %d, want 2", h)
	}

	// First pixel follows the header verbatim.
	if packet[16] != 1 || packet[17] != 2 || packet[18] != 3 || packet[19] != 4 {
		t.Errorf("First pixel bytes: got %v", packet[16:20])
	}
}

func TestFramePackerSequenceIncrements(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 2, 2))
	fp := newFramePacker()

	for want := uint32(1); want <= 3; want++ {
		packet, err := fp.pack(frame)
		if err != nil {
			t.Fatalf("pack %d failed: %v", want, err)
		}
		if seq := binary.BigEndian.Uint32(packet[0:4]); seq != want {
			t.Errorf("Sequence: got %d, want %d", seq, want)
		}
	}
}

func TestNullPresenter(t *testing.T) {
	var p NullPresenter
	if err := p.Present(image.NewRGBA(image.Rect(0, 0, 1, 1))); err != nil {
		t.Errorf("NullPresenter.Present: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("NullPresenter.Close: %v", err)
	}
}

func TestFanoutDeliversToAll(t *testing.T) {
	a := &recordingPresenter{}
	b := &recordingPresenter{}
	fan := Fanout{a, b}

	frame := image.NewRGBA(image.Rect(0, 0, 2, 2))
	if err := fan.Present(frame); err != nil {
		t.Fatalf("Fanout.Present: %v", err)
	}

	if got, _ := a.snapshot(); got != 1 {
		t.Errorf("First presenter frames: got %d, want 1", got)
	}
	if got, _ := b.snapshot(); got != 1 {
		t.Errorf("Second presenter frames: got %d, want 1", got)
	}

	if err := fan.Close(); err != nil {
		t.Errorf("Fanout.Close: %v", err)
	}
}

func TestUDPPresenterDownsamples(t *testing.T) {
	p := &UDPPresenter{
		packer:  newFramePacker(),
		preview: image.NewRGBA(image.Rect(0, 0, udpPreviewWidth, udpPreviewHeight)),
	}

	frame := image.NewRGBA(image.Rect(0, 0, 960, 540))
	fillFrame(frame, color.RGBA{R: 9, G: 8, B: 7, A: 255})

	p.downsample(frame)

	for _, pt := range [][2]int{{0, 0}, {udpPreviewWidth - 1, udpPreviewHeight - 1}} {
		if got := p.preview.RGBAAt(pt[0], pt[1]); got != (color.RGBA{R: 9, G: 8, B: 7, A: 255}) {
			t.Fatalf("Preview pixel (%d,%d): got %v", pt[0], pt[1], got)
		}
	}

	packet, err := p.packer.pack(p.preview)
	if err != nil {
		t.Fatalf("pack failed: %v", err)
	}
	// Preview packets must fit a UDP datagram.
	if len(packet) > 65507 {
		t.Errorf("Preview packet too large for UDP: %d bytes", len(packet))
	}
}
