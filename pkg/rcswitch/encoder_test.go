// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rcswitch

import (
	"errors"
	"testing"
)

func TestEncodeCode_MSBFirst(t *testing.T) {
	p, _ := LookupProtocol(1)
	pulses, err := EncodeCode(p, 0b1011, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []Pulse{p.One, p.Zero, p.One, p.One, p.Sync}
	if len(pulses) != len(want) {
		t.Fatalf("expected %d pulses, got %d", len(want), len(pulses))
	}
	for i := range want {
		if pulses[i] != want[i] {
			t.Errorf("pulse %d: expected %+v, got %+v", i, want[i], pulses[i])
		}
	}
}

func TestEncodeCode_TruncatesToBitLength(t *testing.T) {
	p, _ := LookupProtocol(1)
	pulses, _ := EncodeCode(p, 0xFF01, 8)
	for i, pulse := range pulses[:7] {
		if pulse != p.Zero {
			t.Errorf("pulse %d: expected zero, got %+v", i, pulse)
		}
	}
	if pulses[7] != p.One {
		t.Errorf("expected last data pulse to be one, got %+v", pulses[7])
	}
}

func TestEncodeCode_ZeroBitsIsSyncOnly(t *testing.T) {
	p, _ := LookupProtocol(2)
	pulses, err := EncodeCode(p, 0xFFFF, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pulses) != 1 || pulses[0] != p.Sync {
		t.Errorf("expected sync only, got %+v", pulses)
	}
}

func TestEncodeCode_BitLengthLimit(t *testing.T) {
	p, _ := LookupProtocol(1)
	if _, err := EncodeCode(p, 1, 64); err != nil {
		t.Errorf("64 bits should be accepted: %v", err)
	}
	if _, err := EncodeCode(p, 1, 65); !errors.Is(err, ErrBitLength) {
		t.Errorf("expected ErrBitLength for 65 bits, got %v", err)
	}
}

func TestEncodeBytes_MiniScenario(t *testing.T) {
	code := []byte{0x20, 0x1D, 0xDF, 0xE2, 0x57}
	pulses, err := EncodeBytes(MiniProtocol, code, 40)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pulses) != 41 {
		t.Fatalf("expected 40 data pulses and 1 sync, got %d pulses", len(pulses))
	}

	bits := "0010000000011101110111111110001001010111"
	for i, c := range bits {
		want := MiniProtocol.Zero
		if c == '1' {
			want = MiniProtocol.One
		}
		if pulses[i] != want {
			t.Errorf("bit %d: expected %+v, got %+v", i, want, pulses[i])
		}
	}
	if pulses[40] != MiniProtocol.Sync {
		t.Errorf("expected trailing sync, got %+v", pulses[40])
	}
}

func TestEncodeBytes_PartialByte(t *testing.T) {
	pulses, err := EncodeBytes(MiniProtocol, []byte{0xFF, 0xA0}, 11)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pulses) != 12 {
		t.Fatalf("expected 12 pulses, got %d", len(pulses))
	}
	// top three bits of 0xA0 are 101
	tail := []Pulse{MiniProtocol.One, MiniProtocol.Zero, MiniProtocol.One}
	for i, want := range tail {
		if pulses[8+i] != want {
			t.Errorf("bit %d: expected %+v, got %+v", 8+i, want, pulses[8+i])
		}
	}
}

func TestEncodeBytes_TooManyBits(t *testing.T) {
	if _, err := EncodeBytes(MiniProtocol, []byte{0x01}, 9); !errors.Is(err, ErrBitLength) {
		t.Errorf("expected ErrBitLength, got %v", err)
	}
}

func TestSegments_Polarity(t *testing.T) {
	normal, _ := LookupProtocol(1)
	segs := normal.Segments([]Pulse{normal.Sync})
	if !segs[0].High || segs[0].Micros != 350 || segs[1].High || segs[1].Micros != 350*31 {
		t.Errorf("unexpected segments: %+v", segs)
	}

	inverted, _ := LookupProtocol(6)
	segs = inverted.Segments([]Pulse{inverted.Sync})
	if segs[0].High || segs[0].Micros != 450*23 || !segs[1].High {
		t.Errorf("unexpected inverted segments: %+v", segs)
	}
}

func TestFormatPulses(t *testing.T) {
	p, _ := LookupProtocol(1)
	if got := FormatPulses(p, []Pulse{p.Zero}); got != "▔▁▁▁" {
		t.Errorf("unexpected waveform %q", got)
	}
}
