// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rcswitch

import (
	"errors"
	"fmt"
)

// ErrBitLength is returned when a bit count does not fit the code
var ErrBitLength = errors.New("invalid bit length")

// Segment is a period during which the line holds one level
type Segment struct {
	High   bool
	Micros uint32
}

// EncodeCode returns the pulses of one repetition of code: bitLength data
// pulses sent MSB first followed by the sync pulse. A bitLength of zero
// yields the sync pulse alone.
func EncodeCode(p Protocol, code uint64, bitLength uint) ([]Pulse, error) {
	if bitLength > MaxBitLength {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrBitLength, bitLength, MaxBitLength)
	}

	pulses := make([]Pulse, 0, bitLength+1)
	for i := int(bitLength) - 1; i >= 0; i-- {
		if (code>>uint(i))&1 == 1 {
			pulses = append(pulses, p.One)
		} else {
			pulses = append(pulses, p.Zero)
		}
	}
	return append(pulses, p.Sync), nil
}

// EncodeBytes returns the pulses of one repetition of a byte buffer: bits
// are taken MSB first within each byte, most significant byte first. When
// bits is not a multiple of 8 the last byte contributes its top bits%8 bits.
func EncodeBytes(p Protocol, code []byte, bits uint) ([]Pulse, error) {
	if bits > uint(len(code))*8 {
		return nil, fmt.Errorf("%w: %d bits from %d bytes", ErrBitLength, bits, len(code))
	}

	pulses := make([]Pulse, 0, bits+1)
	nbytes := (bits + 7) / 8
	for z := uint(0); z < nbytes; z++ {
		n := uint(8)
		if z == nbytes-1 && bits%8 != 0 {
			n = bits % 8
		}
		b := code[z]
		for i := uint(0); i < n; i++ {
			if b&0x80 != 0 {
				pulses = append(pulses, p.One)
			} else {
				pulses = append(pulses, p.Zero)
			}
			b <<= 1
		}
	}
	return append(pulses, p.Sync), nil
}

// Segments expands pulses into the line levels they produce under p,
// honouring the protocol polarity.
func (p Protocol) Segments(pulses []Pulse) []Segment {
	unit := uint32(p.PulseLength)
	out := make([]Segment, 0, len(pulses)*2)
	for _, pulse := range pulses {
		out = append(out,
			Segment{High: !p.Inverted, Micros: unit * uint32(pulse.High)},
			Segment{High: p.Inverted, Micros: unit * uint32(pulse.Low)},
		)
	}
	return out
}

// sendPulse asserts the line for pulse.High units then de-asserts it for
// pulse.Low units.
func sendPulse(line OutputLine, clock Clock, unit uint32, pulse Pulse, inverted bool) error {
	if err := line.Out(!inverted); err != nil {
		return err
	}
	clock.DelayMicros(unit * uint32(pulse.High))
	if err := line.Out(inverted); err != nil {
		return err
	}
	clock.DelayMicros(unit * uint32(pulse.Low))
	return nil
}
