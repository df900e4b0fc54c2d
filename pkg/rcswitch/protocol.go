// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rcswitch

import (
	"errors"
	"fmt"
)

// Pulse is a high period followed by a low period, both expressed in
// multiples of the protocol pulse length. A pulse {1, 3} on a 350us protocol
// is 350us high then 1050us low.
type Pulse struct {
	High uint8
	Low  uint8
}

// Units returns the total pulse length in base units
func (p Pulse) Units() uint32 {
	return uint32(p.High) + uint32(p.Low)
}

// Protocol describes how zero and one bits are encoded into pulses
type Protocol struct {
	// PulseLength is the base unit in microseconds
	PulseLength uint16

	Sync Pulse
	Zero Pulse
	One  Pulse

	// Inverted swaps the high and low line levels of every pulse
	Inverted bool

	// Name is informational only
	Name string
}

var (
	// ErrInvalidProtocol is returned for a catalogue index outside 1..NumProtocols
	ErrInvalidProtocol = errors.New("invalid protocol index")

	// ErrInvalidPulseLength is returned for a zero pulse length
	ErrInvalidPulseLength = errors.New("invalid pulse length")
)

// protocols is the fixed catalogue, indexed from 1 by callers.
var protocols = [...]Protocol{
	{PulseLength: 350, Sync: Pulse{1, 31}, Zero: Pulse{1, 3}, One: Pulse{3, 1}, Name: "PT2262/EV1527"},
	{PulseLength: 650, Sync: Pulse{1, 10}, Zero: Pulse{1, 2}, One: Pulse{2, 1}},
	{PulseLength: 100, Sync: Pulse{30, 71}, Zero: Pulse{4, 11}, One: Pulse{9, 6}},
	{PulseLength: 380, Sync: Pulse{1, 6}, Zero: Pulse{1, 3}, One: Pulse{3, 1}},
	{PulseLength: 500, Sync: Pulse{6, 14}, Zero: Pulse{1, 2}, One: Pulse{2, 1}},
	{PulseLength: 450, Sync: Pulse{23, 1}, Zero: Pulse{1, 2}, One: Pulse{2, 1}, Inverted: true, Name: "HT6P20B"},
	{PulseLength: 150, Sync: Pulse{2, 62}, Zero: Pulse{1, 6}, One: Pulse{6, 1}, Name: "HS2303-PT"},
	{PulseLength: 104, Sync: Pulse{32, 33}, Zero: Pulse{4, 5}, One: Pulse{4, 13}, Name: "mini"},
}

// NumProtocols returns the number of catalogue entries
func NumProtocols() int {
	return len(protocols)
}

// LookupProtocol returns a copy of the catalogue entry at the 1-based index
func LookupProtocol(index int) (Protocol, error) {
	if index < 1 || index > len(protocols) {
		return Protocol{}, fmt.Errorf("%w: %d (valid 1-%d)", ErrInvalidProtocol, index, len(protocols))
	}
	return protocols[index-1], nil
}

// Protocols returns a copy of the whole catalogue
func Protocols() []Protocol {
	out := make([]Protocol, len(protocols))
	copy(out, protocols[:])
	return out
}

// SyncUnits returns the longer side of the sync pulse. That side is the one
// a receiver captures as the first entry of a burst.
func (p Protocol) SyncUnits() uint32 {
	if p.Sync.Low > p.Sync.High {
		return uint32(p.Sync.Low)
	}
	return uint32(p.Sync.High)
}

// Validate checks the invariants every catalogue entry satisfies
func (p Protocol) Validate() error {
	if p.PulseLength == 0 {
		return ErrInvalidPulseLength
	}
	for name, pulse := range map[string]Pulse{"sync": p.Sync, "zero": p.Zero, "one": p.One} {
		if pulse.High == 0 || pulse.Low == 0 {
			return fmt.Errorf("%s pulse has a zero component: %+v", name, pulse)
		}
	}
	return nil
}
