// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rcswitch

import "fmt"

// MiniProtocol is the fixed timing of the mini transmitter. It is held by
// value so the mini transmitter never depends on the catalogue or on the
// session of a Transmitter sharing the same line.
var MiniProtocol = Protocol{
	PulseLength: 104,
	Sync:        Pulse{32, 33},
	Zero:        Pulse{4, 5},
	One:         Pulse{4, 13},
	Name:        "mini",
}

// MiniTransmitter sends byte buffers with the MiniProtocol timing
type MiniTransmitter struct {
	line  OutputLine
	clock Clock
	rx    *Receiver
}

// NewMiniTransmitter creates a mini transmitter. rx may be nil.
func NewMiniTransmitter(line OutputLine, clock Clock, rx *Receiver) *MiniTransmitter {
	return &MiniTransmitter{line: line, clock: clock, rx: rx}
}

// Pulses returns one repetition of code as it would be sent
func (m *MiniTransmitter) Pulses(code []byte, bits uint) ([]Pulse, error) {
	return EncodeBytes(MiniProtocol, code, bits)
}

// Transmit sends the first bits bits of code, repeats times, with a sync
// pulse after each repetition. The output is claimed low first.
func (m *MiniTransmitter) Transmit(code []byte, bits uint, repeats int) error {
	if repeats < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidRepeat, repeats)
	}
	pulses, err := EncodeBytes(MiniProtocol, code, bits)
	if err != nil {
		return err
	}

	if m.rx != nil {
		prev := m.rx.Suspend()
		defer m.rx.Resume(prev)
	}

	if err := m.line.Out(false); err != nil {
		return fmt.Errorf("enable output: %w", err)
	}

	unit := uint32(MiniProtocol.PulseLength)
	for n := 0; n < repeats && err == nil; n++ {
		for _, pulse := range pulses {
			if err = sendPulse(m.line, m.clock, unit, pulse, false); err != nil {
				break
			}
		}
	}

	if lowErr := m.line.Out(false); err == nil {
		err = lowErr
	}
	if err != nil {
		return fmt.Errorf("mini transmit: %w", err)
	}
	return nil
}
