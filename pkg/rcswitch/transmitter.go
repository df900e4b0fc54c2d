// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rcswitch

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

var (
	// ErrInvalidRepeat is returned for a repeat count below one
	ErrInvalidRepeat = errors.New("repeat count must be at least 1")

	// ErrNotEnabled is returned when transmitting on a disabled output
	ErrNotEnabled = errors.New("output not enabled")
)

// TransmitterConfig configures a Transmitter
type TransmitterConfig struct {
	Line  OutputLine
	Clock Clock

	// Receiver, when set, shares the radio with this transmitter and has its
	// edge detection suspended while a code is on the air.
	Receiver *Receiver

	Log logrus.FieldLogger
}

// Transmitter sends integer codes using a protocol from the catalogue
type Transmitter struct {
	line  OutputLine
	clock Clock
	rx    *Receiver
	log   logrus.FieldLogger

	index    int
	protocol Protocol
	repeat   int
	enabled  bool
}

// NewTransmitter creates a transmitter set to protocol 1 with the default
// repeat count. The output stays unclaimed until Enable.
func NewTransmitter(cfg TransmitterConfig) *Transmitter {
	p, _ := LookupProtocol(DefaultProtocol)
	return &Transmitter{
		line:     cfg.Line,
		clock:    cfg.Clock,
		rx:       cfg.Receiver,
		log:      loggerOrDiscard(cfg.Log),
		index:    DefaultProtocol,
		protocol: p,
		repeat:   DefaultRepeatTransmit,
	}
}

// SetProtocol selects a catalogue entry. The entry is copied, so a pulse
// length override made earlier is discarded.
func (t *Transmitter) SetProtocol(index int) error {
	p, err := LookupProtocol(index)
	if err != nil {
		return err
	}
	t.index = index
	t.protocol = p
	return nil
}

// SetPulseLength overrides the base unit of the selected protocol
func (t *Transmitter) SetPulseLength(us uint16) error {
	if us == 0 {
		return ErrInvalidPulseLength
	}
	t.protocol.PulseLength = us
	return nil
}

// SetRepeatTransmit sets how many times each code is sent
func (t *Transmitter) SetRepeatTransmit(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidRepeat, n)
	}
	t.repeat = n
	return nil
}

// Protocol returns the selected index and the active protocol record
func (t *Transmitter) Protocol() (int, Protocol) {
	return t.index, t.protocol
}

// RepeatTransmit returns the repeat count
func (t *Transmitter) RepeatTransmit() int {
	return t.repeat
}

// Enable claims the output line and drives it inactive
func (t *Transmitter) Enable() error {
	if err := t.line.Out(false); err != nil {
		return fmt.Errorf("enable output: %w", err)
	}
	t.enabled = true
	return nil
}

// Disable leaves the line low whatever the protocol polarity, then
// releases it.
func (t *Transmitter) Disable() error {
	t.enabled = false
	if err := t.line.Out(false); err != nil {
		return fmt.Errorf("disable output: %w", err)
	}
	return t.line.Release()
}

// Enabled reports whether the output is claimed
func (t *Transmitter) Enabled() bool {
	return t.enabled
}

// Pulses returns one repetition of code as it would be sent
func (t *Transmitter) Pulses(code uint64, bitLength uint) ([]Pulse, error) {
	return EncodeCode(t.protocol, code, bitLength)
}

// Transmit sends the low bitLength bits of code, MSB first, followed by the
// sync pulse, RepeatTransmit times. The call busy-waits for the whole burst.
func (t *Transmitter) Transmit(code uint64, bitLength uint) error {
	if !t.enabled {
		return ErrNotEnabled
	}
	pulses, err := EncodeCode(t.protocol, code, bitLength)
	if err != nil {
		return err
	}

	if t.rx != nil {
		prev := t.rx.Suspend()
		defer t.rx.Resume(prev)
	}

	unit := uint32(t.protocol.PulseLength)
	for n := 0; n < t.repeat && err == nil; n++ {
		for _, pulse := range pulses {
			if err = sendPulse(t.line, t.clock, unit, pulse, t.protocol.Inverted); err != nil {
				break
			}
		}
	}

	// inverted protocols end with the line asserted
	if lowErr := t.line.Out(false); err == nil {
		err = lowErr
	}
	if err != nil {
		return fmt.Errorf("transmit %#x: %w", code, err)
	}

	t.log.WithFields(logrus.Fields{
		"protocol": t.index,
		"code":     fmt.Sprintf("%#x", code),
		"bits":     bitLength,
		"repeat":   t.repeat,
	}).Debug("code transmitted")
	return nil
}
