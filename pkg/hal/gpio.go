// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package hal binds the radio codec to host GPIO pins through periph.io.
package hal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"
)

// ErrPinNotFound is returned for a pin name the host does not know
var ErrPinNotFound = errors.New("pin not found")

// edgePoll bounds how long Watch waits for an edge before checking its context
const edgePoll = 100 * time.Millisecond

// Init loads the host drivers. It must run before any pin is opened.
func Init() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize host drivers: %w", err)
	}
	return nil
}

// Lookup returns the pin registered under name, e.g. "GPIO17" or "11"
func Lookup(name string) (gpio.PinIO, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("%w: %s", ErrPinNotFound, name)
	}
	return pin, nil
}

// PinNames returns the names of every registered pin, sorted
func PinNames() []string {
	var names []string
	for _, p := range gpioreg.All() {
		names = append(names, p.Name())
	}
	sort.Strings(names)
	return names
}

// OutputPin drives a transmitter data line
type OutputPin struct {
	pin gpio.PinIO
}

// NewOutput wraps pin. The pin is only claimed as an output on the first Out.
func NewOutput(pin gpio.PinIO) *OutputPin {
	return &OutputPin{pin: pin}
}

// OpenOutput looks up name and wraps it
func OpenOutput(name string) (*OutputPin, error) {
	pin, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return NewOutput(pin), nil
}

// Out drives the line
func (o *OutputPin) Out(high bool) error {
	if err := o.pin.Out(gpio.Level(high)); err != nil {
		return fmt.Errorf("%s: %w", o.pin.Name(), err)
	}
	return nil
}

// Release turns the line back into a pulled down input
func (o *OutputPin) Release() error {
	if err := o.pin.In(gpio.PullDown, gpio.NoEdge); err != nil {
		return fmt.Errorf("%s: %w", o.pin.Name(), err)
	}
	return nil
}

func (o *OutputPin) String() string {
	return o.pin.String()
}

// EdgeHandler receives every edge seen on an input line
type EdgeHandler interface {
	HandleEdge(level bool, now uint32)
}

// Micros is a wrapping microsecond counter
type Micros interface {
	Micros() uint32
}

// InputPin watches a receiver data line for edges
type InputPin struct {
	pin gpio.PinIO
}

// NewInput configures pin as an input with edge detection on both edges
func NewInput(pin gpio.PinIO, pull gpio.Pull) (*InputPin, error) {
	if err := pin.In(pull, gpio.BothEdges); err != nil {
		return nil, fmt.Errorf("%s: %w", pin.Name(), err)
	}
	return &InputPin{pin: pin}, nil
}

// OpenInput looks up name and configures it with the default pull
func OpenInput(name string) (*InputPin, error) {
	pin, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return NewInput(pin, gpio.PullNoChange)
}

// Watch feeds every edge to h, stamped with clock, until ctx is done.
// It returns nil on cancellation.
func (i *InputPin) Watch(ctx context.Context, clock Micros, h EdgeHandler) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		if !i.pin.WaitForEdge(edgePoll) {
			continue
		}
		now := clock.Micros()
		h.HandleEdge(bool(i.pin.Read()), now)
	}
}

// Halt stops edge detection
func (i *InputPin) Halt() error {
	if err := i.pin.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return fmt.Errorf("%s: %w", i.pin.Name(), err)
	}
	return i.pin.Halt()
}

func (i *InputPin) String() string {
	return i.pin.String()
}
