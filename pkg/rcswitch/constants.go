// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package rcswitch provides a Go implementation of the pulse-train codec used
// by 315/433 MHz on-off-keyed remote control sockets and their transmitters.
//
// A code word is sent as a run of pulses, each pulse being a high period
// followed by a low period measured in multiples of a protocol specific base
// unit. The package encodes integer codes into pulse trains, drives an output
// line with busy-waited timing, captures edge-to-edge durations from an
// input line and decodes captured bursts back into codes.
package rcswitch

// Transmit defaults
const (
	DefaultProtocol       = 1
	DefaultRepeatTransmit = 10
	MaxBitLength          = 64
)

// Receive defaults. Durations are in microseconds.
const (
	DefaultTolerance = 60

	// MaxTolerance bounds the tolerance so the unit delay times the
	// percentage stays far inside 64 bits.
	MaxTolerance = 1000

	// DefaultSeparationLimit is the shortest silence treated as the gap
	// between two transmissions.
	DefaultSeparationLimit = 3000

	// DefaultMaxSeparation rejects multi-second stalls as noise.
	DefaultMaxSeparation = 40000

	// DefaultMinBurst is the entry count a burst must exceed before a decode
	// is attempted.
	DefaultMinBurst = 7

	// MaxChanges is the capture buffer capacity: 64 data bits with two
	// edges each plus the two sync edges.
	MaxChanges = 2*MaxBitLength + 2
)

// minDecodeEntries is the smallest burst any real transmitter produces.
const minDecodeEntries = 8
