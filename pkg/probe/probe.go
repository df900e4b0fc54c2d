// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package probe reads and writes edge streams exchanged with a USB capture
// probe, and the burst files recorded from them.
//
// A probe reports every edge it sees on its radio input as a CBOR sequence
// of two element arrays, [micros, level], where micros is the duration of
// the level that just ended and level is the new line level. Waveforms are
// handed to the probe for playback with the same framing, one array per
// segment, where level is the level to hold for micros.
package probe

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/Thermoquad/rfswitch/pkg/rcswitch"
)

// EdgeHandler receives decoded edges
type EdgeHandler interface {
	HandleEdge(level bool, now uint32)
}

// Source decodes the edge stream of a probe
type Source struct {
	dec     *cbor.Decoder
	now     uint32
	entries uint64
}

// NewSource reads edges from r
func NewSource(r io.Reader) *Source {
	return &Source{dec: cbor.NewDecoder(r)}
}

// Next returns the next edge. io.EOF is returned unwrapped at end of stream.
func (s *Source) Next() (rcswitch.Entry, error) {
	var e rcswitch.Entry
	if err := s.dec.Decode(&e); err != nil {
		if errors.Is(err, io.EOF) {
			return e, io.EOF
		}
		return e, fmt.Errorf("failed to decode edge %d: %w", s.entries, err)
	}
	s.entries++
	return e, nil
}

// Entries returns the number of edges read so far
func (s *Source) Entries() uint64 {
	return s.entries
}

// Run feeds every edge to h on a timeline rebuilt from the durations, until
// the stream ends or ctx is done. End of stream is not an error.
func (s *Source) Run(ctx context.Context, h EdgeHandler) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		e, err := s.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		s.now += e.Micros
		h.HandleEdge(e.Level, s.now)
	}
}

// WriteWaveform sends segments to a probe for playback
func WriteWaveform(w io.Writer, segments []rcswitch.Segment) error {
	enc := cbor.NewEncoder(w)
	for i, seg := range segments {
		e := rcswitch.Entry{Micros: seg.Micros, Level: seg.High}
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("failed to encode segment %d: %w", i, err)
		}
	}
	return nil
}

// BurstWriter appends bursts to a capture file as a CBOR sequence
type BurstWriter struct {
	enc *cbor.Encoder
	n   int
}

// NewBurstWriter writes bursts to w
func NewBurstWriter(w io.Writer) *BurstWriter {
	return &BurstWriter{enc: cbor.NewEncoder(w)}
}

// Write appends one burst
func (b *BurstWriter) Write(burst rcswitch.Burst) error {
	if err := b.enc.Encode(burst); err != nil {
		return fmt.Errorf("failed to encode burst %d: %w", b.n, err)
	}
	b.n++
	return nil
}

// Count returns the number of bursts written
func (b *BurstWriter) Count() int {
	return b.n
}

// ReadBursts reads every burst of a capture file
func ReadBursts(r io.Reader) ([]rcswitch.Burst, error) {
	dec := cbor.NewDecoder(r)
	var bursts []rcswitch.Burst
	for {
		var b rcswitch.Burst
		err := dec.Decode(&b)
		if errors.Is(err, io.EOF) {
			return bursts, nil
		}
		if err != nil {
			return bursts, fmt.Errorf("failed to decode burst %d: %w", len(bursts), err)
		}
		if len(b.Entries) > rcswitch.MaxChanges {
			return bursts, fmt.Errorf("burst %d has %d entries, max %d", len(bursts), len(b.Entries), rcswitch.MaxChanges)
		}
		bursts = append(bursts, b)
	}
}
