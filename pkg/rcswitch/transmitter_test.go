// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rcswitch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransmitter(t *testing.T, rx *Receiver) (*Transmitter, *Recorder, *VirtualClock) {
	t.Helper()
	clock := NewVirtualClock(0)
	rec := NewRecorder(clock)
	tx := NewTransmitter(TransmitterConfig{Line: rec, Clock: clock, Receiver: rx})
	require.NoError(t, tx.Enable())
	return tx, rec, clock
}

func TestTransmitter_Defaults(t *testing.T) {
	tx, _, _ := newTestTransmitter(t, nil)

	idx, p := tx.Protocol()
	assert.Equal(t, 1, idx)
	assert.Equal(t, uint16(350), p.PulseLength)
	assert.Equal(t, DefaultRepeatTransmit, tx.RepeatTransmit())
}

func TestTransmitter_Configuration(t *testing.T) {
	tx, _, _ := newTestTransmitter(t, nil)

	require.ErrorIs(t, tx.SetProtocol(0), ErrInvalidProtocol)
	require.ErrorIs(t, tx.SetProtocol(9), ErrInvalidProtocol)
	require.ErrorIs(t, tx.SetRepeatTransmit(0), ErrInvalidRepeat)
	require.ErrorIs(t, tx.SetPulseLength(0), ErrInvalidPulseLength)

	require.NoError(t, tx.SetProtocol(2))
	require.NoError(t, tx.SetPulseLength(700))
	_, p := tx.Protocol()
	assert.Equal(t, uint16(700), p.PulseLength)

	// the catalogue is untouched by the override
	orig, _ := LookupProtocol(2)
	assert.Equal(t, uint16(650), orig.PulseLength)

	// selecting a protocol drops the override
	require.NoError(t, tx.SetProtocol(2))
	_, p = tx.Protocol()
	assert.Equal(t, uint16(650), p.PulseLength)
}

func TestTransmitter_Waveform(t *testing.T) {
	tx, rec, _ := newTestTransmitter(t, nil)
	require.NoError(t, tx.SetRepeatTransmit(1))

	require.NoError(t, tx.Transmit(0b10, 2))

	// idle, one {3,1}, zero {1,3}, sync high; the sync low is still open
	want := []Segment{
		{High: false, Micros: 0},
		{High: true, Micros: 1050},
		{High: false, Micros: 350},
		{High: true, Micros: 350},
		{High: false, Micros: 1050},
		{High: true, Micros: 350},
	}
	assert.Equal(t, want, rec.Segments())
	assert.False(t, rec.Level())
}

func TestTransmitter_RepeatCount(t *testing.T) {
	tx, rec, clock := newTestTransmitter(t, nil)
	require.NoError(t, tx.SetRepeatTransmit(4))

	require.NoError(t, tx.Transmit(0xAAAA, 16))

	// each repetition is 16 * 4 units of data and 32 units of sync
	assert.Equal(t, uint32(4*(16*4+32)*350), clock.Micros())
	require.Len(t, rec.Segments(), 4*17*2)
}

func TestTransmitter_ZeroBitLengthSendsSync(t *testing.T) {
	tx, rec, _ := newTestTransmitter(t, nil)
	require.NoError(t, tx.SetRepeatTransmit(2))

	require.NoError(t, tx.Transmit(0xFF, 0))
	require.Len(t, rec.Segments(), 4)
}

func TestTransmitter_InvertedEndsLow(t *testing.T) {
	tx, rec, _ := newTestTransmitter(t, nil)
	require.NoError(t, tx.SetProtocol(6))
	require.NoError(t, tx.SetRepeatTransmit(2))

	require.NoError(t, tx.Transmit(0x3, 2))
	assert.False(t, rec.Level())

	segs := rec.Segments()
	last := segs[len(segs)-1]
	require.True(t, last.High)
	assert.Equal(t, uint32(450), last.Micros)
}

func TestTransmitter_NotEnabled(t *testing.T) {
	clock := NewVirtualClock(0)
	tx := NewTransmitter(TransmitterConfig{Line: NewRecorder(clock), Clock: clock})

	require.ErrorIs(t, tx.Transmit(1, 8), ErrNotEnabled)
	assert.Equal(t, uint32(0), clock.Micros())
}

func TestTransmitter_BitLengthError(t *testing.T) {
	tx, rec, _ := newTestTransmitter(t, nil)

	require.ErrorIs(t, tx.Transmit(1, 65), ErrBitLength)
	require.Len(t, rec.Segments(), 0)
}

func TestTransmitter_DisableReleasesLow(t *testing.T) {
	tx, rec, _ := newTestTransmitter(t, nil)
	require.NoError(t, rec.Out(true))

	require.NoError(t, tx.Disable())
	assert.False(t, rec.Level())
	require.True(t, rec.Released())
	assert.False(t, tx.Enabled())
}

// loopbackLine feeds its own transitions to a receiver, like a radio that
// hears its own transmitter.
type loopbackLine struct {
	*Recorder
	rx    *Receiver
	clock Clock
}

func (l *loopbackLine) Out(high bool) error {
	if high != l.Level() {
		l.rx.HandleEdge(high, l.clock.Micros())
	}
	return l.Recorder.Out(high)
}

func TestTransmitter_SuspendsReceiver(t *testing.T) {
	rx := newTestReceiver(t, nil)
	clock := NewVirtualClock(0)
	line := &loopbackLine{Recorder: NewRecorder(clock), rx: rx, clock: clock}
	tx := NewTransmitter(TransmitterConfig{Line: line, Clock: clock, Receiver: rx})
	require.NoError(t, tx.Enable())

	require.NoError(t, tx.Transmit(0x00AAAA, 24))
	assert.Equal(t, uint64(0), rx.Stats().Edges)
	assert.False(t, rx.Available())

	// detection is back once the burst is over
	rx.HandleEdge(true, clock.Micros())
	assert.Equal(t, uint64(1), rx.Stats().Edges)
}

func TestTransmitter_LoopbackWithoutSuspend(t *testing.T) {
	rx := newTestReceiver(t, nil)
	clock := NewVirtualClock(0)
	line := &loopbackLine{Recorder: NewRecorder(clock), rx: rx, clock: clock}
	tx := NewTransmitter(TransmitterConfig{Line: line, Clock: clock})
	require.NoError(t, tx.Enable())
	require.NoError(t, tx.SetRepeatTransmit(3))

	clock.DelayMicros(350 * 31)
	require.NoError(t, tx.Transmit(0x00AAAA, 24))

	// the last repetition has no trailing edge, so R repeats decode R-1 times
	assert.Equal(t, uint64(2), rx.Stats().Decoded)
	res, ok := rx.Result()
	require.True(t, ok)
	assert.Equal(t, uint64(0x00AAAA), res.Value)
}

func TestTransmitter_OutputError(t *testing.T) {
	clock := NewVirtualClock(0)
	line := &failingLine{failAfter: 3}
	tx := NewTransmitter(TransmitterConfig{Line: line, Clock: clock})
	require.NoError(t, tx.Enable())

	err := tx.Transmit(0xFF, 8)
	require.True(t, errors.Is(err, errLineFailed))
}

var errLineFailed = errors.New("line failed")

type failingLine struct {
	calls     int
	failAfter int
}

func (f *failingLine) Out(bool) error {
	f.calls++
	if f.calls > f.failAfter {
		return errLineFailed
	}
	return nil
}

func (f *failingLine) Release() error { return nil }

func TestMiniTransmitter_Scenario(t *testing.T) {
	clock := NewVirtualClock(0)
	rec := NewRecorder(clock)
	mini := NewMiniTransmitter(rec, clock, nil)

	code := []byte{0x20, 0x1D, 0xDF, 0xE2, 0x57}
	pulses, err := mini.Pulses(code, 40)
	require.NoError(t, err)
	require.Len(t, pulses, 41)

	require.NoError(t, mini.Transmit(code, 40, 2))
	// idle segment plus two edges per pulse, the final sync low still open
	require.Len(t, rec.Segments(), 2*41*2)
	assert.False(t, rec.Level())

	require.ErrorIs(t, mini.Transmit(code, 40, 0), ErrInvalidRepeat)
	require.ErrorIs(t, mini.Transmit(code, 41, 1), ErrBitLength)
}

func TestMiniTransmitter_IndependentOfSession(t *testing.T) {
	tx, rec, clock := newTestTransmitter(t, nil)
	require.NoError(t, tx.SetProtocol(3))
	require.NoError(t, tx.SetPulseLength(999))

	mini := NewMiniTransmitter(rec, clock, nil)
	require.NoError(t, mini.Transmit([]byte{0x80}, 1, 1))

	// one {4,13} then sync {32,33} at 104us
	assert.Equal(t, uint32((4+13+32+33)*104), clock.Micros())
}

// levelLine remembers the last level asked for, even when the write fails
type levelLine struct {
	failingLine
	last bool
}

func (l *levelLine) Out(high bool) error {
	l.last = high
	return l.failingLine.Out(high)
}

func TestMiniTransmitter_OutputError(t *testing.T) {
	line := &levelLine{failingLine: failingLine{failAfter: 5}}
	mini := NewMiniTransmitter(line, NewVirtualClock(0), nil)

	err := mini.Transmit([]byte{0xA5}, 8, 3)
	require.ErrorIs(t, err, errLineFailed)
	assert.False(t, line.last, "line left asserted after a failed transmit")
	assert.Equal(t, 7, line.calls)
}
