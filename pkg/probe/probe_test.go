// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package probe

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/rfswitch/pkg/rcswitch"
)

// transmitEdges renders code on protocol 1 and returns the edges a probe
// would report, starting with a sync gap
func transmitEdges(t *testing.T, code uint64, repeat int) []rcswitch.Entry {
	t.Helper()
	clock := rcswitch.NewVirtualClock(0)
	rec := rcswitch.NewRecorder(clock)
	tx := rcswitch.NewTransmitter(rcswitch.TransmitterConfig{Line: rec, Clock: clock})
	require.NoError(t, tx.Enable())
	require.NoError(t, tx.SetRepeatTransmit(repeat))

	clock.DelayMicros(350 * 31)
	require.NoError(t, tx.Transmit(code, 24))
	// the next transmission starts and closes the last sync gap
	require.NoError(t, rec.Out(true))
	return rec.Edges()
}

func encodeEdges(t *testing.T, edges []rcswitch.Entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := cbor.NewEncoder(&buf)
	for _, e := range edges {
		require.NoError(t, enc.Encode(e))
	}
	return buf.Bytes()
}

func TestSource_WireFormat(t *testing.T) {
	data, err := cbor.Marshal(rcswitch.Entry{Micros: 350, Level: true})
	require.NoError(t, err)
	// [350, true]
	assert.Equal(t, []byte{0x82, 0x19, 0x01, 0x5E, 0xF5}, data)
}

func TestSource_Next(t *testing.T) {
	edges := []rcswitch.Entry{{Micros: 10850, Level: true}, {Micros: 350, Level: false}}
	src := NewSource(bytes.NewReader(encodeEdges(t, edges)))

	for _, want := range edges {
		got, err := src.Next()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := src.Next()
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, uint64(2), src.Entries())
}

func TestSource_RunDecodes(t *testing.T) {
	rx, err := rcswitch.NewReceiver(rcswitch.DefaultReceiverConfig())
	require.NoError(t, err)
	rx.Enable()

	src := NewSource(bytes.NewReader(encodeEdges(t, transmitEdges(t, 0x00AAAA, 3))))
	require.NoError(t, src.Run(context.Background(), rx))

	assert.Equal(t, uint64(3), rx.Stats().Decoded)
	res, ok := rx.Take()
	require.True(t, ok)
	assert.Equal(t, uint64(0x00AAAA), res.Value)
	assert.Equal(t, uint(24), res.BitLength)
}

func TestSource_Truncated(t *testing.T) {
	data := encodeEdges(t, []rcswitch.Entry{{Micros: 10850, Level: true}})
	src := NewSource(bytes.NewReader(data[:len(data)-1]))

	rx, err := rcswitch.NewReceiver(rcswitch.DefaultReceiverConfig())
	require.NoError(t, err)
	err = src.Run(context.Background(), rx)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestSource_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rx, err := rcswitch.NewReceiver(rcswitch.DefaultReceiverConfig())
	require.NoError(t, err)
	rx.Enable()

	src := NewSource(bytes.NewReader(encodeEdges(t, transmitEdges(t, 1, 2))))
	require.NoError(t, src.Run(ctx, rx))
	assert.Equal(t, uint64(0), src.Entries())
}

func TestWriteWaveform(t *testing.T) {
	p, err := rcswitch.LookupProtocol(1)
	require.NoError(t, err)
	pulses, err := rcswitch.EncodeCode(p, 0b1, 1)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteWaveform(&buf, p.Segments(pulses)))

	src := NewSource(&buf)
	var got []rcswitch.Entry
	for {
		e, err := src.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, e)
	}
	assert.Equal(t, []rcswitch.Entry{
		{Micros: 1050, Level: true},
		{Micros: 350, Level: false},
		{Micros: 350, Level: true},
		{Micros: 10850, Level: false},
	}, got)
}

func TestBurstFile(t *testing.T) {
	var buf bytes.Buffer
	w := NewBurstWriter(&buf)

	edges := transmitEdges(t, 0x123456, 2)
	captured := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, w.Write(rcswitch.NewBurst(captured, edges[:50])))
	require.NoError(t, w.Write(rcswitch.NewBurst(captured.Add(time.Second), edges[50:])))
	assert.Equal(t, 2, w.Count())

	bursts, err := ReadBursts(&buf)
	require.NoError(t, err)
	require.Len(t, bursts, 2)
	assert.True(t, bursts[0].Time().Equal(captured))
	assert.Equal(t, edges[:50], bursts[0].Entries)
	assert.Equal(t, edges[50:], bursts[1].Entries)
}
