// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/rfswitch/pkg/probe"
	"github.com/Thermoquad/rfswitch/pkg/rcswitch"
)

func readCapture(t *testing.T, path string) []rcswitch.Burst {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	bursts, err := probe.ReadBursts(f)
	require.NoError(t, err)
	return bursts
}

func TestCaptureCommand_Count(t *testing.T) {
	useSource(t, &probeSource{conn: edgeStream(t, 1, 0x111111, 0x222222, 0x333333), info: "test stream"})
	path := filepath.Join(t.TempDir(), "out.cbor")

	out, err := runCommand(t, "capture", "--out", path, "--count", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Source: test stream")
	assert.Contains(t, out, "Captured 2 bursts to "+path)

	// every burst keeps its own entries
	bursts := readCapture(t, path)
	require.Len(t, bursts, 2)
	for i, want := range []uint64{0x111111, 0x222222} {
		res, ok, err := decodeBurst(rcswitch.DefaultReceiverConfig(), bursts[i].Entries)
		require.NoError(t, err)
		require.True(t, ok, "burst %d", i)
		assert.Equal(t, want, res.Value)
	}
}

func TestCaptureCommand_SourceEnds(t *testing.T) {
	useSource(t, &probeSource{conn: edgeStream(t, 3, 0x145551), info: "test stream"})
	path := filepath.Join(t.TempDir(), "out.cbor")

	out, err := runCommand(t, "capture", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, "50 entries:")
	assert.Contains(t, out, "Captured 3 bursts")
	assert.Len(t, readCapture(t, path), 3)

	// a second run appends
	useSource(t, &probeSource{conn: edgeStream(t, 1, 0x145551), info: "test stream"})
	_, err = runCommand(t, "capture", "--out", path)
	require.NoError(t, err)
	assert.Len(t, readCapture(t, path), 4)
}
