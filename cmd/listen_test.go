// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenCommand(t *testing.T) {
	useSource(t, &probeSource{conn: edgeStream(t, 2, 0x145551), info: "test stream"})

	out, err := runCommand(t, "listen")
	require.NoError(t, err)

	assert.Contains(t, out, "Source: test stream")
	assert.Contains(t, out, "Protocols: [1], tolerance 60%")
	assert.Equal(t, 2, strings.Count(out, "0x145551 (24 bit) protocol=1 delay=350us"))
	assert.NotContains(t, out, "entries:")
	assert.Contains(t, out, "Decoded:")
}

func TestListenCommand_Raw(t *testing.T) {
	useSource(t, &probeSource{conn: edgeStream(t, 1, 0x145551), info: "test stream"})

	out, err := runCommand(t, "listen", "--raw")
	require.NoError(t, err)
	assert.Contains(t, out, "50 entries: 10850L")
	assert.Contains(t, out, "0x145551 (24 bit)")
}

func TestListenCommand_NoSource(t *testing.T) {
	_, err := runCommand(t, "listen")
	assert.ErrorContains(t, err, "--rx-pin")
}
