// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/rfswitch/pkg/rcswitch"
)

func TestSendDryRun(t *testing.T) {
	out, err := runCommand(t, "send", "--dry-run", "--repeat", "3", "0xAAAA/24")
	require.NoError(t, err)

	assert.Contains(t, out, "Code 0xAAAA (24 bit) protocol=1 pulse=350us repeat=3")
	assert.Contains(t, out, "Loopback: 3 of 3 repetitions decoded")
	assert.Contains(t, out, "0x00AAAA (24 bit) protocol=1 delay=350us")
}

func TestSendDryRun_MultipleCodes(t *testing.T) {
	out, err := runCommand(t, "send", "-n", "-r", "2", "0x1/24", "0b1010")
	require.NoError(t, err)

	assert.Contains(t, out, "0x000001 (24 bit)")
	assert.Contains(t, out, "Code 0xA (4 bit)")
}

func TestSend_InvalidCode(t *testing.T) {
	_, err := runCommand(t, "send", "--dry-run", "0x1FF/8")
	assert.Error(t, err)
}

func TestSend_RequiresLine(t *testing.T) {
	_, err := runCommand(t, "send", "0x1/24")
	assert.ErrorContains(t, err, "--tx-pin")
}

func TestMiniSendDryRun(t *testing.T) {
	out, err := runCommand(t, "minisend", "--dry-run", "20:1D:DF:E2:57")
	require.NoError(t, err)

	assert.Contains(t, out, "Bytes 201DDFE257 (40 bit) repeat=4")
	assert.Contains(t, out, "Loopback: 4 of 4 repetitions decoded")
	assert.Contains(t, out, "0x201DDFE257 (40 bit) protocol=8 delay=104us")
}

func TestMiniSendDryRun_TooLongForReceiver(t *testing.T) {
	out, err := runCommand(t, "minisend", "--dry-run", "--repeat", "1", "000102030405060708")
	require.NoError(t, err)
	assert.Contains(t, out, "Loopback skipped")
}

func TestParseBytes(t *testing.T) {
	tests := []struct {
		in   string
		want []byte
	}{
		{"201DDFE257", []byte{0x20, 0x1D, 0xDF, 0xE2, 0x57}},
		{"0x0102", []byte{0x01, 0x02}},
		{"aa:bb cc", []byte{0xAA, 0xBB, 0xCC}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseBytes(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, in := range []string{"", "0x", "abc", "zz"} {
		_, err := parseBytes(in)
		assert.Error(t, err, in)
	}
}

func TestLoopbackConfig_ShortSyncGap(t *testing.T) {
	p, err := rcswitch.LookupProtocol(4)
	require.NoError(t, err)

	cfg := loopbackConfig(4, p)
	require.NoError(t, cfg.Validate())
	assert.Less(t, cfg.SeparationLimit, syncGap(p))
	assert.Equal(t, []int{4}, cfg.Protocols)
}

func TestMiniProtocolIndex(t *testing.T) {
	assert.Equal(t, 8, miniProtocolIndex())
}
