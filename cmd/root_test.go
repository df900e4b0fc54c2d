// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCommand executes the CLI with args and returns what it printed.
// Flags keep their values between executions, so they are reset first.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			var vals []string
			if def := strings.Trim(f.DefValue, "[]"); def != "" {
				vals = strings.Split(def, ",")
			}
			sv.Replace(vals)
		} else {
			f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func writeProfile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "station.json5")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestProtocolsCommand(t *testing.T) {
	out, err := runCommand(t, "protocols")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 9)
	assert.True(t, strings.HasPrefix(lines[1], "1  "))
	assert.Contains(t, lines[6], "inverted HT6P20B")
	assert.Contains(t, lines[8], "{32,33}")
}

func TestRootCommand_InvalidLogLevel(t *testing.T) {
	_, err := runCommand(t, "--log-level", "loud", "protocols")
	assert.ErrorContains(t, err, "log-level")
}

func TestLoadProfile_FlagsOverrideProfile(t *testing.T) {
	path := writeProfile(t, `{
		protocol: 2,
		repeat: 2,
		codes: {lamp: "0x145551/24"},
	}`)

	out, err := runCommand(t, "send", "--profile", path, "--dry-run", "lamp")
	require.NoError(t, err)
	assert.Contains(t, out, "Code 0x145551 (24 bit) protocol=2 pulse=650us repeat=2")

	out, err = runCommand(t, "send", "--profile", path, "--dry-run", "--protocol", "5", "lamp")
	require.NoError(t, err)
	assert.Contains(t, out, "protocol=5 pulse=500us repeat=2")
}

func TestLoadProfile_InvalidProfile(t *testing.T) {
	path := writeProfile(t, `{protocol: 9}`)
	_, err := runCommand(t, "send", "--profile", path, "--dry-run", "1")
	assert.Error(t, err)
}

func TestResultQueue_NilAndFull(t *testing.T) {
	var none *resultQueue
	assert.NotPanics(t, func() { none.Push(testResult()) })

	q := newResultQueue(1)
	q.Push(testResult())
	q.Push(testResult())
	assert.Len(t, q.ch, 1)
	assert.Equal(t, uint64(1), q.dropped)
}
