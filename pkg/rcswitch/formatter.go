// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rcswitch

import (
	"fmt"
	"strings"
)

// FormatResult formats a decoded result into a human-readable string
func FormatResult(r Result) string {
	timestamp := "--:--:--.---"
	if !r.Timestamp.IsZero() {
		timestamp = r.Timestamp.Format("15:04:05.000")
	}
	return fmt.Sprintf("[%s] 0x%0*X (%d bit) protocol=%d delay=%dus",
		timestamp, hexDigits(r.BitLength), r.Value, r.BitLength, r.Protocol, r.Delay)
}

// FormatBurst formats captured entries as durations tagged with the level
// that was held, e.g. "50 entries: 10850L 350H 1050L ..."
func FormatBurst(entries []Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d entries:", len(entries))
	for _, e := range entries {
		held := 'H'
		if e.Level {
			held = 'L'
		}
		fmt.Fprintf(&b, " %d%c", e.Micros, held)
	}
	return b.String()
}

// FormatProtocol formats one catalogue entry
func FormatProtocol(index int, p Protocol) string {
	result := fmt.Sprintf("%d  %4dus  sync %-8s zero %-8s one %-8s",
		index, p.PulseLength, formatPulse(p.Sync), formatPulse(p.Zero), formatPulse(p.One))
	if p.Inverted {
		result += " inverted"
	}
	if p.Name != "" {
		result += " " + p.Name
	}
	return result
}

// FormatPulses renders pulses as they appear on the line, e.g. "▔▁▁▁"
func FormatPulses(p Protocol, pulses []Pulse) string {
	high, low := "▔", "▁"
	if p.Inverted {
		high, low = low, high
	}
	var b strings.Builder
	for _, pulse := range pulses {
		b.WriteString(strings.Repeat(high, int(pulse.High)))
		b.WriteString(strings.Repeat(low, int(pulse.Low)))
	}
	return b.String()
}

func formatPulse(p Pulse) string {
	return fmt.Sprintf("{%d,%d}", p.High, p.Low)
}

func hexDigits(bits uint) int {
	if bits == 0 {
		return 1
	}
	return int(bits+3) / 4
}
