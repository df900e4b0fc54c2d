// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/rfswitch/pkg/rcswitch"
)

var (
	sendDryRun bool

	miniBits   uint
	miniRepeat int
	miniDryRun bool
)

var sendCmd = &cobra.Command{
	Use:   "send <code>...",
	Short: "Transmit codes",
	Long: `Transmit one or more codes.

A code is "value/bits", where value is decimal, 0x hex or 0b binary, e.g.
0x145551/24. Without a bit count, binary values take their digit count and
others are sent as 24 bit codes. Names from the profile "codes" table are
accepted too.

With --tx-pin the code is sent in real time on that GPIO. With --port or
--url the waveform is handed to the probe for playback. --dry-run prints the
waveform and decodes it through a loopback receiver instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

var miniSendCmd = &cobra.Command{
	Use:   "minisend <hex bytes>",
	Short: "Transmit a raw byte string with the fixed mini-transmitter timings",
	Long: `Transmit a byte string with the timings of protocol 8 (104us unit,
sync 32/33, zero 4/5, one 4/13), independent of any transmit settings.

Bytes are sent most significant first, each byte MSB first. --bits limits
the transmission to the first bits of the string, the last partial byte
contributing its top bits.`,
	Args: cobra.ExactArgs(1),
	RunE: runMiniSend,
}

func init() {
	addTransmitFlags(sendCmd)
	sendCmd.Flags().BoolVarP(&sendDryRun, "dry-run", "n", false, "Print the waveform and loopback decode instead of transmitting")
	rootCmd.AddCommand(sendCmd)

	miniSendCmd.Flags().UintVar(&miniBits, "bits", 0, "Number of bits to send (default all bytes)")
	miniSendCmd.Flags().IntVarP(&miniRepeat, "repeat", "r", 4, "Number of repetitions")
	miniSendCmd.Flags().BoolVarP(&miniDryRun, "dry-run", "n", false, "Print the waveform and loopback decode instead of transmitting")
	rootCmd.AddCommand(miniSendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	p, err := loadProfile(cmd)
	if err != nil {
		return err
	}

	// Resolve every code before keying the transmitter
	type code struct {
		arg   string
		value uint64
		bits  uint
	}
	codes := make([]code, 0, len(args))
	for _, arg := range args {
		value, bits, err := p.Lookup(arg)
		if err != nil {
			return err
		}
		codes = append(codes, code{arg, value, bits})
	}

	line, err := openTxLine(p, sendDryRun)
	if err != nil {
		return err
	}
	defer line.Close()

	tx, err := newTransmitter(p, line, nil)
	if err != nil {
		return err
	}
	if err := tx.Enable(); err != nil {
		return err
	}
	defer tx.Disable()

	out := cmd.OutOrStdout()
	index, proto := tx.Protocol()
	for _, c := range codes {
		if sendDryRun {
			if err := dryRunSend(out, tx, line, c.value, c.bits); err != nil {
				return err
			}
			continue
		}

		if err := transmit(line, nil, func() error { return tx.Transmit(c.value, c.bits) }); err != nil {
			return err
		}
		fmt.Fprintf(out, "Sent %s: 0x%X (%d bit) protocol=%d pulse=%dus x%d via %s\n",
			c.arg, c.value, c.bits, index, proto.PulseLength, tx.RepeatTransmit(), line.info)
	}
	return nil
}

// transmit runs send on a locked OS thread when the line is a real pin and
// hands recorded waveforms to the probe
// transmit runs send on line. rx, when set, listens on the same radio and
// stays suspended until a probe has played the waveform back.
func transmit(line *txLine, rx *rcswitch.Receiver, send func() error) error {
	if line.realtime() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}
	if rx != nil {
		prev := rx.Suspend()
		defer rx.Resume(prev)
	}
	if err := send(); err != nil {
		return err
	}
	playback, err := line.flush()
	if err != nil {
		return err
	}
	if rx != nil && playback > 0 {
		line.sleep(playback + playbackSettle)
	}
	return nil
}

func dryRunSend(out io.Writer, tx *rcswitch.Transmitter, line *txLine, value uint64, bits uint) error {
	index, proto := tx.Protocol()
	pulses, err := tx.Pulses(value, bits)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Code 0x%X (%d bit) protocol=%d pulse=%dus repeat=%d\n",
		value, bits, index, proto.PulseLength, tx.RepeatTransmit())
	fmt.Fprintln(out, rcswitch.FormatPulses(proto, pulses))

	return loopback(out, line, index, proto, tx.RepeatTransmit(), func() error {
		return tx.Transmit(value, bits)
	})
}

// loopback records one transmission and decodes it with a receiver
// listening only for index
func loopback(out io.Writer, line *txLine, index int, proto rcswitch.Protocol, repeats int, send func() error) error {
	rec := line.rec
	rec.Reset()

	// lead in with a sync gap so the first repetition decodes as well
	line.clock.DelayMicros(syncGap(proto))
	if err := send(); err != nil {
		return err
	}
	// closing edge ends the last repetition
	rec.Out(true)

	var total uint64
	for _, seg := range rec.Segments() {
		total += uint64(seg.Micros)
	}
	fmt.Fprintf(out, "Waveform: %d segments, %.1fms\n", len(rec.Segments()), float64(total)/1000)

	rx, err := rcswitch.NewReceiver(loopbackConfig(index, proto))
	if err != nil {
		return err
	}
	rx.Enable()
	rx.Replay(rec.Edges())

	stats := rx.Stats()
	fmt.Fprintf(out, "Loopback: %d of %d repetitions decoded\n", stats.Decoded, repeats)
	if res, ok := rx.Result(); ok {
		fmt.Fprintln(out, rcswitch.FormatResult(res))
	}

	rec.Out(false)
	rec.Reset()
	return nil
}

// syncGap is the longest period of the sync pulse
func syncGap(p rcswitch.Protocol) uint32 {
	return p.SyncUnits() * uint32(p.PulseLength)
}

// loopbackConfig returns a receiver config whose separation window admits
// the sync gap of p
func loopbackConfig(index int, p rcswitch.Protocol) rcswitch.ReceiverConfig {
	cfg := rcswitch.DefaultReceiverConfig()
	cfg.Protocols = []int{index}
	cfg.Log = log

	gap := syncGap(p)
	if gap <= cfg.SeparationLimit {
		cfg.SeparationLimit = gap / 2
	}
	if gap >= cfg.MaxSeparation {
		cfg.MaxSeparation = gap * 2
	}
	return cfg
}

// parseBytes parses a hex byte string, ignoring spaces, colons and a 0x prefix
func parseBytes(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	s = strings.NewReplacer(" ", "", ":", "").Replace(s)
	if s == "" {
		return nil, fmt.Errorf("empty byte string")
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid byte string: %w", err)
	}
	return b, nil
}

func runMiniSend(cmd *cobra.Command, args []string) error {
	code, err := parseBytes(args[0])
	if err != nil {
		return err
	}
	bits := miniBits
	if bits == 0 {
		bits = uint(len(code)) * 8
	}

	p, err := loadProfile(cmd)
	if err != nil {
		return err
	}
	line, err := openTxLine(p, miniDryRun)
	if err != nil {
		return err
	}
	defer line.Close()

	mini := rcswitch.NewMiniTransmitter(line.line, line.clock, nil)
	pulses, err := mini.Pulses(code, bits)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if miniDryRun {
		fmt.Fprintf(out, "Bytes %X (%d bit) repeat=%d\n", code, bits, miniRepeat)
		fmt.Fprintln(out, rcswitch.FormatPulses(rcswitch.MiniProtocol, pulses))
		if bits > rcswitch.MaxBitLength {
			fmt.Fprintf(out, "Loopback skipped: receivers decode at most %d bits\n", rcswitch.MaxBitLength)
			return nil
		}
		return loopback(out, line, miniProtocolIndex(), rcswitch.MiniProtocol, miniRepeat, func() error {
			return mini.Transmit(code, bits, miniRepeat)
		})
	}

	if err := transmit(line, nil, func() error { return mini.Transmit(code, bits, miniRepeat) }); err != nil {
		return err
	}
	fmt.Fprintf(out, "Sent %X (%d bit) x%d via %s\n", code, bits, miniRepeat, line.info)
	return nil
}

// miniProtocolIndex finds the catalogue entry with the mini-transmitter timings
func miniProtocolIndex() int {
	for i, p := range rcswitch.Protocols() {
		if p.PulseLength == rcswitch.MiniProtocol.PulseLength &&
			p.Sync == rcswitch.MiniProtocol.Sync &&
			p.Zero == rcswitch.MiniProtocol.Zero &&
			p.One == rcswitch.MiniProtocol.One {
			return i + 1
		}
	}
	return rcswitch.DefaultProtocol
}
