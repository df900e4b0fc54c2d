// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/rfswitch/pkg/probe"
	"github.com/Thermoquad/rfswitch/pkg/rcswitch"
)

var (
	captureOut   string
	captureCount int
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Record received bursts to a file",
	Long: `Record every burst long enough to decode into a capture file, whether
it decodes or not. The file is a CBOR sequence of bursts, each the capture
time and the [micros, level] entries of the burst, and can be decoded again
later with the replay command.

Recording stops after --count bursts, or on Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: runCapture,
}

func init() {
	addReceiveFlags(captureCmd)
	captureCmd.Flags().StringVarP(&captureOut, "out", "o", "capture.cbor", "Capture file")
	captureCmd.Flags().IntVarP(&captureCount, "count", "c", 0, "Stop after N bursts (0 records until interrupted)")
	rootCmd.AddCommand(captureCmd)
}

// burstQueue copies bursts out of the receiver callback
type burstQueue struct {
	ch      chan rcswitch.Burst
	dropped int
}

func newBurstQueue(size int) *burstQueue {
	return &burstQueue{ch: make(chan rcswitch.Burst, size)}
}

// Push copies entries, which alias the capture buffer
func (q *burstQueue) Push(entries []rcswitch.Entry) {
	b := rcswitch.NewBurst(time.Now(), append([]rcswitch.Entry(nil), entries...))
	select {
	case q.ch <- b:
	default:
		q.dropped++
	}
}

// next returns a queued burst without waiting
func (q *burstQueue) next() (rcswitch.Burst, bool) {
	select {
	case b := <-q.ch:
		return b, true
	default:
		return rcswitch.Burst{}, false
	}
}

func runCapture(cmd *cobra.Command, args []string) error {
	p, err := loadProfile(cmd)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(captureOut, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer f.Close()
	w := probe.NewBurstWriter(f)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := openSource(p)
	if err != nil {
		return err
	}
	defer src.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "rfswitch - Capture\n")
	fmt.Fprintf(out, "Source: %s\n", src)
	fmt.Fprintf(out, "File: %s\n", captureOut)
	fmt.Fprintf(out, "Press Ctrl+C to stop\n\n")

	bursts := newBurstQueue(32)
	lines := make(lineQueue, 32)
	cfg := p.ReceiverConfig()
	cfg.OnBurst = bursts.Push
	cfg.OnResult = func(res rcswitch.Result) {
		lines.Push("  " + rcswitch.FormatResult(res))
	}

	st, err := startStation(ctx, src, cfg)
	if err != nil {
		return err
	}

	finish := func(err error) error {
		st.rx.Disable()
		if bursts.dropped > 0 {
			log.WithField("dropped", bursts.dropped).Warn("bursts dropped while writing")
		}
		fmt.Fprintf(out, "\nCaptured %d bursts to %s\n", w.Count(), captureOut)
		return err
	}
	record := func(b rcswitch.Burst) error {
		if err := w.Write(b); err != nil {
			return err
		}
		fmt.Fprintf(out, "[%s] %s\n", b.Time().Format("15:04:05.000"), rcswitch.FormatBurst(b.Entries))
		return nil
	}
	full := func() bool {
		return captureCount > 0 && w.Count() >= captureCount
	}

	for {
		select {
		case b := <-bursts.ch:
			if err := record(b); err != nil {
				stop()
				<-st.done
				return finish(err)
			}
			if full() {
				stop()
				<-st.done
				lines.drain(out)
				return finish(nil)
			}

		case line := <-lines:
			fmt.Fprintln(out, line)

		case err := <-st.done:
			// the source can end with bursts still queued
			for !full() {
				b, ok := bursts.next()
				if !ok {
					break
				}
				if werr := record(b); werr != nil {
					return finish(werr)
				}
			}
			lines.drain(out)
			return finish(err)
		}
	}
}
