// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/rfswitch/pkg/config"
	"github.com/Thermoquad/rfswitch/pkg/rcswitch"
)

var monitorRaw bool

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Interactive TUI for receiving and sending codes",
	Long: `Monitor a receiver in an interactive terminal UI.

Shows receive statistics, the last decoded code and a log of recent events.
When a transmitter is available (--tx-pin, or a probe that plays waveforms
back) codes can be typed in and sent; the receiver is suspended while its
own station transmits.`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func init() {
	addReceiveFlags(monitorCmd)
	addTransmitFlags(monitorCmd)
	monitorCmd.Flags().BoolVar(&monitorRaw, "raw", false, "Log the timings of every burst")
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	p, err := loadProfile(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src, err := openSource(p)
	if err != nil {
		return err
	}
	defer src.Close()

	queue, stopPublisher, err := startPublisher(ctx, p)
	if err != nil {
		return err
	}

	// Logs would tear the alt screen
	log.SetOutput(io.Discard)

	var prog *tea.Program
	cfg := p.ReceiverConfig()
	cfg.OnResult = func(res rcswitch.Result) {
		queue.Push(res)
		go prog.Send(resultMsg{result: res})
	}
	if monitorRaw {
		cfg.OnBurst = func(entries []rcswitch.Entry) {
			msg := burstMsg{summary: rcswitch.FormatBurst(entries)}
			go prog.Send(msg)
		}
	}

	rx, err := rcswitch.NewReceiver(cfg)
	if err != nil {
		stopPublisher()
		return err
	}

	send, txInfo, closeTx, err := monitorTransmitter(p, src, rx)
	if err != nil {
		stopPublisher()
		return err
	}
	defer closeTx()

	m := initialMonitorModel(src.String(), txInfo, cfg, rx.Stats, send)
	prog = tea.NewProgram(m, tea.WithAltScreen())

	rx.Enable()
	done := make(chan error, 1)
	go func() {
		err := runEdges(ctx, src, rx)
		prog.Send(sourceDoneMsg{err: err})
		done <- err
	}()

	_, err = prog.Run()
	cancel()
	<-done
	rx.Disable()
	stopPublisher()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// monitorTransmitter returns a send function for the TUI, or nil when the
// station cannot transmit
func monitorTransmitter(p config.Profile, src edgeSource, rx *rcswitch.Receiver) (func(string) error, string, func(), error) {
	var line *txLine
	closeTx := func() {}

	switch {
	case p.TxPin != "":
		var err error
		line, err = openTxLine(p, false)
		if err != nil {
			return nil, "", nil, err
		}
		closeTx = func() { line.Close() }
	case probeConfigured():
		// the probe that reports edges plays waveforms back too
		ps, ok := src.(*probeSource)
		if !ok {
			return nil, "", closeTx, nil
		}
		line = newRecordedLine(ps.conn, ps.info)
	default:
		return nil, "", closeTx, nil
	}

	tx, err := newTransmitter(p, line, rx)
	if err != nil {
		closeTx()
		return nil, "", nil, err
	}
	if err := tx.Enable(); err != nil {
		closeTx()
		return nil, "", nil, err
	}

	var mu sync.Mutex
	send := func(arg string) error {
		value, bits, err := p.Lookup(arg)
		if err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		return transmit(line, rx, func() error { return tx.Transmit(value, bits) })
	}

	index, proto := tx.Protocol()
	info := fmt.Sprintf("%s, protocol %d, %dus x%d", line.info, index, proto.PulseLength, tx.RepeatTransmit())
	prevClose := closeTx
	closeTx = func() {
		tx.Disable()
		prevClose()
	}
	return send, info, closeTx, nil
}
