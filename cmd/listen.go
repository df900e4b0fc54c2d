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

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/rfswitch/pkg/rcswitch"
)

var (
	listenRaw           bool
	listenStatsInterval int
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Decode and display received codes",
	Long: `Continuously decode remote control bursts and print each code as it
arrives, with its bit length, protocol and measured pulse length.

Edges come from a receiver module on --rx-pin or from a capture probe on
--port or --url. --raw also prints the timings of every burst, decoded or
not. With --redis every code is published as well.`,
	Args: cobra.NoArgs,
	RunE: runListen,
}

func init() {
	addReceiveFlags(listenCmd)
	listenCmd.Flags().BoolVar(&listenRaw, "raw", false, "Print the timings of every burst")
	listenCmd.Flags().IntVar(&listenStatsInterval, "stats-interval", 0, "Print statistics every N seconds (0 disables)")
	rootCmd.AddCommand(listenCmd)
}

func runListen(cmd *cobra.Command, args []string) error {
	p, err := loadProfile(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := openSource(p)
	if err != nil {
		return err
	}
	defer src.Close()

	queue, stopPublisher, err := startPublisher(ctx, p)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "rfswitch - Listen\n")
	fmt.Fprintf(out, "Source: %s\n", src)
	fmt.Fprintf(out, "Protocols: %v, tolerance %d%%\n", p.ReceiverConfig().Protocols, p.Tolerance)
	fmt.Fprintf(out, "Press Ctrl+C to exit\n\n")

	lines := make(lineQueue, 64)
	cfg := p.ReceiverConfig()
	cfg.TraceBits = log.IsLevelEnabled(logrus.TraceLevel)
	cfg.OnResult = func(res rcswitch.Result) {
		lines.Push(rcswitch.FormatResult(res))
		queue.Push(res)
	}
	if listenRaw {
		cfg.OnBurst = func(entries []rcswitch.Entry) {
			lines.Push(rcswitch.FormatBurst(entries))
		}
	}

	st, err := startStation(ctx, src, cfg)
	if err != nil {
		stopPublisher()
		return err
	}

	var tick <-chan time.Time
	if listenStatsInterval > 0 {
		ticker := time.NewTicker(time.Duration(listenStatsInterval) * time.Second)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case line := <-lines:
			fmt.Fprintln(out, line)

		case <-tick:
			stats := st.rx.Stats()
			fmt.Fprintf(out, "\n%s\n", stats.String())

		case err := <-st.done:
			st.rx.Disable()
			lines.drain(out)
			stopPublisher()

			stats := st.rx.Stats()
			fmt.Fprintf(out, "\n%s", stats.String())
			return err
		}
	}
}
