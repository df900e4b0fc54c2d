// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/rfswitch/pkg/config"
	"github.com/Thermoquad/rfswitch/pkg/rcswitch"
)

var waitTimeout int

// Exit codes of the wait command
const (
	waitExitMatched = 0
	waitExitTimeout = 1
	waitExitError   = 2
)

var errWaitTimeout = errors.New("timeout")

var waitCmd = &cobra.Command{
	Use:   "wait [code]",
	Short: "Wait for a code to be received",
	Long: `Wait until a code is received or the timeout expires.

Without an argument any decoded code ends the wait. With a code (value/bits
or a profile name) only that code does; the bit length must match too.

Exit codes:
  0 - Code received before timeout
  1 - Timeout reached without receiving the code
  2 - Connection or configuration error

Useful in scripts to react to a remote control or to check a receiver.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWait,
}

func init() {
	addReceiveFlags(waitCmd)
	waitCmd.Flags().IntVar(&waitTimeout, "timeout", 10, "Timeout in seconds to wait for a code")
	rootCmd.AddCommand(waitCmd)
}

// codeMatcher accepts any result, or one code and bit length
type codeMatcher struct {
	any   bool
	value uint64
	bits  uint
}

func newCodeMatcher(p config.Profile, args []string) (codeMatcher, error) {
	if len(args) == 0 {
		return codeMatcher{any: true}, nil
	}
	value, bits, err := p.Lookup(args[0])
	if err != nil {
		return codeMatcher{}, err
	}
	return codeMatcher{value: value, bits: bits}, nil
}

func (m codeMatcher) Match(res rcswitch.Result) bool {
	return m.any || (res.Value == m.value && res.BitLength == m.bits)
}

// waitForCode feeds a receiver from src until a result matches, the
// timeout expires or the source fails
func waitForCode(ctx context.Context, src edgeSource, cfg rcswitch.ReceiverConfig, m codeMatcher, timeout time.Duration) (rcswitch.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	matched := make(chan rcswitch.Result, 1)
	cfg.OnResult = func(res rcswitch.Result) {
		if !m.Match(res) {
			log.WithField("code", fmt.Sprintf("%#x", res.Value)).Debug("ignoring code")
			return
		}
		select {
		case matched <- res:
		default:
		}
	}

	st, err := startStation(ctx, src, cfg)
	if err != nil {
		return rcswitch.Result{}, err
	}
	defer st.rx.Disable()

	select {
	case res := <-matched:
		cancel()
		<-st.done
		return res, nil
	case err := <-st.done:
		// the source may end with a match still queued
		select {
		case res := <-matched:
			return res, nil
		default:
		}
		if err != nil {
			return rcswitch.Result{}, err
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return rcswitch.Result{}, errWaitTimeout
		}
		return rcswitch.Result{}, fmt.Errorf("source ended without a matching code")
	}
}

func runWait(cmd *cobra.Command, args []string) error {
	p, err := loadProfile(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(waitExitError)
	}
	m, err := newCodeMatcher(p, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(waitExitError)
	}

	src, err := openSource(p)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(waitExitError)
	}
	defer src.Close()

	fmt.Printf("rfswitch - Wait\n")
	fmt.Printf("Source: %s\n", src)
	fmt.Printf("Timeout: %d seconds\n", waitTimeout)
	if m.any {
		fmt.Printf("Waiting for any code...\n\n")
	} else {
		fmt.Printf("Waiting for 0x%X (%d bit)...\n\n", m.value, m.bits)
	}

	res, err := waitForCode(context.Background(), src, p.ReceiverConfig(), m, time.Duration(waitTimeout)*time.Second)
	switch {
	case err == nil:
		fmt.Printf("SUCCESS: %s\n", rcswitch.FormatResult(res))
		os.Exit(waitExitMatched)
	case errors.Is(err, errWaitTimeout):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No matching code received within %d seconds\n", waitTimeout)
		os.Exit(waitExitTimeout)
	default:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(waitExitError)
	}

	return nil
}
