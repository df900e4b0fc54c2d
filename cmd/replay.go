// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/rfswitch/pkg/probe"
	"github.com/Thermoquad/rfswitch/pkg/rcswitch"
)

var replayRaw bool

var replayCmd = &cobra.Command{
	Use:   "replay <file>...",
	Short: "Decode the bursts of capture files",
	Long: `Feed every burst of one or more capture files through a receiver and
print what it decodes. Receive flags and the profile apply, so a capture
can be checked against other tolerances or protocol lists.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReplay,
}

func init() {
	addReceiveFlags(replayCmd)
	replayCmd.Flags().BoolVar(&replayRaw, "raw", false, "Print the timings of every burst")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	p, err := loadProfile(cmd)
	if err != nil {
		return err
	}
	cfg := p.ReceiverConfig()
	cfg.Log = log

	out := cmd.OutOrStdout()
	var total, decoded int
	for _, path := range args {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open capture file: %w", err)
		}
		bursts, err := probe.ReadBursts(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		fmt.Fprintf(out, "%s: %d bursts\n", path, len(bursts))
		for i, b := range bursts {
			total++
			if replayRaw {
				fmt.Fprintf(out, "  %s\n", rcswitch.FormatBurst(b.Entries))
			}

			res, ok, err := decodeBurst(cfg, b.Entries)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintf(out, "  burst %d: no match (%d entries)\n", i, len(b.Entries))
				continue
			}
			decoded++
			res.Timestamp = b.Time()
			fmt.Fprintf(out, "  burst %d: %s\n", i, rcswitch.FormatResult(res))
		}
	}

	fmt.Fprintf(out, "Decoded %d of %d bursts\n", decoded, total)
	return nil
}

// decodeBurst runs one captured burst through a fresh receiver. The burst
// starts with the gap that opened it; a closing gap is appended so the
// receiver sees it end.
func decodeBurst(cfg rcswitch.ReceiverConfig, entries []rcswitch.Entry) (rcswitch.Result, bool, error) {
	if len(entries) == 0 {
		return rcswitch.Result{}, false, nil
	}

	rx, err := rcswitch.NewReceiver(cfg)
	if err != nil {
		return rcswitch.Result{}, false, err
	}
	rx.Enable()

	gap := entries[0].Micros
	if gap <= cfg.SeparationLimit || gap >= cfg.MaxSeparation {
		gap = cfg.SeparationLimit + 1
	}
	rx.Replay(entries)
	rx.Replay([]rcswitch.Entry{{Micros: gap, Level: !entries[len(entries)-1].Level}})

	res, ok := rx.Take()
	return res, ok, nil
}
