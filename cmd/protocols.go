// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/rfswitch/pkg/hal"
	"github.com/Thermoquad/rfswitch/pkg/rcswitch"
)

var protocolsCmd = &cobra.Command{
	Use:   "protocols",
	Short: "List the protocol catalogue",
	Long: `List the timing catalogue used for transmit and receive.

Each protocol is a base pulse length and three pulses (sync, zero, one), each
pulse being a high and a low period in units of the pulse length. Inverted
protocols swap the line level of every period.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "#  unit    pulses (high,low)")
		for i, p := range rcswitch.Protocols() {
			fmt.Fprintln(out, rcswitch.FormatProtocol(i+1, p))
		}
	},
}

var pinsCmd = &cobra.Command{
	Use:   "pins",
	Short: "List the GPIO pins of this host",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := hal.Init(); err != nil {
			return err
		}
		names := hal.PinNames()
		if len(names) == 0 {
			return fmt.Errorf("no GPIO pins found on this host")
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(protocolsCmd)
	rootCmd.AddCommand(pinsCmd)
}
