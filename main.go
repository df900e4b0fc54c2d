// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// rfswitch - 315/433 MHz remote control codec
//
// A CLI tool for sending codes to RC sockets and decoding the bursts of
// remote controls, on a GPIO radio module or through a capture probe.

package main

import (
	"os"

	"github.com/Thermoquad/rfswitch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
