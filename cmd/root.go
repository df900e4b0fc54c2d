// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Serial probe flags
	portName string
	baudRate int

	// WebSocket probe flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Station flags
	profilePath string
	txPin       string
	rxPin       string
	redisAddr   string

	// Logging flags
	logLevel string
	logJSON  bool
)

// log is the CLI logger. The codec, hal and publisher get it as their
// diagnostic sink.
var log = logrus.New()

var rootCmd = &cobra.Command{
	Use:   "rfswitch",
	Short: "315/433 MHz remote control codec",
	Long: `rfswitch - send and receive on-off-keyed remote control codes.

Transmits codes to RC sockets through a GPIO driven radio module and decodes
the bursts of remote controls seen on a receiver module. Edges can also come
from a USB capture probe, which reports them as a CBOR stream and plays
waveforms back for transmission.

Radio modes:
  GPIO:      --tx-pin GPIO17 --rx-pin GPIO27
  Serial:    --port /dev/ttyACM0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]

Station settings can be kept in a JSON5 profile (--profile). Flags given on
the command line override the profile.

For WebSocket authentication, the password is read from the RFSWITCH_PASSWORD
environment variable, or prompted interactively if not set.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Probe serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")

	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "Probe WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVar(&profilePath, "profile", "", "Station profile (JSON5)")
	rootCmd.PersistentFlags().StringVar(&txPin, "tx-pin", "", "GPIO driving the transmitter module")
	rootCmd.PersistentFlags().StringVar(&rxPin, "rx-pin", "", "GPIO connected to the receiver module")
	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis", "", "Publish decoded codes to this Redis server (host:port)")

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Log as JSON")
}

func setupLogging(cmd *cobra.Command, args []string) error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	log.SetLevel(level)
	log.SetOutput(os.Stderr)
	if logJSON {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
