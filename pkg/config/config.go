// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads rfswitch station profiles. Profiles are JSON5 so
// they can carry comments next to pin and code assignments.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/flynn/json5"

	"github.com/Thermoquad/rfswitch/pkg/rcswitch"
)

// Profile describes one radio station: its pins, codec settings and where
// decoded codes go
type Profile struct {
	TxPin string `json:"tx_pin"`
	RxPin string `json:"rx_pin"`

	Protocol    int    `json:"protocol"`
	PulseLength uint16 `json:"pulse_length"`
	Repeat      int    `json:"repeat"`

	Tolerance     int    `json:"tolerance"`
	RxProtocols   []int  `json:"rx_protocols"`
	SeparationMin uint32 `json:"separation_limit"`
	SeparationMax uint32 `json:"max_separation"`
	MinBurst      *int   `json:"min_burst"`

	Redis   string `json:"redis"`
	RedisDB int    `json:"redis_db"`
	Source  string `json:"source"`

	// Codes names codes for the send command, e.g. "lamp_on": "0x145551/24"
	Codes map[string]string `json:"codes"`
}

// Default returns the built in profile
func Default() Profile {
	return Profile{
		Protocol:      rcswitch.DefaultProtocol,
		Repeat:        rcswitch.DefaultRepeatTransmit,
		Tolerance:     rcswitch.DefaultTolerance,
		RxProtocols:   []int{rcswitch.DefaultProtocol},
		SeparationMin: rcswitch.DefaultSeparationLimit,
		SeparationMax: rcswitch.DefaultMaxSeparation,
	}
}

// Load reads a profile from path on top of the defaults
func Load(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to read profile: %w", err)
	}
	return Parse(data)
}

// Parse decodes a JSON5 profile on top of the defaults
func Parse(data []byte) (Profile, error) {
	p := Default()
	if err := json5.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("failed to parse profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Validate checks the codec settings
func (p Profile) Validate() error {
	if _, err := rcswitch.LookupProtocol(p.Protocol); err != nil {
		return fmt.Errorf("protocol: %w", err)
	}
	if p.Repeat < 1 {
		return fmt.Errorf("repeat: %w: %d", rcswitch.ErrInvalidRepeat, p.Repeat)
	}
	if err := p.ReceiverConfig().Validate(); err != nil {
		return err
	}
	for name, code := range p.Codes {
		if _, _, err := ParseCode(code); err != nil {
			return fmt.Errorf("code %q: %w", name, err)
		}
	}
	return nil
}

// ReceiverConfig returns the receive settings of the profile
func (p Profile) ReceiverConfig() rcswitch.ReceiverConfig {
	cfg := rcswitch.DefaultReceiverConfig()
	cfg.Tolerance = p.Tolerance
	cfg.SeparationLimit = p.SeparationMin
	cfg.MaxSeparation = p.SeparationMax
	if p.MinBurst != nil {
		cfg.MinBurst = *p.MinBurst
	}
	if len(p.RxProtocols) > 0 {
		cfg.Protocols = append([]int(nil), p.RxProtocols...)
	}
	return cfg
}

// Lookup resolves a named code, or parses s as a code when no name matches
func (p Profile) Lookup(s string) (code uint64, bits uint, err error) {
	if named, ok := p.Codes[s]; ok {
		return ParseCode(named)
	}
	return ParseCode(s)
}

// ParseCode parses "value/bits" where value is decimal, 0x hex or 0b
// binary. Without a bit count, binary values take their digit count and
// others default to 24 bits.
func ParseCode(s string) (code uint64, bits uint, err error) {
	s = strings.TrimSpace(s)
	value, bitStr, hasBits := strings.Cut(s, "/")

	code, err = strconv.ParseUint(value, 0, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid code %q: %w", value, err)
	}

	switch {
	case hasBits:
		n, err := strconv.ParseUint(bitStr, 10, 8)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid bit length %q: %w", bitStr, err)
		}
		bits = uint(n)
	case strings.HasPrefix(value, "0b") || strings.HasPrefix(value, "0B"):
		bits = uint(len(value) - 2)
	default:
		bits = 24
	}

	if bits > rcswitch.MaxBitLength {
		return 0, 0, fmt.Errorf("%w: %d", rcswitch.ErrBitLength, bits)
	}
	if bits < 64 && code>>bits != 0 {
		return 0, 0, fmt.Errorf("code %#x does not fit in %d bits", code, bits)
	}
	return code, bits, nil
}
