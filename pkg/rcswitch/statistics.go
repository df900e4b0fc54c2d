// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rcswitch

import (
	"fmt"
	"time"
)

// Statistics tracks receive counters and rates
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	Edges       uint64
	Bursts      uint64 // bursts long enough to attempt a decode
	Decoded     uint64
	Mismatches  uint64
	ShortBursts uint64
	Overflows   uint64

	// PerProtocol counts decodes by catalogue index minus one
	PerProtocol [len(protocols)]uint64

	// Rates (calculated)
	BurstRate  float64 // bursts/sec
	DecodeRate float64 // codes/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

func (s *Statistics) record(protocol int) {
	s.Decoded++
	if protocol >= 1 && protocol <= len(s.PerProtocol) {
		s.PerProtocol[protocol-1]++
	}
	s.LastUpdateTime = time.Now()
}

// CalculateRates calculates burst and decode rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.BurstRate = float64(s.Bursts) / elapsed
		s.DecodeRate = float64(s.Decoded) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var decodedPercent, mismatchPercent float64
	if s.Bursts > 0 {
		decodedPercent = float64(s.Decoded) * 100.0 / float64(s.Bursts)
		mismatchPercent = float64(s.Mismatches) * 100.0 / float64(s.Bursts)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Edges:           %8d\n", s.Edges)
	result += fmt.Sprintf("Bursts:          %8d\n", s.Bursts)
	result += fmt.Sprintf("Decoded:         %8d (%.1f%%)\n", s.Decoded, decodedPercent)
	for i, n := range s.PerProtocol {
		if n > 0 {
			result += fmt.Sprintf("  Protocol %d:     %5d\n", i+1, n)
		}
	}
	if s.Mismatches > 0 {
		result += fmt.Sprintf("Mismatches:      %8d (%.1f%%)\n", s.Mismatches, mismatchPercent)
	}
	if s.ShortBursts > 0 {
		result += fmt.Sprintf("Short Bursts:    %8d\n", s.ShortBursts)
	}
	if s.Overflows > 0 {
		result += fmt.Sprintf("Overflows:       %8d\n", s.Overflows)
	}

	result += fmt.Sprintf("Burst Rate:      %8.1f bursts/sec\n", s.BurstRate)
	result += fmt.Sprintf("Decode Rate:     %8.1f codes/sec\n", s.DecodeRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
