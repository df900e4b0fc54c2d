// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rcswitch

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrShortBurst is returned for bursts too short to come from a real
	// transmitter. Callers treat it as noise.
	ErrShortBurst = errors.New("burst too short")

	// ErrInvalidTolerance is returned for a tolerance percentage outside
	// 0-MaxTolerance
	ErrInvalidTolerance = errors.New("invalid tolerance")
)

// Result is a successfully decoded burst
type Result struct {
	Value     uint64
	BitLength uint
	Protocol  int

	// Delay is the unit delay measured from the sync entry, in microseconds
	Delay uint32

	// Timestamp is set by the Receiver when the result is published
	Timestamp time.Time
}

// MismatchError reports a pulse pair that matched neither the zero nor the
// one template of the protocol under trial.
type MismatchError struct {
	Protocol int
	Index    int // index of the high entry of the pair
	Bit      int // bits decoded before the pair
	High     uint32
	Low      uint32
}

func (e *MismatchError) Error() string {
	msg := fmt.Sprintf("pair at entry %d (%dus, %dus) matches neither zero nor one after %d bits",
		e.Index, e.High, e.Low, e.Bit)
	if e.Protocol == 0 {
		return msg
	}
	return fmt.Sprintf("protocol %d: %s", e.Protocol, msg)
}

// checkTolerance validates a tolerance percentage
func checkTolerance(percent int) error {
	if percent < 0 || percent > MaxTolerance {
		return fmt.Errorf("%w: %d%% outside 0-%d%%", ErrInvalidTolerance, percent, MaxTolerance)
	}
	return nil
}

// Match decodes timings against the catalogue protocol at index. timings[0]
// must be the long side of the sync pulse; the remaining entries are pulse
// halves in capture order.
func Match(timings []uint32, index, tolerance int) (Result, error) {
	p, err := LookupProtocol(index)
	if err != nil {
		return Result{}, err
	}
	res, err := MatchProtocol(timings, p, tolerance)
	if err != nil {
		var mm *MismatchError
		if errors.As(err, &mm) {
			mm.Protocol = index
		}
		return Result{}, err
	}
	res.Protocol = index
	return res, nil
}

// MatchProtocol decodes timings against p. The tolerance is a percentage of
// the unit delay measured from timings[0], so the comparison calibrates
// itself to each burst. Any unrecognised pair rejects the whole burst.
func MatchProtocol(timings []uint32, p Protocol, tolerance int) (Result, error) {
	n := len(timings)
	if n < minDecodeEntries {
		return Result{}, fmt.Errorf("%w: %d entries", ErrShortBurst, n)
	}
	if (n-1)/2 > MaxBitLength {
		return Result{}, fmt.Errorf("%w: %d entries exceed %d bits", ErrBitLength, n, MaxBitLength)
	}
	if err := checkTolerance(tolerance); err != nil {
		return Result{}, err
	}

	delay := uint64(timings[0]) / uint64(p.SyncUnits())
	tol := delay * uint64(tolerance) / 100

	first := 1
	if p.Inverted {
		first = 2
	}

	var code uint64
	for i := first; i < n-1; i += 2 {
		code <<= 1
		high, low := timings[i], timings[i+1]
		switch {
		case within(high, delay*uint64(p.Zero.High), tol) && within(low, delay*uint64(p.Zero.Low), tol):
			// zero
		case within(high, delay*uint64(p.One.High), tol) && within(low, delay*uint64(p.One.Low), tol):
			code |= 1
		default:
			return Result{}, &MismatchError{Index: i, Bit: (i - first) / 2, High: high, Low: low}
		}
	}

	return Result{
		Value:     code,
		BitLength: uint((n - 1) / 2),
		Delay:     uint32(delay),
	}, nil
}

// within reports whether |got-want| < tol
func within(got uint32, want, tol uint64) bool {
	g := uint64(got)
	if g > want {
		return g-want < tol
	}
	return want-g < tol
}
