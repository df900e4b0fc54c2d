// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rcswitch

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrInvalidConfig is wrapped by every receiver configuration error
var ErrInvalidConfig = errors.New("invalid receiver config")

// ReceiverConfig configures a Receiver. Start from DefaultReceiverConfig.
type ReceiverConfig struct {
	// Tolerance is the accepted deviation in percent of the unit delay
	Tolerance int

	// A silence longer than SeparationLimit and shorter than MaxSeparation
	// ends a burst.
	SeparationLimit uint32
	MaxSeparation   uint32

	// MinBurst is the entry count a burst must exceed to be decoded
	MinBurst int

	// Protocols are tried in order on every burst
	Protocols []int

	// TraceBits logs every decoded pair and the resulting bit string at
	// trace level
	TraceBits bool

	Log logrus.FieldLogger

	// OnBurst is called with every completed burst before decoding. The
	// slice aliases the capture buffer and must not be retained.
	OnBurst func(entries []Entry)

	// OnResult is called with every published result
	OnResult func(res Result)
}

// DefaultReceiverConfig returns the defaults: protocol 1 only, 60% tolerance
func DefaultReceiverConfig() ReceiverConfig {
	return ReceiverConfig{
		Tolerance:       DefaultTolerance,
		SeparationLimit: DefaultSeparationLimit,
		MaxSeparation:   DefaultMaxSeparation,
		MinBurst:        DefaultMinBurst,
		Protocols:       []int{DefaultProtocol},
	}
}

// Validate checks the configuration
func (c ReceiverConfig) Validate() error {
	if err := checkTolerance(c.Tolerance); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.SeparationLimit >= c.MaxSeparation {
		return fmt.Errorf("%w: separation limit %dus must be below %dus",
			ErrInvalidConfig, c.SeparationLimit, c.MaxSeparation)
	}
	if c.MinBurst < 0 || c.MinBurst >= MaxChanges {
		return fmt.Errorf("%w: min burst %d outside 0-%d", ErrInvalidConfig, c.MinBurst, MaxChanges-1)
	}
	if len(c.Protocols) == 0 {
		return fmt.Errorf("%w: no protocols", ErrInvalidConfig)
	}
	for _, idx := range c.Protocols {
		if _, err := LookupProtocol(idx); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

// Receiver captures edges from an input line and decodes completed bursts.
//
// HandleEdge is the edge interrupt: it runs with the receiver locked and
// decodes synchronously when it sees a separation gap. The decoded result
// is a single slot mailbox where the last value wins.
type Receiver struct {
	mu  sync.Mutex
	cfg ReceiverConfig
	log logrus.FieldLogger

	enabled bool
	masked  bool

	buf     CaptureBuffer
	timings [MaxChanges]uint32
	last    uint32

	result  Result
	pending bool

	stats *Statistics
}

// NewReceiver creates a disabled receiver
func NewReceiver(cfg ReceiverConfig) (*Receiver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Protocols = append([]int(nil), cfg.Protocols...)
	return &Receiver{
		cfg:   cfg,
		log:   loggerOrDiscard(cfg.Log),
		stats: NewStatistics(),
	}, nil
}

// Enable starts capturing with an empty buffer
func (r *Receiver) Enable() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf.Reset()
	r.enabled = true
}

// Disable stops capturing. A pending result stays available.
func (r *Receiver) Disable() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = false
}

// Enabled reports whether the receiver is capturing
func (r *Receiver) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

// SetTolerance changes the tolerance used for the next burst
func (r *Receiver) SetTolerance(percent int) error {
	if err := checkTolerance(percent); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg.Tolerance = percent
	return nil
}

// Tolerance returns the current tolerance percentage
func (r *Receiver) Tolerance() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg.Tolerance
}

// HandleEdge records an edge. level is the line level after the edge and
// now is a wrapping microsecond timestamp.
func (r *Receiver) HandleEdge(level bool, now uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.enabled || r.masked {
		return
	}
	r.stats.Edges++

	elapsed := now - r.last
	r.last = now

	if elapsed > r.cfg.SeparationLimit && elapsed < r.cfg.MaxSeparation {
		if n := r.buf.Len(); n > r.cfg.MinBurst {
			r.decode()
		} else if n > 0 {
			r.stats.ShortBursts++
		}
		r.buf.Reset()
	}

	if r.buf.Append(Entry{Micros: elapsed, Level: level}) {
		r.stats.Overflows++
		r.log.WithField("capacity", MaxChanges).Warn("capture buffer overflow, burst discarded")
	}
}

// decode runs with r.mu held
func (r *Receiver) decode() {
	r.stats.Bursts++
	entries := r.buf.Entries()
	if r.cfg.OnBurst != nil {
		r.cfg.OnBurst(entries)
	}

	timings := r.buf.Timings(r.timings[:])
	var lastErr error
	for _, idx := range r.cfg.Protocols {
		res, err := Match(timings, idx, r.cfg.Tolerance)
		if err != nil {
			lastErr = err
			continue
		}

		res.Timestamp = time.Now()
		r.result = res
		r.pending = true
		r.stats.record(res.Protocol)
		if r.cfg.TraceBits {
			r.traceBits(timings, res)
		}
		if r.cfg.OnResult != nil {
			r.cfg.OnResult(res)
		}
		return
	}

	if errors.Is(lastErr, ErrShortBurst) {
		r.stats.ShortBursts++
		return
	}
	r.stats.Mismatches++
	fields := logrus.Fields{
		"entries": len(timings),
		"error":   lastErr,
	}
	if levelEnabled(r.log, logrus.DebugLevel) {
		fields["burst"] = FormatBurst(entries)
	}
	r.log.WithFields(fields).Debug("burst not decoded")
}

// traceBits reports each pair of a decoded burst with the bit it gave
func (r *Receiver) traceBits(timings []uint32, res Result) {
	p, _ := LookupProtocol(res.Protocol)
	first := 1
	if p.Inverted {
		first = 2
	}
	log := r.log.WithField("protocol", res.Protocol)
	for bit := 0; bit < int(res.BitLength); bit++ {
		i := first + 2*bit
		if i+1 >= len(timings) {
			break
		}
		v := (res.Value >> (int(res.BitLength) - 1 - bit)) & 1
		log.Tracef("pair %d: %dus/%dus -> %d", bit, timings[i], timings[i+1], v)
	}
	log.Tracef("bits %0*b", int(res.BitLength), res.Value)
}

// Available reports whether a decoded result is pending
func (r *Receiver) Available() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending
}

// Result returns the pending result without clearing it
func (r *Receiver) Result() (Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result, r.pending
}

// Take returns the pending result and clears the mailbox
func (r *Receiver) Take() (Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.result, r.pending
	r.result = Result{}
	r.pending = false
	return res, ok
}

// Clear drops the pending result
func (r *Receiver) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.result = Result{}
	r.pending = false
}

// Snapshot returns a copy of the entries captured since the last burst
func (r *Receiver) Snapshot() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.buf.Entries()...)
}

// Stats returns a copy of the receive statistics
func (r *Receiver) Stats() Statistics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.stats
}

// ResetStats clears the receive statistics
func (r *Receiver) ResetStats() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.Reset()
}

// Replay feeds recorded entries through HandleEdge as if they arrived
// back to back after the last seen edge.
func (r *Receiver) Replay(entries []Entry) {
	r.mu.Lock()
	now := r.last
	r.mu.Unlock()

	for _, e := range entries {
		now += e.Micros
		r.HandleEdge(e.Level, now)
	}
}

// Suspend masks edge handling and returns the previous mask state. Pair
// every call with Resume.
func (r *Receiver) Suspend() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.masked
	r.masked = true
	return prev
}

// Resume restores the mask state returned by Suspend
func (r *Receiver) Resume(prev bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.masked = prev
}

// levelEnabled reports whether log emits at level. Loggers that cannot tell
// are assumed to.
func levelEnabled(log logrus.FieldLogger, level logrus.Level) bool {
	switch l := log.(type) {
	case *logrus.Logger:
		return l.IsLevelEnabled(level)
	case *logrus.Entry:
		return l.Logger.IsLevelEnabled(level)
	}
	return true
}

func loggerOrDiscard(log logrus.FieldLogger) logrus.FieldLogger {
	if log != nil {
		return log
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
