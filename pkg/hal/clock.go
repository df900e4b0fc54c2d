// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hal

import "time"

// SystemClock is a microsecond counter on the monotonic clock. It wraps
// after about 71 minutes, like a hardware timer.
type SystemClock struct {
	start time.Time
}

// NewSystemClock starts a clock at zero
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

// Micros returns the microseconds elapsed since the clock started
func (c *SystemClock) Micros() uint32 {
	return uint32(time.Since(c.start).Microseconds())
}

// DelayMicros spins until us microseconds have passed. It never yields to
// the scheduler, so callers pin their goroutine to an OS thread first.
func (c *SystemClock) DelayMicros(us uint32) {
	deadline := time.Now().Add(time.Duration(us) * time.Microsecond)
	for time.Now().Before(deadline) {
	}
}
