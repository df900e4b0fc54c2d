// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rcswitch

// OutputLine is a digital output the transmitters drive
type OutputLine interface {
	// Out drives the line high or low, claiming it as an output if needed
	Out(high bool) error

	// Release stops driving the line
	Release() error
}

// Clock is a wrapping microsecond counter with a busy-wait delay.
// DelayMicros must not yield: a stretched pulse corrupts the waveform.
type Clock interface {
	Micros() uint32
	DelayMicros(us uint32)
}

// VirtualClock is a Clock that only advances when delayed. Useful for
// rendering waveforms without hardware.
type VirtualClock struct {
	now uint32
}

// NewVirtualClock returns a clock starting at start microseconds
func NewVirtualClock(start uint32) *VirtualClock {
	return &VirtualClock{now: start}
}

// Micros returns the current virtual time
func (c *VirtualClock) Micros() uint32 {
	return c.now
}

// DelayMicros advances the virtual time
func (c *VirtualClock) DelayMicros(us uint32) {
	c.now += us
}

// Recorder is an OutputLine that records every level change against a
// Clock instead of driving hardware.
type Recorder struct {
	clock    Clock
	level    bool
	since    uint32
	segments []Segment
	released bool
}

// NewRecorder returns a recorder whose line idles low
func NewRecorder(clock Clock) *Recorder {
	return &Recorder{clock: clock, since: clock.Micros()}
}

// Out records a transition when the level changes
func (r *Recorder) Out(high bool) error {
	r.released = false
	if high == r.level {
		return nil
	}
	now := r.clock.Micros()
	r.segments = append(r.segments, Segment{High: r.level, Micros: now - r.since})
	r.level = high
	r.since = now
	return nil
}

// Release marks the line as no longer driven
func (r *Recorder) Release() error {
	r.released = true
	return nil
}

// Level returns the current line level
func (r *Recorder) Level() bool {
	return r.level
}

// Released reports whether Release was called after the last Out
func (r *Recorder) Released() bool {
	return r.released
}

// Segments returns the completed segments, the idle period before the first
// transition included.
func (r *Recorder) Segments() []Segment {
	return r.segments
}

// Edges returns the recorded transitions as capture entries: the duration
// of the period that ended and the level the line changed to.
func (r *Recorder) Edges() []Entry {
	edges := make([]Entry, 0, len(r.segments))
	for _, s := range r.segments {
		edges = append(edges, Entry{Micros: s.Micros, Level: !s.High})
	}
	return edges
}

// Reset forgets recorded segments, keeping the current level
func (r *Recorder) Reset() {
	r.segments = r.segments[:0]
	r.since = r.clock.Micros()
}
