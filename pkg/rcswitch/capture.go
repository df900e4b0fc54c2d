// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rcswitch

// Entry is one captured edge: the duration of the level that just ended and
// the level the line changed to. Encoded as a two element CBOR array.
type Entry struct {
	_      struct{} `cbor:",toarray"`
	Micros uint32
	Level  bool
}

// CaptureBuffer is a fixed capacity store for the entries of one burst
type CaptureBuffer struct {
	entries [MaxChanges]Entry
	n       int
}

// Append stores e at the write cursor. When the buffer is full the partial
// burst is abandoned: the cursor is reset, e becomes the first entry of the
// next burst and Append reports the overflow.
func (b *CaptureBuffer) Append(e Entry) (overflow bool) {
	if b.n >= MaxChanges {
		b.n = 0
		overflow = true
	}
	b.entries[b.n] = e
	b.n++
	return overflow
}

// Reset discards all entries
func (b *CaptureBuffer) Reset() {
	b.n = 0
}

// Len returns the number of entries since the last reset
func (b *CaptureBuffer) Len() int {
	return b.n
}

// Entries returns the stored entries. The slice aliases the buffer and is
// only valid until the next Append or Reset.
func (b *CaptureBuffer) Entries() []Entry {
	return b.entries[:b.n]
}

// Timings copies the entry durations into dst and returns the filled part
func (b *CaptureBuffer) Timings(dst []uint32) []uint32 {
	n := b.n
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = b.entries[i].Micros
	}
	return dst[:n]
}
