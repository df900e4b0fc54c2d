// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rcswitch

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Burst is a captured burst as stored on disk: [captured-us, [[micros, level], ...]]
type Burst struct {
	_        struct{} `cbor:",toarray"`
	Captured int64    // unix microseconds
	Entries  []Entry
}

// NewBurst copies entries into a burst stamped with t
func NewBurst(t time.Time, entries []Entry) Burst {
	return Burst{
		Captured: t.UnixMicro(),
		Entries:  append([]Entry(nil), entries...),
	}
}

// Time returns the capture time
func (b Burst) Time() time.Time {
	return time.UnixMicro(b.Captured)
}

// MarshalBurst encodes a burst as CBOR
func MarshalBurst(b Burst) ([]byte, error) {
	data, err := cbor.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("failed to encode burst: %w", err)
	}
	return data, nil
}

// UnmarshalBurst decodes a CBOR burst
func UnmarshalBurst(data []byte) (Burst, error) {
	if len(data) == 0 {
		return Burst{}, fmt.Errorf("empty CBOR payload")
	}
	var b Burst
	if err := cbor.Unmarshal(data, &b); err != nil {
		return Burst{}, fmt.Errorf("failed to decode CBOR: %w", err)
	}
	if len(b.Entries) > MaxChanges {
		return Burst{}, fmt.Errorf("burst has %d entries, max %d", len(b.Entries), MaxChanges)
	}
	return b, nil
}
