package sample

import (
	"slices"
	"time"
)

// Sample is one position report from the rig. Its time is not stored: it is
// derived from Index and the nominal sample interval.
type Sample struct {
	Index    int
	Position float64
}

// Seconds returns the nominal sample time, Index * interval, in seconds.
// Arrival jitter is not reflected.
func (s Sample) Seconds(interval time.Duration) float64 {
	return float64(s.Index) * interval.Seconds()
}

// Buffer is the telemetry history of the current session. Samples are only
// added by Append, which assigns the next contiguous index, so Len() always
// equals the number of appends since the last Reset.
type Buffer struct {
	samples []Sample
}

// NewBuffer creates an empty buffer with room for capacity samples.
func NewBuffer(capacity int) *Buffer {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer{samples: make([]Sample, 0, capacity)}
}

// Append adds a position and returns the stored sample.
func (b *Buffer) Append(position float64) Sample {
	s := Sample{Index: len(b.samples), Position: position}
	b.samples = append(b.samples, s)
	return s
}

// Reset discards all samples; the next Append starts at index 0.
func (b *Buffer) Reset() {
	clear(b.samples)
	b.samples = b.samples[:0]
}

// Len returns the number of samples.
func (b *Buffer) Len() int {
	return len(b.samples)
}

// Last returns the newest sample.
func (b *Buffer) Last() (Sample, bool) {
	if len(b.samples) == 0 {
		return Sample{}, false
	}
	return b.samples[len(b.samples)-1], true
}

// Samples returns a copy of the buffer contents, oldest first.
func (b *Buffer) Samples() []Sample {
	return slices.Clone(b.samples)
}
