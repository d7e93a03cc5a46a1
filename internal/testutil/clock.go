package testutil

import "sync/atomic"

// DeterministicClock is a logical clock for tests and the conformance
// harness. It stands in for store.NextSeq so the same scenario always
// assigns the same seq values. Safe for concurrent use.
type DeterministicClock struct {
	seq atomic.Int64
}

// NewDeterministicClock creates a clock whose first Next returns 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Next advances the clock and returns the new seq.
func (c *DeterministicClock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last seq handed out, or 0 before the first Next.
func (c *DeterministicClock) Current() int64 {
	return c.seq.Load()
}

// Reset rewinds the clock so the next call to Next returns 1 again.
func (c *DeterministicClock) Reset() {
	c.seq.Store(0)
}
