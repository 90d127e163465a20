package bridge

import "sync/atomic"

// Clock is a monotonic logical clock.
//
// The bridge stamps every event it hands to the poll loop with Clock.Next(),
// so consumers (and the journal) can order events without wall-clock time.
// Safe for concurrent use, although only the poll loop calls Next in practice.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0. The first Next() returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific sequence number.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next increments the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current value without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
