package testutil

import (
	"sync"
	"time"
)

// ManualTicker is a tick source driven by the test instead of wall time.
//
// Tick blocks until the consumer receives the tick, so after N calls to Tick
// the consumer has observed exactly N ticks.
//
// Thread-safety: all methods are safe for concurrent use.
type ManualTicker struct {
	C chan time.Time

	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewManualTicker creates a ticker whose logical time starts at start and
// advances by step on every Tick.
func NewManualTicker(start time.Time, step time.Duration) *ManualTicker {
	return &ManualTicker{
		C:    make(chan time.Time),
		now:  start,
		step: step,
	}
}

// Tick advances logical time by one step and delivers it.
func (t *ManualTicker) Tick() {
	t.mu.Lock()
	t.now = t.now.Add(t.step)
	now := t.now
	t.mu.Unlock()

	t.C <- now
}
