package engine

import "sync/atomic"

// Clock is the battle's tick counter.
//
// Ticks start at 0 for the round-start snapshot; the first Advance produces
// tick 1. Clock is safe for concurrent reads, but only the host advances it.
type Clock struct {
	tick atomic.Int64
}

// NewClock creates a clock at tick 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock positioned at start.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.tick.Store(start)
	return c
}

// Next advances the clock and returns the new tick.
func (c *Clock) Next() int64 {
	return c.tick.Add(1)
}

// Current returns the current tick without advancing.
func (c *Clock) Current() int64 {
	return c.tick.Load()
}

// Reset rewinds the clock to 0 for a new round.
func (c *Clock) Reset() {
	c.tick.Store(0)
}
